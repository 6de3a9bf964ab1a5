package memory

import (
	"context"

	"github.com/riskibarqy/prediction-league/internal/domain/prophecy"
)

type ProphecyRepository struct {
	store *Store
}

func NewProphecyRepository(store *Store) *ProphecyRepository {
	return &ProphecyRepository{store: store}
}

func (r *ProphecyRepository) Get(_ context.Context, userID string) (prophecy.Prophecy, bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	item, ok := r.store.prophecies[userID]
	if !ok {
		return prophecy.Prophecy{}, false, nil
	}
	item.Relegation = append([]string(nil), item.Relegation...)
	return item, true, nil
}

func (r *ProphecyRepository) Upsert(_ context.Context, item prophecy.Prophecy) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	item.Relegation = append([]string(nil), item.Relegation...)
	r.store.prophecies[item.UserID] = item
	return nil
}
