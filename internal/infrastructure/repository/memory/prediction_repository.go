package memory

import (
	"context"
	"sort"

	"github.com/riskibarqy/prediction-league/internal/domain/prediction"
)

type PredictionRepository struct {
	store *Store
}

func NewPredictionRepository(store *Store) *PredictionRepository {
	return &PredictionRepository{store: store}
}

func (r *PredictionRepository) Upsert(_ context.Context, item prediction.Prediction) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	byFixture := r.store.predictions[item.UserID]
	if byFixture == nil {
		byFixture = make(map[string]prediction.Prediction)
		r.store.predictions[item.UserID] = byFixture
	}
	item.SubmittedAt = item.SubmittedAt.UTC()
	byFixture[item.FixtureID] = item
	r.store.userLocked(item.UserID).version++
	return nil
}

func (r *PredictionRepository) ListByUser(_ context.Context, userID string) ([]prediction.Prediction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	byFixture := r.store.predictions[userID]
	out := make([]prediction.Prediction, 0, len(byFixture))
	for _, item := range byFixture {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].FixtureID < out[j].FixtureID
	})
	return out, nil
}

func (r *PredictionRepository) GetJoker(_ context.Context, userID string) (prediction.Joker, bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	item, ok := r.store.jokers[userID]
	return item, ok, nil
}

func (r *PredictionRepository) SetJoker(_ context.Context, joker prediction.Joker) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.jokers[joker.UserID] = joker
	r.store.userLocked(joker.UserID).version++
	return nil
}
