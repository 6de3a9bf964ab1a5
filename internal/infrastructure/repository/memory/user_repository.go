package memory

import (
	"context"

	"github.com/riskibarqy/prediction-league/internal/domain/user"
)

type UserRepository struct {
	store *Store
}

func NewUserRepository(store *Store) *UserRepository {
	return &UserRepository{store: store}
}

func (r *UserRepository) Upsert(_ context.Context, profile user.Profile) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	state := r.store.userLocked(profile.ID)
	if state.hasProfile && !state.profile.CreatedAt.IsZero() {
		profile.CreatedAt = state.profile.CreatedAt
	}
	state.profile = profile
	state.hasProfile = true
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, userID string) (user.Profile, bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	state, ok := r.store.users[userID]
	if !ok || !state.hasProfile {
		return user.Profile{}, false, nil
	}
	return state.profile, true, nil
}
