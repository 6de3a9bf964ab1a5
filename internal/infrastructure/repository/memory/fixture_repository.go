package memory

import (
	"context"
	"sort"
	"time"

	"github.com/riskibarqy/prediction-league/internal/domain/fixture"
)

type FixtureRepository struct {
	store *Store
}

func NewFixtureRepository(store *Store) *FixtureRepository {
	return &FixtureRepository{store: store}
}

// Seed inserts fixtures as-is, including results, for tests and local runs.
func (r *FixtureRepository) Seed(items []fixture.Fixture) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, item := range items {
		r.store.fixtures[item.ID] = cloneFixture(item)
		if item.ExternalID > 0 {
			r.store.fixtureExternal[item.ExternalID] = item.ID
		}
	}
}

func (r *FixtureRepository) List(_ context.Context, filter fixture.Filter) ([]fixture.Fixture, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]fixture.Fixture, 0, len(r.store.fixtures))
	for _, item := range r.store.fixtures {
		if filter.Gameweek > 0 && item.Gameweek != filter.Gameweek {
			continue
		}
		out = append(out, cloneFixture(item))
	}
	sortFixtures(out)
	return out, nil
}

func (r *FixtureRepository) GetByID(_ context.Context, fixtureID string) (fixture.Fixture, bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	item, ok := r.store.fixtures[fixtureID]
	if !ok {
		return fixture.Fixture{}, false, nil
	}
	return cloneFixture(item), true, nil
}

func (r *FixtureRepository) ListByGameweek(ctx context.Context, gameweek int) ([]fixture.Fixture, error) {
	return r.List(ctx, fixture.Filter{Gameweek: gameweek})
}

func (r *FixtureRepository) ListNeedingResults(_ context.Context, now time.Time) ([]fixture.Fixture, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]fixture.Fixture, 0)
	for _, item := range r.store.fixtures {
		if item.NeedsResult(now) {
			out = append(out, cloneFixture(item))
		}
	}
	sortFixtures(out)
	return out, nil
}

func (r *FixtureRepository) UpdateResult(_ context.Context, fixtureID string, result fixture.Score, scoredAt time.Time) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	item, ok := r.store.fixtures[fixtureID]
	if !ok {
		return false, nil
	}
	if item.Result != nil && *item.Result == result {
		return false, nil
	}
	item.Result = &result
	scoredAt = scoredAt.UTC()
	item.ScoredAt = &scoredAt
	r.store.fixtures[fixtureID] = item
	return true, nil
}

func (r *FixtureRepository) UpsertByExternalID(_ context.Context, items []fixture.Fixture) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	count := 0
	for _, item := range items {
		if existingID, ok := r.store.fixtureExternal[item.ExternalID]; ok && item.ExternalID > 0 {
			existing := r.store.fixtures[existingID]
			existing.Gameweek = item.Gameweek
			existing.HomeTeam = item.HomeTeam
			existing.AwayTeam = item.AwayTeam
			existing.KickoffAt = item.KickoffAt
			existing.IsDerby = item.IsDerby
			r.store.fixtures[existingID] = existing
			count++
			continue
		}

		item.Result = nil
		item.ScoredAt = nil
		r.store.fixtures[item.ID] = item
		if item.ExternalID > 0 {
			r.store.fixtureExternal[item.ExternalID] = item.ID
		}
		count++
	}
	return count, nil
}

func (r *FixtureRepository) Count(_ context.Context) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return len(r.store.fixtures), nil
}

func sortFixtures(items []fixture.Fixture) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].KickoffAt.Equal(items[j].KickoffAt) {
			return items[i].KickoffAt.Before(items[j].KickoffAt)
		}
		return items[i].ID < items[j].ID
	})
}
