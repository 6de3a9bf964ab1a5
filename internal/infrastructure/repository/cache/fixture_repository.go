package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/riskibarqy/prediction-league/internal/domain/fixture"
	basecache "github.com/riskibarqy/prediction-league/internal/platform/cache"
)

const fixtureKeyPrefix = "fixture:"

// FixtureRepository is a read-through cache in front of a fixture repository.
// Schedule and result writes drop every cached fixture entry.
type FixtureRepository struct {
	next  fixture.Repository
	cache *basecache.Store
}

var _ fixture.Repository = (*FixtureRepository)(nil)

func NewFixtureRepository(next fixture.Repository, cache *basecache.Store) *FixtureRepository {
	return &FixtureRepository{next: next, cache: cache}
}

func (r *FixtureRepository) List(ctx context.Context, filter fixture.Filter) ([]fixture.Fixture, error) {
	key := fixtureKeyPrefix + "list:" + strconv.Itoa(filter.Gameweek)
	return r.loadList(ctx, key, func(ctx context.Context) ([]fixture.Fixture, error) {
		return r.next.List(ctx, filter)
	})
}

func (r *FixtureRepository) ListByGameweek(ctx context.Context, gameweek int) ([]fixture.Fixture, error) {
	key := fixtureKeyPrefix + "gameweek:" + strconv.Itoa(gameweek)
	return r.loadList(ctx, key, func(ctx context.Context) ([]fixture.Fixture, error) {
		return r.next.ListByGameweek(ctx, gameweek)
	})
}

func (r *FixtureRepository) GetByID(ctx context.Context, fixtureID string) (fixture.Fixture, bool, error) {
	cached, err := basecache.Load(ctx, r.cache, fixtureKeyPrefix+"id:"+fixtureID, func(ctx context.Context) (cachedFixtureByID, error) {
		item, exists, err := r.next.GetByID(ctx, fixtureID)
		if err != nil {
			return cachedFixtureByID{}, err
		}
		return cachedFixtureByID{value: cloneFixture(item), exists: exists}, nil
	})
	if err != nil {
		return fixture.Fixture{}, false, err
	}
	return cloneFixture(cached.value), cached.exists, nil
}

// ListNeedingResults depends on the clock and is never cached.
func (r *FixtureRepository) ListNeedingResults(ctx context.Context, now time.Time) ([]fixture.Fixture, error) {
	return r.next.ListNeedingResults(ctx, now)
}

func (r *FixtureRepository) UpdateResult(ctx context.Context, fixtureID string, result fixture.Score, scoredAt time.Time) (bool, error) {
	changed, err := r.next.UpdateResult(ctx, fixtureID, result, scoredAt)
	if err != nil {
		return false, err
	}
	if changed {
		r.cache.DeletePrefix(ctx, fixtureKeyPrefix)
	}
	return changed, nil
}

func (r *FixtureRepository) UpsertByExternalID(ctx context.Context, items []fixture.Fixture) (int, error) {
	count, err := r.next.UpsertByExternalID(ctx, items)
	if count > 0 || err != nil {
		r.cache.DeletePrefix(ctx, fixtureKeyPrefix)
	}
	return count, err
}

func (r *FixtureRepository) Count(ctx context.Context) (int, error) {
	return r.next.Count(ctx)
}

func (r *FixtureRepository) loadList(ctx context.Context, key string, load func(context.Context) ([]fixture.Fixture, error)) ([]fixture.Fixture, error) {
	items, err := basecache.Load(ctx, r.cache, key, func(ctx context.Context) ([]fixture.Fixture, error) {
		items, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return cloneFixtures(items), nil
	})
	if err != nil {
		return nil, err
	}
	return cloneFixtures(items), nil
}

type cachedFixtureByID struct {
	value  fixture.Fixture
	exists bool
}

func cloneFixtures(items []fixture.Fixture) []fixture.Fixture {
	out := make([]fixture.Fixture, len(items))
	for i, item := range items {
		out[i] = cloneFixture(item)
	}
	return out
}

func cloneFixture(item fixture.Fixture) fixture.Fixture {
	if item.Result != nil {
		result := *item.Result
		item.Result = &result
	}
	if item.ScoredAt != nil {
		scoredAt := *item.ScoredAt
		item.ScoredAt = &scoredAt
	}
	return item
}
