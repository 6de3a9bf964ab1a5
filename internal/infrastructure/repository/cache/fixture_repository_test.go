package cache

import (
	"context"
	"testing"
	"time"

	"github.com/riskibarqy/prediction-league/internal/domain/fixture"
	"github.com/riskibarqy/prediction-league/internal/infrastructure/repository/memory"
	basecache "github.com/riskibarqy/prediction-league/internal/platform/cache"
)

type countingFixtureRepository struct {
	fixture.Repository
	gets  int
	lists int
}

func (r *countingFixtureRepository) GetByID(ctx context.Context, fixtureID string) (fixture.Fixture, bool, error) {
	r.gets++
	return r.Repository.GetByID(ctx, fixtureID)
}

func (r *countingFixtureRepository) List(ctx context.Context, filter fixture.Filter) ([]fixture.Fixture, error) {
	r.lists++
	return r.Repository.List(ctx, filter)
}

func newCachedFixtures(t *testing.T) (*FixtureRepository, *countingFixtureRepository) {
	t.Helper()

	store := memory.NewStore()
	base := memory.NewFixtureRepository(store)
	base.Seed([]fixture.Fixture{
		{ID: "fx-1", ExternalID: 1, Gameweek: 1, HomeTeam: "Liverpool", AwayTeam: "Everton", KickoffAt: time.Date(2026, 8, 15, 14, 0, 0, 0, time.UTC)},
	})
	counting := &countingFixtureRepository{Repository: base}
	return NewFixtureRepository(counting, basecache.NewStore(time.Minute)), counting
}

func TestFixtureRepository_GetByIDIsCached(t *testing.T) {
	t.Parallel()

	repo, counting := newCachedFixtures(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		item, exists, err := repo.GetByID(ctx, "fx-1")
		if err != nil || !exists {
			t.Fatalf("get fixture: exists=%v err=%v", exists, err)
		}
		if item.HomeTeam != "Liverpool" {
			t.Fatalf("unexpected fixture: %+v", item)
		}
	}
	if counting.gets != 1 {
		t.Fatalf("expected one backend read, got=%d", counting.gets)
	}
}

func TestFixtureRepository_ResultWriteInvalidates(t *testing.T) {
	t.Parallel()

	repo, counting := newCachedFixtures(t)
	ctx := context.Background()
	if _, err := repo.List(ctx, fixture.Filter{}); err != nil {
		t.Fatalf("list: %v", err)
	}

	changed, err := repo.UpdateResult(ctx, "fx-1", fixture.Score{Home: 2, Away: 0}, time.Date(2026, 8, 15, 16, 0, 0, 0, time.UTC))
	if err != nil || !changed {
		t.Fatalf("update result: changed=%v err=%v", changed, err)
	}

	items, err := repo.List(ctx, fixture.Filter{})
	if err != nil {
		t.Fatalf("list after update: %v", err)
	}
	if counting.lists != 2 {
		t.Fatalf("expected cache miss after write, got=%d backend lists", counting.lists)
	}
	if len(items) != 1 || items[0].Result == nil || *items[0].Result != (fixture.Score{Home: 2, Away: 0}) {
		t.Fatalf("expected fresh result, got=%+v", items)
	}
}

func TestFixtureRepository_ReturnsCopies(t *testing.T) {
	t.Parallel()

	repo, _ := newCachedFixtures(t)
	ctx := context.Background()
	items, err := repo.List(ctx, fixture.Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	items[0].HomeTeam = "mutated"

	again, err := repo.List(ctx, fixture.Filter{})
	if err != nil {
		t.Fatalf("list again: %v", err)
	}
	if again[0].HomeTeam != "Liverpool" {
		t.Fatalf("cached slice was mutated: %+v", again[0])
	}
}
