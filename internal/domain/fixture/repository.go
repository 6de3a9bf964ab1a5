package fixture

import (
	"context"
	"time"
)

// Repository exposes fixture persistence used by settlement and the public API.
type Repository interface {
	List(ctx context.Context, filter Filter) ([]Fixture, error)
	GetByID(ctx context.Context, fixtureID string) (Fixture, bool, error)
	ListByGameweek(ctx context.Context, gameweek int) ([]Fixture, error)
	// ListNeedingResults returns fixtures that kicked off before now and have no result.
	ListNeedingResults(ctx context.Context, now time.Time) ([]Fixture, error)
	// UpdateResult stores a final score. It reports false when the stored score
	// already equals result.
	UpdateResult(ctx context.Context, fixtureID string, result Score, scoredAt time.Time) (bool, error)
	// UpsertByExternalID inserts or refreshes schedule data without touching results.
	UpsertByExternalID(ctx context.Context, items []Fixture) (int, error)
	Count(ctx context.Context) (int, error)
}
