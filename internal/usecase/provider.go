package usecase

import (
	"context"
	"time"
)

// ResultLookup is what the result provider knows about one fixture.
type ResultLookup struct {
	Finished bool
	Status   string
	Home     *int
	Away     *int
}

// ResultProvider returns the final status of a fixture by its provider id.
type ResultProvider interface {
	LookupResult(ctx context.Context, externalID int64) (ResultLookup, error)
}

type ExternalFixture struct {
	ExternalID int64
	Round      string
	Gameweek   int
	HomeTeam   string
	AwayTeam   string
	KickoffAt  time.Time
	Status     string
}

// FixtureSource lists the configured season's schedule from the provider.
type FixtureSource interface {
	ListSeasonFixtures(ctx context.Context) ([]ExternalFixture, error)
}
