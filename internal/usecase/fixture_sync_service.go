package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/prediction-league/internal/domain/fixture"
	"github.com/riskibarqy/prediction-league/internal/platform/id"
	"github.com/riskibarqy/prediction-league/internal/platform/logging"
)

type FixtureSyncResult struct {
	Fetched  int `json:"fetched"`
	Upserted int `json:"upserted"`
	Skipped  int `json:"skipped"`
	Derbies  int `json:"derbies"`
}

// FixtureSyncService seeds and refreshes the schedule from the provider. It
// never writes results; those only arrive through settlement.
type FixtureSyncService struct {
	source      FixtureSource
	fixtureRepo fixture.Repository
	derbies     fixture.DerbySet
	ids         id.Generator
	logger      *logging.Logger
}

func NewFixtureSyncService(
	source FixtureSource,
	fixtureRepo fixture.Repository,
	derbies fixture.DerbySet,
	ids id.Generator,
	logger *logging.Logger,
) *FixtureSyncService {
	if logger == nil {
		logger = logging.Default()
	}
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	return &FixtureSyncService{
		source:      source,
		fixtureRepo: fixtureRepo,
		derbies:     derbies,
		ids:         ids,
		logger:      logger,
	}
}

func (s *FixtureSyncService) SyncFixtures(ctx context.Context) (FixtureSyncResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FixtureSyncService.SyncFixtures")
	defer span.End()

	if s.source == nil {
		return FixtureSyncResult{}, fmt.Errorf("%w: fixture source is not configured", ErrDependencyUnavailable)
	}

	external, err := s.source.ListSeasonFixtures(ctx)
	if err != nil {
		return FixtureSyncResult{}, fmt.Errorf("list season fixtures: %w", err)
	}

	result := FixtureSyncResult{Fetched: len(external)}
	items := make([]fixture.Fixture, 0, len(external))
	for _, item := range external {
		mapped, ok := s.mapFixture(item)
		if !ok {
			result.Skipped++
			s.logger.DebugContext(ctx, "skip provider fixture",
				"external_id", item.ExternalID,
				"round", item.Round,
			)
			continue
		}
		publicID, err := s.ids.NewID()
		if err != nil {
			return FixtureSyncResult{}, fmt.Errorf("generate fixture id: %w", err)
		}
		mapped.ID = publicID
		if mapped.IsDerby {
			result.Derbies++
		}
		items = append(items, mapped)
	}

	if len(items) > 0 {
		upserted, err := s.fixtureRepo.UpsertByExternalID(ctx, items)
		if err != nil {
			return FixtureSyncResult{}, fmt.Errorf("upsert fixtures: %w", err)
		}
		result.Upserted = upserted
	}

	s.logger.InfoContext(ctx, "fixture sync completed",
		"fetched", result.Fetched,
		"upserted", result.Upserted,
		"skipped", result.Skipped,
		"derbies", result.Derbies,
	)
	return result, nil
}

// SeedIfEmpty runs a sync only when no fixture is stored yet.
func (s *FixtureSyncService) SeedIfEmpty(ctx context.Context) (bool, error) {
	count, err := s.fixtureRepo.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("count fixtures: %w", err)
	}
	if count > 0 {
		return false, nil
	}
	if _, err := s.SyncFixtures(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (s *FixtureSyncService) mapFixture(item ExternalFixture) (fixture.Fixture, bool) {
	home := strings.TrimSpace(item.HomeTeam)
	away := strings.TrimSpace(item.AwayTeam)
	if item.ExternalID <= 0 || home == "" || away == "" || item.KickoffAt.IsZero() {
		return fixture.Fixture{}, false
	}
	if !fixture.ValidGameweek(item.Gameweek) {
		return fixture.Fixture{}, false
	}
	return fixture.Fixture{
		ExternalID: item.ExternalID,
		Gameweek:   item.Gameweek,
		HomeTeam:   home,
		AwayTeam:   away,
		KickoffAt:  item.KickoffAt.UTC().Truncate(time.Second),
		IsDerby:    s.derbies.IsDerby(home, away),
	}, true
}
