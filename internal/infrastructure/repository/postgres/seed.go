package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/prediction-league/internal/infrastructure/repository/memory"
)

const seedFixtureQuery = `
INSERT INTO fixtures (public_id, external_id, gameweek, home_team, away_team, kickoff_at, is_derby)
VALUES (:public_id, :external_id, :gameweek, :home_team, :away_team, :kickoff_at, :is_derby)
ON CONFLICT (external_id) WHERE deleted_at IS NULL DO NOTHING`

// BootstrapSeed loads the demo fixture set into an empty fixtures table.
func BootstrapSeed(ctx context.Context, db *sqlx.DB, now time.Time) error {
	var count int
	if err := db.GetContext(ctx, &count, `SELECT COUNT(1) FROM fixtures WHERE deleted_at IS NULL`); err != nil {
		return fmt.Errorf("count fixtures for bootstrap seed: %w", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, f := range memory.SeedFixtures(now) {
		sqlQuery, args, err := sqlx.Named(seedFixtureQuery, map[string]any{
			"public_id":   f.ID,
			"external_id": f.ExternalID,
			"gameweek":    f.Gameweek,
			"home_team":   f.HomeTeam,
			"away_team":   f.AwayTeam,
			"kickoff_at":  f.KickoffAt.UTC(),
			"is_derby":    f.IsDerby,
		})
		if err != nil {
			return fmt.Errorf("bind seed fixture %s query: %w", f.ID, err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(sqlQuery), args...); err != nil {
			return fmt.Errorf("seed fixture %s: %w", f.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed tx: %w", err)
	}
	return nil
}
