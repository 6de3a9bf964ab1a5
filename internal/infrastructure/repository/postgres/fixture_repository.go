package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/prediction-league/internal/domain/fixture"
	qb "github.com/riskibarqy/prediction-league/internal/platform/querybuilder"
)

const fixtureUpsertBatchSize = 200

type FixtureRepository struct {
	db *sqlx.DB
}

func NewFixtureRepository(db *sqlx.DB) *FixtureRepository {
	return &FixtureRepository{db: db}
}

func (r *FixtureRepository) List(ctx context.Context, filter fixture.Filter) ([]fixture.Fixture, error) {
	conditions := []qb.Condition{qb.IsNull("deleted_at")}
	if filter.Gameweek > 0 {
		conditions = append(conditions, qb.Eq("gameweek", filter.Gameweek))
	}

	query, args, err := qb.Select(fixtureColumns).From("fixtures").
		Where(conditions...).
		OrderBy("kickoff_at", "public_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select fixtures query: %w", err)
	}

	return r.selectFixtures(ctx, query, args)
}

func (r *FixtureRepository) GetByID(ctx context.Context, fixtureID string) (fixture.Fixture, bool, error) {
	query, args, err := qb.Select(fixtureColumns).From("fixtures").
		Where(
			qb.Eq("public_id", fixtureID),
			qb.IsNull("deleted_at"),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return fixture.Fixture{}, false, fmt.Errorf("build select fixture by id query: %w", err)
	}

	var row fixtureTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return fixture.Fixture{}, false, nil
		}
		return fixture.Fixture{}, false, fmt.Errorf("select fixture by id: %w", err)
	}
	return row.toDomain(), true, nil
}

func (r *FixtureRepository) ListByGameweek(ctx context.Context, gameweek int) ([]fixture.Fixture, error) {
	return r.List(ctx, fixture.Filter{Gameweek: gameweek})
}

func (r *FixtureRepository) ListNeedingResults(ctx context.Context, now time.Time) ([]fixture.Fixture, error) {
	query, args, err := qb.Select(fixtureColumns).From("fixtures").
		Where(
			qb.IsNull("home_score"),
			qb.Lt("kickoff_at", now.UTC()),
			qb.IsNull("deleted_at"),
		).
		OrderBy("kickoff_at", "public_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select fixtures needing results query: %w", err)
	}

	return r.selectFixtures(ctx, query, args)
}

func (r *FixtureRepository) UpdateResult(ctx context.Context, fixtureID string, result fixture.Score, scoredAt time.Time) (bool, error) {
	query, args, err := qb.Update("fixtures").
		Set("home_score", result.Home).
		Set("away_score", result.Away).
		Set("scored_at", scoredAt.UTC()).
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("public_id", fixtureID),
			qb.IsNull("deleted_at"),
			qb.Expr("(home_score IS DISTINCT FROM ? OR away_score IS DISTINCT FROM ?)", result.Home, result.Away),
		).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build update fixture result query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update fixture result fixture=%s: %w", fixtureID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("read affected rows fixture=%s: %w", fixtureID, err)
	}
	return affected > 0, nil
}

func (r *FixtureRepository) UpsertByExternalID(ctx context.Context, items []fixture.Fixture) (int, error) {
	items = uniqueByExternalID(items)
	if len(items) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin upsert fixtures tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	count := 0
	for _, bounds := range chunkBounds(len(items), fixtureUpsertBatchSize) {
		insert := qb.InsertInto("fixtures").Columns(
			"public_id", "external_id", "gameweek", "home_team", "away_team", "kickoff_at", "is_derby",
		)
		for _, item := range items[bounds[0]:bounds[1]] {
			model := fixtureInsertModel{
				PublicID:   item.ID,
				ExternalID: nullableInt64(item.ExternalID),
				Gameweek:   item.Gameweek,
				HomeTeam:   item.HomeTeam,
				AwayTeam:   item.AwayTeam,
				KickoffAt:  item.KickoffAt.UTC(),
				IsDerby:    item.IsDerby,
			}
			insert.Values(model.PublicID, model.ExternalID, model.Gameweek, model.HomeTeam, model.AwayTeam, model.KickoffAt, model.IsDerby)
		}

		query, args, err := insert.Suffix(`ON CONFLICT (external_id) WHERE deleted_at IS NULL
DO UPDATE SET
    gameweek = EXCLUDED.gameweek,
    home_team = EXCLUDED.home_team,
    away_team = EXCLUDED.away_team,
    kickoff_at = EXCLUDED.kickoff_at,
    is_derby = EXCLUDED.is_derby,
    updated_at = NOW()`).ToSQL()
		if err != nil {
			return 0, fmt.Errorf("build upsert fixtures query: %w", err)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, fmt.Errorf("upsert fixtures: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("read upserted fixtures: %w", err)
		}
		count += int(affected)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit upsert fixtures tx: %w", err)
	}
	return count, nil
}

func (r *FixtureRepository) Count(ctx context.Context) (int, error) {
	query, args, err := qb.Select("COUNT(1)").From("fixtures").
		Where(qb.IsNull("deleted_at")).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build count fixtures query: %w", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count fixtures: %w", err)
	}
	return count, nil
}

func (r *FixtureRepository) selectFixtures(ctx context.Context, query string, args []any) ([]fixture.Fixture, error) {
	var rows []fixtureTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select fixtures: %w", err)
	}

	out := make([]fixture.Fixture, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// uniqueByExternalID keeps the last entry per external id; a single upsert
// statement cannot touch the same row twice.
func uniqueByExternalID(items []fixture.Fixture) []fixture.Fixture {
	index := make(map[int64]int, len(items))
	out := make([]fixture.Fixture, 0, len(items))
	for _, item := range items {
		if item.ExternalID <= 0 {
			continue
		}
		if idx, ok := index[item.ExternalID]; ok {
			out[idx] = item
			continue
		}
		index[item.ExternalID] = len(out)
		out = append(out, item)
	}
	return out
}
