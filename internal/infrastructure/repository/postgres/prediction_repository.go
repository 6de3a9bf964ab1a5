package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/prediction-league/internal/domain/fixture"
	"github.com/riskibarqy/prediction-league/internal/domain/prediction"
	qb "github.com/riskibarqy/prediction-league/internal/platform/querybuilder"
)

type predictionTableModel struct {
	UserID      string    `db:"user_public_id"`
	FixtureID   string    `db:"fixture_public_id"`
	HomeScore   int       `db:"home_score"`
	AwayScore   int       `db:"away_score"`
	IsLate      bool      `db:"is_late"`
	SubmittedAt time.Time `db:"submitted_at"`
}

type jokerInsertModel struct {
	UserID       string     `db:"user_public_id"`
	FixtureID    *string    `db:"fixture_public_id"`
	UsedInSeason bool       `db:"used_in_season"`
	SelectedAt   *time.Time `db:"selected_at"`
}

type PredictionRepository struct {
	db *sqlx.DB
}

func NewPredictionRepository(db *sqlx.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

func (r *PredictionRepository) Upsert(ctx context.Context, item prediction.Prediction) error {
	return r.withVersionBump(ctx, item.UserID, func(tx *sqlx.Tx) error {
		query, args, err := qb.InsertModel("predictions", predictionTableModel{
			UserID:      item.UserID,
			FixtureID:   item.FixtureID,
			HomeScore:   item.Score.Home,
			AwayScore:   item.Score.Away,
			IsLate:      item.Late,
			SubmittedAt: item.SubmittedAt.UTC(),
		}, `ON CONFLICT (user_public_id, fixture_public_id) WHERE deleted_at IS NULL
DO UPDATE SET
    home_score = EXCLUDED.home_score,
    away_score = EXCLUDED.away_score,
    is_late = EXCLUDED.is_late,
    submitted_at = EXCLUDED.submitted_at,
    updated_at = NOW()`)
		if err != nil {
			return fmt.Errorf("build upsert prediction query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert prediction user=%s fixture=%s: %w", item.UserID, item.FixtureID, err)
		}
		return nil
	})
}

func (r *PredictionRepository) ListByUser(ctx context.Context, userID string) ([]prediction.Prediction, error) {
	query, args, err := qb.Select("user_public_id", "fixture_public_id", "home_score", "away_score", "is_late", "submitted_at").
		From("predictions").
		Where(
			qb.Eq("user_public_id", userID),
			qb.IsNull("deleted_at"),
		).
		OrderBy("submitted_at", "fixture_public_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list predictions query: %w", err)
	}

	var rows []predictionTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list predictions user=%s: %w", userID, err)
	}

	out := make([]prediction.Prediction, 0, len(rows))
	for _, row := range rows {
		out = append(out, prediction.Prediction{
			UserID:      row.UserID,
			FixtureID:   row.FixtureID,
			Score:       fixture.Score{Home: row.HomeScore, Away: row.AwayScore},
			SubmittedAt: row.SubmittedAt,
			Late:        row.IsLate,
		})
	}
	return out, nil
}

func (r *PredictionRepository) GetJoker(ctx context.Context, userID string) (prediction.Joker, bool, error) {
	query, args, err := qb.Select("user_public_id", "fixture_public_id", "used_in_season", "selected_at").
		From("jokers").
		Where(
			qb.Eq("user_public_id", userID),
			qb.IsNull("deleted_at"),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return prediction.Joker{}, false, fmt.Errorf("build get joker query: %w", err)
	}

	var row jokerRowModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return prediction.Joker{}, false, nil
		}
		return prediction.Joker{}, false, fmt.Errorf("get joker user=%s: %w", userID, err)
	}

	return prediction.Joker{
		UserID:       row.UserID,
		FixtureID:    nullStringValue(row.FixtureID),
		UsedInSeason: row.UsedInSeason,
		SelectedAt:   row.SelectedAt,
	}, true, nil
}

func (r *PredictionRepository) SetJoker(ctx context.Context, joker prediction.Joker) error {
	return r.withVersionBump(ctx, joker.UserID, func(tx *sqlx.Tx) error {
		query, args, err := qb.InsertModel("jokers", jokerInsertModel{
			UserID:       joker.UserID,
			FixtureID:    optionalString(joker.FixtureID),
			UsedInSeason: joker.UsedInSeason,
			SelectedAt:   joker.SelectedAt,
		}, `ON CONFLICT (user_public_id) WHERE deleted_at IS NULL
DO UPDATE SET
    fixture_public_id = EXCLUDED.fixture_public_id,
    used_in_season = jokers.used_in_season OR EXCLUDED.used_in_season,
    selected_at = EXCLUDED.selected_at,
    updated_at = NOW()`)
		if err != nil {
			return fmt.Errorf("build set joker query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("set joker user=%s: %w", joker.UserID, err)
		}
		return nil
	})
}

// withVersionBump runs write and increments the user's score version in the
// same transaction.
func (r *PredictionRepository) withVersionBump(ctx context.Context, userID string, write func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin prediction tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := bumpUserVersion(ctx, tx, userID); err != nil {
		return err
	}
	if err := write(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit prediction tx: %w", err)
	}
	return nil
}
