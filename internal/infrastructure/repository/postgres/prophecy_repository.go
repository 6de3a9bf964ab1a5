package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/riskibarqy/prediction-league/internal/domain/prophecy"
	qb "github.com/riskibarqy/prediction-league/internal/platform/querybuilder"
)

type prophecyTableModel struct {
	UserID       string         `db:"user_public_id"`
	Winner       string         `db:"winner"`
	Relegation   pq.StringArray `db:"relegation"`
	GoldenBoot   string         `db:"golden_boot"`
	FirstSacking string         `db:"first_sacking"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

type ProphecyRepository struct {
	db *sqlx.DB
}

func NewProphecyRepository(db *sqlx.DB) *ProphecyRepository {
	return &ProphecyRepository{db: db}
}

func (r *ProphecyRepository) Get(ctx context.Context, userID string) (prophecy.Prophecy, bool, error) {
	query, args, err := qb.Select("user_public_id", "winner", "relegation", "golden_boot", "first_sacking", "updated_at").
		From("prophecies").
		Where(
			qb.Eq("user_public_id", userID),
			qb.IsNull("deleted_at"),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return prophecy.Prophecy{}, false, fmt.Errorf("build get prophecy query: %w", err)
	}

	var row prophecyTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return prophecy.Prophecy{}, false, nil
		}
		return prophecy.Prophecy{}, false, fmt.Errorf("get prophecy user=%s: %w", userID, err)
	}

	return prophecy.Prophecy{
		UserID:       row.UserID,
		Winner:       row.Winner,
		Relegation:   []string(row.Relegation),
		GoldenBoot:   row.GoldenBoot,
		FirstSacking: row.FirstSacking,
		UpdatedAt:    row.UpdatedAt,
	}, true, nil
}

func (r *ProphecyRepository) Upsert(ctx context.Context, item prophecy.Prophecy) error {
	updatedAt := item.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	relegation := item.Relegation
	if relegation == nil {
		relegation = []string{}
	}

	query, args, err := qb.InsertModel("prophecies", prophecyTableModel{
		UserID:       item.UserID,
		Winner:       item.Winner,
		Relegation:   pq.StringArray(relegation),
		GoldenBoot:   item.GoldenBoot,
		FirstSacking: item.FirstSacking,
		UpdatedAt:    updatedAt,
	}, `ON CONFLICT (user_public_id) WHERE deleted_at IS NULL
DO UPDATE SET
    winner = EXCLUDED.winner,
    relegation = EXCLUDED.relegation,
    golden_boot = EXCLUDED.golden_boot,
    first_sacking = EXCLUDED.first_sacking,
    updated_at = EXCLUDED.updated_at`)
	if err != nil {
		return fmt.Errorf("build upsert prophecy query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert prophecy user=%s: %w", item.UserID, err)
	}
	return nil
}
