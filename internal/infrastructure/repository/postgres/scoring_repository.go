package postgres

import (
	"context"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/prediction-league/internal/domain/fixture"
	"github.com/riskibarqy/prediction-league/internal/domain/scoring"
	qb "github.com/riskibarqy/prediction-league/internal/platform/querybuilder"
)

type ScoringRepository struct {
	db *sqlx.DB
}

func NewScoringRepository(db *sqlx.DB) *ScoringRepository {
	return &ScoringRepository{db: db}
}

// ListUserSnapshots reads versions before predictions, so anything written in
// between bumps the version and makes the later score write conflict.
func (r *ScoringRepository) ListUserSnapshots(ctx context.Context) ([]scoring.UserSnapshot, error) {
	users, err := r.selectUsers(ctx)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}

	snapshots := make(map[string]*scoring.UserSnapshot, len(users))
	out := make([]scoring.UserSnapshot, len(users))
	for i, row := range users {
		out[i] = scoring.UserSnapshot{
			UserID:      row.PublicID,
			DisplayName: displayNameOf(row),
			Version:     row.Version,
			Total:       row.TotalScore,
		}
		snapshots[row.PublicID] = &out[i]
	}

	if err := r.attachDetails(ctx, snapshots, nil); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ScoringRepository) GetUserSnapshot(ctx context.Context, userID string) (scoring.UserSnapshot, bool, error) {
	query, args, err := qb.Select("public_id", "email", "display_name", "total_score", "score_version").
		From("users").
		Where(
			qb.Eq("public_id", userID),
			qb.IsNull("deleted_at"),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return scoring.UserSnapshot{}, false, fmt.Errorf("build select user score query: %w", err)
	}

	var row userScoreRowModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return scoring.UserSnapshot{}, false, nil
		}
		return scoring.UserSnapshot{}, false, fmt.Errorf("select user score: %w", err)
	}

	out := scoring.UserSnapshot{
		UserID:      row.PublicID,
		DisplayName: displayNameOf(row),
		Version:     row.Version,
		Total:       row.TotalScore,
	}
	if err := r.attachDetails(ctx, map[string]*scoring.UserSnapshot{userID: &out}, &userID); err != nil {
		return scoring.UserSnapshot{}, false, err
	}
	return out, true, nil
}

func (r *ScoringRepository) UpdateUserScores(ctx context.Context, update scoring.UserScoreUpdate) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update user scores tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := lockUserVersion(ctx, tx, update.UserID, update.ExpectedVersion); err != nil {
		return err
	}

	calculatedAt := update.CalculatedAt.UTC()
	gameweeks := make([]int, 0, len(update.Gameweeks))
	for _, item := range update.Gameweeks {
		gameweeks = append(gameweeks, item.Gameweek)
		query, args, err := qb.InsertModel("gameweek_scores", gameweekScoreInsertModel{
			UserID:       update.UserID,
			Gameweek:     item.Gameweek,
			Points:       item.Points,
			Penalty:      item.Penalty,
			CalculatedAt: calculatedAt,
		}, `ON CONFLICT (user_public_id, gameweek)
DO UPDATE SET
    points = EXCLUDED.points,
    penalty = GREATEST(gameweek_scores.penalty, EXCLUDED.penalty),
    calculated_at = EXCLUDED.calculated_at,
    updated_at = NOW()`)
		if err != nil {
			return fmt.Errorf("build upsert gameweek score query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert gameweek score user=%s gameweek=%d: %w", update.UserID, item.Gameweek, err)
		}
	}

	// Gameweeks missing from the update have no scored predictions left.
	conditions := []qb.Condition{qb.Eq("user_public_id", update.UserID)}
	if len(gameweeks) > 0 {
		conditions = append(conditions, qb.Expr("NOT ("+inPlaceholders("gameweek", len(gameweeks))+")", intArgs(gameweeks)...))
	}
	query, args, err := qb.Update("gameweek_scores").
		Set("points", 0).
		Set("calculated_at", calculatedAt).
		Where(conditions...).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build reset gameweek scores query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("reset stale gameweek scores user=%s: %w", update.UserID, err)
	}

	query, args, err = qb.Update("users").
		SetExpr("total_score", "(SELECT COALESCE(SUM(points - penalty), 0) FROM gameweek_scores WHERE user_public_id = ?)", update.UserID).
		SetExpr("score_version", "score_version + 1").
		Set("scores_calculated_at", calculatedAt).
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("public_id", update.UserID),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update user total query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update user total user=%s: %w", update.UserID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update user scores tx: %w", err)
	}
	return nil
}

func (r *ScoringRepository) MarkGameweekPenalty(ctx context.Context, userID string, gameweek int, penalty int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin mark penalty tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := ensureUserRow(ctx, tx, userID); err != nil {
		return err
	}

	query, args, err := qb.InsertModel("gameweek_scores", gameweekScoreInsertModel{
		UserID:   userID,
		Gameweek: gameweek,
		Penalty:  penalty,
	}, `ON CONFLICT (user_public_id, gameweek)
DO UPDATE SET
    penalty = GREATEST(gameweek_scores.penalty, EXCLUDED.penalty),
    updated_at = NOW()
WHERE gameweek_scores.penalty < EXCLUDED.penalty`)
	if err != nil {
		return fmt.Errorf("build mark penalty query: %w", err)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("mark penalty user=%s gameweek=%d: %w", userID, gameweek, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read marked penalty rows: %w", err)
	}
	if affected == 0 {
		return nil
	}

	query, args, err = qb.Update("users").
		SetExpr("total_score", "(SELECT COALESCE(SUM(points - penalty), 0) FROM gameweek_scores WHERE user_public_id = ?)", userID).
		SetExpr("score_version", "score_version + 1").
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("public_id", userID),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build refresh user total query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("refresh user total user=%s: %w", userID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit mark penalty tx: %w", err)
	}
	return nil
}

func (r *ScoringRepository) ListStandings(ctx context.Context) ([]scoring.Standing, error) {
	rows, err := r.selectUsers(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]scoring.Standing, 0, len(rows))
	for _, row := range rows {
		out = append(out, scoring.Standing{
			UserID:      row.PublicID,
			DisplayName: displayNameOf(row),
			Total:       row.TotalScore,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Total > out[j].Total
	})
	return out, nil
}

func (r *ScoringRepository) selectUsers(ctx context.Context) ([]userScoreRowModel, error) {
	query, args, err := qb.Select("public_id", "email", "display_name", "total_score", "score_version").
		From("users").
		Where(qb.IsNull("deleted_at")).
		OrderBy("public_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select users query: %w", err)
	}

	var rows []userScoreRowModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	return rows, nil
}

// attachDetails loads predictions, jokers and gameweek rows into snapshots.
// userID narrows every query to one user when non-nil.
func (r *ScoringRepository) attachDetails(ctx context.Context, snapshots map[string]*scoring.UserSnapshot, userID *string) error {
	predictionConditions := []qb.Condition{qb.IsNull("p.deleted_at")}
	jokerConditions := []qb.Condition{qb.IsNull("deleted_at")}
	scoreConditions := []qb.Condition{}
	if userID != nil {
		predictionConditions = append(predictionConditions, qb.Eq("p.user_public_id", *userID))
		jokerConditions = append(jokerConditions, qb.Eq("user_public_id", *userID))
		scoreConditions = append(scoreConditions, qb.Eq("user_public_id", *userID))
	}

	query, args, err := qb.Select(
		"p.user_public_id",
		"p.fixture_public_id",
		"p.home_score",
		"p.away_score",
		"p.is_late",
		"f.gameweek",
		"f.is_derby",
		"f.home_score AS result_home",
		"f.away_score AS result_away",
	).From("predictions p JOIN fixtures f ON f.public_id = p.fixture_public_id AND f.deleted_at IS NULL").
		Where(predictionConditions...).
		OrderBy("p.user_public_id", "p.fixture_public_id").
		ToSQL()
	if err != nil {
		return fmt.Errorf("build select prediction views query: %w", err)
	}
	var predictions []predictionViewRowModel
	if err := r.db.SelectContext(ctx, &predictions, query, args...); err != nil {
		return fmt.Errorf("select prediction views: %w", err)
	}
	for _, row := range predictions {
		snapshot := snapshots[row.UserID]
		if snapshot == nil {
			continue
		}
		view := scoring.PredictionView{
			FixtureID: row.FixtureID,
			Gameweek:  row.Gameweek,
			IsDerby:   row.IsDerby,
			Predicted: fixture.Score{Home: row.HomeScore, Away: row.AwayScore},
			Late:      row.IsLate,
		}
		if row.ResultHome.Valid && row.ResultAway.Valid {
			view.Actual = &fixture.Score{Home: int(row.ResultHome.Int64), Away: int(row.ResultAway.Int64)}
		}
		snapshot.Predictions = append(snapshot.Predictions, view)
	}

	query, args, err = qb.Select("user_public_id", "fixture_public_id", "used_in_season", "selected_at").
		From("jokers").
		Where(jokerConditions...).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build select jokers query: %w", err)
	}
	var jokers []jokerRowModel
	if err := r.db.SelectContext(ctx, &jokers, query, args...); err != nil {
		return fmt.Errorf("select jokers: %w", err)
	}
	for _, row := range jokers {
		if snapshot := snapshots[row.UserID]; snapshot != nil {
			snapshot.JokerFixtureID = nullStringValue(row.FixtureID)
		}
	}

	query, args, err = qb.Select("user_public_id", "gameweek", "points", "penalty").
		From("gameweek_scores").
		Where(scoreConditions...).
		OrderBy("user_public_id", "gameweek").
		ToSQL()
	if err != nil {
		return fmt.Errorf("build select gameweek scores query: %w", err)
	}
	var scores []gameweekScoreRowModel
	if err := r.db.SelectContext(ctx, &scores, query, args...); err != nil {
		return fmt.Errorf("select gameweek scores: %w", err)
	}
	for _, row := range scores {
		if snapshot := snapshots[row.UserID]; snapshot != nil {
			snapshot.Gameweeks = append(snapshot.Gameweeks, scoring.GameweekScore{
				Gameweek: row.Gameweek,
				Points:   row.Points,
				Penalty:  row.Penalty,
			})
		}
	}
	return nil
}

func lockUserVersion(ctx context.Context, tx *sqlx.Tx, userID string, expected int64) error {
	query, args, err := qb.Select("score_version").From("users").
		Where(
			qb.Eq("public_id", userID),
			qb.IsNull("deleted_at"),
		).
		ForUpdate().
		ToSQL()
	if err != nil {
		return fmt.Errorf("build lock user version query: %w", err)
	}

	var version int64
	if err := tx.GetContext(ctx, &version, query, args...); err != nil {
		if isNotFound(err) {
			return scoring.ErrVersionConflict
		}
		return fmt.Errorf("lock user version user=%s: %w", userID, err)
	}
	if version != expected {
		return scoring.ErrVersionConflict
	}
	return nil
}

// ensureUserRow creates a bare user row so predictions can arrive before the
// profile is known.
func ensureUserRow(ctx context.Context, tx *sqlx.Tx, userID string) error {
	query, args, err := qb.InsertInto("users").
		Columns("public_id").
		Values(userID).
		Suffix("ON CONFLICT (public_id) WHERE deleted_at IS NULL DO NOTHING").
		ToSQL()
	if err != nil {
		return fmt.Errorf("build ensure user query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("ensure user user=%s: %w", userID, err)
	}
	return nil
}

// bumpUserVersion marks the user's score inputs as changed.
func bumpUserVersion(ctx context.Context, tx *sqlx.Tx, userID string) error {
	query, args, err := qb.InsertInto("users").
		Columns("public_id").
		Values(userID).
		Suffix(`ON CONFLICT (public_id) WHERE deleted_at IS NULL
DO UPDATE SET
    score_version = users.score_version + 1,
    updated_at = NOW()`).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build bump user version query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("bump user version user=%s: %w", userID, err)
	}
	return nil
}

func inPlaceholders(column string, count int) string {
	out := column + " IN ("
	for i := 0; i < count; i++ {
		if i > 0 {
			out += ", "
		}
		out += "?"
	}
	return out + ")"
}

func displayNameOf(row userScoreRowModel) string {
	if row.DisplayName != "" {
		return row.DisplayName
	}
	if row.Email != "" {
		return row.Email
	}
	return row.PublicID
}
