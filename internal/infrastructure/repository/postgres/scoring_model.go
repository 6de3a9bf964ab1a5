package postgres

import (
	"database/sql"
	"time"
)

type userScoreRowModel struct {
	PublicID    string `db:"public_id"`
	Email       string `db:"email"`
	DisplayName string `db:"display_name"`
	TotalScore  int    `db:"total_score"`
	Version     int64  `db:"score_version"`
}

type predictionViewRowModel struct {
	UserID     string        `db:"user_public_id"`
	FixtureID  string        `db:"fixture_public_id"`
	HomeScore  int           `db:"home_score"`
	AwayScore  int           `db:"away_score"`
	IsLate     bool          `db:"is_late"`
	Gameweek   int           `db:"gameweek"`
	IsDerby    bool          `db:"is_derby"`
	ResultHome sql.NullInt64 `db:"result_home"`
	ResultAway sql.NullInt64 `db:"result_away"`
}

type gameweekScoreRowModel struct {
	UserID   string `db:"user_public_id"`
	Gameweek int    `db:"gameweek"`
	Points   int    `db:"points"`
	Penalty  int    `db:"penalty"`
}

type gameweekScoreInsertModel struct {
	UserID       string    `db:"user_public_id"`
	Gameweek     int       `db:"gameweek"`
	Points       int       `db:"points"`
	Penalty      int       `db:"penalty"`
	CalculatedAt time.Time `db:"calculated_at"`
}

type jokerRowModel struct {
	UserID       string         `db:"user_public_id"`
	FixtureID    sql.NullString `db:"fixture_public_id"`
	UsedInSeason bool           `db:"used_in_season"`
	SelectedAt   *time.Time     `db:"selected_at"`
}
