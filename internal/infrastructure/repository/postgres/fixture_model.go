package postgres

import (
	"database/sql"
	"time"

	"github.com/riskibarqy/prediction-league/internal/domain/fixture"
)

const fixtureColumns = "public_id, external_id, gameweek, home_team, away_team, kickoff_at, is_derby, home_score, away_score, scored_at"

type fixtureTableModel struct {
	PublicID   string        `db:"public_id"`
	ExternalID sql.NullInt64 `db:"external_id"`
	Gameweek   int           `db:"gameweek"`
	HomeTeam   string        `db:"home_team"`
	AwayTeam   string        `db:"away_team"`
	KickoffAt  time.Time     `db:"kickoff_at"`
	IsDerby    bool          `db:"is_derby"`
	HomeScore  sql.NullInt64 `db:"home_score"`
	AwayScore  sql.NullInt64 `db:"away_score"`
	ScoredAt   *time.Time    `db:"scored_at"`
}

func (m fixtureTableModel) toDomain() fixture.Fixture {
	out := fixture.Fixture{
		ID:         m.PublicID,
		ExternalID: nullInt64ToInt64(m.ExternalID),
		Gameweek:   m.Gameweek,
		HomeTeam:   m.HomeTeam,
		AwayTeam:   m.AwayTeam,
		KickoffAt:  m.KickoffAt.UTC(),
		IsDerby:    m.IsDerby,
	}
	if m.HomeScore.Valid && m.AwayScore.Valid {
		out.Result = &fixture.Score{Home: int(m.HomeScore.Int64), Away: int(m.AwayScore.Int64)}
	}
	if m.ScoredAt != nil {
		scoredAt := m.ScoredAt.UTC()
		out.ScoredAt = &scoredAt
	}
	return out
}

type fixtureInsertModel struct {
	PublicID   string        `db:"public_id"`
	ExternalID sql.NullInt64 `db:"external_id"`
	Gameweek   int           `db:"gameweek"`
	HomeTeam   string        `db:"home_team"`
	AwayTeam   string        `db:"away_team"`
	KickoffAt  time.Time     `db:"kickoff_at"`
	IsDerby    bool          `db:"is_derby"`
}
