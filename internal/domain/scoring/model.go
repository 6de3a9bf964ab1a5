package scoring

import (
	"errors"
	"time"

	"github.com/riskibarqy/prediction-league/internal/domain/fixture"
)

// ErrVersionConflict is returned when a user's score row changed since it was read.
var ErrVersionConflict = errors.New("user score version conflict")

// GameweekScore is the per (user, gameweek) summary. Points are fully derived
// by settlement; Penalty is recorded independently and never reset by it.
type GameweekScore struct {
	Gameweek int
	Points   int
	Penalty  int
}

func (g GameweekScore) Net() int {
	return g.Points - g.Penalty
}

// PredictionView is a stored prediction joined with the fixture fields scoring needs.
type PredictionView struct {
	FixtureID string
	Gameweek  int
	IsDerby   bool
	Predicted fixture.Score
	Actual    *fixture.Score
	Late      bool
}

// UserSnapshot is everything settlement reads for one user.
type UserSnapshot struct {
	UserID         string
	DisplayName    string
	Version        int64
	JokerFixtureID string
	Predictions    []PredictionView
	Gameweeks      []GameweekScore
	Total          int
}

type UserScoreUpdate struct {
	UserID          string
	ExpectedVersion int64
	Gameweeks       []GameweekScore
	Total           int
	CalculatedAt    time.Time
}

type Standing struct {
	UserID      string
	DisplayName string
	Total       int
	Rank        int
}
