package prediction

import (
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/prediction-league/internal/domain/fixture"
)

// Prediction is a user's forecast for one fixture. There is at most one per
// (user, fixture); resubmission replaces the score and the timestamp.
type Prediction struct {
	UserID      string
	FixtureID   string
	Score       fixture.Score
	SubmittedAt time.Time
	// Late is decided on the server when the prediction is received.
	Late bool
}

// Joker is the season-long chip that doubles one fixture's points.
type Joker struct {
	UserID       string
	FixtureID    string
	UsedInSeason bool
	SelectedAt   *time.Time
}

func (j Joker) Selected() bool {
	return strings.TrimSpace(j.FixtureID) != ""
}

// ParseGoals converts a submitted goal count. Non-numeric, negative or empty
// values are rejected so the entry is treated as no prediction.
func ParseGoals(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, false
	}
	return value, true
}
