package fixture

import (
	"strings"
	"time"
)

const (
	MinGameweek = 1
	MaxGameweek = 38
)

const (
	StatusScheduled = "SCHEDULED"
	StatusLive      = "LIVE"
	StatusFinished  = "FINISHED"
	StatusCancelled = "CANCELLED"
	StatusPostponed = "POSTPONED"
)

// Score is a final scoreline. Both sides are always set together.
type Score struct {
	Home int
	Away int
}

func (s Score) Valid() bool {
	return s.Home >= 0 && s.Away >= 0
}

// Fixture represents one scheduled match.
type Fixture struct {
	ID         string
	ExternalID int64
	Gameweek   int
	HomeTeam   string
	AwayTeam   string
	KickoffAt  time.Time
	IsDerby    bool
	Result     *Score
	ScoredAt   *time.Time
}

func (f Fixture) HasResult() bool {
	return f.Result != nil
}

func (f Fixture) HasKickedOff(now time.Time) bool {
	return !f.KickoffAt.IsZero() && !now.Before(f.KickoffAt)
}

// NeedsResult reports whether the fixture is a settlement candidate at now.
func (f Fixture) NeedsResult(now time.Time) bool {
	return !f.HasResult() && f.KickoffAt.Before(now)
}

func ValidGameweek(gameweek int) bool {
	return gameweek >= MinGameweek && gameweek <= MaxGameweek
}

// Filter narrows fixture listings. Zero values mean no filter.
type Filter struct {
	Gameweek int
}

// GameweekDeadline returns the prediction deadline of a gameweek: the earliest
// kickoff among its fixtures minus lead.
func GameweekDeadline(items []Fixture, lead time.Duration) (time.Time, bool) {
	var earliest time.Time
	for _, item := range items {
		if item.KickoffAt.IsZero() {
			continue
		}
		if earliest.IsZero() || item.KickoffAt.Before(earliest) {
			earliest = item.KickoffAt
		}
	}
	if earliest.IsZero() {
		return time.Time{}, false
	}
	return earliest.Add(-lead), true
}

func NormalizeStatus(value string) string {
	status := strings.ToUpper(strings.TrimSpace(value))
	if status == "" {
		return StatusScheduled
	}
	return status
}

func IsFinishedStatus(status string) bool {
	switch NormalizeStatus(status) {
	case StatusFinished, "FT", "AET", "PEN":
		return true
	default:
		return false
	}
}

func IsCancelledLikeStatus(status string) bool {
	switch NormalizeStatus(status) {
	case StatusCancelled, StatusPostponed, "ABANDONED", "CANC", "PST", "ABD", "AWD", "WO":
		return true
	default:
		return false
	}
}
