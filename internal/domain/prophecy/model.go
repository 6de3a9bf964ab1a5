package prophecy

import "time"

const MaxRelegationPicks = 3

// Prophecy holds a user's season-long bonus predictions.
type Prophecy struct {
	UserID       string
	Winner       string
	Relegation   []string
	GoldenBoot   string
	FirstSacking string
	UpdatedAt    time.Time
}
