package scoring

import "github.com/riskibarqy/prediction-league/internal/domain/fixture"

const (
	PointsExact     = 3
	PointsDirection = 1
	LatePenalty     = 3

	derbyMultiplier = 2
	jokerMultiplier = 2
)

// CalculatePoints returns the base points of a prediction against a final score.
// Invalid scores on either side earn nothing.
func CalculatePoints(predicted, actual fixture.Score) int {
	if !predicted.Valid() || !actual.Valid() {
		return 0
	}
	if predicted == actual {
		return PointsExact
	}
	if sign(predicted.Home-predicted.Away) == sign(actual.Home-actual.Away) {
		return PointsDirection
	}
	return 0
}

type Modifiers struct {
	IsDerby bool
	IsJoker bool
	IsLate  bool
}

// Outcome is the result of applying modifiers to one prediction. GameweekPenalty
// belongs to the prediction's gameweek, not to the prediction.
type Outcome struct {
	Points          int
	GameweekPenalty int
}

func ApplyModifiers(base int, mod Modifiers) Outcome {
	if base < 0 {
		base = 0
	}

	out := Outcome{Points: base}
	if mod.IsDerby {
		out.Points *= derbyMultiplier
	}
	if mod.IsJoker {
		out.Points *= jokerMultiplier
	}
	if mod.IsLate {
		out.GameweekPenalty = LatePenalty
	}
	return out
}

// MergePenalty combines gameweek penalties. The penalty is flat, so marking a
// gameweek late any number of times yields a single penalty.
func MergePenalty(existing, incoming int) int {
	if incoming > existing {
		return incoming
	}
	if existing < 0 {
		return 0
	}
	return existing
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
