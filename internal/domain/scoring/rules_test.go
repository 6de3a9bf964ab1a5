package scoring

import (
	"testing"

	"github.com/riskibarqy/prediction-league/internal/domain/fixture"
)

func TestCalculatePoints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		predicted fixture.Score
		actual    fixture.Score
		want      int
	}{
		{name: "exact score", predicted: fixture.Score{Home: 2, Away: 1}, actual: fixture.Score{Home: 2, Away: 1}, want: 3},
		{name: "home win direction", predicted: fixture.Score{Home: 3, Away: 1}, actual: fixture.Score{Home: 1, Away: 0}, want: 1},
		{name: "away win direction", predicted: fixture.Score{Home: 0, Away: 2}, actual: fixture.Score{Home: 1, Away: 4}, want: 1},
		{name: "draw matches draw", predicted: fixture.Score{Home: 1, Away: 1}, actual: fixture.Score{Home: 2, Away: 2}, want: 1},
		{name: "exact goalless draw", predicted: fixture.Score{Home: 0, Away: 0}, actual: fixture.Score{Home: 0, Away: 0}, want: 3},
		{name: "draw predicted home win actual", predicted: fixture.Score{Home: 1, Away: 1}, actual: fixture.Score{Home: 2, Away: 0}, want: 0},
		{name: "wrong winner", predicted: fixture.Score{Home: 2, Away: 0}, actual: fixture.Score{Home: 0, Away: 1}, want: 0},
		{name: "malformed home prediction", predicted: fixture.Score{Home: -1, Away: 1}, actual: fixture.Score{Home: 1, Away: 0}, want: 0},
		{name: "malformed away prediction", predicted: fixture.Score{Home: 1, Away: -5}, actual: fixture.Score{Home: 1, Away: -5}, want: 0},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := CalculatePoints(tc.predicted, tc.actual); got != tc.want {
				t.Fatalf("unexpected points: got=%d want=%d", got, tc.want)
			}
		})
	}
}

func TestApplyModifiers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		base        int
		mod         Modifiers
		wantPoints  int
		wantPenalty int
	}{
		{name: "no modifiers", base: 3, wantPoints: 3},
		{name: "derby doubles", base: 3, mod: Modifiers{IsDerby: true}, wantPoints: 6},
		{name: "joker doubles", base: 1, mod: Modifiers{IsJoker: true}, wantPoints: 2},
		{name: "joker derby quadruples", base: 3, mod: Modifiers{IsDerby: true, IsJoker: true}, wantPoints: 12},
		{name: "late keeps points and sets gameweek penalty", base: 3, mod: Modifiers{IsLate: true}, wantPoints: 3, wantPenalty: LatePenalty},
		{name: "zero stays zero", base: 0, mod: Modifiers{IsDerby: true, IsJoker: true}, wantPoints: 0},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := ApplyModifiers(tc.base, tc.mod)
			if got.Points != tc.wantPoints {
				t.Fatalf("unexpected points: got=%d want=%d", got.Points, tc.wantPoints)
			}
			if got.GameweekPenalty != tc.wantPenalty {
				t.Fatalf("unexpected penalty: got=%d want=%d", got.GameweekPenalty, tc.wantPenalty)
			}
		})
	}
}

func TestMergePenalty_IsFlat(t *testing.T) {
	t.Parallel()

	penalty := 0
	for i := 0; i < 4; i++ {
		penalty = MergePenalty(penalty, LatePenalty)
	}
	if penalty != LatePenalty {
		t.Fatalf("penalty stacked: got=%d want=%d", penalty, LatePenalty)
	}
	if got := MergePenalty(LatePenalty, 0); got != LatePenalty {
		t.Fatalf("penalty must not be reset: got=%d", got)
	}
}
