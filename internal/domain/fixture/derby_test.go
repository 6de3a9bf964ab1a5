package fixture

import (
	"testing"
	"time"
)

func TestDerbySet_IsDerbyIsUnordered(t *testing.T) {
	t.Parallel()

	set, err := NewDerbySet([]TeamPair{
		{TeamA: "Liverpool", TeamB: "Everton"},
		{TeamA: "Manchester City", TeamB: "Manchester United"},
	})
	if err != nil {
		t.Fatalf("new derby set: %v", err)
	}

	cases := []struct {
		home string
		away string
		want bool
	}{
		{home: "Liverpool", away: "Everton", want: true},
		{home: "Everton", away: "Liverpool", want: true},
		{home: "manchester united", away: "  Manchester   City ", want: true},
		{home: "Manchester City", away: "Liverpool", want: false},
		{home: "Liverpool", away: "Everton U21", want: false},
	}
	for _, tc := range cases {
		if got := set.IsDerby(tc.home, tc.away); got != tc.want {
			t.Fatalf("IsDerby(%q, %q): got=%v want=%v", tc.home, tc.away, got, tc.want)
		}
	}
}

func TestDerbySet_RejectsInvalidPairs(t *testing.T) {
	t.Parallel()

	if _, err := NewDerbySet([]TeamPair{{TeamA: "Arsenal", TeamB: ""}}); err == nil {
		t.Fatalf("expected error for missing team")
	}
	if _, err := NewDerbySet([]TeamPair{{TeamA: "Arsenal", TeamB: "arsenal"}}); err == nil {
		t.Fatalf("expected error for self pair")
	}
}

func TestParseDerbyPairs(t *testing.T) {
	t.Parallel()

	pairs, err := ParseDerbyPairs("Liverpool|Everton, Arsenal | Tottenham Hotspur ,")
	if err != nil {
		t.Fatalf("parse derby pairs: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("unexpected pair count: %d", len(pairs))
	}
	if pairs[1].TeamA != "Arsenal" || pairs[1].TeamB != "Tottenham Hotspur" {
		t.Fatalf("unexpected second pair: %+v", pairs[1])
	}

	if _, err := ParseDerbyPairs("Liverpool-Everton"); err == nil {
		t.Fatalf("expected error for malformed pair")
	}
}

func TestGameweekDeadline(t *testing.T) {
	t.Parallel()

	base := mustTime(t, "2024-08-16T19:00:00Z")
	items := []Fixture{
		{ID: "f2", KickoffAt: base.Add(18 * time.Hour)},
		{ID: "f1", KickoffAt: base},
		{ID: "f3"},
	}

	deadline, ok := GameweekDeadline(items, 90*time.Minute)
	if !ok {
		t.Fatalf("expected deadline")
	}
	if want := base.Add(-90 * time.Minute); !deadline.Equal(want) {
		t.Fatalf("unexpected deadline: got=%s want=%s", deadline, want)
	}

	if _, ok := GameweekDeadline(nil, 0); ok {
		t.Fatalf("expected no deadline for empty gameweek")
	}
}
