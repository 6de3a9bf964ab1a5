package fixture

import (
	"testing"
	"time"
)

func TestFixture_NeedsResult(t *testing.T) {
	t.Parallel()

	now := mustTime(t, "2024-09-01T12:00:00Z")
	past := Fixture{ID: "f1", KickoffAt: now.Add(-2 * time.Hour)}
	future := Fixture{ID: "f2", KickoffAt: now.Add(2 * time.Hour)}
	scored := Fixture{ID: "f3", KickoffAt: now.Add(-2 * time.Hour), Result: &Score{Home: 1, Away: 0}}

	if !past.NeedsResult(now) {
		t.Fatalf("expected past fixture without result to need result")
	}
	if future.NeedsResult(now) {
		t.Fatalf("expected future fixture not to need result")
	}
	if scored.NeedsResult(now) {
		t.Fatalf("expected scored fixture not to need result")
	}
}

func TestIsFinishedStatus(t *testing.T) {
	t.Parallel()

	for _, status := range []string{"FT", "aet", " PEN ", "FINISHED"} {
		if !IsFinishedStatus(status) {
			t.Fatalf("expected %q to be finished", status)
		}
	}
	for _, status := range []string{"NS", "1H", "HT", "PST", ""} {
		if IsFinishedStatus(status) {
			t.Fatalf("expected %q not to be finished", status)
		}
	}
}

func mustTime(t *testing.T, raw string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		t.Fatalf("parse time %q: %v", raw, err)
	}
	return parsed
}
