package postgres

import (
	"database/sql"
	"fmt"
	"testing"
)

func TestIsNotFound(t *testing.T) {
	t.Run("matches wrapped no rows", func(t *testing.T) {
		if !isNotFound(fmt.Errorf("get fixture: %w", sql.ErrNoRows)) {
			t.Fatalf("expected true for wrapped sql.ErrNoRows")
		}
	})

	t.Run("ignores unrelated error", func(t *testing.T) {
		if isNotFound(fmt.Errorf("pq: relation fixtures does not exist")) {
			t.Fatalf("expected false for unrelated error")
		}
	})
}

func TestOptionalString(t *testing.T) {
	if got := optionalString("  "); got != nil {
		t.Fatalf("expected nil for blank string, got %q", *got)
	}
	got := optionalString(" boom ")
	if got == nil || *got != "boom" {
		t.Fatalf("expected trimmed value, got %v", got)
	}
}

func TestNullableInt64(t *testing.T) {
	t.Run("zero is null", func(t *testing.T) {
		if got := nullableInt64(0); got.Valid {
			t.Fatalf("expected invalid for zero")
		}
	})

	t.Run("round trips positive", func(t *testing.T) {
		if got := nullInt64ToInt64(nullableInt64(1208021)); got != 1208021 {
			t.Fatalf("expected 1208021, got %d", got)
		}
	})
}

func TestChunkBounds(t *testing.T) {
	got := chunkBounds(5, 2)
	want := [][2]int{{0, 2}, {2, 4}, {4, 5}}
	if len(got) != len(want) {
		t.Fatalf("unexpected chunk count: got=%v want=%v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected chunk %d: got=%v want=%v", i, got[i], want[i])
		}
	}

	if got := chunkBounds(0, 100); len(got) != 0 {
		t.Fatalf("expected no chunks for empty input, got=%v", got)
	}
}
