package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/prediction-league/internal/domain/scoring"
	"github.com/riskibarqy/prediction-league/internal/domain/user"
	"github.com/riskibarqy/prediction-league/internal/infrastructure/repository/memory"
)

func TestUserService_Me(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	scores := memory.NewScoringRepository(store)
	users := memory.NewUserRepository(store)
	svc := NewUserService(users, scores, memory.NewPredictionRepository(store), NewLeaderboardService(scores, nil))
	created := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return created }

	ctx := context.Background()
	if err := scores.MarkGameweekPenalty(ctx, "u1", 2, scoring.LatePenalty); err != nil {
		t.Fatalf("mark penalty: %v", err)
	}

	me, err := svc.Me(ctx, user.Principal{UserID: "u1", Email: "ana@example.com", Name: "Ana"})
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if me.Profile.Name != "Ana" || !me.Profile.CreatedAt.Equal(created) {
		t.Fatalf("unexpected profile: %+v", me.Profile)
	}
	if me.Total != -3 || len(me.Gameweeks) != 1 || me.Rank != 1 {
		t.Fatalf("unexpected summary: %+v", me)
	}

	svc.now = func() time.Time { return created.Add(time.Hour) }
	profile, err := svc.EnsureProfile(ctx, user.Principal{UserID: "u1", Email: "ana@example.com", Name: "Ana P."})
	if err != nil {
		t.Fatalf("ensure profile: %v", err)
	}
	if !profile.CreatedAt.Equal(created) || profile.Name != "Ana P." {
		t.Fatalf("expected rename to keep creation time, got=%+v", profile)
	}
}

func TestUserService_EnsureProfile_RequiresUser(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	svc := NewUserService(memory.NewUserRepository(store), memory.NewScoringRepository(store), memory.NewPredictionRepository(store), nil)
	if _, err := svc.EnsureProfile(context.Background(), user.Principal{}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got=%v", err)
	}
}
