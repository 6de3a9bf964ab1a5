package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/prediction-league/internal/domain/prediction"
	"github.com/riskibarqy/prediction-league/internal/domain/scoring"
	"github.com/riskibarqy/prediction-league/internal/domain/user"
)

// MeSummary is the authenticated user's profile with their current score.
type MeSummary struct {
	Profile   user.Profile
	Total     int
	Rank      int
	Gameweeks []scoring.GameweekScore
	Joker     prediction.Joker
}

type UserService struct {
	userRepo       user.Repository
	scoringRepo    scoring.Repository
	predictionRepo prediction.Repository
	leaderboard    *LeaderboardService
	now            func() time.Time
}

func NewUserService(
	userRepo user.Repository,
	scoringRepo scoring.Repository,
	predictionRepo prediction.Repository,
	leaderboard *LeaderboardService,
) *UserService {
	return &UserService{
		userRepo:       userRepo,
		scoringRepo:    scoringRepo,
		predictionRepo: predictionRepo,
		leaderboard:    leaderboard,
		now:            time.Now,
	}
}

// EnsureProfile records the principal's identity so it shows on the leaderboard.
func (s *UserService) EnsureProfile(ctx context.Context, principal user.Principal) (user.Profile, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.UserService.EnsureProfile")
	defer span.End()

	userID := strings.TrimSpace(principal.UserID)
	if userID == "" {
		return user.Profile{}, fmt.Errorf("%w: user id is required", ErrUnauthorized)
	}

	now := s.now().UTC()
	existing, exists, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return user.Profile{}, fmt.Errorf("get user: %w", err)
	}

	profile := user.Profile{
		ID:        userID,
		Email:     strings.TrimSpace(principal.Email),
		Name:      strings.TrimSpace(principal.Name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if exists {
		if existing.Email == profile.Email && existing.Name == profile.Name {
			return existing, nil
		}
		profile.CreatedAt = existing.CreatedAt
	}
	if err := s.userRepo.Upsert(ctx, profile); err != nil {
		return user.Profile{}, fmt.Errorf("upsert user: %w", err)
	}
	return profile, nil
}

func (s *UserService) Me(ctx context.Context, principal user.Principal) (MeSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.UserService.Me")
	defer span.End()

	profile, err := s.EnsureProfile(ctx, principal)
	if err != nil {
		return MeSummary{}, err
	}

	out := MeSummary{Profile: profile, Gameweeks: []scoring.GameweekScore{}}
	snapshot, exists, err := s.scoringRepo.GetUserSnapshot(ctx, profile.ID)
	if err != nil {
		return MeSummary{}, fmt.Errorf("get user scores: %w", err)
	}
	if exists {
		out.Total = snapshot.Total
		out.Gameweeks = snapshot.Gameweeks
	}

	joker, _, err := s.predictionRepo.GetJoker(ctx, profile.ID)
	if err != nil {
		return MeSummary{}, fmt.Errorf("get joker: %w", err)
	}
	joker.UserID = profile.ID
	out.Joker = joker

	if s.leaderboard != nil {
		rank, err := s.leaderboard.Rank(ctx, profile.ID)
		if err != nil {
			return MeSummary{}, err
		}
		out.Rank = rank
	}
	return out, nil
}
