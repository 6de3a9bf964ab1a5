package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/riskibarqy/prediction-league/internal/domain/scoring"
	"github.com/riskibarqy/prediction-league/internal/platform/cache"
)

const leaderboardCacheKey = "leaderboard:standings"

type LeaderboardService struct {
	scoringRepo scoring.Repository
	cache       *cache.Store
}

// NewLeaderboardService reads standings through cache when it is non-nil.
func NewLeaderboardService(scoringRepo scoring.Repository, store *cache.Store) *LeaderboardService {
	return &LeaderboardService{
		scoringRepo: scoringRepo,
		cache:       store,
	}
}

func (s *LeaderboardService) List(ctx context.Context) ([]scoring.Standing, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeaderboardService.List")
	defer span.End()

	items, err := cache.Load(ctx, s.cache, leaderboardCacheKey, s.load)
	if err != nil {
		return nil, err
	}
	return append([]scoring.Standing(nil), items...), nil
}

// Invalidate drops cached standings. Settlement calls it after every run.
func (s *LeaderboardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	s.cache.DeletePrefix(ctx, "leaderboard:")
}

// Rank returns the dense rank of a user, or 0 when the user has no standing.
func (s *LeaderboardService) Rank(ctx context.Context, userID string) (int, error) {
	items, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	for _, item := range items {
		if item.UserID == userID {
			return item.Rank, nil
		}
	}
	return 0, nil
}

func (s *LeaderboardService) load(ctx context.Context) ([]scoring.Standing, error) {
	items, err := s.scoringRepo.ListStandings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list standings: %w", err)
	}
	return rankStandings(items), nil
}

func rankStandings(items []scoring.Standing) []scoring.Standing {
	out := append([]scoring.Standing(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		if out[i].DisplayName != out[j].DisplayName {
			return out[i].DisplayName < out[j].DisplayName
		}
		return out[i].UserID < out[j].UserID
	})

	// dense rank: equal totals share a rank.
	lastTotal := 0
	currentRank := 0
	for idx := range out {
		if idx == 0 || out[idx].Total != lastTotal {
			currentRank++
			lastTotal = out[idx].Total
		}
		out[idx].Rank = currentRank
	}
	return out
}
