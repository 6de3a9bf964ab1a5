package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/prediction-league/internal/domain/fixture"
	"github.com/riskibarqy/prediction-league/internal/domain/prophecy"
)

type SaveProphecyInput struct {
	UserID       string
	Winner       string
	Relegation   []string
	GoldenBoot   string
	FirstSacking string
}

type ProphecyService struct {
	prophecyRepo prophecy.Repository
	fixtureRepo  fixture.Repository
	now          func() time.Time
}

func NewProphecyService(prophecyRepo prophecy.Repository, fixtureRepo fixture.Repository) *ProphecyService {
	return &ProphecyService{
		prophecyRepo: prophecyRepo,
		fixtureRepo:  fixtureRepo,
		now:          time.Now,
	}
}

func (s *ProphecyService) Get(ctx context.Context, userID string) (prophecy.Prophecy, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ProphecyService.Get")
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return prophecy.Prophecy{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	item, exists, err := s.prophecyRepo.Get(ctx, userID)
	if err != nil {
		return prophecy.Prophecy{}, fmt.Errorf("get prophecy: %w", err)
	}
	if !exists {
		return prophecy.Prophecy{UserID: userID, Relegation: []string{}}, nil
	}
	return item, nil
}

// Save replaces the user's prophecies. Saving is closed once the season's
// first fixture has kicked off.
func (s *ProphecyService) Save(ctx context.Context, input SaveProphecyInput) (prophecy.Prophecy, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ProphecyService.Save")
	defer span.End()

	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return prophecy.Prophecy{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	relegation, err := normalizeRelegation(input.Relegation)
	if err != nil {
		return prophecy.Prophecy{}, err
	}

	now := s.now().UTC()
	locked, err := s.seasonStarted(ctx, now)
	if err != nil {
		return prophecy.Prophecy{}, err
	}
	if locked {
		return prophecy.Prophecy{}, fmt.Errorf("%w: prophecies are locked once the season has started", ErrConflict)
	}

	item := prophecy.Prophecy{
		UserID:       userID,
		Winner:       strings.TrimSpace(input.Winner),
		Relegation:   relegation,
		GoldenBoot:   strings.TrimSpace(input.GoldenBoot),
		FirstSacking: strings.TrimSpace(input.FirstSacking),
		UpdatedAt:    now,
	}
	if err := s.prophecyRepo.Upsert(ctx, item); err != nil {
		return prophecy.Prophecy{}, fmt.Errorf("save prophecy: %w", err)
	}
	return item, nil
}

func (s *ProphecyService) seasonStarted(ctx context.Context, now time.Time) (bool, error) {
	items, err := s.fixtureRepo.List(ctx, fixture.Filter{})
	if err != nil {
		return false, fmt.Errorf("list fixtures: %w", err)
	}
	for _, item := range items {
		if item.HasKickedOff(now) {
			return true, nil
		}
	}
	return false, nil
}

func normalizeRelegation(values []string) ([]string, error) {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		key := strings.ToLower(value)
		if _, ok := seen[key]; ok {
			return nil, fmt.Errorf("%w: relegation team %q listed twice", ErrInvalidInput, value)
		}
		seen[key] = struct{}{}
		out = append(out, value)
	}
	if len(out) > prophecy.MaxRelegationPicks {
		return nil, fmt.Errorf("%w: at most %d relegation picks allowed", ErrInvalidInput, prophecy.MaxRelegationPicks)
	}
	return out, nil
}
