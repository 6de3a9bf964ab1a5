package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/riskibarqy/prediction-league/internal/domain/fixture"
	"github.com/riskibarqy/prediction-league/internal/domain/prediction"
	"github.com/riskibarqy/prediction-league/internal/domain/scoring"
	"github.com/riskibarqy/prediction-league/internal/platform/logging"
)

type PredictionConfig struct {
	// DeadlineLead is subtracted from a gameweek's first kickoff.
	DeadlineLead time.Duration
}

type PredictionEntry struct {
	FixtureID string
	Home      int
	Away      int
}

type SubmitPredictionsInput struct {
	UserID  string
	Entries []PredictionEntry
	// JokerFixtureID selects the joker when non-nil. An empty value clears it.
	JokerFixtureID *string
	ClearJoker     bool
}

type SubmitPredictionsResult struct {
	Saved         int              `json:"saved"`
	Skipped       int              `json:"skipped"`
	LateGameweeks []int            `json:"late_gameweeks"`
	SubmittedAt   time.Time        `json:"submitted_at"`
	Joker         prediction.Joker `json:"joker"`
}

type UserPredictions struct {
	Predictions []prediction.Prediction
	Joker       prediction.Joker
}

type PredictionService struct {
	fixtureRepo    fixture.Repository
	predictionRepo prediction.Repository
	scoringRepo    scoring.Repository
	cfg            PredictionConfig
	logger         *logging.Logger
	now            func() time.Time
}

func NewPredictionService(
	fixtureRepo fixture.Repository,
	predictionRepo prediction.Repository,
	scoringRepo scoring.Repository,
	cfg PredictionConfig,
	logger *logging.Logger,
) *PredictionService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.DeadlineLead < 0 {
		cfg.DeadlineLead = 0
	}
	return &PredictionService{
		fixtureRepo:    fixtureRepo,
		predictionRepo: predictionRepo,
		scoringRepo:    scoringRepo,
		cfg:            cfg,
		logger:         logger,
		now:            time.Now,
	}
}

type pendingPrediction struct {
	item     prediction.Prediction
	gameweek int
}

func (s *PredictionService) Submit(ctx context.Context, input SubmitPredictionsInput) (SubmitPredictionsResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PredictionService.Submit")
	defer span.End()

	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return SubmitPredictionsResult{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	now := s.now().UTC()
	result := SubmitPredictionsResult{SubmittedAt: now}

	deadlines := make(map[int]time.Time)
	pending := make(map[string]pendingPrediction, len(input.Entries))
	order := make([]string, 0, len(input.Entries))
	for _, entry := range input.Entries {
		fixtureID := strings.TrimSpace(entry.FixtureID)
		if fixtureID == "" {
			return SubmitPredictionsResult{}, fmt.Errorf("%w: fixture id is required", ErrInvalidInput)
		}
		item, err := s.openFixture(ctx, fixtureID, now)
		if err != nil {
			return SubmitPredictionsResult{}, err
		}

		score := fixture.Score{Home: entry.Home, Away: entry.Away}
		if !score.Valid() {
			result.Skipped++
			continue
		}

		deadline, err := s.deadline(ctx, item.Gameweek, deadlines)
		if err != nil {
			return SubmitPredictionsResult{}, err
		}

		if _, seen := pending[fixtureID]; !seen {
			order = append(order, fixtureID)
		}
		pending[fixtureID] = pendingPrediction{
			item: prediction.Prediction{
				UserID:      userID,
				FixtureID:   fixtureID,
				Score:       score,
				SubmittedAt: now,
				Late:        now.After(deadline),
			},
			gameweek: item.Gameweek,
		}
	}

	jokerChange, err := s.planJoker(ctx, userID, input, now)
	if err != nil {
		return SubmitPredictionsResult{}, err
	}

	lateGameweeks := make(map[int]struct{})
	for _, fixtureID := range order {
		entry := pending[fixtureID]
		if err := s.predictionRepo.Upsert(ctx, entry.item); err != nil {
			return SubmitPredictionsResult{}, fmt.Errorf("save prediction fixture=%s: %w", fixtureID, err)
		}
		result.Saved++
		if entry.item.Late {
			lateGameweeks[entry.gameweek] = struct{}{}
		}
	}

	for gameweek := range lateGameweeks {
		if err := s.scoringRepo.MarkGameweekPenalty(ctx, userID, gameweek, scoring.LatePenalty); err != nil {
			return SubmitPredictionsResult{}, fmt.Errorf("mark late penalty gameweek=%d: %w", gameweek, err)
		}
		result.LateGameweeks = append(result.LateGameweeks, gameweek)
	}
	sort.Ints(result.LateGameweeks)
	if len(result.LateGameweeks) > 0 {
		s.logger.InfoContext(ctx, "late predictions received",
			"user_id", userID,
			"gameweeks", result.LateGameweeks,
		)
	}

	if jokerChange.apply {
		if err := s.predictionRepo.SetJoker(ctx, jokerChange.joker); err != nil {
			return SubmitPredictionsResult{}, fmt.Errorf("save joker: %w", err)
		}
	}
	result.Joker = jokerChange.joker

	return result, nil
}

func (s *PredictionService) List(ctx context.Context, userID string) (UserPredictions, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PredictionService.List")
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return UserPredictions{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	items, err := s.predictionRepo.ListByUser(ctx, userID)
	if err != nil {
		return UserPredictions{}, fmt.Errorf("list predictions: %w", err)
	}
	joker, _, err := s.predictionRepo.GetJoker(ctx, userID)
	if err != nil {
		return UserPredictions{}, fmt.Errorf("get joker: %w", err)
	}
	joker.UserID = userID

	return UserPredictions{Predictions: items, Joker: joker}, nil
}

// openFixture loads a fixture that still accepts predictions.
func (s *PredictionService) openFixture(ctx context.Context, fixtureID string, now time.Time) (fixture.Fixture, error) {
	item, exists, err := s.fixtureRepo.GetByID(ctx, fixtureID)
	if err != nil {
		return fixture.Fixture{}, fmt.Errorf("get fixture: %w", err)
	}
	if !exists {
		return fixture.Fixture{}, fmt.Errorf("%w: fixture=%s", ErrNotFound, fixtureID)
	}
	if item.HasKickedOff(now) {
		return fixture.Fixture{}, fmt.Errorf("%w: fixture=%s already kicked off", ErrInvalidInput, fixtureID)
	}
	return item, nil
}

func (s *PredictionService) deadline(ctx context.Context, gameweek int, cache map[int]time.Time) (time.Time, error) {
	if deadline, ok := cache[gameweek]; ok {
		return deadline, nil
	}
	items, err := s.fixtureRepo.ListByGameweek(ctx, gameweek)
	if err != nil {
		return time.Time{}, fmt.Errorf("list fixtures gameweek=%d: %w", gameweek, err)
	}
	deadline, ok := fixture.GameweekDeadline(items, s.cfg.DeadlineLead)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: gameweek=%d has no scheduled kickoff", ErrInvalidInput, gameweek)
	}
	cache[gameweek] = deadline
	return deadline, nil
}

type jokerChange struct {
	joker prediction.Joker
	apply bool
}

// planJoker validates the requested joker move without writing it. Once the
// selected fixture kicks off the joker is spent for the season.
func (s *PredictionService) planJoker(ctx context.Context, userID string, input SubmitPredictionsInput, now time.Time) (jokerChange, error) {
	current, _, err := s.predictionRepo.GetJoker(ctx, userID)
	if err != nil {
		return jokerChange{}, fmt.Errorf("get joker: %w", err)
	}
	current.UserID = userID

	if input.JokerFixtureID == nil && !input.ClearJoker {
		return jokerChange{joker: current}, nil
	}

	target := ""
	if input.JokerFixtureID != nil {
		target = strings.TrimSpace(*input.JokerFixtureID)
	}
	if input.ClearJoker {
		target = ""
	}
	if target == current.FixtureID {
		return jokerChange{joker: current}, nil
	}

	if current.Selected() {
		selected, exists, err := s.fixtureRepo.GetByID(ctx, current.FixtureID)
		if err != nil {
			return jokerChange{}, fmt.Errorf("get joker fixture: %w", err)
		}
		if exists && selected.HasKickedOff(now) {
			return jokerChange{}, fmt.Errorf("%w: joker is locked on fixture=%s", ErrConflict, current.FixtureID)
		}
	}
	if target != "" {
		if _, err := s.openFixture(ctx, target, now); err != nil {
			return jokerChange{}, err
		}
	}

	next := prediction.Joker{
		UserID:       userID,
		FixtureID:    target,
		UsedInSeason: current.UsedInSeason || target != "",
	}
	if target != "" {
		selectedAt := now
		next.SelectedAt = &selectedAt
	}
	return jokerChange{joker: next, apply: true}, nil
}
