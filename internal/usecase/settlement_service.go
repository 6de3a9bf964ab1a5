package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/prediction-league/internal/domain/fixture"
	"github.com/riskibarqy/prediction-league/internal/domain/scoring"
	"github.com/riskibarqy/prediction-league/internal/platform/logging"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/attribute"
)

const nothingToDoMessage = "nothing to do: no finished fixtures"

type SettlementConfig struct {
	FetchWorkers      int
	RecomputeWorkers  int
	LookupTimeout     time.Duration
	MaxUpdateAttempts int
}

func DefaultSettlementConfig() SettlementConfig {
	return SettlementConfig{
		FetchWorkers:      4,
		RecomputeWorkers:  4,
		LookupTimeout:     15 * time.Second,
		MaxUpdateAttempts: 3,
	}
}

func (c SettlementConfig) normalize() SettlementConfig {
	defaults := DefaultSettlementConfig()
	if c.FetchWorkers <= 0 {
		c.FetchWorkers = defaults.FetchWorkers
	}
	if c.RecomputeWorkers <= 0 {
		c.RecomputeWorkers = defaults.RecomputeWorkers
	}
	if c.LookupTimeout <= 0 {
		c.LookupTimeout = defaults.LookupTimeout
	}
	if c.MaxUpdateAttempts <= 0 {
		c.MaxUpdateAttempts = defaults.MaxUpdateAttempts
	}
	return c
}

type SettlementResult struct {
	ScoredCount    int       `json:"scored_count"`
	Success        bool      `json:"success"`
	Message        string    `json:"message"`
	CandidateCount int       `json:"candidate_count"`
	PendingCount   int       `json:"pending_count"`
	FailedCount    int       `json:"failed_count"`
	UsersUpdated   int       `json:"users_updated"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}

// StandingsInvalidator drops cached standings after totals change.
type StandingsInvalidator interface {
	Invalidate(ctx context.Context)
}

type SettlementService struct {
	fixtureRepo fixture.Repository
	scoringRepo scoring.Repository
	provider    ResultProvider
	locker      RunLocker
	slot        runSlot
	standings   StandingsInvalidator
	metrics     SettlementMetrics
	cfg         SettlementConfig
	logger      *logging.Logger
	now         func() time.Time
}

type SettlementOption func(*SettlementService)

// WithRunLocker adds a cross-process lock around every run.
func WithRunLocker(locker RunLocker) SettlementOption {
	return func(s *SettlementService) {
		s.locker = locker
	}
}

func WithStandingsInvalidator(invalidator StandingsInvalidator) SettlementOption {
	return func(s *SettlementService) {
		s.standings = invalidator
	}
}

func WithSettlementMetrics(metrics SettlementMetrics) SettlementOption {
	return func(s *SettlementService) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

func NewSettlementService(
	fixtureRepo fixture.Repository,
	scoringRepo scoring.Repository,
	provider ResultProvider,
	cfg SettlementConfig,
	logger *logging.Logger,
	opts ...SettlementOption,
) *SettlementService {
	if logger == nil {
		logger = logging.Default()
	}
	svc := &SettlementService{
		fixtureRepo: fixtureRepo,
		scoringRepo: scoringRepo,
		provider:    provider,
		slot:        newRunSlot(),
		metrics:     noopSettlementMetrics{},
		cfg:         cfg.normalize(),
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// RunSettlement scores every fixture that kicked off without a result and then
// recomputes all users from their full prediction history.
func (s *SettlementService) RunSettlement(ctx context.Context) (SettlementResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SettlementService.RunSettlement")
	defer span.End()

	unlock, err := s.acquire(ctx)
	if err != nil {
		return s.failed(ctx, SettlementResult{StartedAt: s.now().UTC()}, "settlement lock unavailable", err)
	}
	defer unlock()

	result, err := s.runLocked(ctx)
	span.SetAttributes(
		attribute.Int("settlement.scored_count", result.ScoredCount),
		attribute.Int("settlement.candidate_count", result.CandidateCount),
		attribute.Bool("settlement.success", result.Success),
	)
	return result, err
}

// CorrectResult overwrites the stored score of a fixture that has kicked off
// and recomputes every user so totals converge on the corrected value.
func (s *SettlementService) CorrectResult(ctx context.Context, fixtureID string, score fixture.Score) (SettlementResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SettlementService.CorrectResult")
	defer span.End()

	fixtureID = strings.TrimSpace(fixtureID)
	if fixtureID == "" {
		return SettlementResult{}, fmt.Errorf("%w: fixture id is required", ErrInvalidInput)
	}
	if !score.Valid() {
		return SettlementResult{}, fmt.Errorf("%w: scores must be non-negative", ErrInvalidInput)
	}

	item, exists, err := s.fixtureRepo.GetByID(ctx, fixtureID)
	if err != nil {
		return SettlementResult{}, fmt.Errorf("get fixture: %w", err)
	}
	if !exists {
		return SettlementResult{}, fmt.Errorf("%w: fixture=%s", ErrNotFound, fixtureID)
	}
	if !item.HasKickedOff(s.now().UTC()) {
		return SettlementResult{}, fmt.Errorf("%w: fixture=%s has not kicked off", ErrInvalidInput, fixtureID)
	}

	unlock, err := s.acquire(ctx)
	if err != nil {
		return s.failed(ctx, SettlementResult{StartedAt: s.now().UTC()}, "settlement lock unavailable", err)
	}
	defer unlock()

	changed, err := s.fixtureRepo.UpdateResult(ctx, fixtureID, score, s.now().UTC())
	if err != nil {
		return s.failed(ctx, SettlementResult{StartedAt: s.now().UTC()}, "store result correction failed", err)
	}
	s.logger.InfoContext(ctx, "fixture result corrected",
		"fixture_id", fixtureID,
		"home", score.Home,
		"away", score.Away,
		"changed", changed,
	)

	result, err := s.runLocked(ctx)
	if err == nil && changed {
		result.ScoredCount++
		result.Message = scoredMessage(result.ScoredCount)
	}
	return result, err
}

func (s *SettlementService) acquire(ctx context.Context) (func(), error) {
	if err := s.slot.acquire(ctx); err != nil {
		return nil, fmt.Errorf("wait for settlement run slot: %w", err)
	}
	if s.locker == nil {
		return s.slot.release, nil
	}
	unlock, err := s.locker.Lock(ctx)
	if err != nil {
		s.slot.release()
		return nil, fmt.Errorf("acquire settlement lock: %w", err)
	}
	return func() {
		unlock()
		s.slot.release()
	}, nil
}

func (s *SettlementService) runLocked(ctx context.Context) (SettlementResult, error) {
	startedAt := s.now().UTC()
	result := SettlementResult{StartedAt: startedAt}

	candidates, err := s.fixtureRepo.ListNeedingResults(ctx, startedAt)
	if err != nil {
		return s.failed(ctx, result, "list fixtures needing results failed", err)
	}
	result.CandidateCount = len(candidates)

	fetched, err := s.fetchResults(ctx, candidates)
	if err != nil {
		return s.failed(ctx, result, "fetch results failed", err)
	}

	for _, item := range fetched {
		switch {
		case item.err != nil:
			result.FailedCount++
			s.metrics.IncLookupFailure()
			s.logger.WarnContext(ctx, "result lookup failed",
				"fixture_id", item.fixture.ID,
				"external_id", item.fixture.ExternalID,
				"error", item.err,
			)
		case item.score == nil:
			result.PendingCount++
		default:
			changed, err := s.fixtureRepo.UpdateResult(ctx, item.fixture.ID, *item.score, startedAt)
			if err != nil {
				return s.failed(ctx, result, "store fixture result failed", fmt.Errorf("fixture=%s: %w", item.fixture.ID, err))
			}
			if changed {
				result.ScoredCount++
			}
		}
	}
	s.metrics.AddFixturesScored(result.ScoredCount)

	updated, err := s.recomputeAll(ctx, startedAt)
	result.UsersUpdated = updated
	if err != nil {
		return s.failed(ctx, result, "update user scores failed", err)
	}

	if s.standings != nil {
		s.standings.Invalidate(ctx)
	}

	result.Success = true
	result.Message = scoredMessage(result.ScoredCount)
	result.FinishedAt = s.now().UTC()
	s.metrics.ObserveRun(SettlementOutcomeSuccess, result.FinishedAt.Sub(startedAt))
	s.logger.InfoContext(ctx, "settlement completed",
		"candidates", result.CandidateCount,
		"scored", result.ScoredCount,
		"pending", result.PendingCount,
		"failed", result.FailedCount,
		"users_updated", result.UsersUpdated,
	)
	return result, nil
}

func scoredMessage(scored int) string {
	if scored == 0 {
		return nothingToDoMessage
	}
	if scored == 1 {
		return "1 fixture scored"
	}
	return fmt.Sprintf("%d fixtures scored", scored)
}

func (s *SettlementService) failed(ctx context.Context, result SettlementResult, message string, err error) (SettlementResult, error) {
	result.Success = false
	result.Message = message + ": " + err.Error()
	result.FinishedAt = s.now().UTC()
	if !result.StartedAt.IsZero() {
		s.metrics.ObserveRun(SettlementOutcomeFailed, result.FinishedAt.Sub(result.StartedAt))
	}
	s.logger.ErrorContext(ctx, "settlement failed", "reason", message, "error", err)
	return result, fmt.Errorf("%s: %w", message, err)
}

type resultFetch struct {
	fixture fixture.Fixture
	score   *fixture.Score
	err     error
}

// fetchResults looks up every candidate concurrently. It returns only after
// all lookups finished, in candidate order.
func (s *SettlementService) fetchResults(ctx context.Context, candidates []fixture.Fixture) ([]resultFetch, error) {
	out := make([]resultFetch, len(candidates))
	if len(candidates) == 0 {
		return out, nil
	}
	if s.provider == nil {
		for i, item := range candidates {
			out[i] = resultFetch{fixture: item, err: fmt.Errorf("%w: result provider is not configured", ErrDependencyUnavailable)}
		}
		return out, nil
	}

	workerCount := s.cfg.FetchWorkers
	if workerCount > len(candidates) {
		workerCount = len(candidates)
	}
	workerPool, err := ants.NewPool(workerCount)
	if err != nil {
		return nil, fmt.Errorf("create lookup pool: %w", err)
	}
	defer workerPool.Release()

	var workers sync.WaitGroup
	for i, item := range candidates {
		i, item := i, item
		workers.Add(1)
		if err := workerPool.Submit(func() {
			defer workers.Done()
			out[i] = s.lookup(ctx, item)
		}); err != nil {
			workers.Done()
			out[i] = resultFetch{fixture: item, err: fmt.Errorf("submit lookup: %w", err)}
		}
	}
	workers.Wait()

	return out, nil
}

func (s *SettlementService) lookup(ctx context.Context, item fixture.Fixture) resultFetch {
	out := resultFetch{fixture: item}
	if item.ExternalID <= 0 {
		out.err = fmt.Errorf("%w: fixture has no provider id", ErrInvalidInput)
		return out
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.cfg.LookupTimeout)
	defer cancel()

	found, err := s.provider.LookupResult(lookupCtx, item.ExternalID)
	if err != nil {
		out.err = err
		return out
	}
	if !found.Finished {
		return out
	}
	if found.Home == nil || found.Away == nil {
		out.err = fmt.Errorf("finished fixture without score status=%s", found.Status)
		return out
	}
	score := fixture.Score{Home: *found.Home, Away: *found.Away}
	if !score.Valid() {
		out.err = fmt.Errorf("provider returned negative score %d-%d", score.Home, score.Away)
		return out
	}
	out.score = &score
	return out
}

func (s *SettlementService) recomputeAll(ctx context.Context, calculatedAt time.Time) (int, error) {
	snapshots, err := s.scoringRepo.ListUserSnapshots(ctx)
	if err != nil {
		return 0, fmt.Errorf("list user snapshots: %w", err)
	}
	if len(snapshots) == 0 {
		return 0, nil
	}

	var updated atomic.Int64
	workers := pool.New().
		WithMaxGoroutines(s.cfg.RecomputeWorkers).
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError()
	for _, snapshot := range snapshots {
		snapshot := snapshot
		workers.Go(func(ctx context.Context) error {
			if err := s.settleUser(ctx, snapshot, calculatedAt); err != nil {
				return err
			}
			updated.Add(1)
			return nil
		})
	}
	err = workers.Wait()
	return int(updated.Load()), err
}

// settleUser writes one user's recomputed scores, re-reading the snapshot when
// a concurrent write bumped the user's version.
func (s *SettlementService) settleUser(ctx context.Context, snapshot scoring.UserSnapshot, calculatedAt time.Time) error {
	for attempt := 1; ; attempt++ {
		computed := scoring.Recompute(snapshot)
		err := s.scoringRepo.UpdateUserScores(ctx, scoring.UserScoreUpdate{
			UserID:          snapshot.UserID,
			ExpectedVersion: snapshot.Version,
			Gameweeks:       computed.Gameweeks,
			Total:           computed.Total,
			CalculatedAt:    calculatedAt,
		})
		if err == nil {
			return nil
		}
		if !errors.Is(err, scoring.ErrVersionConflict) || attempt >= s.cfg.MaxUpdateAttempts {
			return fmt.Errorf("update scores user=%s attempt=%d: %w", snapshot.UserID, attempt, err)
		}

		fresh, exists, err := s.scoringRepo.GetUserSnapshot(ctx, snapshot.UserID)
		if err != nil {
			return fmt.Errorf("reload snapshot user=%s: %w", snapshot.UserID, err)
		}
		if !exists {
			return nil
		}
		s.logger.DebugContext(ctx, "retrying user score update after version conflict",
			"user_id", snapshot.UserID,
			"attempt", attempt,
		)
		snapshot = fresh
	}
}
