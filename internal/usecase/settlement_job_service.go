package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/riskibarqy/prediction-league/internal/domain/jobscheduler"
	"github.com/riskibarqy/prediction-league/internal/platform/logging"
	"go.opentelemetry.io/otel/trace"
)

const (
	SettlementJobPath  = "/v1/internal/jobs/settlement"
	FixtureSyncJobPath = "/v1/internal/jobs/fixture-sync"
)

type JobQueue interface {
	Enqueue(ctx context.Context, path string, payload any, delay time.Duration, deduplicationID string) error
}

type SettlementJobConfig struct {
	Interval            time.Duration
	FixtureSyncInterval time.Duration
}

type SettlementJobResult struct {
	Settlement     SettlementResult `json:"settlement"`
	NextDispatchID string           `json:"next_dispatch_id,omitempty"`
}

type FixtureSyncJobResult struct {
	Sync           FixtureSyncResult `json:"sync"`
	NextDispatchID string            `json:"next_dispatch_id,omitempty"`
}

type BootstrapResult struct {
	QueuedOperations []string `json:"queued_operations"`
}

// SettlementJobService drives settlement and fixture sync from the job queue
// or, without one, from an in-process ticker.
type SettlementJobService struct {
	settlement   *SettlementService
	fixtureSync  *FixtureSyncService
	queue        JobQueue
	dispatchRepo jobscheduler.Repository
	cfg          SettlementJobConfig
	logger       *logging.Logger
	now          func() time.Time
}

var dedupUnsafeCharRegex = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

func NewSettlementJobService(
	settlement *SettlementService,
	fixtureSync *FixtureSyncService,
	queue JobQueue,
	dispatchRepo jobscheduler.Repository,
	cfg SettlementJobConfig,
	logger *logging.Logger,
) *SettlementJobService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.FixtureSyncInterval <= 0 {
		cfg.FixtureSyncInterval = 24 * time.Hour
	}
	return &SettlementJobService{
		settlement:   settlement,
		fixtureSync:  fixtureSync,
		queue:        queue,
		dispatchRepo: dispatchRepo,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *SettlementJobService) QueueEnabled() bool {
	return s.queue != nil
}

// RunScheduled settles and, when a queue is configured, enqueues the next run.
// The chain continues even when this run failed.
func (s *SettlementJobService) RunScheduled(ctx context.Context, dispatchID string) (SettlementJobResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SettlementJobService.RunScheduled")
	defer span.End()

	result, runErr := s.settlement.RunSettlement(ctx)
	s.recordCompletion(ctx, dispatchID, jobscheduler.JobSettlement, SettlementJobPath, runErr)

	out := SettlementJobResult{Settlement: result}
	if s.queue != nil {
		next, err := s.enqueue(ctx, jobscheduler.JobSettlement, SettlementJobPath, s.cfg.Interval)
		if err != nil {
			if runErr != nil {
				return out, fmt.Errorf("%w; %w", runErr, err)
			}
			return out, err
		}
		out.NextDispatchID = next
	}
	return out, runErr
}

func (s *SettlementJobService) RunFixtureSync(ctx context.Context, dispatchID string) (FixtureSyncJobResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SettlementJobService.RunFixtureSync")
	defer span.End()

	if s.fixtureSync == nil {
		return FixtureSyncJobResult{}, fmt.Errorf("%w: fixture sync is not configured", ErrDependencyUnavailable)
	}

	result, runErr := s.fixtureSync.SyncFixtures(ctx)
	s.recordCompletion(ctx, dispatchID, jobscheduler.JobFixtureSync, FixtureSyncJobPath, runErr)

	out := FixtureSyncJobResult{Sync: result}
	if s.queue != nil && strings.TrimSpace(dispatchID) != "" {
		next, err := s.enqueue(ctx, jobscheduler.JobFixtureSync, FixtureSyncJobPath, s.cfg.FixtureSyncInterval)
		if err != nil && runErr == nil {
			return out, err
		}
		out.NextDispatchID = next
	}
	return out, runErr
}

// Bootstrap starts both job chains immediately.
func (s *SettlementJobService) Bootstrap(ctx context.Context) (BootstrapResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SettlementJobService.Bootstrap")
	defer span.End()

	if s.queue == nil {
		return BootstrapResult{}, fmt.Errorf("%w: job queue is not configured", ErrDependencyUnavailable)
	}

	result := BootstrapResult{QueuedOperations: make([]string, 0, 2)}
	if _, err := s.enqueue(ctx, jobscheduler.JobSettlement, SettlementJobPath, 0); err != nil {
		return result, err
	}
	result.QueuedOperations = append(result.QueuedOperations, jobscheduler.JobSettlement)

	if s.fixtureSync != nil {
		if _, err := s.enqueue(ctx, jobscheduler.JobFixtureSync, FixtureSyncJobPath, 0); err != nil {
			return result, err
		}
		result.QueuedOperations = append(result.QueuedOperations, jobscheduler.JobFixtureSync)
	}
	return result, nil
}

// RunLoop settles every interval until ctx is done. It runs once immediately.
func (s *SettlementJobService) RunLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.settlement.RunSettlement(ctx); err != nil && ctx.Err() == nil {
			s.logger.WarnContext(ctx, "scheduled settlement failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *SettlementJobService) enqueue(ctx context.Context, jobName, path string, delay time.Duration) (string, error) {
	now := s.now().UTC()
	bucket := s.cfg.Interval
	if jobName == jobscheduler.JobFixtureSync {
		bucket = s.cfg.FixtureSyncInterval
	}
	dedupID := dedupKey(jobName, now.Add(delay), bucket)
	payload := map[string]any{
		"dispatch_id": dedupID,
	}

	if err := s.queue.Enqueue(ctx, path, payload, delay, dedupID); err != nil {
		s.recordDispatchEvent(ctx, jobscheduler.DispatchEvent{
			DispatchID:   dedupID,
			JobName:      jobName,
			JobPath:      path,
			Status:       jobscheduler.StatusFailed,
			Payload:      payload,
			ErrorMessage: err.Error(),
			OccurredAt:   now,
		})
		return "", fmt.Errorf("enqueue %s: %w", jobName, err)
	}
	s.recordDispatchEvent(ctx, jobscheduler.DispatchEvent{
		DispatchID: dedupID,
		JobName:    jobName,
		JobPath:    path,
		Status:     jobscheduler.StatusSent,
		Payload:    payload,
		OccurredAt: now,
	})
	return dedupID, nil
}

func (s *SettlementJobService) recordCompletion(ctx context.Context, dispatchID, jobName, path string, runErr error) {
	event := jobscheduler.DispatchEvent{
		DispatchID: strings.TrimSpace(dispatchID),
		JobName:    jobName,
		JobPath:    path,
		Status:     jobscheduler.StatusCompleted,
		OccurredAt: s.now().UTC(),
	}
	if runErr != nil {
		event.Status = jobscheduler.StatusFailed
		event.ErrorMessage = runErr.Error()
	}
	s.recordDispatchEvent(ctx, event)
}

func dedupKey(prefix string, at time.Time, bucket time.Duration) string {
	if bucket <= 0 {
		bucket = time.Minute
	}
	slot := at.UTC().Truncate(bucket).Format("20060102T150405Z")
	return sanitizeDedupSegment(prefix) + "-" + slot
}

func sanitizeDedupSegment(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return dedupUnsafeCharRegex.ReplaceAllString(value, "-")
}

func (s *SettlementJobService) recordDispatchEvent(ctx context.Context, event jobscheduler.DispatchEvent) {
	if s.dispatchRepo == nil || strings.TrimSpace(event.DispatchID) == "" {
		return
	}
	traceID, spanID := traceMetaFromContext(ctx)
	event.TraceID = traceID
	event.SpanID = spanID
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now().UTC()
	}
	if err := s.dispatchRepo.UpsertEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "record job dispatch event failed",
			"dispatch_id", event.DispatchID,
			"status", event.Status,
			"error", err,
		)
	}
}

func traceMetaFromContext(ctx context.Context) (string, string) {
	spanContext := trace.SpanFromContext(ctx).SpanContext()
	if !spanContext.IsValid() {
		return "", ""
	}
	return spanContext.TraceID().String(), spanContext.SpanID().String()
}
