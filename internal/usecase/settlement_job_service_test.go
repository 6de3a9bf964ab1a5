package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/riskibarqy/prediction-league/internal/domain/jobscheduler"
	"github.com/riskibarqy/prediction-league/internal/infrastructure/repository/memory"
)

type enqueuedJob struct {
	path    string
	delay   time.Duration
	dedupID string
}

type stubJobQueue struct {
	mu   sync.Mutex
	jobs []enqueuedJob
	err  error
}

var _ JobQueue = (*stubJobQueue)(nil)

func (q *stubJobQueue) Enqueue(_ context.Context, path string, _ any, delay time.Duration, dedupID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, enqueuedJob{path: path, delay: delay, dedupID: dedupID})
	return nil
}

func newJobHarness(queue JobQueue) (*SettlementJobService, *memory.JobDispatchRepository) {
	store := memory.NewStore()
	fixtures := memory.NewFixtureRepository(store)
	settlement := NewSettlementService(fixtures, memory.NewScoringRepository(store), nil, SettlementConfig{}, nil)
	dispatches := memory.NewJobDispatchRepository(store)
	svc := NewSettlementJobService(settlement, nil, queue, dispatches, SettlementJobConfig{Interval: 10 * time.Minute}, nil)
	svc.now = func() time.Time { return time.Date(2026, 9, 12, 14, 7, 30, 0, time.UTC) }
	return svc, dispatches
}

func TestSettlementJobService_RunScheduled_EnqueuesNext(t *testing.T) {
	t.Parallel()

	queue := &stubJobQueue{}
	svc, dispatches := newJobHarness(queue)

	result, err := svc.RunScheduled(context.Background(), "settlement-20260912T140000Z")
	if err != nil {
		t.Fatalf("run scheduled: %v", err)
	}
	if !result.Settlement.Success {
		t.Fatalf("expected empty settlement to succeed, got=%+v", result.Settlement)
	}
	if result.NextDispatchID != "settlement-20260912T141000Z" {
		t.Fatalf("unexpected next dispatch id: %q", result.NextDispatchID)
	}
	if len(queue.jobs) != 1 || queue.jobs[0].path != SettlementJobPath || queue.jobs[0].delay != 10*time.Minute {
		t.Fatalf("unexpected enqueued jobs: %+v", queue.jobs)
	}

	event, ok := dispatches.Get("settlement-20260912T140000Z")
	if !ok || event.Status != jobscheduler.StatusCompleted {
		t.Fatalf("expected completed dispatch event, got=%+v ok=%v", event, ok)
	}
	event, ok = dispatches.Get(result.NextDispatchID)
	if !ok || event.Status != jobscheduler.StatusSent {
		t.Fatalf("expected sent dispatch event, got=%+v ok=%v", event, ok)
	}
}

func TestSettlementJobService_RunScheduled_EnqueueFailure(t *testing.T) {
	t.Parallel()

	queue := &stubJobQueue{err: errors.New("qstash unavailable")}
	svc, _ := newJobHarness(queue)

	result, err := svc.RunScheduled(context.Background(), "")
	if err == nil {
		t.Fatalf("expected enqueue error")
	}
	if !result.Settlement.Success {
		t.Fatalf("settlement itself should still succeed, got=%+v", result.Settlement)
	}
}

func TestSettlementJobService_Bootstrap_RequiresQueue(t *testing.T) {
	t.Parallel()

	svc, _ := newJobHarness(nil)
	if _, err := svc.Bootstrap(context.Background()); !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected dependency unavailable, got=%v", err)
	}

	queue := &stubJobQueue{}
	svc, _ = newJobHarness(queue)
	result, err := svc.Bootstrap(context.Background())
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if len(result.QueuedOperations) != 1 || queue.jobs[0].delay != 0 {
		t.Fatalf("unexpected bootstrap result: %+v jobs=%+v", result, queue.jobs)
	}
}

func TestSettlementJobService_RunLoop_StopsOnCancel(t *testing.T) {
	t.Parallel()

	svc, _ := newJobHarness(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.RunLoop(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("run loop did not stop after cancel")
	}
}

func TestDedupKey_UsesQStashSafeFormat(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, time.February, 25, 4, 25, 42, 0, time.UTC)
	got := dedupKey("fixture:sync", at, 5*time.Minute)

	if strings.Contains(got, ":") {
		t.Fatalf("dedup key must not contain colon, got=%q", got)
	}

	want := "fixture-sync-20260225T042500Z"
	if got != want {
		t.Fatalf("unexpected dedup key: got=%q want=%q", got, want)
	}
}

func TestSanitizeDedupSegment_EmptyFallback(t *testing.T) {
	t.Parallel()

	if got := sanitizeDedupSegment(" \t "); got != "unknown" {
		t.Fatalf("unexpected sanitize fallback: got=%q want=%q", got, "unknown")
	}
}
