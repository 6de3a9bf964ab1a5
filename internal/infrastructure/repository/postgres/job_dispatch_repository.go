package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/prediction-league/internal/domain/jobscheduler"
	qb "github.com/riskibarqy/prediction-league/internal/platform/querybuilder"
)

// stageColumns are overwritten only by the event of their own status and
// kept otherwise.
var stageColumns = []struct {
	status  jobscheduler.DispatchStatus
	columns []string
}{
	{jobscheduler.StatusSent, []string{"sent_trace_id", "sent_span_id"}},
	{jobscheduler.StatusCompleted, []string{"completed_at", "completed_trace_id", "completed_span_id"}},
	{jobscheduler.StatusFailed, []string{"failed_trace_id", "failed_span_id"}},
}

var jobDispatchConflictSuffix = buildJobDispatchConflictSuffix()

type JobDispatchRepository struct {
	db *sqlx.DB
}

func NewJobDispatchRepository(db *sqlx.DB) *JobDispatchRepository {
	return &JobDispatchRepository{db: db}
}

func (r *JobDispatchRepository) UpsertEvent(ctx context.Context, event jobscheduler.DispatchEvent) error {
	dispatchID := strings.TrimSpace(event.DispatchID)
	if dispatchID == "" {
		return fmt.Errorf("dispatch id is required")
	}

	occurredAt := event.OccurredAt.UTC()
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	payload := "{}"
	if len(event.Payload) > 0 {
		raw, err := sonic.MarshalString(event.Payload)
		if err != nil {
			return fmt.Errorf("marshal job dispatch payload: %w", err)
		}
		payload = raw
	}

	model := jobDispatchInsertModel{
		DispatchID: dispatchID,
		JobName:    defaultString(event.JobName, "unknown"),
		JobPath:    defaultString(event.JobPath, "/unknown"),
		Payload:    payload,
		Status:     string(event.Status),
	}

	traceID, spanID := optionalString(event.TraceID), optionalString(event.SpanID)
	switch event.Status {
	case jobscheduler.StatusSent:
		model.SentAt = &occurredAt
		model.SentTraceID, model.SentSpanID = traceID, spanID
	case jobscheduler.StatusCompleted:
		model.CompletedAt = &occurredAt
		model.CompletedTraceID, model.CompletedSpanID = traceID, spanID
	case jobscheduler.StatusFailed:
		model.FailedAt = &occurredAt
		model.FailedTraceID, model.FailedSpanID = traceID, spanID
		model.LastError = optionalString(event.ErrorMessage)
	default:
		return fmt.Errorf("unknown job dispatch status %q", event.Status)
	}

	query, args, err := qb.InsertModel("job_dispatches", model, jobDispatchConflictSuffix)
	if err != nil {
		return fmt.Errorf("build upsert job dispatch query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert job dispatch dispatch_id=%s status=%s: %w", dispatchID, event.Status, err)
	}
	return nil
}

func buildJobDispatchConflictSuffix() string {
	var b strings.Builder
	b.WriteString(`ON CONFLICT (dispatch_id) WHERE deleted_at IS NULL
DO UPDATE SET
    job_name = EXCLUDED.job_name,
    job_path = EXCLUDED.job_path,
    payload = EXCLUDED.payload,
    status = EXCLUDED.status,
    sent_at = COALESCE(EXCLUDED.sent_at, job_dispatches.sent_at),
    failed_at = CASE
        WHEN EXCLUDED.status = 'failed' THEN EXCLUDED.failed_at
        WHEN EXCLUDED.status = 'completed' THEN NULL
        ELSE job_dispatches.failed_at
    END,
    last_error = EXCLUDED.last_error,`)
	for _, stage := range stageColumns {
		for _, column := range stage.columns {
			fmt.Fprintf(&b, "\n    %[1]s = CASE WHEN EXCLUDED.status = '%[2]s' THEN EXCLUDED.%[1]s ELSE job_dispatches.%[1]s END,", column, stage.status)
		}
	}
	b.WriteString("\n    updated_at = NOW(),\n    deleted_at = NULL")
	return b.String()
}

func defaultString(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}
