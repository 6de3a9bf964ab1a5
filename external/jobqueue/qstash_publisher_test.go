package jobqueue

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/riskibarqy/prediction-league/internal/platform/resilience"
	"github.com/riskibarqy/prediction-league/internal/usecase"
	"github.com/stretchr/testify/require"
)

type capturedPublish struct {
	path    string
	headers http.Header
	body    string
}

func newQStashServer(t *testing.T, status int) (*httptest.Server, func() []capturedPublish) {
	t.Helper()

	var (
		mu       sync.Mutex
		captured []capturedPublish
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		captured = append(captured, capturedPublish{path: r.URL.Path, headers: r.Header.Clone(), body: string(body)})
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)

	return srv, func() []capturedPublish {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedPublish(nil), captured...)
	}
}

func TestQStashPublisher_Enqueue(t *testing.T) {
	t.Parallel()

	srv, captured := newQStashServer(t, http.StatusCreated)
	publisher, err := NewQStashPublisher(QStashPublisherConfig{
		BaseURL:          srv.URL,
		Token:            "qstash-token",
		TargetBaseURL:    "https://league.example.com",
		Retries:          2,
		InternalJobToken: "job-token",
	}, nil)
	require.NoError(t, err)

	err = publisher.Enqueue(context.Background(), usecase.SettlementJobPath, map[string]any{"trigger": "scheduled"}, 15*time.Minute, "settlement-20260912T141500Z")
	require.NoError(t, err)

	calls := captured()
	require.Len(t, calls, 1)
	require.Equal(t, "/v2/publish/https://league.example.com/v1/internal/jobs/settlement", calls[0].path)
	require.Equal(t, "Bearer qstash-token", calls[0].headers.Get("Authorization"))
	require.Equal(t, "900s", calls[0].headers.Get("Upstash-Delay"))
	require.Equal(t, "2", calls[0].headers.Get("Upstash-Retries"))
	require.Equal(t, "settlement-20260912T141500Z", calls[0].headers.Get("Upstash-Deduplication-Id"))
	require.Equal(t, "job-token", calls[0].headers.Get("Upstash-Forward-X-Internal-Job-Token"))
	require.JSONEq(t, `{"trigger":"scheduled"}`, calls[0].body)
}

func TestQStashPublisher_OpenBreakerReportsUnavailable(t *testing.T) {
	t.Parallel()

	srv, captured := newQStashServer(t, http.StatusServiceUnavailable)
	publisher, err := NewQStashPublisher(QStashPublisherConfig{
		BaseURL:       srv.URL,
		TargetBaseURL: "https://league.example.com",
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 1,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
	}, nil)
	require.NoError(t, err)

	err = publisher.Enqueue(context.Background(), "/v1/internal/jobs/settlement", nil, 0, "")
	require.Error(t, err)
	require.NotErrorIs(t, err, usecase.ErrDependencyUnavailable)

	err = publisher.Enqueue(context.Background(), "/v1/internal/jobs/settlement", nil, 0, "")
	require.ErrorIs(t, err, usecase.ErrDependencyUnavailable)
	require.Len(t, captured(), 1)
}

func TestNewQStashPublisher_ValidatesURLs(t *testing.T) {
	t.Parallel()

	_, err := NewQStashPublisher(QStashPublisherConfig{BaseURL: "ftp://qstash", TargetBaseURL: "https://x"}, nil)
	require.Error(t, err)
	_, err = NewQStashPublisher(QStashPublisherConfig{BaseURL: "https://qstash.upstash.io", TargetBaseURL: ""}, nil)
	require.Error(t, err)
}

func TestCurlPreview_MasksSecrets(t *testing.T) {
	t.Parallel()

	req := publishRequest{
		publishURL:      "https://qstash/v2/publish/https://league/v1/internal/jobs/settlement",
		body:            []byte(`{"it's":"quoted"}`),
		delay:           "60s",
		deduplicationID: "settlement-x",
	}
	preview := req.curlPreview(3, true)
	require.Contains(t, preview, "Authorization: Bearer ***")
	require.Contains(t, preview, "Upstash-Forward-X-Internal-Job-Token: ***")
	require.Contains(t, preview, "Upstash-Delay: 60s")
	require.True(t, strings.HasPrefix(preview, "curl -X POST"))
}

func TestFormatDelay(t *testing.T) {
	t.Parallel()

	require.Equal(t, "0s", formatDelay(-time.Second))
	require.Equal(t, "0s", formatDelay(0))
	require.Equal(t, "2s", formatDelay(1500*time.Millisecond))
}
