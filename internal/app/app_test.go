package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/riskibarqy/prediction-league/internal/config"
	"github.com/riskibarqy/prediction-league/internal/domain/fixture"
	"github.com/riskibarqy/prediction-league/internal/platform/logging"
	"github.com/stretchr/testify/require"
)

func memoryConfig() config.Config {
	return config.Config{
		AppEnv:                 config.EnvDev,
		ServiceName:            "prediction-league-api",
		HTTPAddr:               ":0",
		ReadTimeout:            time.Second,
		WriteTimeout:           time.Second,
		CORSAllowedOrigins:     []string{"*"},
		Storage:                config.StorageMemory,
		SeedDemoFixtures:       true,
		CacheEnabled:           true,
		CacheTTL:               time.Minute,
		MetricsEnabled:         true,
		PredictionDeadlineLead: time.Hour,
		DerbyPairs:             []fixture.TeamPair{{TeamA: "Liverpool", TeamB: "Everton"}},
		InternalJobToken:       "job-token",
	}
}

func TestNew_MemoryStorage(t *testing.T) {
	t.Parallel()

	a, err := New(context.Background(), memoryConfig(), logging.NewNop())
	require.NoError(t, err)
	defer a.Close()

	items, err := a.Fixtures.List(context.Background(), fixture.Filter{})
	require.NoError(t, err)
	require.NotEmpty(t, items)
	require.Nil(t, a.FixtureSync)

	srv, err := a.HTTPServer()
	require.NoError(t, err)

	for _, path := range []string{"/healthz", "/metrics", "/v1/fixtures", "/v1/leaderboard"} {
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestNew_SettlementWithoutProviderLeavesFixturesPending(t *testing.T) {
	t.Parallel()

	a, err := New(context.Background(), memoryConfig(), logging.NewNop())
	require.NoError(t, err)

	result, err := a.Settlement.RunSettlement(context.Background())
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Zero(t, result.ScoredCount)

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/settlement", strings.NewReader(`{}`))
	req.Header.Set("X-Internal-Job-Token", "job-token")
	rec := httptest.NewRecorder()
	srv, err := a.HTTPServer()
	require.NoError(t, err)
	srv.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestNew_AuthDisabledWithoutSecret(t *testing.T) {
	t.Parallel()

	a, err := New(context.Background(), memoryConfig(), logging.NewNop())
	require.NoError(t, err)
	srv, err := a.HTTPServer()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStartScheduler(t *testing.T) {
	t.Parallel()

	cfg := memoryConfig()
	a, err := New(context.Background(), cfg, logging.NewNop())
	require.NoError(t, err)
	require.False(t, a.StartScheduler(context.Background()))

	cfg.SettlementInterval = time.Hour
	a, err = New(context.Background(), cfg, logging.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.True(t, a.StartScheduler(ctx))
}

func TestNew_RejectsUnknownStorage(t *testing.T) {
	t.Parallel()

	cfg := memoryConfig()
	cfg.Storage = "mongo"
	_, err := New(context.Background(), cfg, logging.NewNop())
	require.Error(t, err)
}

func TestHTTPServer_RequiresAddr(t *testing.T) {
	t.Parallel()

	cfg := memoryConfig()
	cfg.HTTPAddr = " "
	a, err := New(context.Background(), cfg, logging.NewNop())
	require.NoError(t, err)
	_, err = a.HTTPServer()
	require.Error(t, err)
}
