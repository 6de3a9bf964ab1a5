package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/prediction-league/external/apifootball"
	"github.com/riskibarqy/prediction-league/external/jobqueue"
	"github.com/riskibarqy/prediction-league/external/jwtauth"
	"github.com/riskibarqy/prediction-league/internal/config"
	"github.com/riskibarqy/prediction-league/internal/domain/fixture"
	"github.com/riskibarqy/prediction-league/internal/interfaces/httpapi"
	"github.com/riskibarqy/prediction-league/internal/observability"
	"github.com/riskibarqy/prediction-league/internal/platform/cache"
	"github.com/riskibarqy/prediction-league/internal/platform/id"
	"github.com/riskibarqy/prediction-league/internal/platform/logging"
	"github.com/riskibarqy/prediction-league/internal/usecase"
)

// App holds the wired services shared by the API server and the CLI.
type App struct {
	cfg    config.Config
	logger *logging.Logger
	repos  repositories
	db     *sqlx.DB

	Fixtures    *usecase.FixtureService
	Predictions *usecase.PredictionService
	Prophecies  *usecase.ProphecyService
	Users       *usecase.UserService
	Leaderboard *usecase.LeaderboardService
	Settlement  *usecase.SettlementService
	FixtureSync *usecase.FixtureSyncService
	Jobs        *usecase.SettlementJobService

	verifier *jwtauth.Verifier
	metrics  http.Handler
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}

	derbies, err := fixture.NewDerbySet(cfg.DerbyPairs)
	if err != nil {
		return nil, fmt.Errorf("build derby set: %w", err)
	}

	var store *cache.Store
	if cfg.CacheEnabled {
		store = cache.NewStore(cfg.CacheTTL)
	}

	a := &App{cfg: cfg, logger: logger}
	if err := a.openRepositories(ctx, store); err != nil {
		return nil, err
	}

	var (
		provider usecase.ResultProvider
		source   usecase.FixtureSource
	)
	if cfg.APIFootballEnabled {
		client := apifootball.NewClient(apifootball.ClientConfig{
			BaseURL:           cfg.APIFootballBaseURL,
			APIKey:            cfg.APIFootballKey,
			LeagueID:          cfg.APIFootballLeagueID,
			Season:            cfg.APIFootballSeason,
			Timeout:           cfg.APIFootballTimeout,
			MaxRetries:        cfg.APIFootballMaxRetries,
			RequestsPerSecond: cfg.APIFootballRequestsPerSecond,
			Logger:            logger,
			CircuitBreaker:    cfg.APIFootballCircuit,
		})
		provider, source = client, client
	} else {
		logger.Warn("result provider disabled", "reason", "API_FOOTBALL_ENABLED=false")
	}

	var queue usecase.JobQueue
	if cfg.QStashEnabled {
		publisher, err := jobqueue.NewQStashPublisher(jobqueue.QStashPublisherConfig{
			BaseURL:          cfg.QStashBaseURL,
			Token:            cfg.QStashToken,
			TargetBaseURL:    cfg.QStashTargetBaseURL,
			Retries:          cfg.QStashRetries,
			InternalJobToken: cfg.InternalJobToken,
			CircuitBreaker:   cfg.QStashCircuit,
		}, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("build qstash publisher: %w", err)
		}
		queue = publisher
	}

	if strings.TrimSpace(cfg.JWTSecret) != "" {
		a.verifier, err = jwtauth.NewVerifier(jwtauth.Config{
			Secret: cfg.JWTSecret,
			Issuer: cfg.JWTIssuer,
			Leeway: 30 * time.Second,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("build jwt verifier: %w", err)
		}
	} else {
		logger.Warn("bearer authentication disabled", "reason", "JWT_SECRET empty")
	}

	settlementOpts := []usecase.SettlementOption{}
	if cfg.MetricsEnabled {
		registry := observability.NewRegistry()
		metrics, err := observability.NewSettlementMetrics(registry)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("register settlement metrics: %w", err)
		}
		settlementOpts = append(settlementOpts, usecase.WithSettlementMetrics(metrics))
		a.metrics = observability.MetricsHandler(registry)
	}
	if a.repos.locker != nil {
		settlementOpts = append(settlementOpts, usecase.WithRunLocker(a.repos.locker))
	}

	a.Leaderboard = usecase.NewLeaderboardService(a.repos.scores, store)
	settlementOpts = append(settlementOpts, usecase.WithStandingsInvalidator(a.Leaderboard))

	a.Fixtures = usecase.NewFixtureService(a.repos.fixtures)
	a.Predictions = usecase.NewPredictionService(
		a.repos.fixtures,
		a.repos.predictions,
		a.repos.scores,
		usecase.PredictionConfig{DeadlineLead: cfg.PredictionDeadlineLead},
		logger,
	)
	a.Prophecies = usecase.NewProphecyService(a.repos.prophecies, a.repos.fixtures)
	a.Users = usecase.NewUserService(a.repos.users, a.repos.scores, a.repos.predictions, a.Leaderboard)
	a.Settlement = usecase.NewSettlementService(
		a.repos.fixtures,
		a.repos.scores,
		provider,
		usecase.SettlementConfig{
			FetchWorkers:      cfg.SettlementFetchWorkers,
			RecomputeWorkers:  cfg.SettlementRecomputeWorkers,
			LookupTimeout:     cfg.SettlementLookupTimeout,
			MaxUpdateAttempts: cfg.SettlementMaxUpdateAttempts,
		},
		logger,
		settlementOpts...,
	)
	if source != nil {
		a.FixtureSync = usecase.NewFixtureSyncService(source, a.repos.fixtures, derbies, id.NewUUIDGenerator(), logger)
	}
	a.Jobs = usecase.NewSettlementJobService(
		a.Settlement,
		a.FixtureSync,
		queue,
		a.repos.dispatches,
		usecase.SettlementJobConfig{
			Interval:            cfg.SettlementInterval,
			FixtureSyncInterval: cfg.FixtureSyncInterval,
		},
		logger,
	)

	return a, nil
}

// SeedSchedule fills an empty fixture store from the provider when one is
// configured.
func (a *App) SeedSchedule(ctx context.Context) {
	if a.FixtureSync == nil {
		return
	}
	seeded, err := a.FixtureSync.SeedIfEmpty(ctx)
	if err != nil {
		a.logger.WarnContext(ctx, "initial fixture sync failed", "error", err)
		return
	}
	if seeded {
		a.logger.InfoContext(ctx, "fixture schedule seeded from provider")
	}
}

// StartScheduler runs the in-process settlement ticker when no job queue is
// configured and the interval is positive. It stops with ctx.
func (a *App) StartScheduler(ctx context.Context) bool {
	if a.Jobs.QueueEnabled() {
		a.logger.Info("settlement ticker disabled", "reason", "job queue configured")
		return false
	}
	if a.cfg.SettlementInterval <= 0 {
		a.logger.Info("settlement ticker disabled", "reason", "SETTLEMENT_INTERVAL=0")
		return false
	}
	go a.Jobs.RunLoop(ctx)
	a.logger.Info("settlement ticker started", "interval", a.cfg.SettlementInterval.String())
	return true
}

func (a *App) HTTPServer() (*http.Server, error) {
	if strings.TrimSpace(a.cfg.HTTPAddr) == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	handler := httpapi.NewHandler(httpapi.Services{
		Fixtures:    a.Fixtures,
		Predictions: a.Predictions,
		Prophecies:  a.Prophecies,
		Users:       a.Users,
		Leaderboard: a.Leaderboard,
		Settlement:  a.Settlement,
		Jobs:        a.Jobs,
	}, a.logger)

	var verifier httpapi.TokenVerifier
	if a.verifier != nil {
		verifier = a.verifier
	}
	var limiter *httpapi.ClientRateLimiter
	if a.cfg.HTTPRateLimitPerSecond > 0 {
		limiter = httpapi.NewClientRateLimiter(a.cfg.HTTPRateLimitPerSecond, a.cfg.HTTPRateLimitBurst)
	}
	router := httpapi.NewRouter(handler, verifier, a.logger, httpapi.RouterConfig{
		CORSAllowedOrigins: a.cfg.CORSAllowedOrigins,
		InternalJobToken:   a.cfg.InternalJobToken,
		AdminUserIDs:       a.cfg.AdminUserIDs,
		Metrics:            a.metrics,
		RateLimiter:        limiter,
	})

	return &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           router,
		ReadTimeout:       a.cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      a.cfg.WriteTimeout,
	}, nil
}

func (a *App) Close() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("close database failed", "error", err)
	}
	a.db = nil
}
