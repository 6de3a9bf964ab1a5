package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/riskibarqy/prediction-league/internal/config"
	"github.com/riskibarqy/prediction-league/internal/domain/fixture"
	"github.com/riskibarqy/prediction-league/internal/domain/jobscheduler"
	"github.com/riskibarqy/prediction-league/internal/domain/prediction"
	"github.com/riskibarqy/prediction-league/internal/domain/prophecy"
	"github.com/riskibarqy/prediction-league/internal/domain/scoring"
	"github.com/riskibarqy/prediction-league/internal/domain/user"
	cacherepo "github.com/riskibarqy/prediction-league/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/prediction-league/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/prediction-league/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/prediction-league/internal/platform/cache"
	"github.com/riskibarqy/prediction-league/internal/usecase"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	"go.opentelemetry.io/otel/attribute"
)

type repositories struct {
	fixtures    fixture.Repository
	predictions prediction.Repository
	scores      scoring.Repository
	users       user.Repository
	prophecies  prophecy.Repository
	dispatches  jobscheduler.Repository
	locker      usecase.RunLocker
}

func (a *App) openRepositories(ctx context.Context, store *cache.Store) error {
	switch a.cfg.Storage {
	case config.StorageMemory:
		a.repos = a.memoryRepositories()
	case config.StoragePostgres:
		db, err := openDatabase(ctx, a.cfg)
		if err != nil {
			return err
		}
		a.db = db
		a.repos = postgresRepositories(db)
		if a.cfg.SeedDemoFixtures {
			if err := postgres.BootstrapSeed(ctx, db, time.Now()); err != nil {
				a.Close()
				return err
			}
		}
	default:
		return fmt.Errorf("unsupported storage %q", a.cfg.Storage)
	}

	if store != nil {
		a.repos.fixtures = cacherepo.NewFixtureRepository(a.repos.fixtures, store)
	}
	a.logger.Info("storage ready", "storage", a.cfg.Storage, "cache_enabled", store != nil)
	return nil
}

func (a *App) memoryRepositories() repositories {
	store := memory.NewStore()
	fixtures := memory.NewFixtureRepository(store)
	if a.cfg.SeedDemoFixtures {
		fixtures.Seed(memory.SeedFixtures(time.Now()))
	}
	return repositories{
		fixtures:    fixtures,
		predictions: memory.NewPredictionRepository(store),
		scores:      memory.NewScoringRepository(store),
		users:       memory.NewUserRepository(store),
		prophecies:  memory.NewProphecyRepository(store),
		dispatches:  memory.NewJobDispatchRepository(store),
	}
}

func postgresRepositories(db *sqlx.DB) repositories {
	return repositories{
		fixtures:    postgres.NewFixtureRepository(db),
		predictions: postgres.NewPredictionRepository(db),
		scores:      postgres.NewScoringRepository(db),
		users:       postgres.NewUserRepository(db),
		prophecies:  postgres.NewProphecyRepository(db),
		dispatches:  postgres.NewJobDispatchRepository(db),
		locker:      postgres.NewAdvisoryLocker(db, postgres.SettlementLockKey),
	}
}

func openDatabase(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	dsn := withApplicationName(cfg.DBURL, cfg.DBApplicationName)
	opts := []otelsql.Option{
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithQueryFormatter(traceQuery),
		otelsql.WithAttributes(attribute.String("service.name", cfg.ServiceName)),
	}
	if name := databaseName(dsn); name != "" {
		opts = append(opts, otelsql.WithDBName(name))
	}

	db, err := otelsqlx.Open("postgres", dsn, opts...)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}
