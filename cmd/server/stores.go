package main

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	assessmentmemory "fitgap/internal/assessment/store/memory"
	assessmentpostgres "fitgap/internal/assessment/store/postgres"
	"fitgap/internal/delta/comparison"
	comparisonmemory "fitgap/internal/delta/comparison/store/memory"
	comparisonpostgres "fitgap/internal/delta/comparison/store/postgres"
	comparisonredis "fitgap/internal/delta/comparison/store/redis"
	decisionlogservice "fitgap/internal/decisionlog/service"
	decisionlogmemory "fitgap/internal/decisionlog/store/memory"
	decisionlogpostgres "fitgap/internal/decisionlog/store/postgres"
	"fitgap/internal/platform/config"
	"fitgap/internal/platform/postgres"
	"fitgap/internal/platform/redis"
	signatoryservice "fitgap/internal/signatory/service"
	signatorymemory "fitgap/internal/signatory/store/memory"
	signatorypostgres "fitgap/internal/signatory/store/postgres"
	signoffservice "fitgap/internal/signoff/service"
	signoffmemory "fitgap/internal/signoff/store/memory"
	signoffpostgres "fitgap/internal/signoff/store/postgres"
	"fitgap/migrations"
	txcontext "fitgap/pkg/platform/tx"
)

// storage is the persistence graph shared by every service. Either all
// stores are Postgres-backed or all are in-memory, and tx matches them.
type storage struct {
	tx          txcontext.Runner
	assessments signatoryservice.AssessmentStore
	snapshots   signoffservice.SnapshotReader
	signOff     signoffservice.Stores
	signatories signatoryservice.Store
	decisionLog decisionlogservice.Store
	comparisons comparison.Store

	// ping is nil for in-memory storage.
	ping healthCheck
}

func newPostgresStorage(pool *pgxpool.Pool, cache *redis.Client, cfg config.RedisConfig, logger *slog.Logger) *storage {
	assessments := assessmentpostgres.NewAssessmentStore(pool)
	snapshots := assessmentpostgres.NewSnapshotStore(pool)

	var comparisons comparison.Store = comparisonpostgres.New(pool)
	if cache != nil {
		comparisons = comparisonredis.New(cache, comparisons, cfg.ComparisonTTL, comparisonredis.WithLogger(logger))
	}

	return &storage{
		tx:          postgres.NewTxManager(pool),
		assessments: assessments,
		snapshots:   snapshots,
		signOff: signoffservice.Stores{
			Processes:   signoffpostgres.NewProcessStore(pool),
			Areas:       signoffpostgres.NewAreaValidationStore(pool),
			Signatures:  signoffpostgres.NewSignatureStore(pool),
			Assessments: assessments,
			Snapshots:   snapshots,
		},
		signatories: signatorypostgres.New(pool),
		decisionLog: decisionlogpostgres.New(pool),
		comparisons: comparisons,
		ping:        pool.Ping,
	}
}

func newMemoryStorage() *storage {
	assessments := assessmentmemory.NewAssessmentStore()
	snapshots := assessmentmemory.NewSnapshotStore()

	return &storage{
		tx:          txcontext.NewMemoryRunner(),
		assessments: assessments,
		snapshots:   snapshots,
		signOff: signoffservice.Stores{
			Processes:   signoffmemory.NewProcessStore(),
			Areas:       signoffmemory.NewAreaValidationStore(),
			Signatures:  signoffmemory.NewSignatureStore(),
			Assessments: assessments,
			Snapshots:   snapshots,
		},
		signatories: signatorymemory.NewInMemoryStore(),
		decisionLog: decisionlogmemory.NewInMemoryStore(),
		comparisons: comparisonmemory.NewInMemoryStore(),
	}
}

// openStorage connects to Postgres when a DSN is configured, applying
// migrations first if asked, and falls back to in-memory stores otherwise.
func openStorage(ctx context.Context, cfg *config.Config, cache *redis.Client, logger *slog.Logger) (*storage, func(), error) {
	if cfg.Database.DSN == "" {
		logger.Warn("no database DSN configured, using in-memory stores")
		return newMemoryStorage(), func() {}, nil
	}

	if cfg.Database.MigrateOnStartup {
		if err := postgres.Migrate(ctx, cfg.Database.DSN, migrations.FS, logger); err != nil {
			return nil, nil, err
		}
	}
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return newPostgresStorage(pool, cache, cfg.Redis, logger), pool.Close, nil
}
