package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/config"
	"github.com/phrazzld/scry-scheduler/internal/domain"
	"github.com/phrazzld/scry-scheduler/internal/domain/srs"
	"github.com/phrazzld/scry-scheduler/internal/events"
	"github.com/phrazzld/scry-scheduler/internal/platform/postgres"
	"github.com/phrazzld/scry-scheduler/internal/service/scheduler"
	"github.com/phrazzld/scry-scheduler/internal/service/study"
	"github.com/phrazzld/scry-scheduler/internal/session"
)

// application holds the shared dependencies of the server and releases
// them on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	study study.Service
}

// newApplication wires stores, scheduler, session policy and the study
// service on top of an open database.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	params, err := srs.NewParams(srs.ParamsConfig{
		Weights:         cfg.SRS.Weights,
		MaxIntervalDays: cfg.SRS.MaxIntervalDays,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create SRS parameters: %w", err)
	}
	sched := scheduler.NewScheduler(srs.NewServiceWithParams(params), logger)

	cache := session.NewCache[uuid.UUID, domain.Card](cfg.Session.CacheTTL, nil)
	policy, err := session.NewPolicy(session.ConfigFromSettings(cfg.Session), sched, cache, nil, session.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create session policy: %w", err)
	}

	cardStore := postgres.NewPostgresCardStateStore(db, logger)
	checkpoints := postgres.NewPostgresCheckpointStore(db, logger)
	learned := postgres.NewPostgresLearnedStore(db, logger)

	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.Subscribe(events.TypeCardLearned, study.NewLearnedRecorder(learned, logger))

	svc := study.NewService(
		study.NewCardRepositoryAdapter(cardStore, db),
		checkpoints,
		learned,
		sched,
		policy,
		emitter,
		logger,
		study.WithLocation(cfg.Session.Location()),
		study.WithSessionTTL(cfg.Session.CacheTTL),
	)

	logger.Info("application initialized")
	return &application{
		config: cfg,
		logger: logger,
		db:     db,
		study:  svc,
	}, nil
}

// Run serves HTTP until ctx is canceled or a shutdown signal arrives.
func (app *application) Run(ctx context.Context) error {
	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup releases application resources.
func (app *application) cleanup() {
	if app.db != nil {
		closeDB(app.db, app.logger)
	}
	app.logger.Info("application shutdown completed")
}
