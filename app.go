// backend/app.go
package main

import (
	"context"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/gewnthar/dentalportal/backend/config"
	"github.com/gewnthar/dentalportal/backend/database"
	"github.com/gewnthar/dentalportal/backend/handlers"
	"github.com/gewnthar/dentalportal/backend/logger"
	"github.com/gewnthar/dentalportal/backend/scraper"
	"github.com/gewnthar/dentalportal/backend/services"
)

// app holds the wired components shared by the commands.
type app struct {
	cfg          *config.Config
	log          zerolog.Logger
	store        *database.Store
	syncer       *services.Syncer
	appointments *services.AppointmentService
	patients     *services.PatientService
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}
	log, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid clinic timezone %q: %w", cfg.Clinic.Timezone, err)
	}

	log.Info().
		Str("port", cfg.Server.Port).
		Str("db_driver", cfg.Database.Driver).
		Str("sheet_url", cfg.Sheet.CSVURL).
		Dur("sync_interval", cfg.Sync.Interval).
		Msg("configuration loaded")

	store, err := database.Open(ctx, cfg.Database, logger.Component(log, "database"))
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}

	archiver, err := scraper.NewArchiver(ctx, cfg.Archive)
	if err != nil {
		store.Close()
		return nil, err
	}

	source := cfg.Sheet.SourceTag
	ingestor := scraper.NewIngestor(cfg.Sheet, archiver, logger.Component(log, "ingestor"))
	mapper := scraper.NewRowMapper(source, logger.Component(log, "mapper"))
	syncer := services.NewSyncer(source, ingestor, mapper, store, store, services.SyncOptions{
		Interval:     cfg.Sync.Interval,
		RetryBackoff: cfg.Sync.RetryBackoff,
	}, logger.Component(log, "sync"))

	return &app{
		cfg:          cfg,
		log:          log,
		store:        store,
		syncer:       syncer,
		appointments: services.NewAppointmentService(source, store, store, loc, logger.Component(log, "appointments")),
		patients:     services.NewPatientService(source, store, store, loc, logger.Component(log, "patients")),
	}, nil
}

func (a *app) server() *echo.Echo {
	return handlers.NewServer(logger.Component(a.log, "http"), a.cfg.Server.CORSOrigins,
		handlers.NewAdminHandler(a.syncer, a.store),
		handlers.NewAppointmentHandler(a.appointments),
		handlers.NewPatientHandler(a.patients),
	)
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close database")
	}
}
