package main

import (
	"context"
	"flag"
	"github.com/burenotti/go_routines_backend/internal/adapter/api"
	"github.com/burenotti/go_routines_backend/internal/adapter/exportstore"
	"github.com/burenotti/go_routines_backend/internal/adapter/storage"
	attendanceapp "github.com/burenotti/go_routines_backend/internal/app/attendance"
	"github.com/burenotti/go_routines_backend/internal/app/identity"
	"github.com/burenotti/go_routines_backend/internal/app/messagebus"
	profileapp "github.com/burenotti/go_routines_backend/internal/app/profile"
	routineapp "github.com/burenotti/go_routines_backend/internal/app/routine"
	"github.com/burenotti/go_routines_backend/internal/config"
	"github.com/burenotti/go_routines_backend/internal/domain"
	"github.com/burenotti/go_routines_backend/internal/domain/attendance"
	"github.com/burenotti/go_routines_backend/internal/domain/profile"
	"github.com/burenotti/go_routines_backend/internal/domain/routine"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/leporo/sqlf"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config/config.yaml", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)
	logger := initLogger(cfg)

	bus := messagebus.New(logger)
	bus.RegisterAll(auditLog(logger),
		routine.EventCreated,
		routine.EventUpdated,
		routine.EventAssigned,
		routine.EventRenewed,
		routine.EventDeleted,
		attendance.EventMarked,
		profile.EventUpserted,
	)

	sqlf.SetDialect(sqlf.PostgreSQL)

	ctx := context.Background()

	db, err := storage.Open(ctx, "pgx", cfg.DB.DSN, storage.PoolOptions{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		panic("failed to connect database: " + err.Error())
	}
	defer db.Close()

	location, err := cfg.Location()
	if err != nil {
		panic(err)
	}

	routineOpts := []routineapp.Option{routineapp.WithLocation(location)}
	if cfg.Archive.Enabled() {
		archive, err := exportstore.NewS3Archive(ctx, cfg.Archive, logger)
		if err != nil {
			panic("failed to configure export archive: " + err.Error())
		}
		routineOpts = append(routineOpts, routineapp.WithArchive(archive))
	} else {
		logger.Warn("export archive is not configured")
	}

	authorizer := &identity.Authorizer{
		Secret:         cfg.JWT.Secret,
		AccessTokenTTL: cfg.JWT.AccessTokenTTL,
	}

	server := api.NewServer(
		api.Addr(cfg.Server.Host, cfg.Server.Port),
		api.Timeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.IdleTimeout),
		api.Logger(logger),
		api.Authorizer(authorizer),
		api.RoutineService(routineapp.New(logger, routineOpts...)),
		api.AttendanceService(attendanceapp.New(logger, time.Now)),
		api.ProfileService(profileapp.New(logger)),
		api.DBContext(db),
		api.MessageBus(bus),
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error)

	go func() {
		defer close(errCh)
		logger.Info("server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server was not shutdown gracefully", "error", err)
		}
	case err := <-errCh:
		if err != nil {
			logger.Error("server closed with unexpected error", "error", err)
		}
	}

	bus.Close()
	logger.Info("server shutdown")
}

func auditLog(logger *slog.Logger) messagebus.EventHandler {
	return func(event domain.Event) error {
		logger.Info("event processed",
			"type", event.Type(),
			"published_at", event.PublishedAt(),
			"event", event,
		)
		return nil
	}
}

func initLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler
	switch cfg.App.Env {
	case config.Development:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			AddSource: true,
			Level:     slog.LevelDebug,
		})
	case config.Production:
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			AddSource: false,
			Level:     slog.LevelInfo,
		})
	default:
		panic("invalid env")
	}

	return slog.New(handler)
}
