package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"checkin-app-go/internal/config"
	"checkin-app-go/internal/db"
	childrendomain "checkin-app-go/internal/domain/children"
	rosterdomain "checkin-app-go/internal/domain/roster"
	sessionsdomain "checkin-app-go/internal/domain/sessions"
	userdomain "checkin-app-go/internal/domain/user"
	"checkin-app-go/internal/metrics"
	"checkin-app-go/internal/repository/inmemory"
	childrenrepo "checkin-app-go/internal/repository/postgres/children"
	rosterrepo "checkin-app-go/internal/repository/postgres/roster"
	sessionsrepo "checkin-app-go/internal/repository/postgres/sessions"
	userrepo "checkin-app-go/internal/repository/postgres/user"
	"checkin-app-go/internal/transport/httpserver"
	"checkin-app-go/internal/transport/httpserver/handler"
	"checkin-app-go/pkg/logger"
	"gorm.io/gorm"
)

type App struct {
	cfg        config.Config
	httpServer *http.Server
	db         *gorm.DB
	log        logger.Logger
}

func New(log logger.Logger) (*App, error) {
	log.Info("app: loading config")
	cfg, err := config.Load(log)
	if err != nil {
		return nil, err
	}

	log.Info("app: initializing database", "driver", cfg.DB.Driver)
	dbConn, err := db.Open(cfg.DB, log)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(dbConn, cfg.DB, log); err != nil {
		closeDB(dbConn)
		return nil, err
	}

	log.Info("app: initializing services")
	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}
	handlers, profiles, err := NewHandlers(cfg, dbConn, m, log)
	if err != nil {
		closeDB(dbConn)
		return nil, err
	}

	log.Info("app: initializing router")
	router := httpserver.NewRouter(cfg, handlers, profiles, m, log)

	log.Info("app: initializing http server")
	srv := httpserver.New(cfg, router)

	return &App{
		cfg:        cfg,
		httpServer: srv,
		db:         dbConn,
		log:        log,
	}, nil
}

// NewHandlers wires repositories and domain services on top of dbConn.
// m may be nil.
func NewHandlers(cfg config.Config, dbConn *gorm.DB, m *metrics.Metrics, log logger.Logger) (*handler.Handlers, *userdomain.Service, error) {
	sessionCodes, err := sessionsdomain.NewCodeGenerator(cfg.CheckIn.CodeLength, cfg.CheckIn.CodeAttempts)
	if err != nil {
		return nil, nil, fmt.Errorf("session codes: %w", err)
	}
	pickupCodes, err := sessionsdomain.NewCodeGenerator(cfg.CheckIn.PickupCodeLength, cfg.CheckIn.CodeAttempts)
	if err != nil {
		return nil, nil, fmt.Errorf("pickup codes: %w", err)
	}

	sessionOpts := []sessionsdomain.Option{
		sessionsdomain.WithCodeGenerator(sessionCodes),
		sessionsdomain.WithLocation(cfg.CheckIn.Location()),
	}
	rosterOpts := []rosterdomain.Option{
		rosterdomain.WithPickupCodes(pickupCodes),
		rosterdomain.WithCodeLength(cfg.CheckIn.CodeLength),
	}
	if cfg.CheckIn.ActiveCacheTTL > 0 {
		sessionOpts = append(sessionOpts, sessionsdomain.WithCache(inmemory.NewActiveSessionCache(), cfg.CheckIn.ActiveCacheTTL))
	}
	if m != nil {
		sessionOpts = append(sessionOpts, sessionsdomain.WithMetrics(m))
		rosterOpts = append(rosterOpts, rosterdomain.WithMetrics(m))
	}

	sessionService := sessionsdomain.NewService(sessionsrepo.NewPostgres(dbConn), cfg.Programs, sessionOpts...)
	childrenService := childrendomain.NewService(childrenrepo.NewPostgres(dbConn))
	rosterService := rosterdomain.NewService(rosterrepo.NewPostgres(dbConn), sessionService, childrenService, cfg.Programs, rosterOpts...)
	userService := userdomain.NewService(userrepo.NewPostgres(dbConn))

	return handler.New(sessionService, rosterService, childrenService, log), userService, nil
}

func (a *App) HTTPServer() *http.Server {
	return a.httpServer
}

// Run serves HTTP until ctx is cancelled or the listener fails, then drains
// in-flight requests for up to shutdownTimeout.
func (a *App) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	serverErrCh := make(chan error, 1)
	go func() {
		a.log.Info("http: listening", "addr", a.httpServer.Addr, "env", a.cfg.Env)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
		close(serverErrCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("app: shutdown signal received")
	case err := <-serverErrCh:
		if err != nil {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		runErr = errors.Join(runErr, fmt.Errorf("graceful shutdown: %w", err))
	}
	return runErr
}

func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func closeDB(dbConn *gorm.DB) {
	if sqlDB, err := dbConn.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
