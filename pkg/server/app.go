package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	domrepo "AlphaChart/internal/domain/repository"
	"AlphaChart/internal/usecase"
	"AlphaChart/pkg/config"
	xhttp "AlphaChart/pkg/http"
	applogger "AlphaChart/pkg/logger"
)

const statusPollTimeout = 10 * time.Second

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	sessions   *usecase.SessionRegistry
	status     domrepo.MarketStatusSource
	httpServer *xhttp.Server
	cron       *cron.Cron
	closers    []namedCloser
}

type namedCloser struct {
	name string
	c    io.Closer
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	sessions *usecase.SessionRegistry,
	status domrepo.MarketStatusSource,
	httpServer *xhttp.Server,
) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{
		cfg:        cfg,
		log:        l.Component("app"),
		sessions:   sessions,
		status:     status,
		httpServer: httpServer,
		cron:       cron.New(),
	}
}

// AddCloser registers a resource closed on shutdown, in reverse order.
func (a *App) AddCloser(name string, c io.Closer) {
	if c != nil {
		a.closers = append(a.closers, namedCloser{name: name, c: c})
	}
}

// PollMarketStatus reads the market status and forwards it to every chart
// session.
func (a *App) PollMarketStatus(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, statusPollTimeout)
	defer cancel()

	st, err := a.status.MarketStatus(ctx)
	if err != nil {
		a.log.Warn("market status poll failed", applogger.Error(err))
		return
	}
	if st.IsMarketOpen != a.sessions.MarketOpen() {
		a.log.Info("market status changed",
			applogger.Bool("open", st.IsMarketOpen),
			applogger.String("source", st.Source))
	}
	a.sessions.SetMarketOpen(st.IsMarketOpen)
}

// Start polls once, schedules the poll job and starts the HTTP server.
func (a *App) Start(ctx context.Context) error {
	a.PollMarketStatus(ctx)

	spec := a.cfg.Refresh.MarketStatusCron
	if _, err := a.cron.AddFunc(spec, func() { a.PollMarketStatus(ctx) }); err != nil {
		return fmt.Errorf("schedule market status poll %q: %w", spec, err)
	}
	a.cron.Start()
	a.log.Info("market status poll scheduled", applogger.String("spec", spec))

	if a.httpServer != nil {
		if err := a.httpServer.Start(); err != nil {
			return fmt.Errorf("http server start: %w", err)
		}
	}
	return nil
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.Start(ctx); err != nil {
		a.log.Error("start failed", applogger.Error(err))
		_ = a.Shutdown(ctx)
		return err
	}
	a.log.Info("alphachart started",
		applogger.String("env", a.cfg.Environment),
		applogger.String("backend", a.cfg.Backend.Type))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	cancel()
	return a.Shutdown(context.Background())
}

// Shutdown stops the poll job, the HTTP server and every chart session, then
// closes infrastructure clients.
func (a *App) Shutdown(ctx context.Context) error {
	<-a.cron.Stop().Done()

	if a.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
		}
	}

	a.sessions.Close()

	for i := len(a.closers) - 1; i >= 0; i-- {
		nc := a.closers[i]
		if err := nc.c.Close(); err != nil {
			a.log.Warn("close error", applogger.String("resource", nc.name), applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
