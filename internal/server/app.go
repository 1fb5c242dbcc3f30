// Package server hosts the HTTP API: auth, sessions, agreements, profiles,
// migration triggers and the health surface. All domain work is delegated
// to the provider-independent services.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/splitsheet/splitsheet/internal/agreements"
	"github.com/splitsheet/splitsheet/internal/config"
	"github.com/splitsheet/splitsheet/internal/logging"
	"github.com/splitsheet/splitsheet/internal/profiles"
	"github.com/splitsheet/splitsheet/internal/provider/factory"
	"github.com/splitsheet/splitsheet/internal/session"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	cfg       *config.Config
	log       logging.Logger
	providers *factory.Factory
	sessions  *session.Manager

	agreementService *agreements.Service
	profileService   *profiles.Service
}

func NewApp(cfg *config.Config, log logging.Logger) *App {
	providers := factory.New(cfg, log)
	return &App{
		cfg:              cfg,
		log:              log,
		providers:        providers,
		sessions:         session.NewManager([]byte(cfg.SecretKey), cfg.SessionValidityDuration),
		agreementService: agreements.NewService(providers, log),
		profileService:   profiles.NewService(providers, log),
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves the HTTP API until the context is cancelled or a signal
// arrives, then shuts down gracefully.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(cancelFunc)

	srv := &http.Server{
		Addr:    app.cfg.HTTPAddr,
		Handler: app.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		app.log.Info(ctx, "starting http server", "addr", app.cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	app.log.Info(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	app.providers.Reset()
	return nil
}
