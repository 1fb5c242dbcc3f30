// Package factory selects and caches the active backing-service provider.
// Selection is driven by configuration: UsePostgres picks the relational
// adapter, otherwise the document platform adapter is used.
package factory

import (
	"context"
	"io"
	"sync"

	"github.com/splitsheet/splitsheet/internal/config"
	"github.com/splitsheet/splitsheet/internal/logging"
	"github.com/splitsheet/splitsheet/internal/provider"
	"github.com/splitsheet/splitsheet/internal/provider/docstore"
	"github.com/splitsheet/splitsheet/internal/provider/pgstore"
)

// Factory hands out the provider matching the current configuration. The
// instance is constructed once and cached until the selection flag changes
// or Reset is called. All entry points are safe for concurrent use.
type Factory struct {
	cfg *config.Config
	log logging.Logger

	mu      sync.Mutex
	current provider.Provider

	// Construction seams for tests.
	newDocstore func(cfg *config.Config, log logging.Logger) (provider.Provider, error)
	newPostgres func(ctx context.Context, cfg *config.Config, log logging.Logger) (provider.Provider, error)
}

func New(cfg *config.Config, log logging.Logger) *Factory {
	return &Factory{
		cfg: cfg,
		log: log,
		newDocstore: func(cfg *config.Config, log logging.Logger) (provider.Provider, error) {
			return docstore.New(cfg, log), nil
		},
		newPostgres: func(ctx context.Context, cfg *config.Config, log logging.Logger) (provider.Provider, error) {
			return pgstore.New(ctx, cfg, log)
		},
	}
}

func (f *Factory) selectedName() string {
	if f.cfg.UsePostgres {
		return provider.NamePostgres
	}
	return provider.NameDocstore
}

// Get returns the provider for the current configuration, constructing it
// on first use. A change of the selection flag invalidates the cached
// instance and the next call constructs the newly selected provider.
func (f *Factory) Get(ctx context.Context) (provider.Provider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := f.selectedName()
	if f.current != nil && f.current.Name() == name {
		return f.current, nil
	}

	f.closeCurrentLocked()

	var (
		p   provider.Provider
		err error
	)
	if f.cfg.UsePostgres {
		p, err = f.newPostgres(ctx, f.cfg, f.log)
	} else {
		p, err = f.newDocstore(f.cfg, f.log)
	}
	if err != nil {
		return nil, err
	}

	f.log.Info(ctx, "provider selected", "provider", name)
	f.current = p
	return p, nil
}

// CurrentProvider returns the cached provider without constructing one.
// It returns nil when nothing has been constructed yet.
func (f *Factory) CurrentProvider() provider.Provider {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// CurrentProviderName returns the cached provider's name, or derives the
// name from the configuration when nothing is cached. It never constructs
// a provider.
func (f *Factory) CurrentProviderName() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current != nil {
		return f.current.Name()
	}
	return f.selectedName()
}

// Reset drops the cached provider so the next Get constructs a fresh one.
func (f *Factory) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCurrentLocked()
}

func (f *Factory) closeCurrentLocked() {
	if f.current == nil {
		return
	}
	if closer, ok := f.current.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			f.log.Warn(context.Background(), "closing provider", "error", err)
		}
	}
	f.current = nil
}
