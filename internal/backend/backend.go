// Package backend opens the databases and builds the distribution provider
// chain selected by configuration.
package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukerupert/hhsynth/internal/cache"
	"github.com/dukerupert/hhsynth/internal/config"
	"github.com/dukerupert/hhsynth/internal/database"
	"github.com/dukerupert/hhsynth/internal/distribution"
	"github.com/dukerupert/hhsynth/internal/store"
)

// Backend holds everything the binaries need from storage.
type Backend struct {
	// Local is the SQLite database. It always holds API keys and, with the
	// sqlite provider, the distribution tables.
	Local *sql.DB
	// Remote is the Postgres database when that provider is selected.
	Remote *sql.DB

	APIKeys *store.APIKeyStore
	// Distributions is nil unless the sqlite provider is selected.
	Distributions *store.DistributionStore
	// Cache is nil when no Redis address is configured.
	Cache *cache.RedisProvider

	Provider distribution.Provider
	Catalog  distribution.Catalog

	closers []func() error
}

func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Backend, error) {
	local, err := database.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	b := &Backend{
		Local:   local,
		APIKeys: store.NewAPIKeyStore(local),
		closers: []func() error{local.Close},
	}

	var base distribution.Provider
	switch cfg.Provider {
	case "postgres":
		remote, err := database.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		b.Remote = remote
		b.closers = append(b.closers, remote.Close)

		var opts []store.PostgresOption
		if cfg.WagesPeriod != "" {
			opts = append(opts, store.WithWagesPeriod(cfg.WagesPeriod))
		}
		base = store.NewPostgresProvider(remote, logger, opts...)
	default:
		b.Distributions = store.NewDistributionStore(local)
		base = b.Distributions
	}

	b.Provider = base
	if cfg.RedisAddr != "" {
		client := cache.NewClient(cfg.RedisAddr, cfg.RedisPassword, 0)
		b.closers = append(b.closers, client.Close)
		b.Cache = cache.NewRedisProvider(client, base, cfg.CacheTTL, logger)
		b.Provider = b.Cache
	}
	if c, ok := b.Provider.(distribution.Catalog); ok {
		b.Catalog = c
	}

	logger.Info("distribution provider ready",
		"provider", cfg.Provider, "cache", cfg.RedisAddr != "", "db", cfg.DBPath)
	return b, nil
}

// HealthDB is the database whose reachability decides service health.
func (b *Backend) HealthDB() *sql.DB {
	if b.Remote != nil {
		return b.Remote
	}
	return b.Local
}

// Invalidate drops a cached region/period after its data changed.
func (b *Backend) Invalidate(ctx context.Context, region, period string) error {
	if b.Cache == nil {
		return nil
	}
	return b.Cache.Invalidate(ctx, region, period)
}

// Close releases connections in reverse order of opening.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}
