package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/voyagen/tvlineup/internal/cache"
	"github.com/voyagen/tvlineup/internal/config"
	"github.com/voyagen/tvlineup/internal/logging"
	"github.com/voyagen/tvlineup/internal/logo"
	"github.com/voyagen/tvlineup/internal/reconcile"
	"github.com/voyagen/tvlineup/internal/store"
)

// syncLockTTL bounds how long a crashed pass can block its input source.
const syncLockTTL = 10 * time.Minute

// app holds the process-wide dependencies shared by subcommands.
type app struct {
	cfg   *config.Config
	pg    *store.Postgres
	store store.Store
	rds   *cache.Redis
	sink  logo.Sink
}

// migrationsPath resolves the migrations directory next to the working
// directory or the executable.
func migrationsPath() string {
	abs, err := filepath.Abs("migrations")
	if err != nil {
		abs = "migrations"
	}
	if _, err := os.Stat(abs); err != nil {
		if exe, e := os.Executable(); e == nil {
			abs = filepath.Join(filepath.Dir(exe), "migrations")
		}
	}
	return "file://" + abs
}

func (a *app) migrate(ctx context.Context) error {
	if err := store.EnsureDatabase(ctx, a.cfg.DatabaseURL); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := store.RunMigrations(a.cfg.DatabaseURL, migrationsPath()); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// open migrates and connects to Postgres, then Redis and the S3 logo
// bucket when configured.
func (a *app) open(ctx context.Context) error {
	log := logging.FromContext(ctx)
	if err := a.migrate(ctx); err != nil {
		return err
	}

	pg, err := store.NewPostgres(ctx, a.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	a.pg = pg
	a.store = pg
	a.sink = pg

	if a.cfg.RedisURL != "" {
		rds, err := cache.New(a.cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		a.rds = rds
		if err := rds.Ping(ctx); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		a.store = store.NewCachedStore(pg, rds)
		log.Info().Msg("redis connected (caching, sync locks and logo queue enabled)")
	} else {
		log.Info().Msg("redis disabled (REDIS_URL not set)")
	}

	if s3 := a.cfg.LogoS3; s3.Enabled() {
		sink, err := logo.NewS3Sink(logo.S3Config{
			Endpoint:  s3.Endpoint,
			Region:    s3.Region,
			AccessKey: s3.AccessKey,
			SecretKey: s3.SecretKey,
			Bucket:    s3.Bucket,
			UseSSL:    s3.UseSSL,
		})
		if err != nil {
			return fmt.Errorf("logo bucket: %w", err)
		}
		a.sink = sink
		log.Info().Str("bucket", s3.Bucket).Msg("logos stored in S3")
	}
	return nil
}

func (a *app) close() {
	if a.rds != nil {
		_ = a.rds.Close()
	}
	if a.pg != nil {
		a.pg.Close()
	}
}

func (a *app) fetcher() *logo.Fetcher {
	return logo.NewFetcher(a.sink, a.cfg.UserAgent, a.cfg.Timeout)
}

// reconciler builds the sync service. With Redis, logo jobs go to the
// shared queue and passes are locked per input source; without it, logos
// are fetched by pool and concurrent passes are not guarded.
func (a *app) reconciler(pool *logo.Pool) *reconcile.Service {
	defaults := reconcile.Defaults{PackageName: a.cfg.PackageName}
	if a.rds == nil {
		return reconcile.NewService(a.store, pool, nil, defaults)
	}
	locker := cache.NewLocker(a.rds, cache.LockPrefix, syncLockTTL)
	return reconcile.NewService(a.store, logo.NewQueue(a.rds, cache.LogoQueue), locker, defaults)
}
