package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"urlshorten/pkg/cache"
	"urlshorten/pkg/config"
	"urlshorten/pkg/logging"
	"urlshorten/pkg/storage"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	connectTimeout      = 10 * time.Second
	memoryCleanupPeriod = 5 * time.Minute
	serverReadTimeout   = 10 * time.Second
	serverWriteTimeout  = 10 * time.Second
	serverIdleTimeout   = 60 * time.Second
)

// Backends holds the store and cache a process serves from.
type Backends struct {
	Links storage.LinkStorage
	Users storage.UserStorage
	Cache cache.RedirectCache

	closers []func(context.Context) error
}

// Options tunes Open for the calling process.
type Options struct {
	// LocalCache allows an in-process redirect cache when REDIS_URL is empty.
	// Only the process that also deletes links may set it; any other process
	// would keep serving links deleted elsewhere.
	LocalCache bool
}

// Open connects to the configured store, makes sure its indexes exist and
// picks the redirect cache.
func Open(ctx context.Context, cfg *config.Config, logger *logging.Logger, opts Options) (*Backends, error) {
	b := &Backends{}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	var err error
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		err = b.openPostgres(ctx, cfg)
	default:
		err = b.openMongo(ctx, cfg)
	}
	if err != nil {
		b.Close(context.Background())
		return nil, err
	}
	logger.Info(ctx, "store connected", "backend", cfg.StoreBackend)

	if err := b.openCache(ctx, cfg, opts, logger); err != nil {
		b.Close(context.Background())
		return nil, err
	}
	return b, nil
}

func (b *Backends) openMongo(ctx context.Context, cfg *config.Config) error {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	b.closers = append(b.closers, client.Disconnect)

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("failed to ping mongodb: %w", err)
	}

	links := storage.NewMongoLinkStorage(client, cfg.MongoDatabase)
	if err := links.EnsureIndexes(ctx); err != nil {
		return err
	}
	users := storage.NewMongoUserStorage(client, cfg.MongoDatabase)
	if err := users.EnsureIndexes(ctx); err != nil {
		return err
	}

	b.Links = links
	b.Users = users
	return nil
}

func (b *Backends) openPostgres(ctx context.Context, cfg *config.Config) error {
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to create postgres pool: %w", err)
	}
	b.closers = append(b.closers, func(context.Context) error {
		pool.Close()
		return nil
	})

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping postgres: %w", err)
	}
	if err := storage.EnsurePostgresSchema(ctx, pool); err != nil {
		return err
	}

	b.Links = storage.NewPostgresLinkStorage(pool)
	b.Users = storage.NewPostgresUserStorage(pool)
	return nil
}

func (b *Backends) openCache(ctx context.Context, cfg *config.Config, opts Options, logger *logging.Logger) error {
	if cfg.RedisURL == "" {
		if !opts.LocalCache {
			logger.Info(ctx, "REDIS_URL not set, redirect cache disabled")
			b.Cache = cache.NoopRedirectCache{}
			return nil
		}
		logger.Info(ctx, "REDIS_URL not set, using in-process redirect cache")
		b.Cache = cache.NewMemoryRedirectCache(memoryCleanupPeriod)
		return nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opt)
	b.closers = append(b.closers, func(context.Context) error { return client.Close() })

	// an unreachable Redis only degrades reads
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn(ctx, "redis not reachable at startup", "error", err)
	}

	b.Cache = cache.NewRedisRedirectCache(client, cfg.RedisPrefix)
	return nil
}

// Close releases connections in reverse order of opening.
func (b *Backends) Close(ctx context.Context) error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}

// Serve runs handler on addr until SIGINT or SIGTERM, then drains in-flight
// requests for up to shutdownTimeout.
func Serve(addr string, handler http.Handler, shutdownTimeout time.Duration, logger *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info(context.Background(), "server stopped gracefully")
	return nil
}
