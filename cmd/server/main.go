package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Rrens/greenbite/internal/api"
	"github.com/Rrens/greenbite/internal/api/handler"
	"github.com/Rrens/greenbite/internal/backend"
	"github.com/Rrens/greenbite/internal/config"
	"github.com/Rrens/greenbite/internal/domain"
	"github.com/Rrens/greenbite/internal/listingform"
	"github.com/Rrens/greenbite/internal/logging"
	"github.com/Rrens/greenbite/internal/marketplace"
	"github.com/Rrens/greenbite/internal/metrics"
	"github.com/Rrens/greenbite/internal/recipes"
	"github.com/Rrens/greenbite/internal/repository/mysql"
	"github.com/Rrens/greenbite/internal/repository/postgres"
	"github.com/Rrens/greenbite/internal/repository/redis"
	"github.com/Rrens/greenbite/internal/repository/sqlite"
	"github.com/Rrens/greenbite/internal/security"
	"github.com/Rrens/greenbite/internal/session"
	"github.com/Rrens/greenbite/internal/source"
	"github.com/Rrens/greenbite/internal/tokenstore"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const sweepInterval = time.Minute

func main() {
	// Load .env file - try multiple locations
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logCloser, err := logging.Setup(cfg.Logging, os.Getenv("ENV"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("Server exited with error")
		logCloser.Close()
		os.Exit(1)
	}
	log.Info().Msg("Server stopped")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("listings_source", cfg.Listings.Source).
		Str("storage", cfg.Storage.Driver).
		Msg("Starting GreenBite web server")

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}
	ready := map[string]handler.Pinger{}

	// Initialize Redis
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		c, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer c.Close()
		redisClient = c
		ready["redis"] = c
	}

	// Device token storage
	kv, kvCloser, err := openKV(ctx, cfg, redisClient, ready)
	if err != nil {
		return err
	}
	defer kvCloser.Close()

	var encryptor *security.Encryptor
	if cfg.Storage.EncryptionKey != "" {
		encryptor, err = security.NewEncryptorFromSecret(cfg.Storage.EncryptionKey)
		if err != nil {
			return fmt.Errorf("failed to create token encryptor: %w", err)
		}
	} else {
		log.Warn().Msg("storage.encryption_key is empty, device tokens are stored in plain text")
	}
	stores := session.NewStores(kv, encryptor)

	backendClient := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)

	// Listing source
	var db *postgres.DB
	if cfg.Listings.Source == source.PostgresName {
		if cfg.Database.AutoMigrate {
			if err := postgres.RunMigrations(cfg.Database.DSN(), cfg.Database.MigrationsURL); err != nil {
				return err
			}
		}
		db, err = postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		ready["postgres"] = db
	}

	var catalog *mysql.DB
	if cfg.Listings.Source == source.MySQLName {
		catalog, err = mysql.NewDB(ctx, cfg.MySQL)
		if err != nil {
			return fmt.Errorf("failed to connect to mysql catalog: %w", err)
		}
		defer catalog.Close()
		ready["mysql"] = catalog
	}

	listingSource, lookup, err := openListings(cfg, backendClient, db, catalog)
	if err != nil {
		return err
	}

	var (
		cache handler.CacheFlusher
		deps  api.Deps
	)
	if redisClient != nil {
		listingCache := redis.NewListingCache(redisClient)
		listingSource = source.NewCached(listingSource, listingCache, cfg.Listings.CacheTTL)
		cache = listingCache
		deps.Limiter = redis.NewRateLimiter(
			redisClient,
			cfg.Security.RateLimit.RequestsPerMinute,
			cfg.Security.RateLimit.Burst,
		)
	}

	registry := marketplace.NewRegistry(listingSource, cfg.Listings.FetchTimeout, cfg.Listings.IdleTTL, m)
	dialogs := listingform.NewDialogs(cfg.Listings.IdleTTL)

	deps.Stores = stores
	deps.Registry = registry
	deps.Dialogs = dialogs
	deps.Backend = func(token string) handler.Backend {
		if token == "" {
			return backendClient
		}
		return backendClient.WithToken(token)
	}
	deps.Listings = lookup
	deps.Recipes = recipes.NewClient(cfg.Recipes.BaseURL, cfg.Recipes.Timeout, cfg.Recipes.MaxCount)
	deps.Cache = cache
	deps.Metrics = m
	deps.Ready = ready

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(cfg, deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		registry.Run(gctx, sweepInterval)
		return nil
	})

	g.Go(func() error {
		dialogs.Run(gctx, sweepInterval)
		return nil
	})

	g.Go(func() error {
		log.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// openKV opens the medium behind device token storage
func openKV(ctx context.Context, cfg *config.Config, redisClient *redis.Client, ready map[string]handler.Pinger) (tokenstore.KV, io.Closer, error) {
	switch cfg.Storage.Driver {
	case "redis":
		return redis.NewKV(redisClient), nopCloser{}, nil
	case "memory":
		log.Warn().Msg("Device tokens are kept in memory and lost on restart")
		return tokenstore.NewMemoryKV(), nopCloser{}, nil
	default:
		kv, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open token storage: %w", err)
		}
		ready["sqlite"] = kv
		return kv, kv, nil
	}
}

// openListings resolves the configured listing source and the lookup used
// for detail, edit and checkout views
func openListings(cfg *config.Config, client *backend.Client, db *postgres.DB, catalog *mysql.DB) (domain.ListingSource, handler.ListingLookup, error) {
	sample := source.NewSample(nil, 0)
	var repo *postgres.ListingRepository
	if db != nil {
		repo = postgres.NewListingRepository(db)
	}
	var legacy *mysql.ListingRepository
	if catalog != nil {
		legacy = mysql.NewListingRepository(catalog.DB)
	}

	sources := source.NewRegistry()
	sources.Register(source.SampleName, func() (domain.ListingSource, error) {
		return sample, nil
	})
	sources.Register(source.APIName, func() (domain.ListingSource, error) {
		return source.NewAPI(client), nil
	})
	sources.Register(source.PostgresName, func() (domain.ListingSource, error) {
		if repo == nil {
			return nil, errors.New("postgres listing source requires a database connection")
		}
		return source.NewRepository(source.PostgresName, repo), nil
	})
	sources.Register(source.MySQLName, func() (domain.ListingSource, error) {
		if legacy == nil {
			return nil, errors.New("mysql listing source requires a catalog connection")
		}
		return source.NewRepository(source.MySQLName, legacy), nil
	})

	src, err := sources.Open(cfg.Listings.Source)
	if err != nil {
		return nil, nil, err
	}

	switch cfg.Listings.Source {
	case source.APIName:
		return src, client, nil
	case source.PostgresName:
		return src, repo, nil
	case source.MySQLName:
		return src, legacy, nil
	default:
		return src, sample, nil
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
