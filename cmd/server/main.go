/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the license reporting server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (flags, optional YAML file)
  2. Set up logrus
  3. Initialize the SQLite architecture store, seed it from a file if given
  4. Pick the document cache (Redis when configured, memory otherwise)
  5. Configure HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config           YAML config file (keys as in Config)
  -addr             HTTP listen address (default: :8080)
  -db               SQLite database path (default: licenses.db)
  -redis            Redis address for the document cache
  -redis-prefix     Redis key prefix
  -cache-ttl        Document cache TTL (default: 30m)
  -architectures    Architecture table file loaded at startup
  -architectures-reload  Re-read the architecture file on this interval
  -log-level        debug | info | warn | error
  -log-format       text | json
  -allowed-origins  Comma separated CORS origins

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close cache and database
  4. Exit

EXAMPLES:
  ./server -db=":memory:" -architectures=technology.json
  ./server -config=server.yaml -log-format=json

SEE ALSO:
  - config.go: Configuration loading
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/warp/license-engine/api"
	"github.com/warp/license-engine/architecture"
	"github.com/warp/license-engine/cache"
	"github.com/warp/license-engine/store/sqlite"
)

func main() {
	cfg, err := LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	log, err := NewLogger(cfg, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid logging configuration: %v\n", err)
		os.Exit(2)
	}

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server failed")
	}
}

func run(cfg Config, log *logrus.Logger) error {
	// Initialize store
	store, err := sqlite.New(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	switch {
	case cfg.Architectures != "" && cfg.ArchitecturesReload > 0:
		reloader := api.NewArchitectureReloader(store, cfg.Architectures, log)
		reloader.CheckInterval = cfg.ArchitecturesReload
		if _, err := reloader.Reload(context.Background()); err != nil {
			return fmt.Errorf("failed to load architectures: %w", err)
		}
		reloader.Start()
		defer reloader.Stop()
	case cfg.Architectures != "":
		table, err := architecture.LoadFile(cfg.Architectures)
		if err != nil {
			return fmt.Errorf("failed to load architectures: %w", err)
		}
		if err := store.SeedTable(context.Background(), table); err != nil {
			return fmt.Errorf("failed to seed architectures: %w", err)
		}
		log.WithFields(logrus.Fields{"file": cfg.Architectures, "licenses": len(table)}).Info("architecture table seeded")
	}

	// Initialize document cache
	docs, closeCache, err := newDocumentCache(cfg, log)
	if err != nil {
		return err
	}
	defer closeCache()

	handler := api.NewHandler(store, docs, log)
	router := api.NewRouter(handler, api.RouterConfig{AllowedOrigins: cfg.AllowedOrigins, Log: log})

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Addr).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return err
	case <-quit:
	}

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}

func newDocumentCache(cfg Config, log logrus.FieldLogger) (cache.Documents, func(), error) {
	if cfg.RedisAddr == "" {
		mem := cache.NewMemory(cfg.CacheTTL, time.Minute)
		log.WithField("ttl", cfg.CacheTTL.String()).Info("using in-memory document cache")
		return mem, func() { mem.Close() }, nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	rc := cache.NewRedis(rdb, cfg.RedisPrefix, cfg.CacheTTL)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	log.WithFields(logrus.Fields{"addr": cfg.RedisAddr, "ttl": cfg.CacheTTL.String()}).Info("using redis document cache")
	return rc, func() { rdb.Close() }, nil
}
