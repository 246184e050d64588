package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-arbiter/internal/archive"
	appcfg "github.com/park285/chess-arbiter/internal/config"
	"github.com/park285/chess-arbiter/internal/httpapi"
	"github.com/park285/chess-arbiter/internal/msgcat"
	"github.com/park285/chess-arbiter/internal/obslog"
	"github.com/park285/chess-arbiter/internal/registry"
	"github.com/park285/chess-arbiter/internal/store/redisstore"
	"github.com/park285/chess-arbiter/internal/token"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	opts := []registry.Option{
		registry.WithAuthority(token.NewAuthority(token.CryptoSource{}, cfg.SecretBytes)),
		registry.WithLogger(logger),
	}

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var store *redisstore.Store
	if cfg.RedisURL != "" {
		store, err = redisstore.New(startCtx, cfg.RedisURL, redisstore.WithTTL(cfg.SnapshotTTL))
		if err != nil {
			logger.Fatal("redis_init", zap.Error(err))
		}
		defer func() { _ = store.Close() }()
		opts = append(opts, registry.WithStore(store))
	}

	var repo *archive.Repository
	if cfg.DatabaseURL != "" {
		repo, err = archive.NewRepository(startCtx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("archive_init", zap.Error(err))
		}
		defer func() { _ = repo.Close() }()
		if err := repo.EnsureSchema(startCtx); err != nil {
			logger.Fatal("archive_schema", zap.Error(err))
		}
		opts = append(opts, registry.WithArchiver(repo))
	}

	reg := registry.New(opts...)
	if store != nil {
		if _, err := reg.Restore(startCtx); err != nil {
			logger.Fatal("registry_restore", zap.Error(err))
		}
	}

	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		logger.Fatal("messages_init", zap.Error(err))
	}

	srv := httpapi.New(reg,
		httpapi.WithCatalog(cat),
		httpapi.WithDebug(cfg.DebugEndpoints),
		httpapi.WithListLimitMax(cfg.ListLimitMax),
		httpapi.WithLogger(logger),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(cfg.HTTPAddr) }()
	logger.Info("http_listen",
		zap.String("addr", cfg.HTTPAddr),
		zap.Bool("debug_endpoints", cfg.DebugEndpoints),
		zap.Bool("redis", store != nil),
		zap.Bool("archive", repo != nil),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutdown", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("http_serve", zap.Error(err))
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http_shutdown", zap.Error(err))
	}
}
