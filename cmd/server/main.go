package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"castive/config"
	"castive/internal/announcement"
	"castive/internal/api"
	"castive/internal/auth"
	"castive/internal/cache"
	"castive/internal/database"
	"castive/internal/email"
	"castive/internal/list"
	"castive/internal/sessions"
	"castive/internal/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDatabase(cfg.DatabaseDSN, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return err
	}

	store, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer store.Close()

	server := buildServer(cfg, db, store, logger)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      server.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", zap.String("port", cfg.HTTPPort))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// buildServer wires the dependency graph by hand. The package-level wire
// Sets describe the same graph for the wire generator.
func buildServer(cfg *config.Config, db *database.Database, store cache.Store, logger *zap.Logger) *api.Server {
	codec := auth.ProvideCodec(cfg)
	sender := email.ProvideSender(cfg)

	users := user.ProvideRepository(db.DB)
	lists := list.ProvideRepository(db.DB)
	announcements := announcement.ProvideRepository(db.DB)

	ledger := sessions.ProvideLedger(store)
	manager := sessions.NewManager(codec, ledger, users)
	flows := auth.NewFlows(codec, ledger, manager, users, sender, logger)
	gate := auth.NewGate(manager, users)

	userService := user.NewService(users, flows, manager)
	listService := list.NewService(lists, users)
	announcementService := announcement.NewService(announcements, store, logger)

	caller := user.CallerFromContext(auth.UserFromContext)

	authHandler := auth.NewHandler(manager, flows, users, sender, logger)
	userHandler := user.NewHandler(userService, caller)
	listHandler := list.NewHandler(listService, caller)
	announcementHandler := announcement.NewHandler(announcementService, caller)

	return api.NewServer(gate, authHandler, userHandler, listHandler, announcementHandler, logger)
}
