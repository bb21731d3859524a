package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-file-guard/internal/config"
	"go-file-guard/internal/database"
	"go-file-guard/internal/event"
	"go-file-guard/internal/handler"
	"go-file-guard/internal/logger"
	"go-file-guard/internal/middleware"
	"go-file-guard/internal/repository"
	"go-file-guard/internal/router"
	"go-file-guard/internal/service"
	"go-file-guard/internal/storage"
)

type App struct {
	server       *http.Server
	db           *database.DB
	cfg          *config.Config
	cleanupFuncs []func()
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	configureLogging(cfg)

	store, err := storage.New(cfg.AllowedRoots)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	pool := db.Pool
	tokenRepo := repository.NewTokenRepository(pool)
	transactionRepo := repository.NewTransactionRepository(pool)
	trashRepo := repository.NewTrashRepository(pool)
	slog.Info("database ready")

	authService, err := service.NewAuthService(cfg.UsersFile, cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, tokenRepo)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize auth service: %w", err)
	}
	authMiddleware := middleware.NewAuthMiddleware(authService)
	authHandler := handler.NewAuthHandler(authService)

	bus := event.NewBus()
	go logEvents(bus)

	trashService, err := service.NewTrashService(store, cfg.TrashRoot, trashRepo, cfg.TrashSizeCap)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize trash service: %w", err)
	}

	engine := service.NewEngine(store, trashService, transactionRepo, trashRepo, bus, slog.Default(), service.EngineConfig{
		AutoApproveBytes:   cfg.AutoApproveBytes,
		AlwaysConfirmKinds: cfg.AlwaysConfirmKinds,
		ApprovalTimeout:    cfg.ApprovalTimeout,
		RetentionWindow:    cfg.RetentionWindow,
		TrashSizeCap:       cfg.TrashSizeCap,
		SweepInterval:      cfg.SweepInterval,
	})
	operationsHandler := handler.NewOperationsHandler(engine)

	appRouter := router.New(cfg, authMiddleware, authHandler, operationsHandler)

	backgroundCtx, backgroundCancel := context.WithCancel(context.Background())
	go engine.Sweeper().Start(backgroundCtx)
	go expirePendingLoop(backgroundCtx, engine, cfg.ApprovalTimeout)
	go cleanExpiredTokensLoop(backgroundCtx, tokenRepo)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	return &App{
		server: server,
		db:     db,
		cfg:    cfg,
		cleanupFuncs: []func(){
			backgroundCancel,
			db.Close,
		},
	}, nil
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// expirePendingLoop denies transactions stuck awaiting approval. It runs at a
// fraction of the timeout so a transaction never waits much past its deadline.
func expirePendingLoop(ctx context.Context, engine *service.Engine, timeout time.Duration) {
	interval := timeout / 4
	if interval < time.Second {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := engine.ExpirePending(ctx); err != nil {
				slog.Error("expire pending failed", "error", err)
			}
		}
	}
}

func cleanExpiredTokensLoop(ctx context.Context, tokens *repository.TokenRepository) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed, err := tokens.CleanExpired(ctx); err != nil {
				slog.Error("token cleanup failed", "error", err)
			} else if removed > 0 {
				slog.Debug("expired refresh tokens removed", "count", removed)
			}
		}
	}
}

func configureLogging(cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogPretty {
		slog.SetDefault(slog.New(logger.NewPrettyHandler(os.Stdout, opts)))
		return
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, opts)))
}

// logEvents mirrors lifecycle events into the structured log.
func logEvents(bus event.Bus) {
	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	for e := range events {
		slog.Debug("event", "type", e.Type, "transaction_id", e.TransactionID, "actor", e.ActorID)
	}
}
