package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"strings"

	"go-file-guard/internal/database"
	"go-file-guard/internal/event"
	"go-file-guard/internal/model"
	"go-file-guard/internal/repository"
	"go-file-guard/internal/service"
	"go-file-guard/internal/storage"
)

// buildEngine wires a local engine against the configured database and
// roots. The returned cleanup closes the pool.
func buildEngine(ctx context.Context) (*service.Engine, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	store, err := storage.New(cfg.AllowedRoots)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize storage: %w", err)
	}

	db, err := database.New(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ensure database schema: %w", err)
	}

	transactionRepo := repository.NewTransactionRepository(db.Pool)
	trashRepo := repository.NewTrashRepository(db.Pool)

	trashService, err := service.NewTrashService(store, cfg.TrashRoot, trashRepo, cfg.TrashSizeCap)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("initialize trash service: %w", err)
	}

	engine := service.NewEngine(store, trashService, transactionRepo, trashRepo, event.NewBus(), slog.Default(), service.EngineConfig{
		AutoApproveBytes:   cfg.AutoApproveBytes,
		AlwaysConfirmKinds: cfg.AlwaysConfirmKinds,
		ApprovalTimeout:    cfg.ApprovalTimeout,
		RetentionWindow:    cfg.RetentionWindow,
		TrashSizeCap:       cfg.TrashSizeCap,
		SweepInterval:      cfg.SweepInterval,
	})
	engine.SetConfirmer(promptConfirmer)

	return engine, db.Close, nil
}

// promptConfirmer shows the preview and reads a y/N answer from stdin.
func promptConfirmer(pv model.Preview) (bool, error) {
	fmt.Println(pv.Format())
	fmt.Print("Proceed? [y/N]: ")

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}

	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func currentUsername() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return os.Getenv("USER")
}
