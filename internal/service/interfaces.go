package service

import (
	"context"
	"time"

	"go-file-guard/internal/model"
)

// TransactionLog is the durable record of every attempted operation.
// Implemented by repository.TransactionRepository; tests supply an in-memory
// version.
type TransactionLog interface {
	Create(ctx context.Context, tx *model.Transaction) error
	Update(ctx context.Context, tx *model.Transaction) error
	FindByID(ctx context.Context, id int64) (*model.Transaction, error)
	List(ctx context.Context, q model.TransactionQuery) ([]*model.Transaction, error)
	FindStaleAwaiting(ctx context.Context, cutoff time.Time) ([]*model.Transaction, error)
}

// TrashIndex is the durable index over displaced files. Implemented by
// repository.TrashRepository.
type TrashIndex interface {
	Create(ctx context.Context, entry model.TrashEntry) error
	FindByID(ctx context.Context, id string) (model.TrashEntry, error)
	ListByTransaction(ctx context.Context, txID int64) ([]model.TrashEntry, error)
	List(ctx context.Context, q model.TrashQuery) ([]model.TrashEntry, error)
	Delete(ctx context.Context, id string) error
	TotalSize(ctx context.Context) (int64, error)
}

// TokenStore persists refresh tokens across restarts. Implemented by
// repository.TokenRepository.
type TokenStore interface {
	Store(ctx context.Context, token string, userID string, expiresAt time.Time) error
	Validate(ctx context.Context, token string) (string, error)
	Revoke(ctx context.Context, token string) error
}
