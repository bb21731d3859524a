package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-file-guard/internal/model"
)

// TransactionRepository persists transaction rows in Postgres. Metadata and
// rollback info are stored as jsonb so the row stays a single atomic unit.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *model.Transaction) error {
	meta, err := json.Marshal(tx.Metadata)
	if err != nil {
		return fmt.Errorf("marshal transaction metadata: %w", err)
	}
	rb, err := json.Marshal(tx.RollbackInfo)
	if err != nil {
		return fmt.Errorf("marshal rollback info: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`INSERT INTO transactions
		 (kind, status, requested_by, user_approved, metadata, rollback_info)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		tx.Kind, tx.Status, tx.RequestedBy, tx.UserApproved, meta, rb).
		Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepository) Update(ctx context.Context, tx *model.Transaction) error {
	meta, err := json.Marshal(tx.Metadata)
	if err != nil {
		return fmt.Errorf("marshal transaction metadata: %w", err)
	}
	rb, err := json.Marshal(tx.RollbackInfo)
	if err != nil {
		return fmt.Errorf("marshal rollback info: %w", err)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE transactions
		 SET status = $2, user_approved = $3, metadata = $4,
		     rollback_info = $5, updated_at = now()
		 WHERE id = $1`,
		tx.ID, tx.Status, tx.UserApproved, meta, rb)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrTransactionNotFound
	}
	return nil
}

func (r *TransactionRepository) FindByID(ctx context.Context, id int64) (*model.Transaction, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, created_at, kind, status, requested_by, user_approved,
		        metadata, rollback_info
		 FROM transactions WHERE id = $1`, id)

	tx, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find transaction by id: %w", err)
	}
	return tx, nil
}

func (r *TransactionRepository) List(ctx context.Context, q model.TransactionQuery) ([]*model.Transaction, error) {
	var (
		conds []string
		args  []any
	)
	if q.Kind != "" {
		args = append(args, q.Kind)
		conds = append(conds, fmt.Sprintf("kind = $%d", len(args)))
	}
	if q.Status != "" {
		args = append(args, q.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if !q.Since.IsZero() {
		args = append(args, q.Since)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}

	query := `SELECT id, created_at, kind, status, requested_by, user_approved,
	                 metadata, rollback_info
	          FROM transactions`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if q.Offset > 0 {
		args = append(args, q.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txs := make([]*model.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// FindStaleAwaiting returns transactions that have been awaiting approval
// since before the cutoff. Used by the approval-timeout sweep.
func (r *TransactionRepository) FindStaleAwaiting(ctx context.Context, cutoff time.Time) ([]*model.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, created_at, kind, status, requested_by, user_approved,
		        metadata, rollback_info
		 FROM transactions
		 WHERE status = $1 AND created_at < $2
		 ORDER BY created_at ASC`,
		model.StatusPending, cutoff)
	if err != nil {
		return nil, fmt.Errorf("find stale awaiting transactions: %w", err)
	}
	defer rows.Close()

	txs := make([]*model.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	var (
		tx   model.Transaction
		meta []byte
		rb   []byte
	)
	err := row.Scan(&tx.ID, &tx.CreatedAt, &tx.Kind, &tx.Status, &tx.RequestedBy,
		&tx.UserApproved, &meta, &rb)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(meta, &tx.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal transaction metadata: %w", err)
	}
	if err := json.Unmarshal(rb, &tx.RollbackInfo); err != nil {
		return nil, fmt.Errorf("unmarshal rollback info: %w", err)
	}
	return &tx, nil
}
