package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-file-guard/internal/model"
)

type TrashRepository struct {
	pool *pgxpool.Pool
}

func NewTrashRepository(pool *pgxpool.Pool) *TrashRepository {
	return &TrashRepository{pool: pool}
}

func (r *TrashRepository) Create(ctx context.Context, entry model.TrashEntry) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO trash_entries
		 (id, transaction_id, original_path, stored_path, size_bytes,
		  file_mode, mod_time, checksum, is_dir, deleted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.ID, entry.TransactionID, entry.OriginalPath, entry.StoredPath,
		entry.Size, encodeFileMode(entry.Mode), entry.ModTime, entry.Checksum,
		entry.IsDir, entry.DeletedAt)
	if err != nil {
		return fmt.Errorf("create trash entry: %w", err)
	}
	return nil
}

func (r *TrashRepository) FindByID(ctx context.Context, id string) (model.TrashEntry, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, transaction_id, original_path, stored_path, size_bytes,
		        file_mode, mod_time, checksum, is_dir, deleted_at
		 FROM trash_entries WHERE id = $1`, id)

	entry, err := scanTrashEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.TrashEntry{}, model.ErrTrashEntryNotFound
	}
	if err != nil {
		return model.TrashEntry{}, fmt.Errorf("find trash entry by id: %w", err)
	}
	return entry, nil
}

func (r *TrashRepository) ListByTransaction(ctx context.Context, txID int64) ([]model.TrashEntry, error) {
	return r.list(ctx, model.TrashQuery{TransactionID: txID})
}

func (r *TrashRepository) List(ctx context.Context, q model.TrashQuery) ([]model.TrashEntry, error) {
	return r.list(ctx, q)
}

func (r *TrashRepository) list(ctx context.Context, q model.TrashQuery) ([]model.TrashEntry, error) {
	var (
		conds []string
		args  []any
	)
	if q.TransactionID != 0 {
		args = append(args, q.TransactionID)
		conds = append(conds, fmt.Sprintf("transaction_id = $%d", len(args)))
	}
	if !q.OlderThan.IsZero() {
		args = append(args, q.OlderThan)
		conds = append(conds, fmt.Sprintf("deleted_at < $%d", len(args)))
	}

	query := `SELECT id, transaction_id, original_path, stored_path, size_bytes,
	                 file_mode, mod_time, checksum, is_dir, deleted_at
	          FROM trash_entries`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY deleted_at ASC, id ASC"
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list trash entries: %w", err)
	}
	defer rows.Close()

	entries := make([]model.TrashEntry, 0)
	for rows.Next() {
		entry, err := scanTrashEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trash entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *TrashRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM trash_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete trash entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrTrashEntryNotFound
	}
	return nil
}

func (r *TrashRepository) TotalSize(ctx context.Context) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(size_bytes), 0) FROM trash_entries`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("total trash size: %w", err)
	}
	return total, nil
}

func scanTrashEntry(row pgx.Row) (model.TrashEntry, error) {
	var (
		entry model.TrashEntry
		mode  int64
	)
	err := row.Scan(&entry.ID, &entry.TransactionID, &entry.OriginalPath,
		&entry.StoredPath, &entry.Size, &mode, &entry.ModTime,
		&entry.Checksum, &entry.IsDir, &entry.DeletedAt)
	if err != nil {
		return model.TrashEntry{}, err
	}
	entry.Mode = decodeFileMode(mode)
	return entry, nil
}

// File modes are stored in a BIGINT column: directory modes carry the
// fs.ModeDir bit (1<<31), which does not fit a signed 32-bit integer.
func encodeFileMode(mode fs.FileMode) int64 {
	return int64(uint32(mode))
}

func decodeFileMode(mode int64) fs.FileMode {
	return fs.FileMode(uint32(mode))
}
