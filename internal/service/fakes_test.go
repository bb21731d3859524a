package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"go-file-guard/internal/model"
)

// memTransactionLog is an in-memory TransactionLog for tests.
type memTransactionLog struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]model.Transaction
}

func newMemTransactionLog() *memTransactionLog {
	return &memTransactionLog{rows: map[int64]model.Transaction{}}
}

func (l *memTransactionLog) Create(_ context.Context, tx *model.Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	tx.ID = l.nextID
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	l.rows[tx.ID] = *tx
	return nil
}

func (l *memTransactionLog) Update(_ context.Context, tx *model.Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.rows[tx.ID]; !ok {
		return model.ErrTransactionNotFound
	}
	l.rows[tx.ID] = *tx
	return nil
}

func (l *memTransactionLog) FindByID(_ context.Context, id int64) (*model.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	row, ok := l.rows[id]
	if !ok {
		return nil, model.ErrTransactionNotFound
	}
	copied := row
	return &copied, nil
}

func (l *memTransactionLog) List(_ context.Context, q model.TransactionQuery) ([]*model.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []*model.Transaction
	for _, row := range l.rows {
		if q.Kind != "" && row.Kind != q.Kind {
			continue
		}
		if q.Status != "" && row.Status != q.Status {
			continue
		}
		if !q.Since.IsZero() && row.CreatedAt.Before(q.Since) {
			continue
		}
		copied := row
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (l *memTransactionLog) FindStaleAwaiting(_ context.Context, cutoff time.Time) ([]*model.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []*model.Transaction
	for _, row := range l.rows {
		if row.Status == model.StatusPending && row.CreatedAt.Before(cutoff) {
			copied := row
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// setCreatedAt backdates a row, for approval-timeout tests.
func (l *memTransactionLog) setCreatedAt(id int64, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	row := l.rows[id]
	row.CreatedAt = at
	l.rows[id] = row
}

// memTrashIndex is an in-memory TrashIndex for tests.
type memTrashIndex struct {
	mu      sync.Mutex
	entries map[string]model.TrashEntry
}

func newMemTrashIndex() *memTrashIndex {
	return &memTrashIndex{entries: map[string]model.TrashEntry{}}
}

func (i *memTrashIndex) Create(_ context.Context, entry model.TrashEntry) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.entries[entry.ID] = entry
	return nil
}

func (i *memTrashIndex) FindByID(_ context.Context, id string) (model.TrashEntry, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	entry, ok := i.entries[id]
	if !ok {
		return model.TrashEntry{}, model.ErrTrashEntryNotFound
	}
	return entry, nil
}

func (i *memTrashIndex) ListByTransaction(ctx context.Context, txID int64) ([]model.TrashEntry, error) {
	return i.List(ctx, model.TrashQuery{TransactionID: txID})
}

func (i *memTrashIndex) List(_ context.Context, q model.TrashQuery) ([]model.TrashEntry, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	out := make([]model.TrashEntry, 0)
	for _, entry := range i.entries {
		if q.TransactionID != 0 && entry.TransactionID != q.TransactionID {
			continue
		}
		if !q.OlderThan.IsZero() && !entry.DeletedAt.Before(q.OlderThan) {
			continue
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].DeletedAt.Equal(out[b].DeletedAt) {
			return out[a].ID < out[b].ID
		}
		return out[a].DeletedAt.Before(out[b].DeletedAt)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (i *memTrashIndex) Delete(_ context.Context, id string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if _, ok := i.entries[id]; !ok {
		return model.ErrTrashEntryNotFound
	}
	delete(i.entries, id)
	return nil
}

func (i *memTrashIndex) TotalSize(_ context.Context) (int64, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	var total int64
	for _, entry := range i.entries {
		total += entry.Size
	}
	return total, nil
}

// setDeletedAt backdates an entry, for retention tests.
func (i *memTrashIndex) setDeletedAt(id string, at time.Time) {
	i.mu.Lock()
	defer i.mu.Unlock()

	entry := i.entries[id]
	entry.DeletedAt = at
	i.entries[id] = entry
}
