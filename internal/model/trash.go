package model

import (
	"io/fs"
	"time"
)

// TrashEntry tracks one physically displaced file or directory tree held
// under a transaction's trash namespace. Every displaced item has exactly one
// entry; stored paths never alias across transactions.
type TrashEntry struct {
	ID            string      `json:"id"`
	TransactionID int64       `json:"transaction_id"`
	OriginalPath  string      `json:"original_path"`
	StoredPath    string      `json:"stored_path"`
	Size          int64       `json:"size"`
	Mode          fs.FileMode `json:"mode"`
	ModTime       time.Time   `json:"mod_time"`
	Checksum      string      `json:"checksum,omitempty"`
	IsDir         bool        `json:"is_dir"`
	DeletedAt     time.Time   `json:"deleted_at"`
}

// TrashQuery filters ListTrash.
type TrashQuery struct {
	TransactionID int64
	OlderThan     time.Time
	Limit         int
}
