package storage

import (
	"context"
	"fmt"

	"github.com/luisfhm/finanzas/internal/common"
	"github.com/luisfhm/finanzas/internal/interfaces"
	"github.com/luisfhm/finanzas/internal/storage/sqlite"
	"github.com/luisfhm/finanzas/internal/storage/surrealdb"
)

// s3LedgerPrefix groups the per-user ledger objects inside the bucket.
const s3LedgerPrefix = "portafolios/"

// NewTransactionStore creates the transaction store for the configured backend.
// Supported backends: "file" (default), "sqlite", "s3", "surrealdb".
func NewTransactionStore(ctx context.Context, logger *common.Logger, config *common.Config) (interfaces.TransactionStore, error) {
	backend := config.Storage.Backend
	if backend == "" {
		backend = common.BackendFile
	}

	switch backend {
	case common.BackendFile:
		blobs, err := NewFileBlobStore(logger, &config.Storage.File)
		if err != nil {
			return nil, err
		}
		return NewLedgerStore(blobs, "", logger), nil

	case common.BackendS3:
		blobs, err := NewS3BlobStore(ctx, logger, &config.Storage.S3)
		if err != nil {
			return nil, err
		}
		return NewLedgerStore(blobs, s3LedgerPrefix, logger), nil

	case common.BackendSQLite:
		return sqlite.New(logger, config.Storage.SQLite.Path)

	case common.BackendSurrealDB:
		return surrealdb.New(ctx, logger, &config.Storage.SurrealDB)

	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: file, sqlite, s3, surrealdb)", backend)
	}
}
