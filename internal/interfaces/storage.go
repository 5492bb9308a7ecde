package interfaces

import (
	"context"

	"github.com/luisfhm/finanzas/internal/models"
)

// TransactionStore maps a user to an ordered collection of transactions.
// Writes are read-then-write-whole-record with last write winning. Failures
// are returned as *models.StoreError; missing ids wrap models.ErrNotFound.
type TransactionStore interface {
	// List returns the user's transactions in insertion order.
	List(ctx context.Context, userID string) ([]models.Transaction, error)

	// Create stores tx and returns its id, assigning one when tx.ID is empty.
	Create(ctx context.Context, userID string, tx models.Transaction) (string, error)

	// Update applies patch to the stored record.
	Update(ctx context.Context, userID, id string, patch models.TransactionPatch) error

	// Delete removes the record.
	Delete(ctx context.Context, userID, id string) error

	// Close releases the backend.
	Close() error
}
