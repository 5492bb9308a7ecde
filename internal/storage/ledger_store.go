package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/luisfhm/finanzas/internal/common"
	"github.com/luisfhm/finanzas/internal/interfaces"
	"github.com/luisfhm/finanzas/internal/models"
	"github.com/luisfhm/finanzas/internal/storage/csvcodec"
)

// LedgerStore keeps each user's transactions as one CSV object in a
// BlobStore. Every write rewrites the whole object.
type LedgerStore struct {
	blobs     BlobStore
	keyPrefix string
	logger    *common.Logger
	newID     func() string

	mu sync.Mutex // serialises read-modify-write cycles within this process
}

// NewLedgerStore creates a store writing "<keyPrefix>portafolio_<user>.csv".
func NewLedgerStore(blobs BlobStore, keyPrefix string, logger *common.Logger) *LedgerStore {
	return &LedgerStore{
		blobs:     blobs,
		keyPrefix: keyPrefix,
		logger:    logger,
		newID:     func() string { return uuid.New().String() },
	}
}

// LedgerKey returns the object key for a user's ledger. Distinct users always
// get distinct keys.
func (s *LedgerStore) LedgerKey(userID string) string {
	return s.keyPrefix + "portafolio_" + escapeUser(userID) + ".csv"
}

// escapeUser keeps [A-Za-z0-9_-] and writes every other byte as %XX, so the
// mapping is reversible and never produces a path separator or "..".
func escapeUser(userID string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(userID); i++ {
		c := userID[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&0x0F])
		}
	}
	return b.String()
}

func (s *LedgerStore) load(ctx context.Context, userID string) ([]models.Transaction, error) {
	data, err := s.blobs.Get(ctx, s.LedgerKey(userID))
	if errors.Is(err, ErrBlobNotFound) {
		return []models.Transaction{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []models.Transaction{}, nil
	}
	txs, err := csvcodec.DecodeTransactions(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("ledger %s is corrupt: %w", s.LedgerKey(userID), err)
	}
	return txs, nil
}

func (s *LedgerStore) save(ctx context.Context, userID string, txs []models.Transaction) error {
	var buf bytes.Buffer
	if err := csvcodec.Encode(&buf, txs, nil); err != nil {
		return err
	}
	return s.blobs.Put(ctx, s.LedgerKey(userID), buf.Bytes())
}

// List returns the user's transactions in file order.
func (s *LedgerStore) List(ctx context.Context, userID string) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.load(ctx, userID)
	if err != nil {
		return nil, &models.StoreError{Op: "list", UserID: userID, Err: err}
	}
	return txs, nil
}

// Create appends tx, assigning an id when it has none.
func (s *LedgerStore) Create(ctx context.Context, userID string, tx models.Transaction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.load(ctx, userID)
	if err != nil {
		return "", &models.StoreError{Op: "create", UserID: userID, ID: tx.ID, Err: err}
	}

	if tx.ID == "" {
		tx.ID = s.newID()
	}
	if indexOf(txs, tx.ID) >= 0 {
		return "", &models.StoreError{Op: "create", UserID: userID, ID: tx.ID, Err: models.ErrDuplicateID}
	}

	if err := s.save(ctx, userID, append(txs, tx)); err != nil {
		return "", &models.StoreError{Op: "create", UserID: userID, ID: tx.ID, Err: err}
	}

	s.logger.Debug().Str("user", userID).Str("id", tx.ID).Msg("Transaction created")
	return tx.ID, nil
}

// Update replaces the patched fields of the record in place.
func (s *LedgerStore) Update(ctx context.Context, userID, id string, patch models.TransactionPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.load(ctx, userID)
	if err != nil {
		return &models.StoreError{Op: "update", UserID: userID, ID: id, Err: err}
	}

	i := indexOf(txs, id)
	if i < 0 {
		return &models.StoreError{Op: "update", UserID: userID, ID: id, Err: models.ErrNotFound}
	}
	txs[i] = patch.Apply(txs[i])

	if err := s.save(ctx, userID, txs); err != nil {
		return &models.StoreError{Op: "update", UserID: userID, ID: id, Err: err}
	}
	return nil
}

// Delete removes the record.
func (s *LedgerStore) Delete(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.load(ctx, userID)
	if err != nil {
		return &models.StoreError{Op: "delete", UserID: userID, ID: id, Err: err}
	}

	i := indexOf(txs, id)
	if i < 0 {
		return &models.StoreError{Op: "delete", UserID: userID, ID: id, Err: models.ErrNotFound}
	}
	txs = append(txs[:i], txs[i+1:]...)

	if err := s.save(ctx, userID, txs); err != nil {
		return &models.StoreError{Op: "delete", UserID: userID, ID: id, Err: err}
	}
	return nil
}

// Close closes the underlying blob store.
func (s *LedgerStore) Close() error {
	return s.blobs.Close()
}

func indexOf(txs []models.Transaction, id string) int {
	for i, tx := range txs {
		if tx.ID == id {
			return i
		}
	}
	return -1
}

var _ interfaces.TransactionStore = (*LedgerStore)(nil)
