// Package surrealdb stores transactions in SurrealDB.
package surrealdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/luisfhm/finanzas/internal/common"
	"github.com/luisfhm/finanzas/internal/interfaces"
	"github.com/luisfhm/finanzas/internal/models"
	"github.com/luisfhm/finanzas/internal/services/ledger"
)

const table = "transactions"

// transactionRecord is the stored document. Decimals are kept as strings.
type transactionRecord struct {
	UserID      string  `json:"user_id"`
	TxID        string  `json:"tx_id"`
	Seq         int64   `json:"seq"`
	Date        string  `json:"date"`
	AssetClass  string  `json:"asset_class"`
	Ticker      string  `json:"ticker"`
	Quantity    string  `json:"quantity"`
	UnitPrice   string  `json:"unit_price"`
	Operation   string  `json:"operation"`
	Venue       string  `json:"venue"`
	Sector      string  `json:"sector"`
	FeePercent  string  `json:"fee_percent"`
	ManualPrice *string `json:"manual_price,omitempty"`
}

func toRecord(userID string, seq int64, tx models.Transaction) transactionRecord {
	rec := transactionRecord{
		UserID:     userID,
		TxID:       tx.ID,
		Seq:        seq,
		Date:       tx.Date.Format(ledger.DateLayout),
		AssetClass: string(tx.AssetClass),
		Ticker:     tx.Ticker,
		Quantity:   tx.Quantity.String(),
		UnitPrice:  tx.UnitPrice.String(),
		Operation:  string(tx.Operation),
		Venue:      tx.Venue,
		Sector:     tx.Sector,
		FeePercent: tx.FeePercent.String(),
	}
	if tx.ManualPrice.Valid {
		s := tx.ManualPrice.Decimal.String()
		rec.ManualPrice = &s
	}
	return rec
}

func (r transactionRecord) transaction() (models.Transaction, error) {
	tx := models.Transaction{
		ID:         r.TxID,
		AssetClass: models.AssetClass(r.AssetClass),
		Ticker:     r.Ticker,
		Operation:  models.Operation(r.Operation),
		Venue:      r.Venue,
		Sector:     r.Sector,
	}
	var err error
	if tx.Date, err = time.Parse(ledger.DateLayout, r.Date); err != nil {
		return tx, fmt.Errorf("record %s: bad date: %w", r.TxID, err)
	}
	if tx.Quantity, err = decimal.NewFromString(r.Quantity); err != nil {
		return tx, fmt.Errorf("record %s: bad quantity: %w", r.TxID, err)
	}
	if tx.UnitPrice, err = decimal.NewFromString(r.UnitPrice); err != nil {
		return tx, fmt.Errorf("record %s: bad unit_price: %w", r.TxID, err)
	}
	if tx.FeePercent, err = decimal.NewFromString(r.FeePercent); err != nil {
		return tx, fmt.Errorf("record %s: bad fee_percent: %w", r.TxID, err)
	}
	if r.ManualPrice != nil {
		d, err := decimal.NewFromString(*r.ManualPrice)
		if err != nil {
			return tx, fmt.Errorf("record %s: bad manual_price: %w", r.TxID, err)
		}
		tx.ManualPrice = decimal.NewNullDecimal(d)
	}
	return tx, nil
}

// Store implements interfaces.TransactionStore using SurrealDB.
type Store struct {
	db     *surrealdb.DB
	logger *common.Logger
	newID  func() string
}

// New connects, signs in and selects the namespace and database.
func New(ctx context.Context, logger *common.Logger, config *common.SurrealDBConfig) (*Store, error) {
	db, err := surrealdb.New(config.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": config.Username,
		"pass": config.Password,
	}); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
	}

	if err := db.Use(ctx, config.Namespace, config.Database); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	store, err := NewWithDB(ctx, db, logger)
	if err != nil {
		db.Close(ctx)
		return nil, err
	}

	logger.Info().
		Str("address", config.Address).
		Str("namespace", config.Namespace).
		Str("database", config.Database).
		Msg("SurrealDB transaction store initialized")
	return store, nil
}

// NewWithDB wraps an already selected connection and defines the table.
func NewWithDB(ctx context.Context, db *surrealdb.DB, logger *common.Logger) (*Store, error) {
	// SurrealDB v3 errors on querying non-existent tables
	sql := fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", table)
	if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
		return nil, fmt.Errorf("failed to define table %s: %w", table, err)
	}
	return &Store{
		db:     db,
		logger: logger,
		newID:  func() string { return uuid.New().String() },
	}, nil
}

// recordID is the array id transactions:[user, id]; joining the parts into one
// string would let "a"/"b_c" and "a_b"/"c" share a record.
func recordID(userID, id string) surrealmodels.RecordID {
	return surrealmodels.NewRecordID(table, []any{userID, id})
}

func (s *Store) get(ctx context.Context, userID, id string) (*transactionRecord, error) {
	rec, err := surrealdb.Select[transactionRecord](ctx, s.db, recordID(userID, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	if rec == nil || rec.TxID != id || rec.UserID != userID {
		return nil, nil
	}
	return rec, nil
}

func (s *Store) put(ctx context.Context, userID string, rec transactionRecord) error {
	sql := "UPSERT $rid CONTENT $record"
	vars := map[string]any{"rid": recordID(userID, rec.TxID), "record": rec}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		_, err := surrealdb.Query[[]transactionRecord](ctx, s.db, sql, vars)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("failed to put transaction after retries: %w", lastErr)
}

// List returns the user's transactions in insertion order.
func (s *Store) List(ctx context.Context, userID string) ([]models.Transaction, error) {
	sql := "SELECT * FROM " + table + " WHERE user_id = $user_id ORDER BY seq ASC"
	results, err := surrealdb.Query[[]transactionRecord](ctx, s.db, sql, map[string]any{"user_id": userID})
	if err != nil {
		return nil, &models.StoreError{Op: "list", UserID: userID, Err: err}
	}

	txs := []models.Transaction{}
	if results == nil || len(*results) == 0 {
		return txs, nil
	}
	for _, rec := range (*results)[0].Result {
		tx, err := rec.transaction()
		if err != nil {
			return nil, &models.StoreError{Op: "list", UserID: userID, Err: err}
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func (s *Store) nextSeq(ctx context.Context, userID string) (int64, error) {
	sql := "SELECT seq FROM " + table + " WHERE user_id = $user_id ORDER BY seq DESC LIMIT 1"
	results, err := surrealdb.Query[[]transactionRecord](ctx, s.db, sql, map[string]any{"user_id": userID})
	if err != nil {
		return 0, err
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 1, nil
	}
	return (*results)[0].Result[0].Seq + 1, nil
}

// Create stores tx after the user's last record.
func (s *Store) Create(ctx context.Context, userID string, tx models.Transaction) (string, error) {
	if tx.ID == "" {
		tx.ID = s.newID()
	}

	existing, err := s.get(ctx, userID, tx.ID)
	if err != nil {
		return "", &models.StoreError{Op: "create", UserID: userID, ID: tx.ID, Err: err}
	}
	if existing != nil {
		return "", &models.StoreError{Op: "create", UserID: userID, ID: tx.ID, Err: models.ErrDuplicateID}
	}

	seq, err := s.nextSeq(ctx, userID)
	if err != nil {
		return "", &models.StoreError{Op: "create", UserID: userID, ID: tx.ID, Err: err}
	}

	if err := s.put(ctx, userID, toRecord(userID, seq, tx)); err != nil {
		return "", &models.StoreError{Op: "create", UserID: userID, ID: tx.ID, Err: err}
	}
	return tx.ID, nil
}

// Update reads the record, applies patch and upserts the whole document.
func (s *Store) Update(ctx context.Context, userID, id string, patch models.TransactionPatch) error {
	rec, err := s.get(ctx, userID, id)
	if err != nil {
		return &models.StoreError{Op: "update", UserID: userID, ID: id, Err: err}
	}
	if rec == nil {
		return &models.StoreError{Op: "update", UserID: userID, ID: id, Err: models.ErrNotFound}
	}

	current, err := rec.transaction()
	if err != nil {
		return &models.StoreError{Op: "update", UserID: userID, ID: id, Err: err}
	}

	if err := s.put(ctx, userID, toRecord(userID, rec.Seq, patch.Apply(current))); err != nil {
		return &models.StoreError{Op: "update", UserID: userID, ID: id, Err: err}
	}
	return nil
}

// Delete removes the record.
func (s *Store) Delete(ctx context.Context, userID, id string) error {
	rec, err := s.get(ctx, userID, id)
	if err != nil {
		return &models.StoreError{Op: "delete", UserID: userID, ID: id, Err: err}
	}
	if rec == nil {
		return &models.StoreError{Op: "delete", UserID: userID, ID: id, Err: models.ErrNotFound}
	}

	if _, err := surrealdb.Delete[transactionRecord](ctx, s.db, recordID(userID, id)); err != nil && !isNotFoundError(err) {
		return &models.StoreError{Op: "delete", UserID: userID, ID: id, Err: err}
	}
	return nil
}

// Close closes the connection.
func (s *Store) Close() error {
	s.db.Close(context.Background())
	return nil
}

func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "does not exist")
}

var _ interfaces.TransactionStore = (*Store)(nil)
