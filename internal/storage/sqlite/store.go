// Package sqlite stores transactions in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/luisfhm/finanzas/internal/common"
	"github.com/luisfhm/finanzas/internal/interfaces"
	"github.com/luisfhm/finanzas/internal/models"
	"github.com/luisfhm/finanzas/internal/services/ledger"
)

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	user_id      TEXT    NOT NULL,
	id           TEXT    NOT NULL,
	seq          INTEGER NOT NULL,
	date         TEXT    NOT NULL,
	asset_class  TEXT    NOT NULL,
	ticker       TEXT    NOT NULL,
	quantity     TEXT    NOT NULL,
	unit_price   TEXT    NOT NULL,
	operation    TEXT    NOT NULL,
	venue        TEXT    NOT NULL DEFAULT '',
	sector       TEXT    NOT NULL DEFAULT '',
	fee_percent  TEXT    NOT NULL DEFAULT '0',
	manual_price TEXT,
	PRIMARY KEY (user_id, id)
);
CREATE INDEX IF NOT EXISTS idx_transactions_user_seq ON transactions (user_id, seq);
`

const columns = "id, date, asset_class, ticker, quantity, unit_price, operation, venue, sector, fee_percent, manual_price"

// Store implements interfaces.TransactionStore on SQLite. Decimals are
// stored as TEXT so values survive exactly.
type Store struct {
	db     *sql.DB
	logger *common.Logger
	newID  func() string
}

// New opens (creating when needed) the database at path and applies the schema.
func New(logger *common.Logger, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	// a single writer avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	logger.Debug().Str("path", path).Msg("SQLite transaction store opened")
	return &Store{
		db:     db,
		logger: logger,
		newID:  func() string { return uuid.New().String() },
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (models.Transaction, error) {
	var (
		tx                  models.Transaction
		date, class, op     string
		qty, unitPrice, fee string
		manual              sql.NullString
	)
	if err := row.Scan(&tx.ID, &date, &class, &tx.Ticker, &qty, &unitPrice, &op, &tx.Venue, &tx.Sector, &fee, &manual); err != nil {
		return models.Transaction{}, err
	}

	var err error
	if tx.Date, err = time.Parse(ledger.DateLayout, date); err != nil {
		return models.Transaction{}, fmt.Errorf("row %s: bad date %q: %w", tx.ID, date, err)
	}
	tx.AssetClass = models.AssetClass(class)
	tx.Operation = models.Operation(op)
	if tx.Quantity, err = decimal.NewFromString(qty); err != nil {
		return models.Transaction{}, fmt.Errorf("row %s: bad quantity: %w", tx.ID, err)
	}
	if tx.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
		return models.Transaction{}, fmt.Errorf("row %s: bad unit_price: %w", tx.ID, err)
	}
	if tx.FeePercent, err = decimal.NewFromString(fee); err != nil {
		return models.Transaction{}, fmt.Errorf("row %s: bad fee_percent: %w", tx.ID, err)
	}
	if manual.Valid {
		d, err := decimal.NewFromString(manual.String)
		if err != nil {
			return models.Transaction{}, fmt.Errorf("row %s: bad manual_price: %w", tx.ID, err)
		}
		tx.ManualPrice = decimal.NewNullDecimal(d)
	}
	return tx, nil
}

func manualValue(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal.String()
}

// List returns the user's transactions in insertion order.
func (s *Store) List(ctx context.Context, userID string) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+columns+" FROM transactions WHERE user_id = ? ORDER BY seq", userID)
	if err != nil {
		return nil, &models.StoreError{Op: "list", UserID: userID, Err: err}
	}
	defer rows.Close()

	txs := []models.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, &models.StoreError{Op: "list", UserID: userID, Err: err}
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, &models.StoreError{Op: "list", UserID: userID, Err: err}
	}
	return txs, nil
}

// Create inserts tx after the user's last record.
func (s *Store) Create(ctx context.Context, userID string, tx models.Transaction) (string, error) {
	if tx.ID == "" {
		tx.ID = s.newID()
	}
	fail := func(err error) (string, error) {
		return "", &models.StoreError{Op: "create", UserID: userID, ID: tx.ID, Err: err}
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fail(err)
	}
	defer sqlTx.Rollback()

	var exists int
	err = sqlTx.QueryRowContext(ctx, "SELECT 1 FROM transactions WHERE user_id = ? AND id = ?", userID, tx.ID).Scan(&exists)
	if err == nil {
		return fail(models.ErrDuplicateID)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fail(err)
	}

	_, err = sqlTx.ExecContext(ctx, `INSERT INTO transactions (user_id, seq, `+columns+`)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM transactions WHERE user_id = ?), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, userID,
		tx.ID, tx.Date.Format(ledger.DateLayout), string(tx.AssetClass), tx.Ticker,
		tx.Quantity.String(), tx.UnitPrice.String(), string(tx.Operation),
		tx.Venue, tx.Sector, tx.FeePercent.String(), manualValue(tx.ManualPrice),
	)
	if err != nil {
		return fail(err)
	}
	if err := sqlTx.Commit(); err != nil {
		return fail(err)
	}

	s.logger.Debug().Str("user", userID).Str("id", tx.ID).Msg("Transaction created")
	return tx.ID, nil
}

// Update reads the record, applies patch and writes every column back.
func (s *Store) Update(ctx context.Context, userID, id string, patch models.TransactionPatch) error {
	fail := func(err error) error {
		return &models.StoreError{Op: "update", UserID: userID, ID: id, Err: err}
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fail(err)
	}
	defer sqlTx.Rollback()

	row := sqlTx.QueryRowContext(ctx, "SELECT "+columns+" FROM transactions WHERE user_id = ? AND id = ?", userID, id)
	current, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return fail(models.ErrNotFound)
	}
	if err != nil {
		return fail(err)
	}

	tx := patch.Apply(current)
	_, err = sqlTx.ExecContext(ctx, `UPDATE transactions SET
		date = ?, asset_class = ?, ticker = ?, quantity = ?, unit_price = ?, operation = ?,
		venue = ?, sector = ?, fee_percent = ?, manual_price = ?
		WHERE user_id = ? AND id = ?`,
		tx.Date.Format(ledger.DateLayout), string(tx.AssetClass), tx.Ticker,
		tx.Quantity.String(), tx.UnitPrice.String(), string(tx.Operation),
		tx.Venue, tx.Sector, tx.FeePercent.String(), manualValue(tx.ManualPrice),
		userID, id,
	)
	if err != nil {
		return fail(err)
	}
	if err := sqlTx.Commit(); err != nil {
		return fail(err)
	}
	return nil
}

// Delete removes the record.
func (s *Store) Delete(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM transactions WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return &models.StoreError{Op: "delete", UserID: userID, ID: id, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &models.StoreError{Op: "delete", UserID: userID, ID: id, Err: err}
	}
	if n == 0 {
		return &models.StoreError{Op: "delete", UserID: userID, ID: id, Err: models.ErrNotFound}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ interfaces.TransactionStore = (*Store)(nil)
