// Package portfolio orchestrates ledger edits, valuation passes and history
// simulation for one user at a time.
package portfolio

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/luisfhm/finanzas/internal/common"
	"github.com/luisfhm/finanzas/internal/interfaces"
	"github.com/luisfhm/finanzas/internal/models"
	"github.com/luisfhm/finanzas/internal/services/history"
	"github.com/luisfhm/finanzas/internal/services/ledger"
	"github.com/luisfhm/finanzas/internal/services/price"
	"github.com/luisfhm/finanzas/internal/services/valuation"
	"github.com/luisfhm/finanzas/internal/storage/csvcodec"
)

// Service implements PortfolioService
type Service struct {
	store          interfaces.TransactionStore
	prices         interfaces.PriceResolver
	simulator      interfaces.Simulator
	profiles       interfaces.ProfileClient // optional sector lookup
	baseCurrency   string
	exchangeSuffix string
	logger         *common.Logger
	now            func() time.Time
}

// NewService creates a new portfolio service. profiles may be nil.
func NewService(
	store interfaces.TransactionStore,
	prices interfaces.PriceResolver,
	simulator interfaces.Simulator,
	profiles interfaces.ProfileClient,
	baseCurrency string,
	exchangeSuffix string,
	logger *common.Logger,
) *Service {
	return &Service{
		store:          store,
		prices:         prices,
		simulator:      simulator,
		profiles:       profiles,
		baseCurrency:   baseCurrency,
		exchangeSuffix: exchangeSuffix,
		logger:         logger,
		now:            time.Now,
	}
}

// List returns the user's stored transactions.
func (s *Service) List(ctx context.Context, userID string) ([]models.Transaction, error) {
	return s.store.List(ctx, userID)
}

// AddEntry validates raw and stores it. Equities without a sector get one
// from the profile client when it answers.
func (s *Service) AddEntry(ctx context.Context, userID string, raw models.RawEntry) (*models.Transaction, error) {
	tx, err := ledger.Normalize(raw)
	if err != nil {
		return nil, err
	}

	if tx.AssetClass == models.AssetEquity && tx.Sector == models.DefaultSector {
		tx.Sector = s.detectSector(ctx, tx.Ticker)
	}

	id, err := s.store.Create(ctx, userID, tx)
	if err != nil {
		s.logger.Error().Err(err).Str("user", userID).Str("ticker", tx.Ticker).Msg("Failed to store entry")
		return nil, err
	}
	tx.ID = id

	s.logger.Info().Str("user", userID).Str("id", id).Str("ticker", tx.Ticker).Msg("Entry added")
	return &tx, nil
}

func (s *Service) detectSector(ctx context.Context, ticker string) string {
	if s.profiles == nil {
		return models.DefaultSector
	}
	sector, err := s.profiles.GetSector(ctx, price.AdjustSymbol(models.AssetEquity, ticker, s.exchangeSuffix))
	if err != nil || sector == "" {
		s.logger.Warn().Err(err).Str("ticker", ticker).Msg("Sector lookup failed, using default")
		return models.DefaultSector
	}
	return sector
}

// EditEntry replaces every field of the stored record with the validated raw entry.
func (s *Service) EditEntry(ctx context.Context, userID, id string, raw models.RawEntry) (*models.Transaction, error) {
	tx, err := ledger.Normalize(raw)
	if err != nil {
		return nil, err
	}
	tx.ID = id

	if err := s.store.Update(ctx, userID, id, models.FullPatch(tx)); err != nil {
		s.logger.Error().Err(err).Str("user", userID).Str("id", id).Msg("Failed to update entry")
		return nil, err
	}

	s.logger.Info().Str("user", userID).Str("id", id).Msg("Entry updated")
	return &tx, nil
}

// DeleteEntry removes the record.
func (s *Service) DeleteEntry(ctx context.Context, userID, id string) error {
	if err := s.store.Delete(ctx, userID, id); err != nil {
		s.logger.Error().Err(err).Str("user", userID).Str("id", id).Msg("Failed to delete entry")
		return err
	}
	s.logger.Info().Str("user", userID).Str("id", id).Msg("Entry deleted")
	return nil
}

// Value resolves every distinct ticker once and values the ledger. Rows
// without a live or manual price are reported in Pending.
func (s *Service) Value(ctx context.Context, userID string) (*models.Valuation, error) {
	txs, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	prices := s.prices.ResolvePricesUnique(ctx, txs)
	val := valuation.Value(userID, s.baseCurrency, txs, prices, s.now())

	s.logger.Info().
		Str("user", userID).
		Int("rows", len(val.Rows)).
		Int("positions", len(val.Positions)).
		Int("pending", len(val.Pending)).
		Msg("Valuation pass complete")
	return val, nil
}

// SetManualPrices stores each ticker's manual price on every record sharing
// it and returns the ids written. The first store failure is returned as is.
func (s *Service) SetManualPrices(ctx context.Context, userID string, prices map[string]decimal.Decimal) ([]string, error) {
	txs, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	updated, changed, err := valuation.ApplyManualPrices(txs, prices)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]models.Transaction, len(updated))
	for _, tx := range updated {
		byID[tx.ID] = tx
	}

	written := make([]string, 0, len(changed))
	for _, id := range changed {
		manual := byID[id].ManualPrice
		if err := s.store.Update(ctx, userID, id, models.TransactionPatch{ManualPrice: &manual}); err != nil {
			s.logger.Error().Err(err).Str("user", userID).Str("id", id).Msg("Failed to store manual price")
			return written, err
		}
		written = append(written, id)
	}

	s.logger.Info().Str("user", userID).Int("tickers", len(prices)).Int("records", len(written)).Msg("Manual prices stored")
	return written, nil
}

// Import reads a ledger CSV. The whole file is validated before anything is
// written; rows carrying an id already stored replace that record.
func (s *Service) Import(ctx context.Context, userID string, r io.Reader) (int, error) {
	txs, err := csvcodec.DecodeTransactions(r)
	if err != nil {
		s.logger.Warn().Err(err).Str("user", userID).Msg("Import rejected")
		return 0, err
	}

	current, err := s.store.List(ctx, userID)
	if err != nil {
		return 0, err
	}
	stored := make(map[string]bool, len(current))
	for _, tx := range current {
		stored[tx.ID] = true
	}

	count := 0
	for _, tx := range txs {
		if tx.ID != "" && stored[tx.ID] {
			if err := s.store.Update(ctx, userID, tx.ID, models.FullPatch(tx)); err != nil {
				return count, err
			}
		} else {
			id, err := s.store.Create(ctx, userID, tx)
			if err != nil {
				return count, err
			}
			stored[id] = true
		}
		count++
	}

	s.logger.Info().Str("user", userID).Int("rows", count).Msg("Import complete")
	return count, nil
}

// Export writes the ledger CSV. With valued set, a valuation pass fills the
// derived price and value columns.
func (s *Service) Export(ctx context.Context, userID string, w io.Writer, valued bool) error {
	var (
		txs  []models.Transaction
		rows map[string]models.ValuedTransaction
	)

	if valued {
		val, err := s.Value(ctx, userID)
		if err != nil {
			return err
		}
		rows = make(map[string]models.ValuedTransaction, len(val.Rows))
		for _, row := range val.Rows {
			txs = append(txs, row.Transaction)
			rows[row.ID] = row
		}
	} else {
		var err error
		if txs, err = s.store.List(ctx, userID); err != nil {
			return err
		}
	}

	if err := csvcodec.Encode(w, txs, rows); err != nil {
		return fmt.Errorf("export ledger for %s: %w", userID, err)
	}
	return nil
}

// Simulate replays the user's ledger against daily closes.
func (s *Service) Simulate(ctx context.Context, userID string, lookbackDays int, classes []models.AssetClass) (*models.TimeSeries, error) {
	txs, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.simulator.Simulate(ctx, history.HoldingsFromTransactions(txs), lookbackDays, classes)
}

var _ interfaces.PortfolioService = (*Service)(nil)
