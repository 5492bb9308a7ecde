// Package history reconstructs historical portfolio value from daily closes
package history

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/luisfhm/finanzas/internal/common"
	"github.com/luisfhm/finanzas/internal/interfaces"
	"github.com/luisfhm/finanzas/internal/models"
	"github.com/luisfhm/finanzas/internal/services/price"
)

var _ interfaces.Simulator = (*Simulator)(nil)

// Converter converts provider closes into the base currency.
type Converter interface {
	ToBase(ctx context.Context, amount decimal.Decimal, currency string) decimal.Decimal
	BaseCurrency() string
}

// Simulator replays daily closes against point-in-time holdings.
type Simulator struct {
	equity    interfaces.HistoryClient
	crypto    interfaces.HistoryClient
	converter Converter
	suffix    string
	timeout   time.Duration
	logger    *common.Logger
	now       func() time.Time // injectable clock for testing
}

// NewSimulator creates a simulator. A nil history client excludes its class.
func NewSimulator(equity, crypto interfaces.HistoryClient, converter Converter, exchangeSuffix string, timeout time.Duration, logger *common.Logger) *Simulator {
	if timeout <= 0 {
		timeout = price.DefaultTimeout
	}
	return &Simulator{
		equity:    equity,
		crypto:    crypto,
		converter: converter,
		suffix:    exchangeSuffix,
		timeout:   timeout,
		logger:    logger,
		now:       time.Now,
	}
}

type holdingKey struct {
	ticker string
	class  models.AssetClass
}

// holdingState replays holdings of one instrument in Since order.
type holdingState struct {
	key      holdingKey
	holdings []models.Holding // sorted by Since ascending
	cursor   int
	units    decimal.Decimal
}

// advanceTo adds every holding acquired on or before cutoff.
func (s *holdingState) advanceTo(cutoff time.Time) {
	for s.cursor < len(s.holdings) {
		h := s.holdings[s.cursor]
		if !h.Since.IsZero() && h.Since.After(cutoff) {
			break
		}
		s.units = s.units.Add(h.Quantity)
		s.cursor++
	}
}

func newHoldingState(key holdingKey, holdings []models.Holding) *holdingState {
	sorted := make([]models.Holding, len(holdings))
	copy(sorted, holdings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Since.Before(sorted[j].Since)
	})
	return &holdingState{key: key, holdings: sorted}
}

// Simulate returns the total portfolio value for every date in
// [today-lookbackDays, today] on which at least one eligible ticker has a
// close. Only equity and crypto holdings are replayed; tickers without
// history are skipped and listed in the result. An empty series is not an error.
func (s *Simulator) Simulate(ctx context.Context, holdings []models.Holding, lookbackDays int, classes []models.AssetClass) (*models.TimeSeries, error) {
	if lookbackDays <= 0 {
		return nil, &models.ValidationError{Field: "lookback_days", Reason: "must be positive"}
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	from := today.AddDate(0, 0, -lookbackDays)

	ts := &models.TimeSeries{
		From:     from,
		To:       today,
		Currency: s.converter.BaseCurrency(),
		Points:   []models.TimeSeriesPoint{},
	}

	states := s.groupHoldings(holdings, classes)
	totals := make(map[time.Time]decimal.Decimal)

	for _, st := range states {
		series, err := s.assetSeries(ctx, st, from, today)
		if err != nil {
			s.logger.Warn().Err(err).Str("ticker", st.key.ticker).Str("class", string(st.key.class)).Msg("History unavailable, skipping ticker")
			ts.Skipped = append(ts.Skipped, models.SkippedTicker{Ticker: st.key.ticker, AssetClass: st.key.class, Reason: err.Error()})
			continue
		}
		for _, p := range series {
			totals[p.Date] = totals[p.Date].Add(p.Total)
		}
	}

	dates := make([]time.Time, 0, len(totals))
	for date := range totals {
		dates = append(dates, date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	for _, date := range dates {
		ts.Points = append(ts.Points, models.TimeSeriesPoint{Date: date, Total: totals[date]})
	}

	s.logger.Info().
		Int("lookback_days", lookbackDays).
		Int("tickers", len(states)).
		Int("skipped", len(ts.Skipped)).
		Int("points", len(ts.Points)).
		Msg("Simulated portfolio history")

	return ts, nil
}

// groupHoldings filters to the selected, history-eligible classes and groups
// by (ticker, class) in first-seen order.
func (s *Simulator) groupHoldings(holdings []models.Holding, classes []models.AssetClass) []*holdingState {
	selected := make(map[models.AssetClass]bool, len(classes))
	for _, c := range classes {
		selected[c] = true
	}

	var order []holdingKey
	grouped := make(map[holdingKey][]models.Holding)
	for _, h := range holdings {
		ticker := strings.ToUpper(strings.TrimSpace(h.Ticker))
		if ticker == "" || !h.AssetClass.HasLivePrice() {
			continue
		}
		if len(selected) > 0 && !selected[h.AssetClass] {
			continue
		}
		key := holdingKey{ticker: ticker, class: h.AssetClass}
		if _, ok := grouped[key]; !ok {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], h)
	}

	states := make([]*holdingState, 0, len(order))
	for _, key := range order {
		states = append(states, newHoldingState(key, grouped[key]))
	}
	return states
}

// assetSeries values one instrument on each date it has a close in the base currency.
func (s *Simulator) assetSeries(ctx context.Context, st *holdingState, from, to time.Time) ([]models.TimeSeriesPoint, error) {
	client := s.equity
	if st.key.class == models.AssetCrypto {
		client = s.crypto
	}
	if client == nil {
		return nil, models.ErrHistoryUnavailable
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	symbol := price.AdjustSymbol(st.key.class, st.key.ticker, s.suffix)
	bars, currency, err := client.GetDailyCloses(fetchCtx, symbol, from, to)
	if err != nil {
		return nil, err
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	series := make([]models.TimeSeriesPoint, 0, len(bars))
	for _, bar := range bars {
		day := bar.Date.UTC().Truncate(24 * time.Hour)
		if day.Before(from) || day.After(to) || bar.Close <= 0 {
			continue
		}
		st.advanceTo(day)
		closeBase := s.converter.ToBase(ctx, decimal.NewFromFloat(bar.Close), currency)
		series = append(series, models.TimeSeriesPoint{Date: day, Total: st.units.Mul(closeBase)})
	}
	if len(series) == 0 {
		return nil, errors.New("no closes in window")
	}
	return series, nil
}
