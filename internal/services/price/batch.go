package price

import (
	"context"
	"strings"
	"sync"

	"github.com/luisfhm/finanzas/internal/models"
)

type lookup struct {
	class  models.AssetClass
	ticker string
}

// ResolvePricesUnique resolves each distinct ticker in txs once, using the
// asset class of its first occurrence. Unresolved tickers map to a zero
// price with source Unavailable.
func (s *Service) ResolvePricesUnique(ctx context.Context, txs []models.Transaction) map[string]models.PricePoint {
	seen := make(map[string]bool, len(txs))
	var lookups []lookup
	for _, tx := range txs {
		ticker := strings.ToUpper(strings.TrimSpace(tx.Ticker))
		if ticker == "" || seen[ticker] {
			continue
		}
		seen[ticker] = true
		lookups = append(lookups, lookup{class: tx.AssetClass, ticker: ticker})
	}

	points := make([]models.PricePoint, len(lookups))

	if s.cfg.Concurrency <= 1 || len(lookups) <= 1 {
		for i, l := range lookups {
			points[i] = s.ResolvePrice(ctx, l.class, l.ticker)
		}
	} else {
		sem := make(chan struct{}, s.cfg.Concurrency)
		var wg sync.WaitGroup
		for i, l := range lookups {
			wg.Add(1)
			sem <- struct{}{}
			go func(i int, l lookup) {
				defer wg.Done()
				defer func() { <-sem }()
				points[i] = s.ResolvePrice(ctx, l.class, l.ticker)
			}(i, l)
		}
		wg.Wait()
	}

	result := make(map[string]models.PricePoint, len(points))
	unavailable := 0
	for _, p := range points {
		if p.Source == models.SourceUnavailable {
			unavailable++
		}
		result[p.Ticker] = p
	}

	s.logger.Info().
		Int("tickers", len(result)).
		Int("unavailable", unavailable).
		Msg("Resolved prices")

	return result
}
