package yahoo

import (
	"context"
	"fmt"
	"strings"

	"github.com/wnjoon/go-yfinance/pkg/models"
	"github.com/wnjoon/go-yfinance/pkg/ticker"

	"github.com/luisfhm/finanzas/internal/common"
	"github.com/luisfhm/finanzas/internal/interfaces"
)

var _ interfaces.ProfileClient = (*ProfileClient)(nil)

// infoFunc fetches the sector classification of a symbol.
type infoFunc func(symbol string) (string, error)

// ProfileClient looks up equity sectors through go-yfinance. The
// library call is not context-aware, so it runs in a goroutine bounded by ctx.
type ProfileClient struct {
	logger *common.Logger
	lookup infoFunc
}

// NewProfileClient creates a profile client backed by go-yfinance.
func NewProfileClient(logger *common.Logger) *ProfileClient {
	return &ProfileClient{logger: logger, lookup: sectorOf}
}

func sectorOf(symbol string) (string, error) {
	t, err := ticker.New(symbol)
	if err != nil {
		return "", fmt.Errorf("failed to create ticker: %w", err)
	}
	defer t.Close()

	info, err := t.Info()
	if err != nil {
		return "", fmt.Errorf("failed to get info: %w", err)
	}
	return sectorFromInfo(info), nil
}

// sectorFromInfo reads the sector, not the finer industry, since sector is
// part of the position key.
func sectorFromInfo(info *models.Info) string {
	if info == nil {
		return ""
	}
	return strings.TrimSpace(info.Sector)
}

// GetSector returns the instrument's sector, or "" when none is published.
func (p *ProfileClient) GetSector(ctx context.Context, symbol string) (string, error) {
	type result struct {
		sector string
		err    error
	}
	done := make(chan result, 1)
	go func() {
		s, err := p.lookup(symbol)
		done <- result{s, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		if r.err != nil {
			p.logger.Debug().Err(r.err).Str("symbol", symbol).Msg("Sector lookup failed")
		}
		return r.sector, r.err
	}
}
