// Package storetest holds the behaviour every TransactionStore backend must share.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luisfhm/finanzas/internal/interfaces"
	"github.com/luisfhm/finanzas/internal/models"
)

// Sample returns a valid transaction for ticker.
func Sample(ticker string) models.Transaction {
	return models.Transaction{
		Date:       time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
		AssetClass: models.AssetEquity,
		Ticker:     ticker,
		Quantity:   decimal.RequireFromString("12.5"),
		UnitPrice:  decimal.RequireFromString("58.301"),
		Operation:  models.OpBuy,
		Venue:      "GBM",
		Sector:     "Consumo",
		FeePercent: decimal.RequireFromString("0.25"),
	}
}

// Run exercises the TransactionStore contract against stores built by open.
// Each call to open must return an empty store.
func Run(t *testing.T, open func(t *testing.T) interfaces.TransactionStore) {
	t.Helper()

	t.Run("EmptyUser", func(t *testing.T) {
		store := open(t)
		txs, err := store.List(context.Background(), "nobody")
		require.NoError(t, err)
		assert.Empty(t, txs)
	})

	t.Run("CreateAssignsIDAndPreservesOrder", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()

		var ids []string
		for _, ticker := range []string{"WALMEX", "AMXB", "GFNORTEO"} {
			id, err := store.Create(ctx, "ana", Sample(ticker))
			require.NoError(t, err)
			require.NotEmpty(t, id)
			ids = append(ids, id)
		}

		txs, err := store.List(ctx, "ana")
		require.NoError(t, err)
		require.Len(t, txs, 3)
		for i, tx := range txs {
			assert.Equal(t, ids[i], tx.ID)
		}
		assert.Equal(t, "AMXB", txs[1].Ticker)
		assert.True(t, txs[1].UnitPrice.Equal(decimal.RequireFromString("58.301")))
		assert.True(t, txs[1].FeePercent.Equal(decimal.RequireFromString("0.25")))
		assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), txs[1].Date)
		assert.False(t, txs[1].ManualPrice.Valid)
	})

	t.Run("UsersAreIsolated", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()

		_, err := store.Create(ctx, "ana", Sample("WALMEX"))
		require.NoError(t, err)

		txs, err := store.List(ctx, "beto")
		require.NoError(t, err)
		assert.Empty(t, txs)
	})

	t.Run("LookalikeUsersAreIsolated", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()

		_, err := store.Create(ctx, "ana/luis", Sample("WALMEX"))
		require.NoError(t, err)

		for _, other := range []string{"ana_luis", "ana%2Fluis", "ana\\luis"} {
			txs, err := store.List(ctx, other)
			require.NoError(t, err)
			assert.Empty(t, txs, "user %q sees ana/luis rows", other)
		}
	})

	t.Run("UserAndIDPairsDoNotCollide", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()

		first := Sample("WALMEX")
		first.ID = "b_c"
		_, err := store.Create(ctx, "a", first)
		require.NoError(t, err)

		second := Sample("AMXB")
		second.ID = "c"
		_, err = store.Create(ctx, "a_b", second)
		require.NoError(t, err, "a different user and id must not clash")

		ticker := "GMEXICOB"
		require.NoError(t, store.Update(ctx, "a_b", "c", models.TransactionPatch{Ticker: &ticker}))

		txs, err := store.List(ctx, "a")
		require.NoError(t, err)
		require.Len(t, txs, 1)
		assert.Equal(t, "b_c", txs[0].ID)
		assert.Equal(t, "WALMEX", txs[0].Ticker)

		txs, err = store.List(ctx, "a_b")
		require.NoError(t, err)
		require.Len(t, txs, 1)
		assert.Equal(t, "GMEXICOB", txs[0].Ticker)

		err = store.Update(ctx, "a", "c", models.TransactionPatch{Ticker: &ticker})
		assert.True(t, errors.Is(err, models.ErrNotFound))
	})

	t.Run("CreateKeepsGivenIDAndRejectsDuplicate", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()

		tx := Sample("BTC")
		tx.ID = "fixed-id"
		tx.AssetClass = models.AssetCrypto
		id, err := store.Create(ctx, "ana", tx)
		require.NoError(t, err)
		assert.Equal(t, "fixed-id", id)

		_, err = store.Create(ctx, "ana", tx)
		assert.True(t, errors.Is(err, models.ErrDuplicateID))
		var storeErr *models.StoreError
		assert.True(t, errors.As(err, &storeErr))
	})

	t.Run("UpdateAppliesPatch", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()

		id, err := store.Create(ctx, "ana", Sample("CETES28"))
		require.NoError(t, err)

		manual := decimal.NewNullDecimal(decimal.RequireFromString("10.05"))
		sector := "Gobierno"
		require.NoError(t, store.Update(ctx, "ana", id, models.TransactionPatch{ManualPrice: &manual, Sector: &sector}))

		txs, err := store.List(ctx, "ana")
		require.NoError(t, err)
		require.Len(t, txs, 1)
		assert.Equal(t, id, txs[0].ID)
		assert.Equal(t, "Gobierno", txs[0].Sector)
		require.True(t, txs[0].ManualPrice.Valid)
		assert.True(t, txs[0].ManualPrice.Decimal.Equal(decimal.RequireFromString("10.05")))
		assert.True(t, txs[0].Quantity.Equal(decimal.RequireFromString("12.5")))

		full := Sample("CETES91")
		full.Operation = models.OpSell
		require.NoError(t, store.Update(ctx, "ana", id, models.FullPatch(full)))
		txs, err = store.List(ctx, "ana")
		require.NoError(t, err)
		assert.Equal(t, "CETES91", txs[0].Ticker)
		assert.Equal(t, models.OpSell, txs[0].Operation)
		assert.False(t, txs[0].ManualPrice.Valid)
		assert.Equal(t, id, txs[0].ID)
	})

	t.Run("MissingIDIsNotFound", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()

		ticker := "X"
		err := store.Update(ctx, "ana", "missing", models.TransactionPatch{Ticker: &ticker})
		assert.True(t, errors.Is(err, models.ErrNotFound))

		err = store.Delete(ctx, "ana", "missing")
		assert.True(t, errors.Is(err, models.ErrNotFound))
	})

	t.Run("DeleteRemovesOnlyThatRecord", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()

		first, err := store.Create(ctx, "ana", Sample("WALMEX"))
		require.NoError(t, err)
		second, err := store.Create(ctx, "ana", Sample("AMXB"))
		require.NoError(t, err)

		require.NoError(t, store.Delete(ctx, "ana", first))

		txs, err := store.List(ctx, "ana")
		require.NoError(t, err)
		require.Len(t, txs, 1)
		assert.Equal(t, second, txs[0].ID)
	})
}
