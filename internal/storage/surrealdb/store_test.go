package surrealdb

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luisfhm/finanzas/internal/common"
	"github.com/luisfhm/finanzas/internal/interfaces"
	"github.com/luisfhm/finanzas/internal/models"
	"github.com/luisfhm/finanzas/internal/storage/storetest"
)

func TestStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) interfaces.TransactionStore {
		store, err := NewWithDB(context.Background(), testDB(t), common.NewSilentLogger())
		require.NoError(t, err)
		return store
	})
}

func TestRecord_RoundTrip(t *testing.T) {
	tx := storetest.Sample("BTC")
	tx.ID = "abc"
	tx.AssetClass = models.AssetCrypto
	tx.ManualPrice = decimal.NewNullDecimal(decimal.RequireFromString("1234567.891"))

	rec := toRecord("ana", 7, tx)
	assert.Equal(t, "ana", rec.UserID)
	assert.Equal(t, int64(7), rec.Seq)
	assert.Equal(t, "2024-05-02", rec.Date)
	require.NotNil(t, rec.ManualPrice)
	assert.Equal(t, "1234567.891", *rec.ManualPrice)

	got, err := rec.transaction()
	require.NoError(t, err)
	assert.Equal(t, tx.ID, got.ID)
	assert.Equal(t, tx.Date, got.Date)
	assert.True(t, tx.Quantity.Equal(got.Quantity))
	assert.True(t, tx.ManualPrice.Decimal.Equal(got.ManualPrice.Decimal))
	assert.Equal(t, models.AssetCrypto, got.AssetClass)
}

func TestRecord_NoManualPrice(t *testing.T) {
	rec := toRecord("ana", 1, storetest.Sample("WALMEX"))
	assert.Nil(t, rec.ManualPrice)

	got, err := rec.transaction()
	require.NoError(t, err)
	assert.False(t, got.ManualPrice.Valid)
}

func TestRecord_BadDecimal(t *testing.T) {
	rec := toRecord("ana", 1, storetest.Sample("WALMEX"))
	rec.Quantity = "twelve"
	_, err := rec.transaction()
	assert.Error(t, err)
}

func TestRecordID_KeepsUserAndIDApart(t *testing.T) {
	assert.NotEqual(t, recordID("a", "b_c"), recordID("a_b", "c"))
	assert.Equal(t, recordID("ana", "t1"), recordID("ana", "t1"))

	rid := recordID("ana", "t1")
	assert.Equal(t, table, rid.Table)
	assert.Equal(t, []any{"ana", "t1"}, rid.ID)
}
