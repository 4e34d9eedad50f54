package services

import (
	"context"
	"database/sql"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/finflow/backend/src/database"
	"github.com/username/finflow/backend/src/models"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedTransactions(t *testing.T, svc TransactionService, n int) []models.TransactionRecord {
	t.Helper()
	t0 := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	out := make([]models.TransactionRecord, n)
	for i := 0; i < n; i++ {
		rec, err := svc.Record(context.Background(), models.TransactionRecord{
			OwnerEmail:      owner,
			Symbol:          "aapl",
			TransactionType: models.TransactionTypeBuy,
			Quantity:        int64(i + 1),
			Price:           decimal.RequireFromString("101.25"),
			Currency:        "USD",
			CreatedAt:       t0.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
		out[i] = rec
	}
	return out
}

func TestTransactionListPaginates(t *testing.T) {
	svc := NewTransactionService(openTestDB(t))
	seeded := seedTransactions(t, svc, 3)

	page, err := svc.List(context.Background(), owner, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalCount)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 2, page.PerPage)
	require.Len(t, page.Data, 2)
	assert.Equal(t, seeded[2].ID, page.Data[0].ID, "newest first")
	assert.Equal(t, "AAPL", page.Data[0].Symbol)
	assert.True(t, page.Data[0].Price.Equal(decimal.RequireFromString("101.25")))

	page, err = svc.List(context.Background(), owner, 2, 2)
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, seeded[0].ID, page.Data[0].ID)

	page, err = svc.List(context.Background(), owner, 9, 2)
	require.NoError(t, err)
	assert.NotNil(t, page.Data)
	assert.Empty(t, page.Data)
}

func TestTransactionListRejectsBadPaging(t *testing.T) {
	svc := NewTransactionService(openTestDB(t))
	for _, tc := range [][2]int{{0, 10}, {1, 0}, {-1, -1}} {
		_, err := svc.List(context.Background(), owner, tc[0], tc[1])
		assert.ErrorIs(t, err, ErrValidation, "page=%d per_page=%d", tc[0], tc[1])
	}
}

func TestTransactionListCapsPerPage(t *testing.T) {
	svc := NewTransactionService(openTestDB(t))
	page, err := svc.List(context.Background(), owner, 1, 5000)
	require.NoError(t, err)
	assert.Equal(t, MaxPerPage, page.PerPage)
}

func TestTransactionDelete(t *testing.T) {
	svc := NewTransactionService(openTestDB(t))
	seeded := seedTransactions(t, svc, 1)

	require.NoError(t, svc.Delete(context.Background(), owner, seeded[0].ID))
	assert.ErrorIs(t, svc.Delete(context.Background(), owner, seeded[0].ID), ErrNotFound)
	assert.ErrorIs(t, svc.Delete(context.Background(), owner, 424242), ErrNotFound)
}

func TestTransactionStorageError(t *testing.T) {
	db := openTestDB(t)
	svc := NewTransactionService(db)
	require.NoError(t, db.Close())

	_, err := svc.List(context.Background(), owner, 1, 10)
	assert.ErrorIs(t, err, ErrStorage)
}

func TestTransactionsAreScopedToOwner(t *testing.T) {
	svc := NewTransactionService(openTestDB(t))
	seeded := seedTransactions(t, svc, 2)

	page, err := svc.List(context.Background(), "bob@example.com", 1, 10)
	require.NoError(t, err)
	assert.Zero(t, page.TotalCount)
	assert.Empty(t, page.Data)

	assert.ErrorIs(t, svc.Delete(context.Background(), "bob@example.com", seeded[0].ID), ErrNotFound)

	page, err = svc.List(context.Background(), "Ann@Example.com", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalCount, "owner match ignores case")
}

func TestTransactionListRejectsOverflowingPage(t *testing.T) {
	svc := NewTransactionService(openTestDB(t))
	seedTransactions(t, svc, 1)

	_, err := svc.List(context.Background(), owner, math.MaxInt, 10)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.List(context.Background(), owner, math.MaxInt/MaxPerPage+1, 5000)
	assert.ErrorIs(t, err, ErrValidation)
}
