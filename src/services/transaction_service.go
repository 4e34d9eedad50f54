package services

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/finflow/backend/src/logger"
	"github.com/username/finflow/backend/src/models"
	"github.com/username/finflow/backend/src/utils"
)

// MaxPerPage caps per_page so one request cannot read the whole log.
const MaxPerPage = 100

type transactionServiceImpl struct {
	db *sql.DB
}

func NewTransactionService(db *sql.DB) TransactionService {
	return &transactionServiceImpl{db: db}
}

// List returns one page of the owner's log, newest first.
func (s *transactionServiceImpl) List(ctx context.Context, ownerEmail string, page, perPage int) (models.TransactionPage, error) {
	if page < 1 || perPage < 1 {
		return models.TransactionPage{}, NewValidationError("page and per_page must be at least 1")
	}
	perPage = utils.MinInt(perPage, MaxPerPage)
	if page > math.MaxInt/perPage {
		return models.TransactionPage{}, NewValidationError("page is out of range")
	}
	ownerEmail = strings.ToLower(ownerEmail)

	var total int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE owner_email = ?`, ownerEmail).Scan(&total)
	if err != nil {
		return models.TransactionPage{}, wrapStorage("count transactions", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_email, symbol, transaction_type, quantity, price, currency, created_at
		FROM transactions
		WHERE owner_email = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`, ownerEmail, perPage, (page-1)*perPage)
	if err != nil {
		return models.TransactionPage{}, wrapStorage("query transactions", err)
	}
	defer rows.Close()

	data := []models.TransactionRecord{}
	for rows.Next() {
		var rec models.TransactionRecord
		var price string
		if err := rows.Scan(&rec.ID, &rec.OwnerEmail, &rec.Symbol, &rec.TransactionType,
			&rec.Quantity, &price, &rec.Currency, &rec.CreatedAt); err != nil {
			return models.TransactionPage{}, wrapStorage("scan transaction", err)
		}
		if rec.Price, err = decimal.NewFromString(price); err != nil {
			return models.TransactionPage{}, wrapStorage("parse transaction price", err)
		}
		data = append(data, rec)
	}
	if err := rows.Err(); err != nil {
		return models.TransactionPage{}, wrapStorage("iterate transactions", err)
	}

	return models.TransactionPage{TotalCount: total, Page: page, PerPage: perPage, Data: data}, nil
}

// Delete removes one of the owner's rows. Rows of other owners read as absent.
func (s *transactionServiceImpl) Delete(ctx context.Context, ownerEmail string, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND owner_email = ?`, id, strings.ToLower(ownerEmail))
	if err != nil {
		return wrapStorage("delete transaction", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapStorage("delete transaction", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: transaction %d", ErrNotFound, id)
	}
	logger.FromContext(ctx).Info("Transaction deleted", "transactionID", id)
	return nil
}

func (s *transactionServiceImpl) Record(ctx context.Context, rec models.TransactionRecord) (models.TransactionRecord, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.Symbol = strings.ToUpper(rec.Symbol)
	rec.OwnerEmail = strings.ToLower(rec.OwnerEmail)
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (owner_email, symbol, transaction_type, quantity, price, currency, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.OwnerEmail, rec.Symbol, rec.TransactionType, rec.Quantity, rec.Price.String(), rec.Currency, rec.CreatedAt)
	if err != nil {
		return models.TransactionRecord{}, wrapStorage("insert transaction", err)
	}
	if rec.ID, err = res.LastInsertId(); err != nil {
		return models.TransactionRecord{}, wrapStorage("insert transaction", err)
	}
	return rec, nil
}
