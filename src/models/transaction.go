package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const TransactionTypeBuy = "BUY"

// TransactionRecord is one row of the transaction log.
type TransactionRecord struct {
	ID              int64           `json:"id"`
	OwnerEmail      string          `json:"-"`
	Symbol          string          `json:"symbol"`
	TransactionType string          `json:"transaction_type"`
	Quantity        int64           `json:"quantity"`
	Price           decimal.Decimal `json:"price"`
	Currency        string          `json:"currency"`
	CreatedAt       time.Time       `json:"created_at"`
}

// TransactionPage is one page of the transaction log.
type TransactionPage struct {
	TotalCount int                 `json:"total_count"`
	Page       int                 `json:"page"`
	PerPage    int                 `json:"per_page"`
	Data       []TransactionRecord `json:"data"`
}
