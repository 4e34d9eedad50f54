package services

import (
	"context"

	"github.com/username/finflow/backend/src/models"
)

// PurchaseLedger is the append-only store of purchase lots, scoped by owner and symbol.
type PurchaseLedger interface {
	RecordPurchase(ctx context.Context, ownerEmail string, lot models.PurchaseLot) (models.PurchaseLot, error)
	ListPurchasesForOwner(ctx context.Context, ownerEmail string) ([]models.PurchaseLot, error)
	ListPurchasesForSymbol(ctx context.Context, ownerEmail, symbol string) ([]models.PurchaseLot, error)
	DeleteAllPurchases(ctx context.Context, ownerEmail, symbol string) error
}

// QuoteGateway reads prices and descriptive data from the market-data provider.
type QuoteGateway interface {
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)
	GetHistory(ctx context.Context, symbol string, lookbackDays int) ([]models.PricePoint, error)
}

type PortfolioService interface {
	Buy(ctx context.Context, id models.Identity, req models.PurchaseRequest) (models.PurchaseLot, error)
	ComputePortfolio(ctx context.Context, ownerEmail string) ([]models.Position, error)
	RemoveSymbol(ctx context.Context, ownerEmail, symbol string) error
}

type TransactionService interface {
	List(ctx context.Context, ownerEmail string, page, perPage int) (models.TransactionPage, error)
	Delete(ctx context.Context, ownerEmail string, id int64) error
	Record(ctx context.Context, rec models.TransactionRecord) (models.TransactionRecord, error)
}

type LogoService interface {
	LogoURL(ctx context.Context, symbol, website string) string
}

type EmailService interface {
	SendWelcomeEmail(ctx context.Context, toEmail, username string) error
}
