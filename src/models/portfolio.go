package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseLot is one immutable buy event. It is stored as a document under
// users/{ownerEmail}/portfolio/{symbol}/purchases/{id}.
type PurchaseLot struct {
	ID          string          `json:"id"`
	OwnerEmail  string          `json:"owner_email"`
	Symbol      string          `json:"symbol"`
	Name        string          `json:"name"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Currency    string          `json:"currency"`
	PurchasedAt time.Time       `json:"purchased_at"`
}

// Cost is quantity × unit price, exact.
func (l PurchaseLot) Cost() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
}

// SymbolRecord is the parent document of a symbol's purchases.
type SymbolRecord struct {
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	PriceStatusLive     = "LIVE"
	PriceStatusDegraded = "DEGRADED"
)

// Position is the aggregated holding in one symbol. It is derived on every
// request and never persisted. Money and percentage fields are rounded to 2 decimals.
type Position struct {
	Symbol               string  `json:"symbol"`
	Name                 string  `json:"name"`
	TotalQuantity        int64   `json:"totalQuantity"`
	TotalCost            float64 `json:"totalCost"`
	AverageCost          float64 `json:"averageCost"`
	CurrentPrice         float64 `json:"currentPrice"`
	PreviousClose        float64 `json:"previousClose"`
	MarketValue          float64 `json:"marketValue"`
	Currency             string  `json:"currency"`
	DividendRate         float64 `json:"dividendRate"`
	DividendYieldPercent float64 `json:"dividendYieldPercent"`
	TotalProfit          float64 `json:"totalProfit"`
	DailyProfit          float64 `json:"dailyProfit"`
	PriceStatus          string  `json:"priceStatus"`
}
