package models

import "time"

// UnknownName is the long name reported when the provider has none.
const UnknownName = "Unknown"

// PricePoint is one daily close.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// Quote is a read-only view of the market-data provider for one ticker.
type Quote struct {
	Symbol                string       `json:"symbol"`
	CurrentPrice          *float64     `json:"currentPrice"`
	History               []PricePoint `json:"history"`
	LongName              string       `json:"longName"`
	DividendRate          float64      `json:"dividendRate"`
	DividendYieldFraction float64      `json:"dividendYieldFraction"`
	CurrencyCode          string       `json:"currencyCode"`
	Website               string       `json:"website,omitempty"`
}

