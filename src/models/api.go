package models

// Request and response bodies of the HTTP API.

// PurchaseRequest is the body of POST /portfolio. CurrentPrice is the price
// paid per unit at purchase time.
type PurchaseRequest struct {
	Symbol       string  `json:"symbol" validate:"required,max=20,ticker"`
	Name         string  `json:"name" validate:"max=200"`
	CurrentPrice float64 `json:"currentPrice" validate:"gte=0"`
	Currency     string  `json:"currency" validate:"required,currency"`
	Quantity     int64   `json:"quantity" validate:"gt=0,lte=1000000000"`
}

type PurchaseView struct {
	ID          string  `json:"id"`
	Symbol      string  `json:"symbol"`
	Name        string  `json:"name"`
	Quantity    int64   `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	Currency    string  `json:"currency"`
	PurchasedAt string  `json:"purchasedAt"`
}

type PurchaseResponse struct {
	Message  string       `json:"message"`
	Purchase PurchaseView `json:"purchase"`
}

type PortfolioResponse struct {
	Portfolio []Position `json:"portfolio"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type RegisterResponse struct {
	Message  string `json:"message"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type TokenRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type StockSearchResponse struct {
	Symbol        string  `json:"symbol"`
	LongName      string  `json:"longName"`
	CurrentPrice  float64 `json:"currentPrice"`
	Currency      string  `json:"currency"`
	DividendRate  float64 `json:"dividendRate"`
	DividendYield float64 `json:"dividendYield"`
	LogoURL       string  `json:"logoUrl"`
}
