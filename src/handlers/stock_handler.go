package handlers

import (
	"errors"
	"net/http"

	"github.com/username/finflow/backend/src/logger"
	"github.com/username/finflow/backend/src/models"
	"github.com/username/finflow/backend/src/security/validation"
	"github.com/username/finflow/backend/src/services"
	"github.com/username/finflow/backend/src/utils"
)

type StockHandler struct {
	quotes services.QuoteGateway
	logos  services.LogoService
}

func NewStockHandler(quotes services.QuoteGateway, logos services.LogoService) *StockHandler {
	return &StockHandler{quotes: quotes, logos: logos}
}

// HandleStockPrice answers with the bare current price, rounded to 2 decimals.
func (h *StockHandler) HandleStockPrice(w http.ResponseWriter, r *http.Request) {
	ticker := validation.NormalizeSymbol(r.URL.Query().Get("ticker"))
	if ticker == "" {
		utils.SendJSONError(w, "ticker query parameter is required", http.StatusBadRequest)
		return
	}
	if !validation.IsTicker(ticker) {
		utils.SendJSONError(w, "Invalid ticker symbol", http.StatusBadRequest)
		return
	}

	quote, err := h.quotes.GetQuote(r.Context(), ticker)
	if err != nil || quote.CurrentPrice == nil {
		logger.FromContext(r.Context()).Error("Failed to fetch stock price", "ticker", ticker, "error", err)
		utils.SendJSONError(w, "Failed to fetch stock price", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.RoundFloat(*quote.CurrentPrice, 2))
}

// HandleSearchStocks describes one ticker, with a logo when one can be derived.
func (h *StockHandler) HandleSearchStocks(w http.ResponseWriter, r *http.Request) {
	query := validation.NormalizeSymbol(r.URL.Query().Get("query"))
	if query == "" {
		utils.SendJSONError(w, "query parameter is required", http.StatusBadRequest)
		return
	}
	if !validation.IsTicker(query) {
		utils.SendJSONError(w, "Invalid ticker symbol", http.StatusBadRequest)
		return
	}

	quote, err := h.quotes.GetQuote(r.Context(), query)
	if err != nil {
		if errors.Is(err, services.ErrQuoteUnavailable) {
			utils.SendJSONError(w, "No data found for "+query, http.StatusNotFound)
			return
		}
		logger.FromContext(r.Context()).Error("Stock search failed", "query", query, "error", err)
		utils.SendJSONError(w, "Failed to fetch stock data", http.StatusInternalServerError)
		return
	}

	resp := models.StockSearchResponse{
		Symbol:        query,
		LongName:      quote.LongName,
		Currency:      quote.CurrencyCode,
		DividendRate:  utils.RoundFloat(quote.DividendRate, 2),
		DividendYield: utils.RoundFloat(quote.DividendYieldFraction*100, 2),
		LogoURL:       h.logos.LogoURL(r.Context(), query, quote.Website),
	}
	if quote.CurrentPrice != nil {
		resp.CurrentPrice = utils.RoundFloat(*quote.CurrentPrice, 2)
	}
	if resp.LongName == "" {
		resp.LongName = models.UnknownName
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}
