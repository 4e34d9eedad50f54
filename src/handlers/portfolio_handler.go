package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/username/finflow/backend/src/logger"
	"github.com/username/finflow/backend/src/models"
	"github.com/username/finflow/backend/src/security/validation"
	"github.com/username/finflow/backend/src/services"
	"github.com/username/finflow/backend/src/utils"
)

const maxBodyBytes = 1 << 20

type PortfolioHandler struct {
	portfolio services.PortfolioService
	validator *validation.Validator
}

func NewPortfolioHandler(portfolio services.PortfolioService, validator *validation.Validator) *PortfolioHandler {
	return &PortfolioHandler{portfolio: portfolio, validator: validator}
}

// HandleBuy records one purchase lot for the caller.
func (h *PortfolioHandler) HandleBuy(w http.ResponseWriter, r *http.Request) {
	id, ok := GetIdentityFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var req models.PurchaseRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	lot, err := h.portfolio.Buy(r.Context(), id, req)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, models.PurchaseResponse{
		Message: fmt.Sprintf("Purchased %d %s", lot.Quantity, lot.Symbol),
		Purchase: models.PurchaseView{
			ID:          lot.ID,
			Symbol:      lot.Symbol,
			Name:        lot.Name,
			Quantity:    lot.Quantity,
			UnitPrice:   lot.UnitPrice.InexactFloat64(),
			Currency:    lot.Currency,
			PurchasedAt: utils.FormatTimestamp(lot.PurchasedAt),
		},
	})
}

// HandleGetPortfolio returns the caller's aggregated positions. The response
// carries an ETag so unchanged portfolios can be answered with 304.
func (h *PortfolioHandler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	id, ok := GetIdentityFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	positions, err := h.portfolio.ComputePortfolio(r.Context(), id.Email)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	resp := models.PortfolioResponse{Portfolio: positions}

	etag, err := utils.GenerateETag(resp)
	if err != nil {
		logger.FromContext(r.Context()).Warn("Failed to generate ETag for portfolio", "error", err)
	} else {
		quoted := `"` + etag + `"`
		w.Header().Set("ETag", quoted)
		w.Header().Set("Cache-Control", "private, no-cache")
		if r.Header.Get("If-None-Match") == quoted {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}

// HandleDeleteSymbol removes every lot of one symbol. Unknown symbols succeed.
func (h *PortfolioHandler) HandleDeleteSymbol(w http.ResponseWriter, r *http.Request) {
	id, ok := GetIdentityFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}
	symbol := validation.NormalizeSymbol(r.PathValue("symbol"))
	if !validation.IsTicker(symbol) {
		utils.SendJSONError(w, "Invalid ticker symbol", http.StatusBadRequest)
		return
	}

	if err := h.portfolio.RemoveSymbol(r.Context(), id.Email, symbol); err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, models.MessageResponse{
		Message: fmt.Sprintf("All purchases of %s deleted", symbol),
	})
}
