package handlers

import (
	"net/http"
	"strconv"

	"github.com/username/finflow/backend/src/models"
	"github.com/username/finflow/backend/src/services"
	"github.com/username/finflow/backend/src/utils"
)

const (
	defaultPage    = 1
	defaultPerPage = 10
)

type TransactionHandler struct {
	transactions services.TransactionService
}

func NewTransactionHandler(transactions services.TransactionService) *TransactionHandler {
	return &TransactionHandler{transactions: transactions}
}

func (h *TransactionHandler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	id, ok := GetIdentityFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}
	page, err := intQuery(r, "page", defaultPage)
	if err != nil {
		utils.SendJSONError(w, "page must be an integer", http.StatusBadRequest)
		return
	}
	perPage, err := intQuery(r, "per_page", defaultPerPage)
	if err != nil {
		utils.SendJSONError(w, "per_page must be an integer", http.StatusBadRequest)
		return
	}

	result, err := h.transactions.List(r.Context(), id.Email, page, perPage)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, result)
}

func (h *TransactionHandler) HandleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	identity, ok := GetIdentityFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, "transaction id must be an integer", http.StatusBadRequest)
		return
	}
	if err := h.transactions.Delete(r.Context(), identity.Email, id); err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, models.MessageResponse{Message: "Transaction deleted"})
}

func intQuery(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
