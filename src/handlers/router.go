package handlers

import (
	"net/http"

	"github.com/username/finflow/backend/src/logger"
	"github.com/username/finflow/backend/src/models"
	"github.com/username/finflow/backend/src/security"
	"github.com/username/finflow/backend/src/utils"
	"golang.org/x/time/rate"
)

// Router holds everything the HTTP surface needs. OAuth is optional.
type Router struct {
	Auth         *security.AuthService
	Users        *UserHandler
	OAuth        *OAuthHandler
	Portfolio    *PortfolioHandler
	Stocks       *StockHandler
	Transactions *TransactionHandler

	AllowedOrigins []string
	Limiter        *rate.Limiter
}

// Handler builds the route table and wraps it in the global middleware chain:
// rate limit, CORS, then request logging.
func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	withAuth := func(h http.HandlerFunc) http.HandlerFunc { return AuthMiddleware(rt.Auth, h) }

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, http.StatusOK, models.MessageResponse{Message: "FinFlow backend is running"})
	})

	mux.HandleFunc("POST /register", rt.Users.RegisterUserHandler)
	mux.HandleFunc("POST /token", rt.Users.TokenHandler)
	if rt.OAuth != nil {
		mux.HandleFunc("GET /auth/google/login", rt.OAuth.HandleGoogleLogin)
		mux.HandleFunc("GET /auth/google/callback", rt.OAuth.HandleGoogleCallback)
	}

	mux.HandleFunc("POST /portfolio", withAuth(rt.Portfolio.HandleBuy))
	mux.HandleFunc("GET /portfolio", withAuth(rt.Portfolio.HandleGetPortfolio))
	mux.HandleFunc("DELETE /portfolio/{symbol}", withAuth(rt.Portfolio.HandleDeleteSymbol))
	mux.HandleFunc("GET /stockPrice", withAuth(rt.Stocks.HandleStockPrice))
	mux.HandleFunc("GET /searchStocks", withAuth(rt.Stocks.HandleSearchStocks))

	mux.HandleFunc("GET /transactions", withAuth(rt.Transactions.HandleListTransactions))
	mux.HandleFunc("DELETE /transactions/{id}", withAuth(rt.Transactions.HandleDeleteTransaction))

	var handler http.Handler = RequestLogger(mux)
	handler = EnableCORS(rt.AllowedOrigins, handler)
	if rt.Limiter != nil {
		handler = RateLimit(rt.Limiter, handler)
	}
	logger.L.Info("Routes configured", "googleSignIn", rt.OAuth != nil)
	return handler
}
