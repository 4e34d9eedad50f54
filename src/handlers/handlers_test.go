package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/finflow/backend/src/database"
	"github.com/username/finflow/backend/src/docstore"
	"github.com/username/finflow/backend/src/models"
	"github.com/username/finflow/backend/src/security"
	"github.com/username/finflow/backend/src/security/validation"
	"github.com/username/finflow/backend/src/services"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type stubQuotes struct {
	quotes map[string]*models.Quote
}

func (s *stubQuotes) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	if q, ok := s.quotes[symbol]; ok {
		return q, nil
	}
	return nil, fmt.Errorf("%w: %s", services.ErrQuoteUnavailable, symbol)
}

func (s *stubQuotes) GetHistory(ctx context.Context, symbol string, lookbackDays int) ([]models.PricePoint, error) {
	q, err := s.GetQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return q.History, nil
}

type testEnv struct {
	handler http.Handler
	auth    *security.AuthService
	users   *services.UserService
	router  *Router
}

func price(v float64) *float64 { return &v }

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := docstore.NewMemoryStore()
	auth := security.NewAuthService(testSecret, time.Hour)
	v := validation.NewValidator()
	quotes := &stubQuotes{quotes: map[string]*models.Quote{
		"AAPL": {
			Symbol: "AAPL", CurrentPrice: price(150.004), LongName: "Apple Inc.", CurrencyCode: "USD",
			DividendRate: 0.96, DividendYieldFraction: 0.0055, Website: "https://www.apple.com",
			History: []models.PricePoint{
				{Date: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), Close: 140},
				{Date: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), Close: 150},
			},
		},
	}}

	users := services.NewUserService(db, store, auth, &services.MockEmailService{})
	txs := services.NewTransactionService(db)
	portfolio := services.NewPortfolioService(services.NewPurchaseLedger(store), quotes, txs,
		services.PortfolioConfig{QuoteTimeout: time.Second, QuoteConcurrency: 2})

	rt := &Router{
		Auth:           auth,
		Users:          NewUserHandler(users, v),
		Portfolio:      NewPortfolioHandler(portfolio, v),
		Stocks:         NewStockHandler(quotes, services.NewLogoService("https://logo.example.com/%s")),
		Transactions:   NewTransactionHandler(txs),
		AllowedOrigins: []string{"http://localhost:3000"},
	}
	return &testEnv{handler: rt.Handler(), auth: auth, users: users, router: rt}
}

func (e *testEnv) token(t *testing.T, email string) string {
	t.Helper()
	tok, err := e.auth.GenerateToken(models.Identity{UID: "uid-" + email, Email: email})
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(method, target, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestLiveness(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/nope", "", "").Code)
}

func TestPortfolioRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/portfolio", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/portfolio", "", "garbage").Code)

	expired := security.NewAuthService(testSecret, -time.Minute)
	tok, err := expired.GenerateToken(models.Identity{UID: "u", Email: "ann@example.com"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/portfolio", "", tok).Code)

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/stockPrice?ticker=AAPL", "", "").Code)
}

func TestBuyAndAggregate(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "ann@example.com")

	rec := env.do(http.MethodPost, "/portfolio", `{"symbol":"aapl","name":"Apple","currentPrice":100,"currency":"USD","quantity":2}`, tok)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[models.PurchaseResponse](t, rec)
	assert.Equal(t, "AAPL", created.Purchase.Symbol)
	assert.Equal(t, int64(2), created.Purchase.Quantity)
	assert.Equal(t, 100.0, created.Purchase.UnitPrice)
	assert.NotEmpty(t, created.Message)

	rec = env.do(http.MethodPost, "/portfolio", `{"symbol":"AAPL","name":"Apple","currentPrice":130,"currency":"USD","quantity":1}`, tok)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(http.MethodGet, "/portfolio", "", tok)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[models.PortfolioResponse](t, rec)
	require.Len(t, body.Portfolio, 1)
	p := body.Portfolio[0]
	assert.Equal(t, int64(3), p.TotalQuantity)
	assert.Equal(t, 110.0, p.AverageCost)
	assert.Equal(t, 120.0, p.TotalProfit)
	assert.Equal(t, 30.0, p.DailyProfit)
	assert.Equal(t, 0.55, p.DividendYieldPercent)

	// Another user sees nothing.
	rec = env.do(http.MethodGet, "/portfolio", "", env.token(t, "bob@example.com"))
	assert.JSONEq(t, `{"portfolio":[]}`, rec.Body.String())
}

func TestGetPortfolioETag(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "ann@example.com")
	env.do(http.MethodPost, "/portfolio", `{"symbol":"AAPL","currentPrice":100,"currency":"USD","quantity":1}`, tok)

	first := env.do(http.MethodGet, "/portfolio", "", tok)
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/portfolio", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("If-None-Match", etag)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
}

func TestBuyValidation(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "ann@example.com")

	cases := map[string]string{
		"malformed":     `{"symbol":`,
		"zero quantity": `{"symbol":"AAPL","currentPrice":1,"currency":"USD","quantity":0}`,
		"huge quantity": `{"symbol":"AAPL","currentPrice":1,"currency":"USD","quantity":9223372036854775807}`,
		"negative":      `{"symbol":"AAPL","currentPrice":-1,"currency":"USD","quantity":1}`,
		"bad currency":  `{"symbol":"AAPL","currentPrice":1,"currency":"DOLLARS","quantity":1}`,
		"bad symbol":    `{"symbol":"A A","currentPrice":1,"currency":"USD","quantity":1}`,
		"missing":       `{}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := env.do(http.MethodPost, "/portfolio", body, tok)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestBuyRejectsMixedCurrency(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "ann@example.com")
	rec := env.do(http.MethodPost, "/portfolio", `{"symbol":"SAP","currentPrice":120,"currency":"EUR","quantity":1}`, tok)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(http.MethodPost, "/portfolio", `{"symbol":"SAP","currentPrice":130,"currency":"USD","quantity":1}`, tok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "EUR")
}

func TestDeleteUnknownSymbolSucceeds(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "ann@example.com")

	rec := env.do(http.MethodDelete, "/portfolio/GHOST", "", tok)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[models.MessageResponse](t, rec).Message)

	env.do(http.MethodPost, "/portfolio", `{"symbol":"AAPL","currentPrice":100,"currency":"USD","quantity":1}`, tok)
	require.Equal(t, http.StatusOK, env.do(http.MethodDelete, "/portfolio/aapl", "", tok).Code)
	assert.JSONEq(t, `{"portfolio":[]}`, env.do(http.MethodGet, "/portfolio", "", tok).Body.String())
}

func TestTransactions(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "ann@example.com")

	rec := env.do(http.MethodGet, "/transactions?page=0", "", tok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotContains(t, rec.Body.String(), "data")
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/transactions?per_page=0", "", tok).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/transactions?page=x", "", tok).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, fmt.Sprintf("/transactions?page=%d", math.MaxInt), "", tok).Code)

	env.do(http.MethodPost, "/portfolio", `{"symbol":"AAPL","currentPrice":100,"currency":"USD","quantity":2}`, tok)

	rec = env.do(http.MethodGet, "/transactions", "", tok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "ann@example.com")
	page := decode[models.TransactionPage](t, rec)
	assert.Equal(t, 1, page.TotalCount)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.PerPage)
	require.Len(t, page.Data, 1)
	assert.Equal(t, models.TransactionTypeBuy, page.Data[0].TransactionType)

	id := page.Data[0].ID
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodDelete, fmt.Sprintf("/transactions/%d", id), "", env.token(t, "bob@example.com")).Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodDelete, fmt.Sprintf("/transactions/%d", id), "", tok).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodDelete, fmt.Sprintf("/transactions/%d", id), "", tok).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodDelete, "/transactions/abc", "", tok).Code)
}

func TestTransactionsRequireAuthAndAreScoped(t *testing.T) {
	env := newTestEnv(t)
	ann := env.token(t, "ann@example.com")
	require.Equal(t, http.StatusCreated,
		env.do(http.MethodPost, "/portfolio", `{"symbol":"AAPL","currentPrice":100,"currency":"USD","quantity":2}`, ann).Code)

	rec := env.do(http.MethodGet, "/transactions", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotContains(t, rec.Body.String(), "AAPL")
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodDelete, "/transactions/1", "", "").Code)

	rec = env.do(http.MethodGet, "/transactions", "", env.token(t, "bob@example.com"))
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[models.TransactionPage](t, rec)
	assert.Zero(t, page.TotalCount)
	assert.Empty(t, page.Data)
}

func TestStockPrice(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "ann@example.com")

	rec := env.do(http.MethodGet, "/stockPrice?ticker=aapl", "", tok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "150", strings.TrimSpace(rec.Body.String()))

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/stockPrice", "", tok).Code)
	assert.Equal(t, http.StatusInternalServerError, env.do(http.MethodGet, "/stockPrice?ticker=NOPE", "", tok).Code)
}

func TestSearchStocks(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "ann@example.com")

	rec := env.do(http.MethodGet, "/searchStocks?query=AAPL", "", tok)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[models.StockSearchResponse](t, rec)
	assert.Equal(t, models.StockSearchResponse{
		Symbol: "AAPL", LongName: "Apple Inc.", CurrentPrice: 150, Currency: "USD",
		DividendRate: 0.96, DividendYield: 0.55, LogoURL: "https://logo.example.com/apple.com",
	}, got)

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/searchStocks", "", tok).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/searchStocks?query=NOPE", "", tok).Code)
}

func TestRegisterAndToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/register", `{"username":"ann","email":"ann@example.com","password":"s3cret-pass"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reg := decode[models.RegisterResponse](t, rec)
	assert.NotEmpty(t, reg.UserID)

	assert.Equal(t, http.StatusConflict, env.do(http.MethodPost, "/register", `{"username":"ann","email":"x@example.com","password":"s3cret-pass"}`, "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/register", `{"username":"an","email":"nope","password":"short"}`, "").Code)

	rec = env.do(http.MethodPost, "/token", `{"username":"ann","password":"s3cret-pass"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	tok := decode[models.TokenResponse](t, rec)
	assert.Equal(t, "bearer", tok.TokenType)
	assert.Equal(t, int64(3600), tok.ExpiresIn)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/portfolio", "", tok.AccessToken).Code)

	form := url.Values{"username": {"ann@example.com"}, "password": {"s3cret-pass"}}
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	formRec := httptest.NewRecorder()
	env.handler.ServeHTTP(formRec, req)
	assert.Equal(t, http.StatusOK, formRec.Code, formRec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodPost, "/token", `{"username":"ann","password":"wrong-pass"}`, "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/token", `{"username":"ann"}`, "").Code)
}

func TestCORSAndRateLimit(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/portfolio", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	env.router.Limiter = rate.NewLimiter(rate.Every(time.Hour), 1)
	limited := env.router.Handler()
	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, want, rec.Code, "request %d", i)
	}
}

func TestGoogleSignIn(t *testing.T) {
	env := newTestEnv(t)

	google := http.NewServeMux()
	google.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"google-token","token_type":"Bearer","expires_in":3600}`)
	})
	google.HandleFunc("GET /userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer google-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"email":"gina@example.com","verified_email":true}`)
	})
	srv := httptest.NewServer(google)
	t.Cleanup(srv.Close)

	oauthCfg := &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/auth/google/callback",
		Endpoint:     oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"},
	}
	oauthHandler := NewOAuthHandler(oauthCfg, env.users)
	oauthHandler.userInfoURL = srv.URL + "/userinfo"
	env.router.OAuth = oauthHandler
	handler := env.router.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/google/login", nil))
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	state := cookies[0].Value
	assert.Contains(t, rec.Header().Get("Location"), "state="+state)

	bad := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=wrong&code=abc", nil)
	bad.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	good := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state="+state+"&code=abc", nil)
	good.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, good)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tok := decode[models.TokenResponse](t, rec)

	id, err := env.auth.Verify(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "gina@example.com", id.Email)
}
