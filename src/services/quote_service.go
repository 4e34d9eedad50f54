package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/username/finflow/backend/src/logger"
	"github.com/username/finflow/backend/src/models"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const yahooUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36"

var crumbPattern = regexp.MustCompile(`"CrumbStore":\{"crumb":"(.*?)"\}`)

// Structs for Yahoo Finance API responses
type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string   `json:"symbol"`
				Currency           string   `json:"currency"`
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
				LongName           string   `json:"longName"`
				ShortName          string   `json:"shortName"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"chart"`
}

type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type yahooRaw struct {
	Raw *float64 `json:"raw"`
}

type yahooSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			SummaryDetail struct {
				DividendRate  yahooRaw `json:"dividendRate"`
				DividendYield yahooRaw `json:"dividendYield"`
				Currency      string   `json:"currency"`
			} `json:"summaryDetail"`
			Price struct {
				LongName  string `json:"longName"`
				ShortName string `json:"shortName"`
				Currency  string `json:"currency"`
			} `json:"price"`
			AssetProfile struct {
				Website string `json:"website"`
			} `json:"assetProfile"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"quoteSummary"`
}

type chartData struct {
	currency string
	price    *float64
	longName string
	history  []models.PricePoint
}

// YahooConfig configures the Yahoo Finance gateway.
type YahooConfig struct {
	BaseURL        string
	SessionURL     string
	RatePerSecond  float64
	RequestTimeout time.Duration
}

// yahooGateway implements QuoteGateway over Yahoo's chart and quoteSummary endpoints.
// The quoteSummary endpoint needs a crumb tied to the session cookies in the jar.
type yahooGateway struct {
	httpClient *http.Client
	baseURL    string
	sessionURL string
	limiter    *rate.Limiter

	mu       sync.Mutex
	crumb    string
	sessions singleflight.Group
}

// NewYahooQuoteGateway builds the gateway. The session crumb is obtained lazily on first use.
func NewYahooQuoteGateway(cfg YahooConfig) QuoteGateway {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		logger.L.Error("Failed to create cookie jar", "error", err)
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	return &yahooGateway{
		httpClient: &http.Client{Jar: jar, Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		sessionURL: cfg.SessionURL,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// GetQuote combines one chart request with one quoteSummary request. Only the
// chart is required; a failing summary leaves the metadata at its defaults.
func (g *yahooGateway) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	chart, err := g.fetchChart(ctx, symbol, url.Values{"range": {"5d"}, "interval": {"1d"}})
	if err != nil {
		return nil, err
	}

	q := &models.Quote{
		Symbol:       symbol,
		History:      chart.history,
		LongName:     chart.longName,
		CurrencyCode: chart.currency,
	}
	switch {
	case chart.price != nil:
		q.CurrentPrice = chart.price
	case len(chart.history) > 0:
		last := chart.history[len(chart.history)-1].Close
		q.CurrentPrice = &last
	default:
		return nil, fmt.Errorf("%w: no price or history for %s", ErrQuoteUnavailable, symbol)
	}

	sctx, cancel := summaryContext(ctx)
	err = g.fillSummary(sctx, symbol, q)
	cancel()
	if err != nil {
		logger.FromContext(ctx).Warn("Yahoo quote summary unavailable, using defaults", "symbol", symbol, "error", err)
	}
	if q.LongName == "" {
		q.LongName = models.UnknownName
	}
	return q, nil
}

// summaryContext gives the metadata lookup half of whatever time ctx has left,
// so a slow quoteSummary still leaves room to return the chart data.
func summaryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Until(deadline)/2)
}

// GetHistory returns daily closes for at most lookbackDays trading days, oldest first.
func (g *yahooGateway) GetHistory(ctx context.Context, symbol string, lookbackDays int) ([]models.PricePoint, error) {
	if lookbackDays < 1 {
		return []models.PricePoint{}, nil
	}
	now := time.Now()
	// Calendar days include weekends and holidays, so ask for a wider window and trim.
	start := now.AddDate(0, 0, -(lookbackDays*2 + 7))
	chart, err := g.fetchChart(ctx, symbol, url.Values{
		"period1":  {strconv.FormatInt(start.Unix(), 10)},
		"period2":  {strconv.FormatInt(now.Unix(), 10)},
		"interval": {"1d"},
	})
	if err != nil {
		return nil, err
	}
	history := chart.history
	if len(history) > lookbackDays {
		history = history[len(history)-lookbackDays:]
	}
	return history, nil
}

func (g *yahooGateway) fetchChart(ctx context.Context, symbol string, params url.Values) (*chartData, error) {
	chartURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", g.baseURL, url.PathEscape(symbol), params.Encode())
	resp, err := g.get(ctx, chartURL)
	if err != nil {
		return nil, fmt.Errorf("failed to call Yahoo chart API for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: yahoo has no chart for %s", ErrQuoteUnavailable, symbol)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("yahoo chart API returned status %d for %s: %s", resp.StatusCode, symbol, string(body))
	}

	var data yahooChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode Yahoo chart response for %s: %w", symbol, err)
	}
	if data.Chart.Error != nil || len(data.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: yahoo chart returned no result for %s", ErrQuoteUnavailable, symbol)
	}

	r := data.Chart.Result[0]
	out := &chartData{
		currency: r.Meta.Currency,
		longName: r.Meta.LongName,
		history:  []models.PricePoint{},
	}
	if out.longName == "" {
		out.longName = r.Meta.ShortName
	}
	if r.Meta.RegularMarketPrice != nil && *r.Meta.RegularMarketPrice > 0 {
		out.price = r.Meta.RegularMarketPrice
	}
	var closes []*float64
	if len(r.Indicators.Quote) > 0 {
		closes = r.Indicators.Quote[0].Close
	}
	for i, c := range closes {
		if c == nil || i >= len(r.Timestamp) {
			continue
		}
		out.history = append(out.history, models.PricePoint{
			Date:  time.Unix(r.Timestamp[i], 0).UTC(),
			Close: *c,
		})
	}
	return out, nil
}

func (g *yahooGateway) fillSummary(ctx context.Context, symbol string, q *models.Quote) error {
	data, err := g.fetchSummary(ctx, symbol, false)
	if err != nil {
		return err
	}
	if data.QuoteSummary.Error != nil || len(data.QuoteSummary.Result) == 0 {
		return errors.New("quote summary returned no result")
	}
	r := data.QuoteSummary.Result[0]
	if r.Price.LongName != "" {
		q.LongName = r.Price.LongName
	} else if q.LongName == "" {
		q.LongName = r.Price.ShortName
	}
	if r.SummaryDetail.DividendRate.Raw != nil {
		q.DividendRate = *r.SummaryDetail.DividendRate.Raw
	}
	if r.SummaryDetail.DividendYield.Raw != nil {
		q.DividendYieldFraction = *r.SummaryDetail.DividendYield.Raw
	}
	if q.CurrencyCode == "" {
		q.CurrencyCode = r.Price.Currency
	}
	q.Website = r.AssetProfile.Website
	return nil
}

func (g *yahooGateway) fetchSummary(ctx context.Context, symbol string, retried bool) (*yahooSummaryResponse, error) {
	crumb, err := g.getCrumb(ctx)
	if err != nil {
		return nil, err
	}
	params := url.Values{"modules": {"summaryDetail,price,assetProfile"}, "crumb": {crumb}}
	summaryURL := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?%s", g.baseURL, url.PathEscape(symbol), params.Encode())
	resp, err := g.get(ctx, summaryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to call Yahoo quoteSummary API for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized && !retried {
		logger.FromContext(ctx).Warn("Yahoo crumb rejected, refreshing session", "symbol", symbol)
		g.resetCrumb()
		return g.fetchSummary(ctx, symbol, true)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo quoteSummary API returned status %d for %s", resp.StatusCode, symbol)
	}
	var data yahooSummaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode Yahoo quoteSummary response for %s: %w", symbol, err)
	}
	return &data, nil
}

// getCrumb returns the cached crumb or joins the single in-flight session bootstrap.
// Callers stop waiting when their own ctx ends; the bootstrap itself is bounded by
// the client timeout.
func (g *yahooGateway) getCrumb(ctx context.Context) (string, error) {
	g.mu.Lock()
	crumb := g.crumb
	g.mu.Unlock()
	if crumb != "" {
		return crumb, nil
	}

	ch := g.sessions.DoChan("crumb", func() (any, error) {
		crumb, err := g.initializeYahooSession(context.WithoutCancel(ctx))
		if err != nil {
			return "", err
		}
		g.mu.Lock()
		g.crumb = crumb
		g.mu.Unlock()
		return crumb, nil
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (g *yahooGateway) resetCrumb() {
	g.mu.Lock()
	g.crumb = ""
	g.mu.Unlock()
}

// initializeYahooSession visits a Yahoo Finance page to collect session cookies and
// the crumb embedded in it, falling back to the getcrumb endpoint.
func (g *yahooGateway) initializeYahooSession(ctx context.Context) (string, error) {
	logger.L.Info("Initializing Yahoo Finance session to get crumb and cookies...")
	resp, err := g.get(ctx, g.sessionURL)
	if err != nil {
		return "", fmt.Errorf("failed to make initial request to Yahoo: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return "", fmt.Errorf("failed to read Yahoo response body: %w", err)
	}

	if matches := crumbPattern.FindSubmatch(body); len(matches) == 2 {
		crumb := string(matches[1])
		if unquoted, err := strconv.Unquote(`"` + crumb + `"`); err == nil {
			crumb = unquoted
		}
		logger.L.Info("Successfully obtained Yahoo Finance crumb.")
		return crumb, nil
	}

	resp, err = g.get(ctx, g.baseURL+"/v1/test/getcrumb")
	if err != nil {
		return "", fmt.Errorf("failed to call Yahoo getcrumb: %w", err)
	}
	defer resp.Body.Close()
	body, err = io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return "", fmt.Errorf("failed to read Yahoo getcrumb response: %w", err)
	}
	crumb := strings.TrimSpace(string(body))
	if resp.StatusCode != http.StatusOK || crumb == "" {
		return "", fmt.Errorf("could not obtain Yahoo crumb (status %d)", resp.StatusCode)
	}
	logger.L.Info("Obtained Yahoo Finance crumb from getcrumb endpoint.")
	return crumb, nil
}

func (g *yahooGateway) get(ctx context.Context, rawURL string) (*http.Response, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	// A valid User-Agent is crucial.
	req.Header.Set("User-Agent", yahooUserAgent)
	return g.httpClient.Do(req)
}
