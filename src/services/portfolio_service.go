package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/finflow/backend/src/logger"
	"github.com/username/finflow/backend/src/models"
	"github.com/username/finflow/backend/src/security/validation"
	"github.com/username/finflow/backend/src/utils"
	"golang.org/x/sync/errgroup"
)

// PortfolioConfig bounds the per-symbol quote fan-out.
type PortfolioConfig struct {
	QuoteTimeout     time.Duration
	QuoteConcurrency int
}

type portfolioServiceImpl struct {
	ledger       PurchaseLedger
	quotes       QuoteGateway
	transactions TransactionService
	cfg          PortfolioConfig
	now          func() time.Time
}

// NewPortfolioService wires the aggregator. transactions may be nil, in which case
// buys are not mirrored into the transaction log.
func NewPortfolioService(ledger PurchaseLedger, quotes QuoteGateway, transactions TransactionService, cfg PortfolioConfig) PortfolioService {
	if cfg.QuoteConcurrency < 1 {
		cfg.QuoteConcurrency = 1
	}
	if cfg.QuoteTimeout <= 0 {
		cfg.QuoteTimeout = 5 * time.Second
	}
	return &portfolioServiceImpl{
		ledger:       ledger,
		quotes:       quotes,
		transactions: transactions,
		cfg:          cfg,
		now:          time.Now,
	}
}

// Buy records one lot for the caller. A symbol keeps the currency of its first lot.
func (s *portfolioServiceImpl) Buy(ctx context.Context, id models.Identity, req models.PurchaseRequest) (models.PurchaseLot, error) {
	symbol := validation.NormalizeSymbol(req.Symbol)
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))

	existing, err := s.ledger.ListPurchasesForSymbol(ctx, id.Email, symbol)
	if err != nil {
		return models.PurchaseLot{}, err
	}
	for _, lot := range existing {
		if !strings.EqualFold(lot.Currency, currency) {
			return models.PurchaseLot{}, NewValidationError(fmt.Sprintf(
				"%s is already held in %s; cannot add a lot in %s", symbol, strings.ToUpper(lot.Currency), currency))
		}
	}

	lot, err := s.ledger.RecordPurchase(ctx, id.Email, models.PurchaseLot{
		Symbol:      symbol,
		Name:        validation.CleanName(req.Name),
		Quantity:    req.Quantity,
		UnitPrice:   decimal.NewFromFloat(req.CurrentPrice),
		Currency:    currency,
		PurchasedAt: s.now(),
	})
	if err != nil {
		return models.PurchaseLot{}, err
	}

	if s.transactions != nil {
		_, err := s.transactions.Record(ctx, models.TransactionRecord{
			OwnerEmail:      id.Email,
			Symbol:          lot.Symbol,
			TransactionType: models.TransactionTypeBuy,
			Quantity:        lot.Quantity,
			Price:           lot.UnitPrice,
			Currency:        lot.Currency,
			CreatedAt:       lot.PurchasedAt,
		})
		if err != nil {
			logger.FromContext(ctx).Warn("Failed to mirror purchase into transaction log", "symbol", lot.Symbol, "error", err)
		}
	}
	return lot, nil
}

func (s *portfolioServiceImpl) RemoveSymbol(ctx context.Context, ownerEmail, symbol string) error {
	return s.ledger.DeleteAllPurchases(ctx, ownerEmail, symbol)
}

// holding is the running fold of one symbol's lots.
type holding struct {
	symbol        string
	name          string
	totalQuantity int64
	totalCost     decimal.Decimal
	currency      string
	latest        models.PurchaseLot
	named         *models.PurchaseLot
}

// groupLots folds lots per uppercased symbol and drops symbols whose quantity
// does not net above zero. The result is sorted by symbol.
func groupLots(lots []models.PurchaseLot) []*holding {
	bySymbol := make(map[string]*holding)
	for _, lot := range lots {
		symbol := validation.NormalizeSymbol(lot.Symbol)
		h, ok := bySymbol[symbol]
		if !ok {
			h = &holding{symbol: symbol, totalCost: decimal.Zero}
			bySymbol[symbol] = h
		}
		h.totalQuantity += lot.Quantity
		h.totalCost = h.totalCost.Add(lot.Cost())
		if !ok || isLater(lot, h.latest) {
			h.latest = lot
			h.currency = strings.ToUpper(lot.Currency)
		}
		if name := validation.CleanName(lot.Name); name != "" && (h.named == nil || isLater(lot, *h.named)) {
			named := lot
			h.named = &named
			h.name = name
		}
	}

	holdings := make([]*holding, 0, len(bySymbol))
	for _, h := range bySymbol {
		if h.totalQuantity <= 0 {
			continue
		}
		holdings = append(holdings, h)
	}
	sort.Slice(holdings, func(i, j int) bool { return holdings[i].symbol < holdings[j].symbol })
	return holdings
}

func isLater(a, b models.PurchaseLot) bool {
	if !a.PurchasedAt.Equal(b.PurchasedAt) {
		return a.PurchasedAt.After(b.PurchasedAt)
	}
	return a.ID > b.ID
}

// ComputePortfolio folds the owner's lots into positions priced against live quotes.
// A symbol whose quote fails or times out is valued at its cost basis instead of
// failing the whole call. Only a ledger failure or cancellation of ctx is returned.
func (s *portfolioServiceImpl) ComputePortfolio(ctx context.Context, ownerEmail string) ([]models.Position, error) {
	lots, err := s.ledger.ListPurchasesForOwner(ctx, ownerEmail)
	if err != nil {
		return nil, err
	}
	holdings := groupLots(lots)
	positions := make([]models.Position, len(holdings))
	if len(holdings) == 0 {
		return positions, nil
	}

	g := new(errgroup.Group)
	g.SetLimit(s.cfg.QuoteConcurrency)
	for i, h := range holdings {
		g.Go(func() error {
			positions[i] = buildPosition(h, s.fetchQuote(ctx, h.symbol))
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return positions, nil
}

func (s *portfolioServiceImpl) fetchQuote(ctx context.Context, symbol string) *models.Quote {
	if ctx.Err() != nil {
		return nil
	}
	qctx, cancel := context.WithTimeout(ctx, s.cfg.QuoteTimeout)
	defer cancel()
	quote, err := s.quotes.GetQuote(qctx, symbol)
	if err != nil {
		logger.FromContext(ctx).Warn("Quote unavailable, valuing position at cost basis", "symbol", symbol, "error", err)
		return nil
	}
	return quote
}

// buildPosition prices one holding. With fewer than two closes the position is
// valued at its average cost, so both profits are zero.
func buildPosition(h *holding, q *models.Quote) models.Position {
	qty := decimal.NewFromInt(h.totalQuantity)
	averageCost := h.totalCost.Div(qty)

	current, previous := averageCost, averageCost
	status := models.PriceStatusDegraded
	if q != nil && len(q.History) >= 2 {
		current = decimal.NewFromFloat(q.History[len(q.History)-1].Close)
		previous = decimal.NewFromFloat(q.History[len(q.History)-2].Close)
		status = models.PriceStatusLive
	}

	name := h.symbol
	if h.name != "" {
		name = h.name
	}
	dividendRate, dividendYield := decimal.Zero, decimal.Zero
	if q != nil {
		if q.LongName != "" && q.LongName != models.UnknownName {
			name = q.LongName
		}
		dividendRate = decimal.NewFromFloat(q.DividendRate)
		dividendYield = decimal.NewFromFloat(q.DividendYieldFraction).Mul(decimal.NewFromInt(100))
	}

	return models.Position{
		Symbol:               h.symbol,
		Name:                 name,
		TotalQuantity:        h.totalQuantity,
		TotalCost:            utils.RoundMoney(h.totalCost),
		AverageCost:          utils.RoundMoney(averageCost),
		CurrentPrice:         utils.RoundMoney(current),
		PreviousClose:        utils.RoundMoney(previous),
		MarketValue:          utils.RoundMoney(current.Mul(qty)),
		Currency:             h.currency,
		DividendRate:         utils.RoundMoney(dividendRate),
		DividendYieldPercent: utils.RoundMoney(dividendYield),
		TotalProfit:          utils.RoundMoney(current.Sub(averageCost).Mul(qty)),
		DailyProfit:          utils.RoundMoney(current.Sub(previous).Mul(qty)),
		PriceStatus:          status,
	}
}
