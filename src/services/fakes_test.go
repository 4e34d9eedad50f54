package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/username/finflow/backend/src/models"
)

// stubLedger serves a fixed set of lots.
type stubLedger struct {
	PurchaseLedger
	lots []models.PurchaseLot
	err  error
}

func (l *stubLedger) ListPurchasesForOwner(ctx context.Context, ownerEmail string) ([]models.PurchaseLot, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.lots, nil
}

type fakeGateway struct {
	mu     sync.Mutex
	quotes map[string]*models.Quote
	errs   map[string]error
	block  map[string]bool
	calls  map[string]int

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	delay       time.Duration
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		quotes: map[string]*models.Quote{},
		errs:   map[string]error{},
		block:  map[string]bool{},
		calls:  map[string]int{},
	}
}

func (g *fakeGateway) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	n := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	for {
		max := g.maxInFlight.Load()
		if n <= max || g.maxInFlight.CompareAndSwap(max, n) {
			break
		}
	}

	g.mu.Lock()
	g.calls[symbol]++
	q, err, block := g.quotes[symbol], g.errs[symbol], g.block[symbol]
	g.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, ErrQuoteUnavailable
	}
	return q, nil
}

func (g *fakeGateway) GetHistory(ctx context.Context, symbol string, lookbackDays int) ([]models.PricePoint, error) {
	q, err := g.GetQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return q.History, nil
}

func history(closes ...float64) []models.PricePoint {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]models.PricePoint, len(closes))
	for i, c := range closes {
		points[i] = models.PricePoint{Date: start.AddDate(0, 0, i), Close: c}
	}
	return points
}

type recordingTransactions struct {
	TransactionService
	mu      sync.Mutex
	records []models.TransactionRecord
	err     error
}

func (r *recordingTransactions) Record(ctx context.Context, rec models.TransactionRecord) (models.TransactionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return models.TransactionRecord{}, r.err
	}
	rec.ID = int64(len(r.records) + 1)
	r.records = append(r.records, rec)
	return rec, nil
}
