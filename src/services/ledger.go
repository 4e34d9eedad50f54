package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/username/finflow/backend/src/docstore"
	"github.com/username/finflow/backend/src/logger"
	"github.com/username/finflow/backend/src/models"
	"github.com/username/finflow/backend/src/security/validation"
)

type documentLedger struct {
	store docstore.Store
	now   func() time.Time
}

// NewPurchaseLedger keeps lots under users/{email}/portfolio/{symbol}/purchases/{id}.
func NewPurchaseLedger(store docstore.Store) PurchaseLedger {
	return &documentLedger{store: store, now: time.Now}
}

func portfolioCollection(ownerEmail string) string {
	return docstore.Path("users", ownerEmail, "portfolio")
}

func symbolPath(ownerEmail, symbol string) string {
	return docstore.Path("users", ownerEmail, "portfolio", symbol)
}

func purchasesCollection(ownerEmail, symbol string) string {
	return docstore.Path("users", ownerEmail, "portfolio", symbol, "purchases")
}

// lotID sorts by purchase time; the suffix keeps lots bought in the same instant apart.
func lotID(at time.Time) string {
	return fmt.Sprintf("%019d-%s", at.UnixNano(), uuid.NewString()[:8])
}

func (l *documentLedger) RecordPurchase(ctx context.Context, ownerEmail string, lot models.PurchaseLot) (models.PurchaseLot, error) {
	lot.Symbol = validation.NormalizeSymbol(lot.Symbol)
	lot.OwnerEmail = ownerEmail
	if lot.PurchasedAt.IsZero() {
		lot.PurchasedAt = l.now()
	}
	lot.PurchasedAt = lot.PurchasedAt.UTC()
	if lot.ID == "" {
		lot.ID = lotID(lot.PurchasedAt)
	}

	record := models.SymbolRecord{
		Symbol:    lot.Symbol,
		Name:      lot.Name,
		Currency:  lot.Currency,
		UpdatedAt: lot.PurchasedAt,
	}
	if err := l.store.Set(ctx, symbolPath(ownerEmail, lot.Symbol), record); err != nil {
		return models.PurchaseLot{}, wrapStorage("record symbol", err)
	}
	lotPath := docstore.Path("users", ownerEmail, "portfolio", lot.Symbol, "purchases", lot.ID)
	if err := l.store.Set(ctx, lotPath, lot); err != nil {
		return models.PurchaseLot{}, wrapStorage("record purchase", err)
	}
	logger.FromContext(ctx).Info("Purchase recorded", "symbol", lot.Symbol, "quantity", lot.Quantity, "lotID", lot.ID)
	return lot, nil
}

func (l *documentLedger) ListPurchasesForOwner(ctx context.Context, ownerEmail string) ([]models.PurchaseLot, error) {
	symbols, err := l.store.List(ctx, portfolioCollection(ownerEmail))
	if err != nil {
		return nil, wrapStorage("list symbols", err)
	}
	lots := []models.PurchaseLot{}
	for _, doc := range symbols {
		forSymbol, err := l.ListPurchasesForSymbol(ctx, ownerEmail, doc.ID())
		if err != nil {
			return nil, err
		}
		lots = append(lots, forSymbol...)
	}
	return lots, nil
}

func (l *documentLedger) ListPurchasesForSymbol(ctx context.Context, ownerEmail, symbol string) ([]models.PurchaseLot, error) {
	symbol = validation.NormalizeSymbol(symbol)
	docs, err := l.store.List(ctx, purchasesCollection(ownerEmail, symbol))
	if err != nil {
		return nil, wrapStorage("list purchases", err)
	}
	lots := make([]models.PurchaseLot, 0, len(docs))
	for _, doc := range docs {
		var lot models.PurchaseLot
		if err := doc.Decode(&lot); err != nil {
			logger.FromContext(ctx).Warn("Skipping unreadable purchase document", "path", doc.Path, "error", err)
			continue
		}
		if lot.ID == "" {
			lot.ID = doc.ID()
		}
		if lot.Symbol == "" {
			lot.Symbol = symbol
		}
		lots = append(lots, lot)
	}
	return lots, nil
}

// DeleteAllPurchases removes every lot of the symbol and then the symbol record.
// A symbol that was never bought is a no-op.
func (l *documentLedger) DeleteAllPurchases(ctx context.Context, ownerEmail, symbol string) error {
	symbol = validation.NormalizeSymbol(symbol)
	docs, err := l.store.List(ctx, purchasesCollection(ownerEmail, symbol))
	if err != nil {
		return wrapStorage("list purchases", err)
	}
	for _, doc := range docs {
		if err := l.store.Delete(ctx, doc.Path); err != nil {
			return wrapStorage("delete purchase", err)
		}
	}
	if err := l.store.Delete(ctx, symbolPath(ownerEmail, symbol)); err != nil {
		return wrapStorage("delete symbol", err)
	}
	logger.FromContext(ctx).Info("Purchases deleted", "symbol", symbol, "lots", len(docs))
	return nil
}
