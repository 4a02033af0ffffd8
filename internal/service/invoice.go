package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/invoice"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/metrics"
	"github.com/Skotchmaster/storefront/internal/repo"
)

type InvoiceService struct {
	Repo  *repo.GormRepo
	Store invoice.Store
}

type RenderedInvoice struct {
	Name  string
	Data  []byte
	Total decimal.Decimal
}

// Render returns the invoice for orderID. Only the order's owner may read it.
// Orders never change after checkout, so a stored copy is served as is; the
// PDF is rendered and stored only when no copy exists yet.
func (s *InvoiceService) Render(ctx context.Context, orderID, userID uint) (*RenderedInvoice, error) {
	l := logging.FromContext(ctx).With("svc", "invoice.render", "order_id", orderID)

	order, err := s.Repo.GetOrder(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		l.Warn("invoice_failed", "status", 404, "reason", "order not found")
		return nil, fmt.Errorf("order %d: %w", orderID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get order: %v", ErrPersistence, err)
	}
	if order.UserID != userID {
		l.Warn("invoice_failed", "status", 403, "reason", "not owner", "user_id", userID)
		return nil, fmt.Errorf("order %d: %w", orderID, ErrForbidden)
	}

	name := invoice.Name(order.ID)
	stored, err := s.Store.Open(ctx, name)
	switch {
	case err == nil:
		return &RenderedInvoice{Name: name, Data: stored, Total: order.Total()}, nil
	case !errors.Is(err, invoice.ErrNotFound):
		l.Warn("invoice_stored_copy_unreadable", "error", err)
	}

	data, err := invoice.Render(order)
	if err != nil {
		l.Error("invoice_failed", "reason", "render", "error", err)
		return nil, fmt.Errorf("render invoice: %w", err)
	}
	if err := s.Store.Save(ctx, name, data); err != nil {
		l.Error("invoice_failed", "reason", "store", "error", err)
		return nil, fmt.Errorf("%w: store invoice: %v", ErrPersistence, err)
	}

	metrics.InvoicesRendered.Inc()
	return &RenderedInvoice{Name: name, Data: data, Total: order.Total()}, nil
}
