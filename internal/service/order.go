package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/metrics"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
)

type OrderService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
}

type orderEvent struct {
	OrderID uint               `json:"order_id"`
	UserID  uint               `json:"user_id"`
	Items   []models.OrderItem `json:"items"`
	Total   decimal.Decimal    `json:"total"`
}

// Checkout freezes the resolved cart into an order and then empties the cart.
// The two writes are not atomic: if clearing fails the order is kept, the
// cart stays full and the error is returned.
func (s *OrderService) Checkout(ctx context.Context, user *models.User) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "order.checkout", "user_id", user.ID)

	items, err := s.Repo.GetCart(ctx, user.ID)
	if err != nil {
		l.Error("checkout_failed", "reason", "cannot load cart", "error", err)
		return nil, fmt.Errorf("%w: get cart: %v", ErrPersistence, err)
	}
	items = resolved(items)
	if len(items) == 0 {
		l.Warn("checkout_failed", "reason", "empty cart")
		return nil, ErrEmptyCart
	}

	order := &models.Order{
		UserID:    user.ID,
		UserEmail: user.Email,
		Items:     make([]models.OrderItem, 0, len(items)),
	}
	for _, it := range items {
		order.Items = append(order.Items, models.OrderItem{
			Quantity: it.Quantity,
			Product:  it.Product.Snapshot(),
		})
	}

	if err := s.Repo.CreateOrder(ctx, order); err != nil {
		l.Error("checkout_failed", "reason", "cannot save order", "error", err)
		return nil, fmt.Errorf("%w: create order: %v", ErrPersistence, err)
	}

	if err := s.Repo.ClearCart(ctx, user.ID); err != nil {
		metrics.CheckoutIntegrityGaps.Inc()
		l.Error("checkout_cart_clear_failed", "order_id", order.ID, "error", err)
		return order, fmt.Errorf("%w: order %d saved but cart not cleared: %v", ErrPersistence, order.ID, err)
	}

	metrics.OrdersCreated.Inc()
	events.Emit(ctx, s.Events, events.TopicCart, idKey(user.ID), events.New("cart_cleared", cartEvent{UserID: user.ID}))
	events.Emit(ctx, s.Events, events.TopicOrder, idKey(user.ID), events.New("order_created", orderEvent{
		OrderID: order.ID, UserID: user.ID, Items: order.Items, Total: order.Total(),
	}))
	l.Info("order_created", "order_id", order.ID, "lines", len(order.Items))
	return order, nil
}

func (s *OrderService) Orders(ctx context.Context, userID uint) ([]models.Order, error) {
	orders, err := s.Repo.ListOrders(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list orders: %v", ErrPersistence, err)
	}
	return orders, nil
}
