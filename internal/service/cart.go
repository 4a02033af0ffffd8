package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
)

type CartService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
}

type cartEvent struct {
	UserID    uint `json:"user_id"`
	ProductID uint `json:"product_id,omitempty"`
	Quantity  uint `json:"quantity,omitempty"`
}

// Cart returns the lines whose product still exists.
func (s *CartService) Cart(ctx context.Context, userID uint) ([]models.CartItem, error) {
	items, err := s.Repo.GetCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: get cart: %v", ErrPersistence, err)
	}
	return resolved(items), nil
}

func resolved(items []models.CartItem) []models.CartItem {
	out := make([]models.CartItem, 0, len(items))
	for _, it := range items {
		if it.Product.ID == 0 {
			continue
		}
		out = append(out, it)
	}
	return out
}

func (s *CartService) AddToCart(ctx context.Context, userID, productID uint) (*models.CartItem, error) {
	l := logging.FromContext(ctx).With("svc", "cart.add", "product_id", productID)

	if _, err := s.Repo.GetProduct(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("add_to_cart_failed", "reason", "product not found")
			return nil, fmt.Errorf("product %d: %w", productID, ErrNotFound)
		}
		return nil, fmt.Errorf("%w: get product: %v", ErrPersistence, err)
	}

	item, err := s.Repo.AddToCart(ctx, userID, productID)
	if err != nil {
		l.Error("add_to_cart_failed", "error", err)
		return nil, fmt.Errorf("%w: add to cart: %v", ErrPersistence, err)
	}

	events.Emit(ctx, s.Events, events.TopicCart, idKey(userID), events.New("cart_item_added", cartEvent{
		UserID: userID, ProductID: productID, Quantity: item.Quantity,
	}))
	return item, nil
}

func (s *CartService) RemoveFromCart(ctx context.Context, userID, productID uint) error {
	if err := s.Repo.RemoveFromCart(ctx, userID, productID); err != nil {
		logging.FromContext(ctx).Error("remove_from_cart_failed", "product_id", productID, "error", err)
		return fmt.Errorf("%w: remove from cart: %v", ErrPersistence, err)
	}

	events.Emit(ctx, s.Events, events.TopicCart, idKey(userID), events.New("cart_item_removed", cartEvent{
		UserID: userID, ProductID: productID,
	}))
	return nil
}

func idKey(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
