package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
)

type AdminService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
	Index  search.Indexer
}

type ProductInput struct {
	Title       string
	ImageURL    string
	Price       decimal.Decimal
	Description string
}

type productEvent struct {
	ProductID uint            `json:"product_id"`
	OwnerID   uint            `json:"user_id"`
	Title     string          `json:"title,omitempty"`
	Price     decimal.Decimal `json:"price,omitempty"`
}

func (s *AdminService) Products(ctx context.Context, ownerID uint) ([]models.Product, error) {
	items, err := s.Repo.ListProductsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: list products: %v", ErrPersistence, err)
	}
	return items, nil
}

func (s *AdminService) Create(ctx context.Context, ownerID uint, in ProductInput) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "admin.create", "user_id", ownerID)

	p := &models.Product{
		Title:       in.Title,
		Price:       in.Price,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		UserID:      ownerID,
	}
	if err := s.Repo.CreateProduct(ctx, p); err != nil {
		l.Error("create_product_failed", "error", err)
		return nil, fmt.Errorf("%w: create product: %v", ErrPersistence, err)
	}

	s.index(ctx, p)
	events.Emit(ctx, s.Events, events.TopicProduct, idKey(p.ID), events.New("product_created", productEvent{
		ProductID: p.ID, OwnerID: ownerID, Title: p.Title, Price: p.Price,
	}))
	return p, nil
}

// Owned loads a product for editing. A product owned by someone else is
// reported as ErrForbidden, a missing one as ErrNotFound.
func (s *AdminService) Owned(ctx context.Context, id, ownerID uint) (*models.Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get product: %v", ErrPersistence, err)
	}
	if p.UserID != ownerID {
		return nil, fmt.Errorf("product %d: %w", id, ErrForbidden)
	}
	return p, nil
}

func (s *AdminService) Update(ctx context.Context, id, ownerID uint, in ProductInput) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "admin.update", "product_id", id, "user_id", ownerID)

	p, err := s.Owned(ctx, id, ownerID)
	if err != nil {
		l.Warn("edit_product_failed", "error", err)
		return nil, err
	}

	p.Title = in.Title
	p.Price = in.Price
	p.Description = in.Description
	p.ImageURL = in.ImageURL

	if err := s.Repo.UpdateOwnedProduct(ctx, p); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("edit_product_failed", "reason", "product gone or owner changed")
			return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
		}
		l.Error("edit_product_failed", "error", err)
		return nil, fmt.Errorf("%w: update product: %v", ErrPersistence, err)
	}

	s.index(ctx, p)
	events.Emit(ctx, s.Events, events.TopicProduct, idKey(p.ID), events.New("product_updated", productEvent{
		ProductID: p.ID, OwnerID: ownerID, Title: p.Title, Price: p.Price,
	}))
	return p, nil
}

// Delete removes the product together with any cart lines that reference it.
func (s *AdminService) Delete(ctx context.Context, id, ownerID uint) error {
	l := logging.FromContext(ctx).With("svc", "admin.delete", "product_id", id, "user_id", ownerID)

	if _, err := s.Owned(ctx, id, ownerID); err != nil {
		l.Warn("delete_product_failed", "error", err)
		return err
	}

	if err := s.Repo.DeleteOwnedProduct(ctx, id, ownerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("product %d: %w", id, ErrNotFound)
		}
		l.Error("delete_product_failed", "error", err)
		return fmt.Errorf("%w: delete product: %v", ErrPersistence, err)
	}

	if s.Index != nil {
		if err := s.Index.Remove(ctx, id); err != nil {
			l.Warn("search_remove_failed", "error", err)
		}
	}
	events.Emit(ctx, s.Events, events.TopicProduct, idKey(id), events.New("product_deleted", productEvent{
		ProductID: id, OwnerID: ownerID,
	}))
	return nil
}

func (s *AdminService) index(ctx context.Context, p *models.Product) {
	if s.Index == nil {
		return
	}
	if err := s.Index.Index(ctx, p); err != nil {
		logging.FromContext(ctx).Warn("search_index_failed", "product_id", p.ID, "error", err)
	}
}
