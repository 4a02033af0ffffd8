package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/util"
)

type CatalogService struct {
	Repo     *repo.GormRepo
	Search   search.Searcher
	PageSize int
}

type ProductPage struct {
	Products []models.Product
	Page     util.Page
}

func (s *CatalogService) pageSize() int {
	if s.PageSize <= 0 {
		return util.DefaultPageSize
	}
	return s.PageSize
}

// Page returns one page of the catalog. page is expected to be clamped already.
func (s *CatalogService) Page(ctx context.Context, page int) (*ProductPage, error) {
	size := s.pageSize()
	offset, limit := util.Calculate(page, size)

	total, items, err := s.Repo.ListProducts(ctx, offset, limit)
	if err != nil {
		logging.FromContext(ctx).Error("list_products_failed", "page", page, "error", err)
		return nil, fmt.Errorf("%w: list products: %v", ErrPersistence, err)
	}
	return &ProductPage{Products: items, Page: util.NewPage(page, size, total)}, nil
}

func (s *CatalogService) Product(ctx context.Context, id uint) (*models.Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get product: %v", ErrPersistence, err)
	}
	return p, nil
}

func (s *CatalogService) SearchProducts(ctx context.Context, q string, page int) (*ProductPage, error) {
	q = strings.TrimSpace(q)
	size := s.pageSize()
	if q == "" {
		return &ProductPage{Page: util.NewPage(page, size, 0)}, nil
	}

	offset, limit := util.Calculate(page, size)
	total, items, err := s.Search.Search(ctx, q, offset, limit)
	if err != nil {
		logging.FromContext(ctx).Error("search_failed", "q", q, "error", err)
		return nil, fmt.Errorf("%w: search: %v", ErrPersistence, err)
	}
	return &ProductPage{Products: items, Page: util.NewPage(page, size, total)}, nil
}
