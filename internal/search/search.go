package search

import (
	"context"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
)

type Searcher interface {
	Search(ctx context.Context, q string, offset, limit int) (int64, []models.Product, error)
}

// Indexer keeps a search backend in step with catalog writes.
type Indexer interface {
	Index(ctx context.Context, p *models.Product) error
	Remove(ctx context.Context, id uint) error
}

// Database searches the products table directly and needs no indexing.
type Database struct {
	Repo *repo.GormRepo
}

func (d *Database) Search(ctx context.Context, q string, offset, limit int) (int64, []models.Product, error) {
	return d.Repo.SearchProducts(ctx, q, offset, limit)
}

func (d *Database) Index(context.Context, *models.Product) error { return nil }
func (d *Database) Remove(context.Context, uint) error           { return nil }
