package store

import (
	"context"

	"covergate/internal/product/models"
	id "covergate/pkg/domain"
)

// Store is the read boundary to the product catalog.
type Store interface {
	FindByID(ctx context.Context, productID id.ProductID) (*models.Product, error)
	ListAll(ctx context.Context) ([]*models.Product, error)
	Seed(ctx context.Context, product *models.Product) error
}
