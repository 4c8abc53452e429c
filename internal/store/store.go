// Package store is the persistence boundary of the service. Handlers only
// depend on the two narrow repository interfaces below.
package store

import (
	"context"
	"errors"
	"time"

	"salestrack-backend/internal/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

type ProductRepository interface {
	List(ctx context.Context) ([]models.Product, error)
	Get(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) (int64, error)
	SaveDerived(ctx context.Context, id string, stock, quantitySold int) error
}

// SaleRepository is append-only: there is no update or delete.
type SaleRepository interface {
	List(ctx context.Context) ([]models.Sale, error)
	ListRange(ctx context.Context, from, to time.Time) ([]models.Sale, error)
	Create(ctx context.Context, s *models.Sale) error
	CreateBatch(ctx context.Context, sales []models.Sale) error
}
