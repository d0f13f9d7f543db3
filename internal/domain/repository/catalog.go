package repository

import "context"

// CatalogRepository puerto común de las tablas de referencia indexadas por (tenant, code).
// Las implementaciones están atadas a un tenant; GetByCode devuelve (nil, nil) si no existe.
type CatalogRepository[T any] interface {
	GetByCode(ctx context.Context, code string) (*T, error)
	Create(ctx context.Context, item *T) error
	Update(ctx context.Context, item *T) error
	List(ctx context.Context, limit, offset int) ([]*T, error)
	Count(ctx context.Context) (int, error)
}
