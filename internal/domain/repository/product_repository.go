package repository

import "github.com/jhoicas/preventa/internal/domain/entity"

// ProductRepository define el puerto de persistencia para Product (DIP).
type ProductRepository interface {
	CatalogRepository[entity.Product]
}
