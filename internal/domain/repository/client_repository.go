package repository

import "github.com/jhoicas/preventa/internal/domain/entity"

// ClientRepository define el puerto de persistencia para Client.
type ClientRepository interface {
	CatalogRepository[entity.Client]
}

// SalespersonRepository define el puerto de persistencia para Salesperson.
type SalespersonRepository interface {
	CatalogRepository[entity.Salesperson]
}

// PaymentTermRepository define el puerto de persistencia para PaymentTerm.
type PaymentTermRepository interface {
	CatalogRepository[entity.PaymentTerm]
}

// RouteRepository define el puerto de persistencia para Route.
type RouteRepository interface {
	CatalogRepository[entity.Route]
}
