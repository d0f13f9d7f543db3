package repository

import "context"

// Repositories conjunto de repositorios de un tenant, atados a la base o a una transacción.
type Repositories struct {
	Companies    CompanyRepository
	Parameters   ParameterRepository
	Products     ProductRepository
	Clients      ClientRepository
	Salespeople  SalespersonRepository
	PaymentTerms PaymentTermRepository
	Routes       RouteRepository
	Users        UserRepository
	Orders       OrderRepository
	Config       ConfigRepository
}

// TenantStore almacén local de un tenant abierto. Lo entrega el gestor de conexiones y se pasa
// explícitamente a cada caso de uso.
type TenantStore interface {
	Tenant() string
	Repos() Repositories
	// RunInTx ejecuta fn con repositorios atados a una transacción: commit si fn devuelve nil,
	// rollback completo en otro caso.
	RunInTx(ctx context.Context, fn func(Repositories) error) error
}
