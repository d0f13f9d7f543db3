package entity

import "time"

// Parameter configuración comercial del tenant (fila única).
// Los campos *Version son marcas de agua del servidor: si no cambian, no hay nada que bajar de ese tipo.
type Parameter struct {
	Tenant             string
	ProductVersion     int64
	ClientVersion      int64
	SalespersonVersion int64
	PaymentTermVersion int64
	RouteVersion       int64
	DefaultSalesperson string
	PriceDecimals      int
	QuantityDecimals   int
	Status             string
	RegisteredAt       time.Time
}

// DefaultParameter valores usados cuando aún no se ha sincronizado la fila de parámetros.
func DefaultParameter(tenant string) *Parameter {
	return &Parameter{Tenant: tenant, PriceDecimals: 2, QuantityDecimals: 3, Status: StatusActive}
}
