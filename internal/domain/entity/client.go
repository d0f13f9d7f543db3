package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Client cliente de la ruta del vendedor.
type Client struct {
	Tenant          string
	Code            string
	Name            string
	TradeName       string
	TaxID           string // CNPJ, CPF o NIT
	Address         string
	City            string
	State           string
	Phone           string
	Email           string
	CreditLimit     decimal.Decimal
	SalespersonCode string
	RouteCode       string
	PaymentTermCode string // condición de pago por defecto
	Status          string
	RegisteredAt    time.Time
}
