package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CompanyDTO empresa del tenant tal como la entrega el servidor.
type CompanyDTO struct {
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	TradeName    string    `json:"trade_name"`
	TaxID        string    `json:"tax_id"`
	Address      string    `json:"address"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email"`
	Status       string    `json:"status"`
	RegisteredAt time.Time `json:"registered_at"`
}

// ParameterDTO parámetros comerciales y marcas de versión por tipo de catálogo.
type ParameterDTO struct {
	ProductVersion     int64     `json:"product_version"`
	ClientVersion      int64     `json:"client_version"`
	SalespersonVersion int64     `json:"salesperson_version"`
	PaymentTermVersion int64     `json:"payment_term_version"`
	RouteVersion       int64     `json:"route_version"`
	DefaultSalesperson string    `json:"default_salesperson"`
	PriceDecimals      int       `json:"price_decimals"`
	QuantityDecimals   int       `json:"quantity_decimals"`
	Status             string    `json:"status"`
	RegisteredAt       time.Time `json:"registered_at"`
}

// ClientDTO cliente.
type ClientDTO struct {
	Code            string          `json:"code"`
	Name            string          `json:"name"`
	TradeName       string          `json:"trade_name"`
	TaxID           string          `json:"tax_id"`
	Address         string          `json:"address"`
	City            string          `json:"city"`
	State           string          `json:"state"`
	Phone           string          `json:"phone"`
	Email           string          `json:"email"`
	CreditLimit     decimal.Decimal `json:"credit_limit"`
	SalespersonCode string          `json:"salesperson_code"`
	RouteCode       string          `json:"route_code"`
	PaymentTermCode string          `json:"payment_term_code"`
	Status          string          `json:"status"`
	RegisteredAt    time.Time       `json:"registered_at"`
}

// SalespersonDTO vendedor.
type SalespersonDTO struct {
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	RouteCode    string    `json:"route_code"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email"`
	Status       string    `json:"status"`
	RegisteredAt time.Time `json:"registered_at"`
}

// PaymentTermDTO condición de pago.
type PaymentTermDTO struct {
	Code         string          `json:"code"`
	Description  string          `json:"description"`
	SurchargePct decimal.Decimal `json:"surcharge_pct"`
	DiscountPct  decimal.Decimal `json:"discount_pct"`
	Installments int             `json:"installments"`
	Status       string          `json:"status"`
	RegisteredAt time.Time       `json:"registered_at"`
}

// RouteDTO ruta.
type RouteDTO struct {
	Code            string    `json:"code"`
	Description     string    `json:"description"`
	SalespersonCode string    `json:"salesperson_code"`
	Status          string    `json:"status"`
	RegisteredAt    time.Time `json:"registered_at"`
}
