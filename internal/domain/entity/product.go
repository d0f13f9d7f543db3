package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product producto del catálogo sincronizado desde el servidor central.
// DecimalPlaces = 0 exige cantidades enteras en los pedidos.
type Product struct {
	Tenant         string
	Code           string // único por tenant
	Description    string
	Unit           string
	Price          decimal.Decimal // precio de venta, nunca negativo
	Stock          decimal.Decimal
	DecimalPlaces  int
	MaxDiscountPct decimal.Decimal // techo de descuento por línea (0..100)
	CommissionPct  decimal.Decimal
	Version        int64
	Barcode        string
	Status         string
	RegisteredAt   time.Time
}

// MaxDiscountAmount monto máximo de descuento permitido sobre base.
func (p *Product) MaxDiscountAmount(base decimal.Decimal) decimal.Decimal {
	return base.Mul(p.MaxDiscountPct).Div(decimal.NewFromInt(100))
}
