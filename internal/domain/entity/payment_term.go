package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentTerm condición de pago (contado, 30/60 días, ...).
type PaymentTerm struct {
	Tenant       string
	Code         string
	Description  string
	SurchargePct decimal.Decimal
	DiscountPct  decimal.Decimal
	Installments int
	Status       string
	RegisteredAt time.Time
}
