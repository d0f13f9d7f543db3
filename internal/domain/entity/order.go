package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de un pedido. pending es el único estado editable; sent es terminal.
// Un pedido cancelado no tiene estado: su cabecera y líneas se eliminan.
const (
	OrderStatusPending = "pending"
	OrderStatusSent    = "sent"
)

var hundred = decimal.NewFromInt(100)

// OrderHeader cabecera de un pedido tomado en el dispositivo.
// DocumentNumber es monótono por tenant; SyncKey (UUID) es la clave de idempotencia del envío.
type OrderHeader struct {
	Tenant          string
	DocumentNumber  int64
	ClientCode      string
	SalespersonCode string
	PaymentTermCode string
	IssuedAt        time.Time
	GrossTotal      decimal.Decimal // suma de cantidad × precio
	DiscountTotal   decimal.Decimal
	SurchargeTotal  decimal.Decimal
	NetTotal        decimal.Decimal
	ItemCount       int
	Status          string // pending, sent
	Observation     string
	SyncKey         string
	SentAt          *time.Time // nil mientras no se haya enviado
	RegisteredAt    time.Time
}

// IsEditable solo los pedidos pendientes admiten cambios.
func (h *OrderHeader) IsEditable() bool {
	return h.Status == OrderStatusPending
}

// ApplyTotals recalcula los totales de cabecera a partir de sus líneas.
func (h *OrderHeader) ApplyTotals(lines []*OrderLine) {
	gross, disc, sur, net := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
	for _, l := range lines {
		gross = gross.Add(l.Base())
		disc = disc.Add(l.DiscountAmount)
		sur = sur.Add(l.SurchargeAmount)
		net = net.Add(l.LineTotal)
	}
	h.GrossTotal = gross
	h.DiscountTotal = disc
	h.SurchargeTotal = sur
	h.NetTotal = net
	h.ItemCount = len(lines)
}

// OrderLine línea de pedido. Un producto aparece a lo sumo una vez por pedido.
type OrderLine struct {
	Tenant          string
	DocumentNumber  int64
	ProductCode     string
	Description     string
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	DiscountPct     decimal.Decimal // > 0 si el descuento es porcentual
	DiscountAmount  decimal.Decimal
	SurchargeAmount decimal.Decimal
	LineTotal       decimal.Decimal
	RegisteredAt    time.Time
}

// Base cantidad × precio unitario.
func (l *OrderLine) Base() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice)
}

// Recompute re-deriva el monto de descuento (si es porcentual) y el total de la línea:
// total = cantidad × precio − descuento + recargo, redondeado a places decimales.
func (l *OrderLine) Recompute(places int32) {
	base := l.Base()
	if l.DiscountPct.IsPositive() {
		l.DiscountAmount = base.Mul(l.DiscountPct).Div(hundred).Round(places)
	}
	l.LineTotal = base.Sub(l.DiscountAmount).Add(l.SurchargeAmount).Round(places)
}

// DiscountKind tipo de descuento de línea.
type DiscountKind string

const (
	DiscountPercent DiscountKind = "percent"
	DiscountAmount  DiscountKind = "amount"
)

// Discount descuento de línea, porcentual o por monto. El valor cero equivale a sin descuento.
type Discount struct {
	Kind  DiscountKind
	Value decimal.Decimal
}

// PercentDiscount descuento porcentual (10 = 10 %).
func PercentDiscount(pct decimal.Decimal) Discount {
	return Discount{Kind: DiscountPercent, Value: pct}
}

// AmountDiscount descuento por monto fijo.
func AmountDiscount(amount decimal.Decimal) Discount {
	return Discount{Kind: DiscountAmount, Value: amount}
}

// IsZero sin descuento.
func (d Discount) IsZero() bool {
	return d.Value.IsZero()
}

// ApplyTo fija el descuento en la línea y recalcula su total.
func (d Discount) ApplyTo(l *OrderLine, places int32) {
	switch {
	case d.IsZero():
		l.DiscountPct = decimal.Zero
		l.DiscountAmount = decimal.Zero
	case d.Kind == DiscountPercent:
		l.DiscountPct = d.Value
	default:
		l.DiscountPct = decimal.Zero
		l.DiscountAmount = d.Value.Round(places)
	}
	l.Recompute(places)
}
