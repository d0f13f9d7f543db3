package entity_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/preventa/internal/domain/entity"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestOrderLine_Recompute(t *testing.T) {
	l := &entity.OrderLine{Quantity: d("3"), UnitPrice: d("12.50"), SurchargeAmount: d("1")}
	entity.PercentDiscount(d("10")).ApplyTo(l, 2)

	assert.True(t, l.DiscountAmount.Equal(d("3.75")))
	assert.True(t, l.LineTotal.Equal(d("34.75")), "37.50 - 3.75 + 1")

	// cambiar cantidad re-deriva el descuento porcentual
	l.Quantity = d("2")
	l.Recompute(2)
	assert.True(t, l.DiscountAmount.Equal(d("2.5")))
	assert.True(t, l.LineTotal.Equal(d("23.5")))
}

func TestDiscount_MontoFijoSeConserva(t *testing.T) {
	l := &entity.OrderLine{Quantity: d("4"), UnitPrice: d("5")}
	entity.AmountDiscount(d("1.5")).ApplyTo(l, 2)
	assert.True(t, l.DiscountPct.IsZero())
	assert.True(t, l.LineTotal.Equal(d("18.5")))

	l.Quantity = d("2")
	l.Recompute(2)
	assert.True(t, l.DiscountAmount.Equal(d("1.5")))
	assert.True(t, l.LineTotal.Equal(d("8.5")))
}

func TestDiscount_CeroLimpia(t *testing.T) {
	l := &entity.OrderLine{Quantity: d("1"), UnitPrice: d("10"), DiscountPct: d("5"), DiscountAmount: d("0.5")}
	entity.Discount{}.ApplyTo(l, 2)
	assert.True(t, l.DiscountAmount.IsZero())
	assert.True(t, l.LineTotal.Equal(d("10")))
}

func TestOrderHeader_ApplyTotals(t *testing.T) {
	a := &entity.OrderLine{Quantity: d("2"), UnitPrice: d("10")}
	entity.PercentDiscount(d("10")).ApplyTo(a, 2)
	b := &entity.OrderLine{Quantity: d("1"), UnitPrice: d("5"), SurchargeAmount: d("0.25")}
	b.Recompute(2)

	h := &entity.OrderHeader{Status: entity.OrderStatusPending}
	h.ApplyTotals([]*entity.OrderLine{a, b})

	assert.True(t, h.GrossTotal.Equal(d("25")))
	assert.True(t, h.DiscountTotal.Equal(d("2")))
	assert.True(t, h.SurchargeTotal.Equal(d("0.25")))
	assert.True(t, h.NetTotal.Equal(d("23.25")))
	assert.Equal(t, 2, h.ItemCount)
	assert.True(t, h.IsEditable())
}

func TestProduct_MaxDiscountAmount(t *testing.T) {
	p := &entity.Product{MaxDiscountPct: d("20")}
	assert.True(t, p.MaxDiscountAmount(d("50")).Equal(d("10")))
}
