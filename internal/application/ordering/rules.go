package ordering

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/preventa/internal/domain"
	"github.com/jhoicas/preventa/internal/domain/entity"
)

// validateQuantity cantidad positiva; entera si el producto no admite decimales,
// si no a lo sumo QuantityDecimals dígitos fraccionarios.
func validateQuantity(p *entity.Product, params *entity.Parameter, q decimal.Decimal) error {
	if !q.IsPositive() {
		return domain.NewValidationError("quantity", "debe ser mayor que cero")
	}
	if p.DecimalPlaces == 0 {
		if !q.Equal(q.Truncate(0)) {
			return domain.NewValidationError("quantity", "el producto %s solo admite cantidades enteras", p.Code)
		}
		return nil
	}
	places := int32(params.QuantityDecimals)
	if !q.Equal(q.Truncate(places)) {
		return domain.NewValidationError("quantity", "máximo %d decimales", places)
	}
	return nil
}

// checkDiscount techo de descuento del producto: porcentaje <= MaxDiscountPct,
// monto <= MaxDiscountPct/100 × base.
func checkDiscount(p *entity.Product, d entity.Discount, base decimal.Decimal) error {
	if d.IsZero() {
		return nil
	}
	if d.Value.IsNegative() {
		return domain.NewValidationError("discount", "no puede ser negativo")
	}
	switch d.Kind {
	case entity.DiscountPercent:
		if d.Value.GreaterThan(p.MaxDiscountPct) {
			return domain.NewValidationError("discount", "%s%% supera el máximo de %s%% del producto %s",
				d.Value.String(), p.MaxDiscountPct.String(), p.Code)
		}
	case entity.DiscountAmount:
		limit := p.MaxDiscountAmount(base)
		if d.Value.GreaterThan(limit) {
			return domain.NewValidationError("discount", "%s supera el máximo de %s para el producto %s",
				d.Value.String(), limit.String(), p.Code)
		}
	default:
		return domain.NewValidationError("discount", "tipo desconocido %q", d.Kind)
	}
	return nil
}

func checkTotal(l *entity.OrderLine) error {
	if l.LineTotal.IsNegative() {
		return domain.NewValidationError("line_total", "el total de la línea no puede ser negativo")
	}
	return nil
}
