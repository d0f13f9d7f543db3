// Package ordering toma pedidos sobre la base local: numeración, líneas, descuentos y totales.
package ordering

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/preventa/internal/domain"
	"github.com/jhoicas/preventa/internal/domain/entity"
	"github.com/jhoicas/preventa/internal/domain/repository"
	"github.com/jhoicas/preventa/pkg/logger"
)

// OrderView cabecera con sus líneas.
type OrderView struct {
	Header *entity.OrderHeader
	Lines  []*entity.OrderLine
}

// UseCase autoría de pedidos. Cada mutación de líneas corre en una transacción que
// termina recalculando los totales de la cabecera.
type UseCase struct {
	store  repository.TenantStore
	log    *logger.Logger
	now    func() time.Time
	newKey func() string
}

// NewUseCase construye el caso de uso sobre la base abierta del tenant.
func NewUseCase(store repository.TenantStore, log *logger.Logger) *UseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &UseCase{
		store:  store,
		log:    log.Component("ordering").Tenant(store.Tenant()),
		now:    time.Now,
		newKey: uuid.NewString,
	}
}

// NextDocumentNumber devuelve el pedido abierto del cliente o reserva un número nuevo
// insertando una cabecera pendiente vacía. El número nuevo es max(contador, mayor existente) + 1,
// así los números de pedidos cancelados no se reutilizan.
func (uc *UseCase) NextDocumentNumber(ctx context.Context, clientCode string) (int64, error) {
	clientCode = strings.TrimSpace(clientCode)
	if clientCode == "" {
		return 0, domain.NewValidationError("client_code", "requerido")
	}

	var number int64
	var reserved bool
	err := uc.store.RunInTx(ctx, func(r repository.Repositories) error {
		pending, err := r.Orders.FindPendingByClient(ctx, clientCode)
		if err != nil {
			return err
		}
		if pending != nil {
			number = pending.DocumentNumber
			return nil
		}

		client, err := r.Clients.GetByCode(ctx, clientCode)
		if err != nil {
			return err
		}
		if client == nil {
			return fmt.Errorf("cliente %s: %w", clientCode, domain.ErrNotFound)
		}
		params, err := parameters(ctx, r, uc.store.Tenant())
		if err != nil {
			return err
		}

		counter, err := lastDocumentNumber(ctx, r)
		if err != nil {
			return err
		}
		highest, err := r.Orders.MaxDocumentNumber(ctx)
		if err != nil {
			return err
		}
		number = max(counter, highest) + 1

		salesperson := client.SalespersonCode
		if salesperson == "" {
			salesperson = params.DefaultSalesperson
		}
		now := uc.now()
		header := &entity.OrderHeader{
			DocumentNumber:  number,
			ClientCode:      client.Code,
			SalespersonCode: salesperson,
			PaymentTermCode: client.PaymentTermCode,
			IssuedAt:        now,
			Status:          entity.OrderStatusPending,
			SyncKey:         uc.newKey(),
			RegisteredAt:    now,
		}
		if err := r.Orders.CreateHeader(ctx, header); err != nil {
			return err
		}
		reserved = true
		return r.Config.Set(ctx, repository.ConfigLastDocumentNumber, strconv.FormatInt(number, 10))
	})
	if err != nil {
		return 0, err
	}
	if reserved {
		uc.log.Info().Int64("document_number", number).Str("client", clientCode).Msg("número de pedido reservado")
	}
	return number, nil
}

// AddLine agrega la línea del producto o reemplaza la existente. unitPrice es el precio pactado;
// surcharge es el recargo en monto. Valida granularidad y techo de descuento antes de escribir.
func (uc *UseCase) AddLine(ctx context.Context, doc int64, productCode string, quantity, unitPrice decimal.Decimal,
	discount entity.Discount, surcharge decimal.Decimal) (*OrderView, error) {
	productCode = strings.TrimSpace(productCode)
	if unitPrice.IsNegative() {
		return nil, domain.NewValidationError("unit_price", "no puede ser negativo")
	}
	if surcharge.IsNegative() {
		return nil, domain.NewValidationError("surcharge", "no puede ser negativo")
	}

	return uc.mutate(ctx, doc, func(r repository.Repositories, header *entity.OrderHeader, params *entity.Parameter) error {
		product, err := r.Products.GetByCode(ctx, productCode)
		if err != nil {
			return err
		}
		if product == nil {
			return fmt.Errorf("producto %s: %w", productCode, domain.ErrNotFound)
		}
		if err := validateQuantity(product, params, quantity); err != nil {
			return err
		}

		line, err := r.Orders.GetLine(ctx, doc, product.Code)
		if err != nil {
			return err
		}
		if line == nil {
			line = &entity.OrderLine{DocumentNumber: doc, ProductCode: product.Code}
		}
		line.Description = product.Description
		line.Quantity = quantity
		line.UnitPrice = unitPrice
		line.SurchargeAmount = surcharge.Round(int32(params.PriceDecimals))

		if err := checkDiscount(product, discount, line.Base()); err != nil {
			return err
		}
		discount.ApplyTo(line, int32(params.PriceDecimals))
		if err := checkTotal(line); err != nil {
			return err
		}
		return r.Orders.SaveLine(ctx, line)
	})
}

// UpdateLineQuantity cambia la cantidad; un descuento porcentual se re-deriva sobre la nueva base.
func (uc *UseCase) UpdateLineQuantity(ctx context.Context, doc int64, productCode string, quantity decimal.Decimal) (*OrderView, error) {
	return uc.mutate(ctx, doc, func(r repository.Repositories, _ *entity.OrderHeader, params *entity.Parameter) error {
		line, product, err := loadLine(ctx, r, doc, productCode)
		if err != nil {
			return err
		}
		if err := validateQuantity(product, params, quantity); err != nil {
			return err
		}
		line.Quantity = quantity
		current := lineDiscount(line)
		if err := checkDiscount(product, current, line.Base()); err != nil {
			return err
		}
		current.ApplyTo(line, int32(params.PriceDecimals))
		if err := checkTotal(line); err != nil {
			return err
		}
		return r.Orders.SaveLine(ctx, line)
	})
}

// ApplyDiscount reemplaza el descuento de la línea. Un descuento en cero lo quita.
func (uc *UseCase) ApplyDiscount(ctx context.Context, doc int64, productCode string, discount entity.Discount) (*OrderView, error) {
	return uc.mutate(ctx, doc, func(r repository.Repositories, _ *entity.OrderHeader, params *entity.Parameter) error {
		line, product, err := loadLine(ctx, r, doc, productCode)
		if err != nil {
			return err
		}
		if err := checkDiscount(product, discount, line.Base()); err != nil {
			return err
		}
		discount.ApplyTo(line, int32(params.PriceDecimals))
		if err := checkTotal(line); err != nil {
			return err
		}
		return r.Orders.SaveLine(ctx, line)
	})
}

// DeleteLine quita la línea. Si era la última el pedido se cancela (cabecera eliminada) y cancelled es true.
func (uc *UseCase) DeleteLine(ctx context.Context, doc int64, productCode string) (cancelled bool, err error) {
	productCode = strings.TrimSpace(productCode)
	err = uc.store.RunInTx(ctx, func(r repository.Repositories) error {
		header, err := editableHeader(ctx, r, doc)
		if err != nil {
			return err
		}
		if err := r.Orders.DeleteLine(ctx, doc, productCode); err != nil {
			return err
		}
		lines, err := r.Orders.ListLines(ctx, doc)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			cancelled = true
			return r.Orders.DeleteHeader(ctx, doc)
		}
		header.ApplyTotals(lines)
		return r.Orders.UpdateHeader(ctx, header)
	})
	if err != nil {
		return false, err
	}
	if cancelled {
		uc.log.Info().Int64("document_number", doc).Msg("pedido cancelado: sin líneas")
	}
	return cancelled, nil
}

// RecomputeTotals recalcula totales y cantidad de ítems de la cabecera a partir de sus líneas.
func (uc *UseCase) RecomputeTotals(ctx context.Context, doc int64) (*entity.OrderHeader, error) {
	view, err := uc.mutate(ctx, doc, func(repository.Repositories, *entity.OrderHeader, *entity.Parameter) error {
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view.Header, nil
}

// SetPaymentTerm cambia la condición de pago del pedido (debe existir localmente).
func (uc *UseCase) SetPaymentTerm(ctx context.Context, doc int64, code string) (*OrderView, error) {
	code = strings.TrimSpace(code)
	return uc.mutate(ctx, doc, func(r repository.Repositories, header *entity.OrderHeader, _ *entity.Parameter) error {
		term, err := r.PaymentTerms.GetByCode(ctx, code)
		if err != nil {
			return err
		}
		if term == nil {
			return fmt.Errorf("condición de pago %s: %w", code, domain.ErrNotFound)
		}
		header.PaymentTermCode = term.Code
		return nil
	})
}

// SetObservation fija la observación libre del pedido.
func (uc *UseCase) SetObservation(ctx context.Context, doc int64, text string) (*OrderView, error) {
	return uc.mutate(ctx, doc, func(_ repository.Repositories, header *entity.OrderHeader, _ *entity.Parameter) error {
		header.Observation = strings.TrimSpace(text)
		return nil
	})
}

// Cancel elimina un pedido pendiente con todas sus líneas.
func (uc *UseCase) Cancel(ctx context.Context, doc int64) error {
	err := uc.store.RunInTx(ctx, func(r repository.Repositories) error {
		if _, err := editableHeader(ctx, r, doc); err != nil {
			return err
		}
		return r.Orders.DeleteHeader(ctx, doc)
	})
	if err != nil {
		return err
	}
	uc.log.Info().Int64("document_number", doc).Msg("pedido cancelado")
	return nil
}

// GetOrder devuelve cabecera y líneas; domain.ErrNotFound si no existe.
func (uc *UseCase) GetOrder(ctx context.Context, doc int64) (*OrderView, error) {
	return loadView(ctx, uc.store.Repos(), doc)
}

// ListOrders cabeceras por estado ("" = todas) en orden de número.
func (uc *UseCase) ListOrders(ctx context.Context, status string) ([]*entity.OrderHeader, error) {
	if status != "" && status != entity.OrderStatusPending && status != entity.OrderStatusSent {
		return nil, domain.NewValidationError("status", "estado desconocido %q", status)
	}
	return uc.store.Repos().Orders.ListHeaders(ctx, status)
}

// mutate ejecuta fn sobre un pedido editable y, en la misma transacción, recalcula y guarda la cabecera.
func (uc *UseCase) mutate(ctx context.Context, doc int64,
	fn func(r repository.Repositories, header *entity.OrderHeader, params *entity.Parameter) error) (*OrderView, error) {
	var view *OrderView
	err := uc.store.RunInTx(ctx, func(r repository.Repositories) error {
		header, err := editableHeader(ctx, r, doc)
		if err != nil {
			return err
		}
		params, err := parameters(ctx, r, uc.store.Tenant())
		if err != nil {
			return err
		}
		if err := fn(r, header, params); err != nil {
			return err
		}
		lines, err := r.Orders.ListLines(ctx, doc)
		if err != nil {
			return err
		}
		header.ApplyTotals(lines)
		if err := r.Orders.UpdateHeader(ctx, header); err != nil {
			return err
		}
		view = &OrderView{Header: header, Lines: lines}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func loadView(ctx context.Context, r repository.Repositories, doc int64) (*OrderView, error) {
	header, err := r.Orders.GetHeader(ctx, doc)
	if err != nil {
		return nil, err
	}
	if header == nil {
		return nil, fmt.Errorf("pedido %d: %w", doc, domain.ErrNotFound)
	}
	lines, err := r.Orders.ListLines(ctx, doc)
	if err != nil {
		return nil, err
	}
	return &OrderView{Header: header, Lines: lines}, nil
}

func editableHeader(ctx context.Context, r repository.Repositories, doc int64) (*entity.OrderHeader, error) {
	header, err := r.Orders.GetHeader(ctx, doc)
	if err != nil {
		return nil, err
	}
	if header == nil {
		return nil, fmt.Errorf("pedido %d: %w", doc, domain.ErrNotFound)
	}
	if !header.IsEditable() {
		return nil, fmt.Errorf("pedido %d (%s): %w", doc, header.Status, domain.ErrOrderNotEditable)
	}
	return header, nil
}

func loadLine(ctx context.Context, r repository.Repositories, doc int64, productCode string) (*entity.OrderLine, *entity.Product, error) {
	productCode = strings.TrimSpace(productCode)
	line, err := r.Orders.GetLine(ctx, doc, productCode)
	if err != nil {
		return nil, nil, err
	}
	if line == nil {
		return nil, nil, fmt.Errorf("línea %s del pedido %d: %w", productCode, doc, domain.ErrNotFound)
	}
	product, err := r.Products.GetByCode(ctx, productCode)
	if err != nil {
		return nil, nil, err
	}
	if product == nil {
		return nil, nil, fmt.Errorf("producto %s: %w", productCode, domain.ErrNotFound)
	}
	return line, product, nil
}

func parameters(ctx context.Context, r repository.Repositories, tenant string) (*entity.Parameter, error) {
	p, err := r.Parameters.Get(ctx)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return entity.DefaultParameter(tenant), nil
	}
	return p, nil
}

func lastDocumentNumber(ctx context.Context, r repository.Repositories) (int64, error) {
	v, ok, err := r.Config.Get(ctx, repository.ConfigLastDocumentNumber)
	if err != nil || !ok {
		return 0, err
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func lineDiscount(l *entity.OrderLine) entity.Discount {
	if l.DiscountPct.IsPositive() {
		return entity.PercentDiscount(l.DiscountPct)
	}
	return entity.AmountDiscount(l.DiscountAmount)
}
