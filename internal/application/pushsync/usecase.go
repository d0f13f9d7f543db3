// Package pushsync envía al servidor central los pedidos pendientes y los marca como enviados.
package pushsync

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jhoicas/preventa/internal/application/dto"
	"github.com/jhoicas/preventa/internal/application/ports"
	"github.com/jhoicas/preventa/internal/domain"
	"github.com/jhoicas/preventa/internal/domain/entity"
	"github.com/jhoicas/preventa/internal/domain/repository"
	"github.com/jhoicas/preventa/pkg/logger"
	"github.com/jhoicas/preventa/pkg/retry"
)

// Motivos de fallo por pedido.
const (
	ReasonNotFound    = "not_found"
	ReasonAlreadySent = "already_sent"
	ReasonEmptyOrder  = "empty_order"
	ReasonRemote      = "remote_error"
	ReasonLocal       = "local_error"
	ReasonKeyMismatch = "sync_key_mismatch"
)

// Failure pedido que no se pudo enviar o confirmar.
type Failure struct {
	DocumentNumber int64
	Reason         string
	Err            error
}

// Result resultado de Submit. Un pedido fallido no afecta a los demás.
type Result struct {
	Succeeded []int64
	Failed    []Failure
}

// ReconcileResult resultado de Reconcile.
type ReconcileResult struct {
	Confirmed []int64 // el servidor ya los tenía: marcados como enviados
	Pending   []int64 // el servidor no los tiene: siguen pendientes
	Failed    []Failure
}

// UseCase sincronizador de pedidos hacia el servidor.
type UseCase struct {
	store   repository.TenantStore
	gateway ports.OrderGateway
	events  ports.EventPublisher
	policy  retry.Policy
	log     *logger.Logger
	now     func() time.Time
}

// NewUseCase construye el caso de uso. events puede ser nil.
func NewUseCase(store repository.TenantStore, gateway ports.OrderGateway, events ports.EventPublisher,
	policy retry.Policy, log *logger.Logger) *UseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &UseCase{
		store:   store,
		gateway: gateway,
		events:  events,
		policy:  policy,
		log:     log.Component("pushsync").Tenant(store.Tenant()),
		now:     time.Now,
	}
}

// Submit envía los pedidos indicados; sin números envía todos los pendientes.
// Solo devuelve error si no se pudo leer la lista de pendientes o ctx se canceló.
func (uc *UseCase) Submit(ctx context.Context, documentNumbers []int64) (Result, error) {
	var res Result
	if len(documentNumbers) == 0 {
		pending, err := uc.store.Repos().Orders.ListHeaders(ctx, entity.OrderStatusPending)
		if err != nil {
			return res, fmt.Errorf("listar pedidos pendientes: %w", err)
		}
		for _, h := range pending {
			documentNumbers = append(documentNumbers, h.DocumentNumber)
		}
	}

	for _, doc := range documentNumbers {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if reason, err := uc.submitOne(ctx, doc); err != nil {
			res.Failed = append(res.Failed, Failure{DocumentNumber: doc, Reason: reason, Err: err})
			uc.log.Warn().Int64("document_number", doc).Str("reason", reason).Err(err).Msg("pedido no enviado")
			continue
		}
		res.Succeeded = append(res.Succeeded, doc)
	}
	uc.log.Info().Int("succeeded", len(res.Succeeded)).Int("failed", len(res.Failed)).Msg("envío de pedidos completado")
	return res, nil
}

func (uc *UseCase) submitOne(ctx context.Context, doc int64) (string, error) {
	repos := uc.store.Repos()
	header, err := repos.Orders.GetHeader(ctx, doc)
	if err != nil {
		return ReasonLocal, err
	}
	if header == nil {
		return ReasonNotFound, fmt.Errorf("pedido %d: %w", doc, domain.ErrNotFound)
	}
	if header.Status != entity.OrderStatusPending {
		return ReasonAlreadySent, fmt.Errorf("pedido %d: %w", doc, domain.ErrOrderNotEditable)
	}
	lines, err := repos.Orders.ListLines(ctx, doc)
	if err != nil {
		return ReasonLocal, err
	}
	if len(lines) == 0 {
		return ReasonEmptyOrder, domain.NewValidationError("lines", "el pedido %d no tiene líneas", doc)
	}

	key := idempotencyKey(uc.store.Tenant(), header)
	sub := toSubmission(header, lines, key)
	receipt, err := retry.Do(ctx, uc.policy, func(ctx context.Context) (*dto.OrderReceipt, error) {
		return uc.gateway.SubmitOrder(ctx, uc.store.Tenant(), sub, key)
	})
	if err != nil {
		return ReasonRemote, err
	}

	sentAt := uc.now()
	err = uc.store.RunInTx(ctx, func(r repository.Repositories) error {
		return r.Orders.MarkSent(ctx, doc, sentAt)
	})
	if err != nil {
		return ReasonLocal, fmt.Errorf("marcar pedido %d como enviado: %w", doc, err)
	}
	uc.log.Info().Int64("document_number", doc).Str("sync_key", key).Msg("pedido enviado")
	uc.afterSent(ctx, header, receipt)
	return "", nil
}

// afterSent evento y aviso de confirmación. Sus fallos solo se registran.
func (uc *UseCase) afterSent(ctx context.Context, header *entity.OrderHeader, receipt *dto.OrderReceipt) {
	if uc.events != nil {
		payload := map[string]any{
			"document_number": header.DocumentNumber,
			"sync_key":        header.SyncKey,
			"net_total":       header.NetTotal.String(),
		}
		if err := uc.events.Publish(ctx, ports.EventOrderSent, uc.store.Tenant(), payload); err != nil {
			uc.log.Warn().Err(err).Int64("document_number", header.DocumentNumber).Msg("no se pudo publicar order.sent")
		}
	}
	msg := "Pedido " + strconv.FormatInt(header.DocumentNumber, 10) + " recibido"
	if receipt != nil && !receipt.ReceivedAt.IsZero() {
		msg += " el " + receipt.ReceivedAt.Format("2006-01-02 15:04")
	}
	err := uc.gateway.Notify(ctx, uc.store.Tenant(), dto.NotificationRequest{
		Type:           "order_confirmation",
		DocumentNumber: header.DocumentNumber,
		Message:        msg,
	})
	if err != nil {
		uc.log.Warn().Err(err).Int64("document_number", header.DocumentNumber).Msg("aviso de confirmación no enviado")
	}
}

// Reconcile consulta al servidor los pedidos pendientes y marca como enviados los que ya tiene
// con la misma clave de sincronización (respuesta de un envío anterior que se perdió).
func (uc *UseCase) Reconcile(ctx context.Context) (ReconcileResult, error) {
	var res ReconcileResult
	pending, err := uc.store.Repos().Orders.ListHeaders(ctx, entity.OrderStatusPending)
	if err != nil {
		return res, fmt.Errorf("listar pedidos pendientes: %w", err)
	}

	for _, h := range pending {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		receipt, err := retry.Do(ctx, uc.policy, func(ctx context.Context) (*dto.OrderReceipt, error) {
			return uc.gateway.GetOrder(ctx, uc.store.Tenant(), h.DocumentNumber)
		})
		switch {
		case errors.Is(err, domain.ErrNotFound):
			res.Pending = append(res.Pending, h.DocumentNumber)
			continue
		case err != nil:
			res.Failed = append(res.Failed, Failure{DocumentNumber: h.DocumentNumber, Reason: ReasonRemote, Err: err})
			continue
		}

		key := idempotencyKey(uc.store.Tenant(), h)
		if receipt.SyncKey != key {
			res.Failed = append(res.Failed, Failure{
				DocumentNumber: h.DocumentNumber,
				Reason:         ReasonKeyMismatch,
				Err:            fmt.Errorf("pedido %d: el servidor tiene otra clave: %w", h.DocumentNumber, domain.ErrConflict),
			})
			continue
		}

		sentAt := receipt.ReceivedAt
		if sentAt.IsZero() {
			sentAt = uc.now()
		}
		err = uc.store.RunInTx(ctx, func(r repository.Repositories) error {
			return r.Orders.MarkSent(ctx, h.DocumentNumber, sentAt)
		})
		if err != nil {
			res.Failed = append(res.Failed, Failure{DocumentNumber: h.DocumentNumber, Reason: ReasonLocal, Err: err})
			continue
		}
		res.Confirmed = append(res.Confirmed, h.DocumentNumber)
	}
	uc.log.Info().Int("confirmed", len(res.Confirmed)).Int("pending", len(res.Pending)).Int("failed", len(res.Failed)).
		Msg("reconciliación completada")
	return res, nil
}

// idempotencyKey la sync_key del pedido; pedidos anteriores a la columna usan tenant-número.
func idempotencyKey(tenant string, h *entity.OrderHeader) string {
	if h.SyncKey != "" {
		return h.SyncKey
	}
	return tenant + "-" + strconv.FormatInt(h.DocumentNumber, 10)
}

func toSubmission(h *entity.OrderHeader, lines []*entity.OrderLine, key string) dto.OrderSubmission {
	sub := dto.OrderSubmission{
		DocumentNumber:  h.DocumentNumber,
		SyncKey:         key,
		ClientCode:      h.ClientCode,
		SalespersonCode: h.SalespersonCode,
		PaymentTermCode: h.PaymentTermCode,
		IssuedAt:        h.IssuedAt,
		GrossTotal:      h.GrossTotal,
		DiscountTotal:   h.DiscountTotal,
		SurchargeTotal:  h.SurchargeTotal,
		NetTotal:        h.NetTotal,
		ItemCount:       h.ItemCount,
		Observation:     h.Observation,
		Lines:           make([]dto.OrderLineDTO, 0, len(lines)),
	}
	for _, l := range lines {
		sub.Lines = append(sub.Lines, dto.OrderLineDTO{
			ProductCode:     l.ProductCode,
			Description:     l.Description,
			Quantity:        l.Quantity,
			UnitPrice:       l.UnitPrice,
			DiscountPct:     l.DiscountPct,
			DiscountAmount:  l.DiscountAmount,
			SurchargeAmount: l.SurchargeAmount,
			LineTotal:       l.LineTotal,
		})
	}
	return sub
}
