package pushsync_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/preventa/internal/application/dto"
	"github.com/jhoicas/preventa/internal/application/ordering"
	"github.com/jhoicas/preventa/internal/application/ports"
	"github.com/jhoicas/preventa/internal/application/pushsync"
	"github.com/jhoicas/preventa/internal/domain"
	"github.com/jhoicas/preventa/internal/domain/entity"
	"github.com/jhoicas/preventa/internal/infrastructure/sqlite"
	"github.com/jhoicas/preventa/pkg/logger"
	"github.com/jhoicas/preventa/pkg/retry"
)

const tenant = "12345678000199"

type fakeGateway struct {
	received  map[int64]dto.OrderSubmission
	keys      map[int64]string
	failures  map[int64][]error // errores a devolver en orden por pedido
	calls     map[int64]int
	notified  []int64
	notifyErr error
}

func newGateway() *fakeGateway {
	return &fakeGateway{
		received: map[int64]dto.OrderSubmission{},
		keys:     map[int64]string{},
		failures: map[int64][]error{},
		calls:    map[int64]int{},
	}
}

func (g *fakeGateway) SubmitOrder(_ context.Context, _ string, o dto.OrderSubmission, key string) (*dto.OrderReceipt, error) {
	g.calls[o.DocumentNumber]++
	if errs := g.failures[o.DocumentNumber]; len(errs) > 0 {
		g.failures[o.DocumentNumber] = errs[1:]
		return nil, errs[0]
	}
	g.received[o.DocumentNumber] = o
	g.keys[o.DocumentNumber] = key
	return &dto.OrderReceipt{DocumentNumber: o.DocumentNumber, SyncKey: key, NetTotal: o.NetTotal}, nil
}

func (g *fakeGateway) GetOrder(_ context.Context, _ string, doc int64) (*dto.OrderReceipt, error) {
	o, ok := g.received[doc]
	if !ok {
		return nil, &domain.NetworkError{Op: "get order", StatusCode: 404, Err: domain.ErrNotFound}
	}
	return &dto.OrderReceipt{DocumentNumber: doc, SyncKey: g.keys[doc], NetTotal: o.NetTotal,
		ReceivedAt: time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)}, nil
}

func (g *fakeGateway) Notify(_ context.Context, _ string, req dto.NotificationRequest) error {
	g.notified = append(g.notified, req.DocumentNumber)
	return g.notifyErr
}

type recordingPublisher struct{ events []string }

func (p *recordingPublisher) Publish(_ context.Context, event, _ string, _ any) error {
	p.events = append(p.events, event)
	return nil
}

func fastPolicy() retry.Policy {
	p := retry.Default()
	p.Retryable = domain.IsRetryable
	p.Sleep = func(context.Context, time.Duration) error { return nil }
	return p
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	h       *sqlite.Handle
	orders  *ordering.UseCase
	gateway *fakeGateway
	events  *recordingPublisher
	uc      *pushsync.UseCase
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	schema, err := sqlite.NewSchemaManager(logger.Nop())
	require.NoError(t, err)
	m := sqlite.NewManager(t.TempDir(), schema, logger.Nop())
	t.Cleanup(func() { _ = m.Close() })
	h, err := m.Open(ctx, tenant)
	require.NoError(t, err)

	repos := h.Repos()
	require.NoError(t, repos.Products.Create(ctx, &entity.Product{Code: "P1", Description: "Café", Price: dec("10"), MaxDiscountPct: dec("10")}))
	for _, c := range []string{"C1", "C2", "C3"} {
		require.NoError(t, repos.Clients.Create(ctx, &entity.Client{Code: c, Name: "Cliente " + c}))
	}

	f := &fixture{h: h, orders: ordering.NewUseCase(h, nil), gateway: newGateway(), events: &recordingPublisher{}}
	f.uc = pushsync.NewUseCase(h, f.gateway, f.events, fastPolicy(), logger.Nop())
	return f
}

func (f *fixture) order(t *testing.T, client string, withLine bool) int64 {
	t.Helper()
	ctx := context.Background()
	doc, err := f.orders.NextDocumentNumber(ctx, client)
	require.NoError(t, err)
	if withLine {
		_, err = f.orders.AddLine(ctx, doc, "P1", dec("2"), dec("10"), entity.PercentDiscount(dec("10")), decimal.Zero)
		require.NoError(t, err)
	}
	return doc
}

func TestSubmit_TodosLosPendientes(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	d1 := f.order(t, "C1", true)
	d2 := f.order(t, "C2", true)
	empty := f.order(t, "C3", false)

	res, err := f.uc.Submit(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{d1, d2}, res.Succeeded)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, empty, res.Failed[0].DocumentNumber)
	assert.Equal(t, pushsync.ReasonEmptyOrder, res.Failed[0].Reason)

	header, err := f.h.Repos().Orders.GetHeader(ctx, d1)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusSent, header.Status)
	assert.NotNil(t, header.SentAt)
	assert.Equal(t, header.SyncKey, f.gateway.keys[d1], "la clave de idempotencia es la sync_key")

	sub := f.gateway.received[d1]
	require.Len(t, sub.Lines, 1)
	assert.True(t, sub.NetTotal.Equal(dec("18")))
	assert.True(t, sub.Lines[0].DiscountAmount.Equal(dec("2")))

	assert.Equal(t, []string{ports.EventOrderSent, ports.EventOrderSent}, f.events.events)
	assert.Equal(t, []int64{d1, d2}, f.gateway.notified)

	// Segunda pasada: nada pendiente con líneas.
	res, err = f.uc.Submit(ctx, []int64{d1})
	require.NoError(t, err)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, pushsync.ReasonAlreadySent, res.Failed[0].Reason)
	assert.Equal(t, 1, f.gateway.calls[d1], "un pedido enviado no se reenvía")
}

func TestSubmit_FalloAisladoPorPedido(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	d1 := f.order(t, "C1", true)
	d2 := f.order(t, "C2", true)
	rejected := &domain.NetworkError{Op: "submit order", StatusCode: 400, Err: domain.ErrInvalidInput}
	f.gateway.failures[d1] = []error{rejected}

	res, err := f.uc.Submit(ctx, []int64{d1, d2, 999})
	require.NoError(t, err)
	assert.Equal(t, []int64{d2}, res.Succeeded)
	require.Len(t, res.Failed, 2)
	assert.Equal(t, pushsync.ReasonRemote, res.Failed[0].Reason)
	assert.ErrorIs(t, res.Failed[0].Err, domain.ErrInvalidInput)
	assert.Equal(t, 1, f.gateway.calls[d1], "un 4xx no se reintenta")
	assert.Equal(t, pushsync.ReasonNotFound, res.Failed[1].Reason)

	header, err := f.h.Repos().Orders.GetHeader(ctx, d1)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusPending, header.Status)
}

func TestSubmit_ReintentaErroresTemporales(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	d1 := f.order(t, "C1", true)
	temp := &domain.NetworkError{Op: "submit order", StatusCode: 503, Temporary: true, Err: errors.New("HTTP 503")}
	f.gateway.failures[d1] = []error{temp, temp}
	f.gateway.notifyErr = errors.New("notificaciones caídas")

	res, err := f.uc.Submit(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{d1}, res.Succeeded, "el aviso fallido no afecta el envío")
	assert.Equal(t, 3, f.gateway.calls[d1])

	// Agotados los intentos el último error se devuelve tal cual.
	d2 := f.order(t, "C2", true)
	f.gateway.failures[d2] = []error{temp, temp, temp}
	res, err = f.uc.Submit(ctx, []int64{d2})
	require.NoError(t, err)
	require.Len(t, res.Failed, 1)
	assert.Same(t, temp, res.Failed[0].Err)
	assert.Equal(t, 3, f.gateway.calls[d2])
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	lost := f.order(t, "C1", true)
	missing := f.order(t, "C2", true)
	mismatch := f.order(t, "C3", true)

	// El servidor recibió "lost" pero la respuesta se perdió; "mismatch" lo tiene con otra clave.
	f.gateway.received[lost] = dto.OrderSubmission{DocumentNumber: lost}
	header, err := f.h.Repos().Orders.GetHeader(ctx, lost)
	require.NoError(t, err)
	f.gateway.keys[lost] = header.SyncKey
	f.gateway.received[mismatch] = dto.OrderSubmission{DocumentNumber: mismatch}
	f.gateway.keys[mismatch] = "otra-clave"

	res, err := f.uc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{lost}, res.Confirmed)
	assert.Equal(t, []int64{missing}, res.Pending)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, pushsync.ReasonKeyMismatch, res.Failed[0].Reason)
	assert.ErrorIs(t, res.Failed[0].Err, domain.ErrConflict)

	header, err = f.h.Repos().Orders.GetHeader(ctx, lost)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusSent, header.Status)
	require.NotNil(t, header.SentAt)
	assert.True(t, header.SentAt.Equal(time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)))
	assert.Zero(t, f.gateway.calls[lost], "reconciliar no reenvía")
}
