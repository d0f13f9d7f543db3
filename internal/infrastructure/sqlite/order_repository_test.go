package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/preventa/internal/domain"
	"github.com/jhoicas/preventa/internal/domain/entity"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestOrderRepo_CabeceraLineasYCascada(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)
	h, err := m.Open(ctx, tenant)
	require.NoError(t, err)
	orders := h.Repos().Orders

	issued := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	require.NoError(t, orders.CreateHeader(ctx, &entity.OrderHeader{
		DocumentNumber: 7, ClientCode: "C1", Status: entity.OrderStatusPending, SyncKey: "k-7", IssuedAt: issued,
	}))
	assert.ErrorIs(t, orders.CreateHeader(ctx, &entity.OrderHeader{DocumentNumber: 7, Status: entity.OrderStatusPending}),
		domain.ErrDuplicate)

	line := &entity.OrderLine{DocumentNumber: 7, ProductCode: "P1", Quantity: dec("2"), UnitPrice: dec("10.25")}
	line.Recompute(2)
	require.NoError(t, orders.SaveLine(ctx, line))
	line.Quantity = dec("3")
	line.Recompute(2)
	require.NoError(t, orders.SaveLine(ctx, line), "mismo producto reemplaza la línea")
	require.NoError(t, orders.SaveLine(ctx, &entity.OrderLine{DocumentNumber: 7, ProductCode: "P2", Quantity: dec("1"), UnitPrice: dec("1")}))

	lines, err := orders.ListLines(ctx, 7)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "P1", lines[0].ProductCode)
	assert.True(t, lines[0].LineTotal.Equal(dec("30.75")))

	got, err := orders.GetHeader(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.IssuedAt.Equal(issued))
	assert.Nil(t, got.SentAt)

	pending, err := orders.FindPendingByClient(ctx, "C1")
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, int64(7), pending.DocumentNumber)

	last, err := orders.MaxDocumentNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), last)

	require.NoError(t, orders.DeleteHeader(ctx, 7))
	lines, err = orders.ListLines(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, lines, "ON DELETE CASCADE elimina las líneas")
	assert.ErrorIs(t, orders.DeleteHeader(ctx, 7), domain.ErrNotFound)
}

func TestOrderRepo_MarkSentSoloDesdePendiente(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)
	h, err := m.Open(ctx, tenant)
	require.NoError(t, err)
	orders := h.Repos().Orders

	require.NoError(t, orders.CreateHeader(ctx, &entity.OrderHeader{DocumentNumber: 1, ClientCode: "C1", Status: entity.OrderStatusPending}))
	sentAt := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	require.NoError(t, orders.MarkSent(ctx, 1, sentAt))
	assert.ErrorIs(t, orders.MarkSent(ctx, 1, sentAt), domain.ErrNotFound)

	got, err := orders.GetHeader(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusSent, got.Status)
	require.NotNil(t, got.SentAt)
	assert.True(t, got.SentAt.Equal(sentAt))

	sent, err := orders.ListHeaders(ctx, entity.OrderStatusSent)
	require.NoError(t, err)
	assert.Len(t, sent, 1)
	pending, err := orders.ListHeaders(ctx, entity.OrderStatusPending)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestConfigRepo(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)
	h, err := m.Open(ctx, tenant)
	require.NoError(t, err)
	cfg := h.Repos().Config

	_, ok, err := cfg.Get(ctx, "x")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cfg.Set(ctx, "x", "1"))
	require.NoError(t, cfg.Set(ctx, "x", "2"))
	v, ok, err := cfg.Get(ctx, "x")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2", v)

	require.NoError(t, cfg.Delete(ctx, "x"))
	_, ok, err = cfg.Get(ctx, "x")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCatalogRepos_DecimalesYActualizacion(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)
	h, err := m.Open(ctx, tenant)
	require.NoError(t, err)
	repos := h.Repos()

	c := &entity.Client{Code: "C1", Name: "Mercado Central", CreditLimit: dec("1500.75"), Status: entity.StatusActive}
	require.NoError(t, repos.Clients.Create(ctx, c))
	c.Name = "Mercado Central Ltda"
	require.NoError(t, repos.Clients.Update(ctx, c))

	got, err := repos.Clients.GetByCode(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, "Mercado Central Ltda", got.Name)
	assert.True(t, got.CreditLimit.Equal(dec("1500.75")))

	n, err := repos.Clients.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, repos.PaymentTerms.Create(ctx, &entity.PaymentTerm{Code: "30D", SurchargePct: dec("2.5"), Installments: 1}))
	pt, err := repos.PaymentTerms.GetByCode(ctx, "30D")
	require.NoError(t, err)
	assert.True(t, pt.SurchargePct.Equal(dec("2.5")))

	missing, err := repos.Routes.GetByCode(ctx, "R9")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repos.Parameters.Create(ctx, &entity.Parameter{ProductVersion: 3, PriceDecimals: 2, QuantityDecimals: 3}))
	par, err := repos.Parameters.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), par.ProductVersion)
}
