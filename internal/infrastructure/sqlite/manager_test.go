package sqlite_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/preventa/internal/domain"
	"github.com/jhoicas/preventa/internal/domain/entity"
	"github.com/jhoicas/preventa/internal/domain/repository"
	"github.com/jhoicas/preventa/internal/infrastructure/sqlite"
	"github.com/jhoicas/preventa/pkg/logger"
)

const tenant = "12345678000199"

func newManager(t *testing.T) (*sqlite.Manager, string) {
	t.Helper()
	dir := t.TempDir()
	schema, err := sqlite.NewSchemaManager(logger.Nop())
	require.NoError(t, err)
	m := sqlite.NewManager(dir, schema, logger.Nop())
	t.Cleanup(func() { _ = m.Close() })
	return m, dir
}

func TestManager_CicloDeVida(t *testing.T) {
	ctx := context.Background()
	m, dir := newManager(t)

	_, err := m.Current()
	assert.ErrorIs(t, err, domain.ErrNotInitialized)
	assert.False(t, m.Exists(tenant))

	h, err := m.Open(ctx, "12.345.678/0001-99")
	require.NoError(t, err)
	assert.Equal(t, tenant, h.Tenant())
	assert.Equal(t, filepath.Join(dir, tenant+".db"), h.Path())
	assert.True(t, m.Exists(tenant))

	again, err := m.Open(ctx, tenant)
	require.NoError(t, err)
	assert.Same(t, h, again, "mismo tenant devuelve la base ya abierta")

	cur, err := m.Current()
	require.NoError(t, err)
	assert.Same(t, h, cur)

	_, err = m.Open(ctx, "98765432000100")
	assert.ErrorIs(t, err, domain.ErrTenantBusy)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close(), "Close es idempotente")
	_, err = m.Current()
	assert.ErrorIs(t, err, domain.ErrNotInitialized)

	// Tras cerrar se puede abrir otro tenant.
	other, err := m.Open(ctx, "98765432000100")
	require.NoError(t, err)
	assert.Equal(t, "98765432000100", other.Tenant())
}

func TestManager_TenantInvalido(t *testing.T) {
	m, _ := newManager(t)
	_, err := m.Open(context.Background(), "sin-digitos")
	assert.True(t, domain.IsValidation(err))
}

func TestManager_HasTablesYDeleteIfEmpty(t *testing.T) {
	ctx := context.Background()
	m, dir := newManager(t)

	has, err := m.HasTables(ctx, tenant)
	require.NoError(t, err)
	assert.False(t, has, "sin archivo no hay tablas")

	deleted, err := m.DeleteIfEmpty(ctx, tenant)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = m.OpenWithoutSchema(ctx, tenant)
	require.NoError(t, err)
	assert.True(t, m.Exists(tenant))
	has, err = m.HasTables(ctx, tenant)
	require.NoError(t, err)
	assert.False(t, has)

	deleted, err = m.DeleteIfEmpty(ctx, tenant)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.False(t, m.Exists(tenant))
	_, statErr := os.Stat(filepath.Join(dir, tenant+".db-wal"))
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
	_, err = m.Current()
	assert.ErrorIs(t, err, domain.ErrNotInitialized, "la base se cierra antes de borrarla")

	// Con esquema la base no se borra.
	_, err = m.Open(ctx, tenant)
	require.NoError(t, err)
	has, err = m.HasTables(ctx, tenant)
	require.NoError(t, err)
	assert.True(t, has)
	deleted, err = m.DeleteIfEmpty(ctx, tenant)
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.True(t, m.Exists(tenant))
}

func TestManager_OpenTrasOpenWithoutSchemaCreaTablas(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	h, err := m.OpenWithoutSchema(ctx, tenant)
	require.NoError(t, err)
	h2, err := m.Open(ctx, tenant)
	require.NoError(t, err)
	assert.Same(t, h, h2)
	assert.NotEmpty(t, h2.SchemaReport().CreatedTables)
}

func TestManager_ReabrirNoReescribeEsquema(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	h, err := m.Open(ctx, tenant)
	require.NoError(t, err)
	assert.True(t, h.SchemaReport().Changed())
	require.NoError(t, m.Close())

	h, err = m.Open(ctx, tenant)
	require.NoError(t, err)
	assert.False(t, h.SchemaReport().Changed())
}

func TestHandle_RunInTxRollback(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)
	h, err := m.Open(ctx, tenant)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = h.RunInTx(ctx, func(r repository.Repositories) error {
		require.NoError(t, r.Products.Create(ctx, &entity.Product{Code: "P1", Price: decimal.NewFromInt(10), Status: entity.StatusActive}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	p, err := h.Repos().Products.GetByCode(ctx, "P1")
	require.NoError(t, err)
	assert.Nil(t, p, "la transacción se revierte completa")

	err = h.RunInTx(ctx, func(r repository.Repositories) error {
		return r.Products.Create(ctx, &entity.Product{Code: "P1", Price: decimal.NewFromInt(10), Status: entity.StatusActive})
	})
	require.NoError(t, err)
	p, err = h.Repos().Products.GetByCode(ctx, "P1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, tenant, p.Tenant)
}
