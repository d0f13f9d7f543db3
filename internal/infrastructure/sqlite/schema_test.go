package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/preventa/internal/domain"
	"github.com/jhoicas/preventa/internal/domain/repository"
	"github.com/jhoicas/preventa/pkg/logger"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := openDB(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func columnNames(t *testing.T, s *SchemaManager, db *sql.DB, table string) []string {
	t.Helper()
	cols, err := s.Introspect(context.Background(), db, table)
	require.NoError(t, err)
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

func TestLoadTableDefs_Embebido(t *testing.T) {
	tables, err := LoadTableDefs(schemaYAML)
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, tb := range tables {
		names[tb.Name] = true
	}
	for _, want := range []string{"config", "companies", "parameters", "products", "clients", "salespeople",
		"payment_terms", "routes", "users", "orders", "order_lines"} {
		assert.True(t, names[want], "falta la tabla %s", want)
	}
}

func TestEnsureSchema_BaseNuevaEsIdempotente(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	s, err := NewSchemaManager(logger.Nop())
	require.NoError(t, err)

	first, err := s.EnsureSchema(ctx, db)
	require.NoError(t, err)
	assert.True(t, first.Changed())
	assert.Len(t, first.CreatedTables, len(s.Tables()))
	assert.Equal(t, []int{1, 2, 3}, first.AppliedMigrations)
	assert.True(t, first.FingerprintUpdated)

	version, err := userVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, s.LatestVersion(), version)

	second, err := s.EnsureSchema(ctx, db)
	require.NoError(t, err)
	assert.False(t, second.Changed(), "segunda llamada sobre esquema correcto no escribe")
	assert.False(t, second.Introspected, "huella igual: no se introspecta")
}

func TestEnsureSchema_EvolucionSinPerdidaDeDatos(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	// Base de una versión anterior: products con menos columnas y un pedido sin sync_key.
	_, err := db.Exec(`CREATE TABLE products (id INTEGER PRIMARY KEY AUTOINCREMENT, tenant TEXT NOT NULL DEFAULT '',
		code TEXT NOT NULL DEFAULT '', description TEXT NOT NULL DEFAULT '', price DECIMAL NOT NULL DEFAULT 0)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO products (tenant, code, description, price) VALUES ('1', 'P1', 'Café', 10.5)`)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE orders (id INTEGER PRIMARY KEY AUTOINCREMENT, tenant TEXT NOT NULL DEFAULT '',
		document_number INTEGER NOT NULL DEFAULT 0, client_code TEXT NOT NULL DEFAULT '', UNIQUE (tenant, document_number))`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO orders (tenant, document_number, client_code) VALUES ('1', 41, 'C1')`)
	require.NoError(t, err)

	s, err := NewSchemaManager(logger.Nop())
	require.NoError(t, err)
	report, err := s.EnsureSchema(ctx, db)
	require.NoError(t, err)

	assert.Empty(t, report.ColumnErrors)
	assert.NotContains(t, report.CreatedTables, "products")
	assert.Contains(t, report.AddedColumns, "products.unit")
	assert.Contains(t, report.AddedColumns, "products.max_discount_pct")
	assert.Contains(t, report.AddedColumns, "orders.sync_key")
	assert.Contains(t, columnNames(t, s, db, "products"), "barcode")

	p, err := NewProductRepository(db, "1").GetByCode(ctx, "P1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Café", p.Description)
	assert.Equal(t, "10.5", p.Price.String())
	assert.Equal(t, "", p.Unit, "texto nuevo queda en ''")
	assert.True(t, p.MaxDiscountPct.IsZero(), "numérico nuevo queda en 0")
	assert.Equal(t, "active", p.Status, "default explícito")

	o, err := NewOrderRepository(db, "1").GetHeader(ctx, 41)
	require.NoError(t, err)
	require.NotNil(t, o)
	assert.NotEmpty(t, o.SyncKey, "la migración asigna sync_key a pedidos existentes")
	assert.Equal(t, "pending", o.Status)

	counter, ok, err := newConfigRepo(db).Get(ctx, repository.ConfigLastDocumentNumber)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "41", counter)

	again, err := s.EnsureSchema(ctx, db)
	require.NoError(t, err)
	assert.False(t, again.Changed())
}

func TestEnsureSchema_ErrorDeColumnaNoAbortaLasDemas(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	_, err := db.Exec(`CREATE TABLE config (key TEXT PRIMARY KEY, value TEXT NOT NULL DEFAULT '')`)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE items (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL DEFAULT '')`)
	require.NoError(t, err)

	bad := "((("
	tables := []TableDef{
		{Name: "config", Columns: []ColumnDef{{Name: "key", Type: "TEXT", PrimaryKey: true}, {Name: "value", Type: "TEXT"}}},
		{Name: "items", Columns: []ColumnDef{
			{Name: "id", Type: "INTEGER", PrimaryKey: true},
			{Name: "name", Type: "TEXT"},
			{Name: "broken", Type: "TEXT", Default: &bad},
			{Name: "qty", Type: "INTEGER"},
		}},
	}
	s := NewSchemaManagerFrom(tables, nil, logger.Nop())

	report, err := s.EnsureSchema(ctx, db)
	require.NoError(t, err)
	require.Len(t, report.ColumnErrors, 1)
	var se *domain.SchemaError
	require.True(t, errors.As(report.ColumnErrors[0], &se))
	assert.Equal(t, "items", se.Table)
	assert.Equal(t, "broken", se.Column)
	assert.Equal(t, []string{"items.qty"}, report.AddedColumns)
	assert.False(t, report.FingerprintUpdated, "con columnas pendientes no se guarda la huella")

	// El siguiente arranque vuelve a intentarlo.
	again, err := s.EnsureSchema(ctx, db)
	require.NoError(t, err)
	assert.True(t, again.Introspected)
	assert.Len(t, again.ColumnErrors, 1)
}

func TestEnsureSchema_FalloAlCrearTablaEsFatal(t *testing.T) {
	db := openTestDB(t)
	tables := []TableDef{
		{Name: "config", Columns: []ColumnDef{{Name: "key", Type: "TEXT", PrimaryKey: true}, {Name: "value", Type: "TEXT"}}},
		{Name: "dup", Columns: []ColumnDef{{Name: "a", Type: "TEXT"}, {Name: "a", Type: "TEXT"}}},
	}
	s := NewSchemaManagerFrom(tables, nil, logger.Nop())

	_, err := s.EnsureSchema(context.Background(), db)
	var se *domain.SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "dup", se.Table)
}

func TestDefaultFor(t *testing.T) {
	explicit := "'x'"
	cases := []struct {
		col  ColumnDef
		want string
	}{
		{ColumnDef{Type: "TEXT"}, "''"},
		{ColumnDef{Type: "varchar(20)"}, "''"},
		{ColumnDef{Type: "CLOB"}, "''"},
		{ColumnDef{Type: "DATETIME"}, "''"},
		{ColumnDef{Type: "INTEGER"}, "0"},
		{ColumnDef{Type: "DECIMAL"}, "0"},
		{ColumnDef{Type: "TEXT", Default: &explicit}, "'x'"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, defaultFor(c.col), c.col.Type)
	}
}

func TestFingerprint_CambiaConLaDefinicion(t *testing.T) {
	a := []TableDef{{Name: "t", Columns: []ColumnDef{{Name: "a", Type: "TEXT"}}}}
	b := []TableDef{{Name: "t", Columns: []ColumnDef{{Name: "a", Type: "TEXT"}, {Name: "b", Type: "TEXT"}}}}
	assert.Equal(t, fingerprintOf(a), fingerprintOf(a))
	assert.NotEqual(t, fingerprintOf(a), fingerprintOf(b))
}
