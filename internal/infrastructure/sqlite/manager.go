package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jhoicas/preventa/internal/domain"
	"github.com/jhoicas/preventa/internal/domain/repository"
	"github.com/jhoicas/preventa/pkg/logger"
	"github.com/jhoicas/preventa/pkg/taxid"
)

var _ repository.TenantStore = (*Handle)(nil)

// Manager dueño exclusivo de la base abierta. Estados: cerrado -> abierto(tenant) -> cerrado.
// Solo un tenant puede estar abierto a la vez.
type Manager struct {
	dataDir string
	schema  *SchemaManager
	log     *logger.Logger

	mu      sync.Mutex
	current *Handle
}

// NewManager construye el gestor. Las bases viven en <dataDir>/<taxid>.db.
func NewManager(dataDir string, schema *SchemaManager, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.Nop()
	}
	return &Manager{dataDir: dataDir, schema: schema, log: log.Component("sqlite")}
}

// Path ruta del archivo de base del tenant.
func (m *Manager) Path(tenant string) (string, error) {
	_, path, err := m.resolve(tenant)
	return path, err
}

func (m *Manager) resolve(tenant string) (id, path string, err error) {
	id, err = taxid.Normalize(tenant)
	if err != nil {
		return "", "", domain.NewValidationError("tenant", "%v", err)
	}
	return id, filepath.Join(m.dataDir, id+".db"), nil
}

// Exists indica si ya hay un archivo de base para el tenant.
func (m *Manager) Exists(tenant string) bool {
	path, err := m.Path(tenant)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Open abre (o devuelve la ya abierta) base del tenant y asegura su esquema.
// Si hay otro tenant abierto devuelve domain.ErrTenantBusy.
func (m *Manager) Open(ctx context.Context, tenant string) (*Handle, error) {
	return m.open(ctx, tenant, true)
}

// OpenWithoutSchema igual que Open pero sin crear ni evolucionar tablas (diagnóstico).
func (m *Manager) OpenWithoutSchema(ctx context.Context, tenant string) (*Handle, error) {
	return m.open(ctx, tenant, false)
}

func (m *Manager) open(ctx context.Context, tenant string, ensureSchema bool) (*Handle, error) {
	id, path, err := m.resolve(tenant)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		if m.current.tenant != id {
			return nil, fmt.Errorf("abrir %s: %w (abierto: %s)", id, domain.ErrTenantBusy, m.current.tenant)
		}
		if ensureSchema && !m.current.schemaReady {
			if err := m.current.ensureSchema(ctx, m.schema); err != nil {
				return nil, err
			}
		}
		return m.current, nil
	}

	if err := os.MkdirAll(m.dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("crear directorio de datos: %w", err)
	}
	db, err := openDB(ctx, path)
	if err != nil {
		return nil, err
	}
	h := &Handle{tenant: id, path: path, db: db, log: m.log.Tenant(id)}
	if ensureSchema {
		if err := h.ensureSchema(ctx, m.schema); err != nil {
			db.Close()
			return nil, err
		}
	}
	m.current = h
	m.log.Info().Str("tenant", id).Str("path", path).Bool("schema", ensureSchema).Msg("base de tenant abierta")
	return h, nil
}

// openDB abre el archivo con los pragmas del almacén local y una sola conexión.
func openDB(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Una conexión: las sentencias se ejecutan en el orden en que se envían.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", p, err)
		}
	}
	return db, nil
}

// HasTables indica si la base del tenant tiene al menos una tabla de usuario.
// Un archivo inexistente no tiene tablas.
func (m *Manager) HasTables(ctx context.Context, tenant string) (bool, error) {
	path, err := m.Path(tenant)
	if err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasTablesLocked(ctx, path)
}

func (m *Manager) hasTablesLocked(ctx context.Context, path string) (bool, error) {
	if m.current != nil && m.current.path == path {
		return countUserTables(ctx, m.current.db)
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat database: %w", err)
	}
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return false, fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	return countUserTables(ctx, db)
}

func countUserTables(ctx context.Context, q Querier) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count tables: %w", err)
	}
	return n > 0, nil
}

// DeleteIfEmpty borra el archivo del tenant (y sus -wal/-shm) solo si no tiene tablas.
// Si la base estaba abierta se cierra antes de borrar.
func (m *Manager) DeleteIfEmpty(ctx context.Context, tenant string) (bool, error) {
	path, err := m.Path(tenant)
	if err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	has, err := m.hasTablesLocked(ctx, path)
	if err != nil {
		return false, err
	}
	if has {
		return false, nil
	}
	if m.current != nil && m.current.path == path {
		if err := m.closeLocked(); err != nil {
			return false, err
		}
	}
	for _, f := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return false, fmt.Errorf("borrar %s: %w", filepath.Base(f), err)
		}
	}
	m.log.Info().Str("path", path).Msg("base vacía eliminada")
	return true, nil
}

// Close libera la base abierta. Sin base abierta no hace nada.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeLocked()
}

func (m *Manager) closeLocked() error {
	if m.current == nil {
		return nil
	}
	h := m.current
	m.current = nil
	if err := h.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	m.log.Info().Str("tenant", h.tenant).Msg("base de tenant cerrada")
	return nil
}

// Current devuelve la base abierta o domain.ErrNotInitialized.
func (m *Manager) Current() (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, domain.ErrNotInitialized
	}
	return m.current, nil
}

// Handle base abierta de un tenant. Implementa repository.TenantStore.
type Handle struct {
	tenant      string
	path        string
	db          *sql.DB
	log         *logger.Logger
	schemaReady bool
	report      SchemaReport
}

func (h *Handle) ensureSchema(ctx context.Context, schema *SchemaManager) error {
	if schema == nil {
		return errors.New("sqlite: schema manager no configurado")
	}
	report, err := schema.EnsureSchema(ctx, h.db)
	if err != nil {
		return err
	}
	h.report = report
	h.schemaReady = true
	if report.Changed() {
		h.log.Info().
			Strs("created", report.CreatedTables).
			Strs("added_columns", report.AddedColumns).
			Ints("migrations", report.AppliedMigrations).
			Int("column_errors", len(report.ColumnErrors)).
			Msg("esquema actualizado")
	}
	return nil
}

// Tenant tax id normalizado.
func (h *Handle) Tenant() string { return h.tenant }

// Path archivo de la base.
func (h *Handle) Path() string { return h.path }

// DB acceso directo a la base. Preferir Repos o RunInTx.
func (h *Handle) DB() *sql.DB { return h.db }

// SchemaReport resultado del último EnsureSchema sobre esta base.
func (h *Handle) SchemaReport() SchemaReport { return h.report }

// Repos repositorios atados a la base (fuera de transacción).
func (h *Handle) Repos() repository.Repositories {
	return newRepositories(h.db, h.tenant)
}

// RunInTx inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (h *Handle) RunInTx(ctx context.Context, fn func(repository.Repositories) error) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(newRepositories(tx, h.tenant)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func newRepositories(q Querier, tenant string) repository.Repositories {
	return repository.Repositories{
		Companies:    NewCompanyRepository(q, tenant),
		Parameters:   NewParameterRepository(q, tenant),
		Products:     NewProductRepository(q, tenant),
		Clients:      NewClientRepository(q, tenant),
		Salespeople:  NewSalespersonRepository(q, tenant),
		PaymentTerms: NewPaymentTermRepository(q, tenant),
		Routes:       NewRouteRepository(q, tenant),
		Users:        NewUserRepository(q, tenant),
		Orders:       NewOrderRepository(q, tenant),
		Config:       newConfigRepo(q),
	}
}
