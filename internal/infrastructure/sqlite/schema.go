package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jhoicas/preventa/internal/domain"
	"github.com/jhoicas/preventa/internal/domain/repository"
	"github.com/jhoicas/preventa/pkg/logger"
)

//go:embed schema.yaml
var schemaYAML []byte

// ColumnDef columna declarada. Las columnas que no son clave primaria se crean NOT NULL con DEFAULT.
type ColumnDef struct {
	Name       string  `yaml:"name" json:"name"`
	Type       string  `yaml:"type" json:"type"`
	Default    *string `yaml:"default,omitempty" json:"default,omitempty"` // literal SQL
	PrimaryKey bool    `yaml:"primary_key,omitempty" json:"primary_key,omitempty"`
}

// ForeignKeyDef clave foránea de tabla.
type ForeignKeyDef struct {
	Columns           []string `yaml:"columns" json:"columns"`
	References        string   `yaml:"references" json:"references"`
	ReferencedColumns []string `yaml:"referenced_columns" json:"referenced_columns"`
	OnDelete          string   `yaml:"on_delete,omitempty" json:"on_delete,omitempty"`
}

// TableDef definición declarativa de una tabla.
type TableDef struct {
	Name        string          `yaml:"name" json:"name"`
	Columns     []ColumnDef     `yaml:"columns" json:"columns"`
	Unique      [][]string      `yaml:"unique,omitempty" json:"unique,omitempty"`
	ForeignKeys []ForeignKeyDef `yaml:"foreign_keys,omitempty" json:"foreign_keys,omitempty"`
}

// ColumnInfo fila de PRAGMA table_info.
type ColumnInfo struct {
	CID          int
	Name         string
	Type         string
	NotNull      bool
	DefaultValue sql.NullString
	PrimaryKey   int
}

// SchemaReport resumen de lo que hizo EnsureSchema.
type SchemaReport struct {
	CreatedTables      []string
	AddedColumns       []string // "tabla.columna"
	AppliedMigrations  []int
	ColumnErrors       []error
	Introspected       bool
	FingerprintUpdated bool
}

// Changed indica si la llamada escribió algo en la base.
func (r SchemaReport) Changed() bool {
	return len(r.CreatedTables) > 0 || len(r.AddedColumns) > 0 || len(r.AppliedMigrations) > 0 || r.FingerprintUpdated
}

// SchemaManager crea y evoluciona las tablas de la base local de un tenant.
type SchemaManager struct {
	tables      []TableDef
	migrations  []Migration
	fingerprint string
	log         *logger.Logger
}

// LoadTableDefs parsea un documento YAML con la clave "tables".
func LoadTableDefs(data []byte) ([]TableDef, error) {
	var doc struct {
		Tables []TableDef `yaml:"tables"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse schema yaml: %w", err)
	}
	if len(doc.Tables) == 0 {
		return nil, errors.New("schema yaml sin tablas")
	}
	for _, t := range doc.Tables {
		if t.Name == "" || len(t.Columns) == 0 {
			return nil, fmt.Errorf("tabla inválida en schema yaml: %q", t.Name)
		}
	}
	return doc.Tables, nil
}

// NewSchemaManager construye el gestor con las tablas embebidas y las migraciones del sistema.
func NewSchemaManager(log *logger.Logger) (*SchemaManager, error) {
	tables, err := LoadTableDefs(schemaYAML)
	if err != nil {
		return nil, err
	}
	return NewSchemaManagerFrom(tables, Migrations(), log), nil
}

// NewSchemaManagerFrom construye el gestor con definiciones explícitas (tests, herramientas).
func NewSchemaManagerFrom(tables []TableDef, migrations []Migration, log *logger.Logger) *SchemaManager {
	if log == nil {
		log = logger.Nop()
	}
	return &SchemaManager{
		tables:      tables,
		migrations:  migrations,
		fingerprint: fingerprintOf(tables),
		log:         log.Component("schema"),
	}
}

// Tables definiciones declaradas.
func (s *SchemaManager) Tables() []TableDef { return s.tables }

// Fingerprint SHA-256 de las definiciones canónicas.
func (s *SchemaManager) Fingerprint() string { return s.fingerprint }

// LatestVersion versión de la última migración conocida.
func (s *SchemaManager) LatestVersion() int {
	v := 0
	for _, m := range s.migrations {
		if m.Version > v {
			v = m.Version
		}
	}
	return v
}

// EnsureSchema deja la base con todas las tablas y columnas declaradas y las migraciones aplicadas.
// Un fallo al crear una tabla es fatal (*domain.SchemaError); un fallo al agregar una columna
// se registra en el reporte y no interrumpe las demás.
func (s *SchemaManager) EnsureSchema(ctx context.Context, db *sql.DB) (SchemaReport, error) {
	var report SchemaReport

	existing, err := tableNames(ctx, db)
	if err != nil {
		return report, &domain.SchemaError{Table: "sqlite_master", Err: err}
	}
	created := make(map[string]bool)
	for _, t := range s.tables {
		if existing[t.Name] {
			continue
		}
		if _, err := db.ExecContext(ctx, createTableSQL(t)); err != nil {
			return report, &domain.SchemaError{Table: t.Name, Err: err}
		}
		created[t.Name] = true
		report.CreatedTables = append(report.CreatedTables, t.Name)
	}

	version, err := userVersion(ctx, db)
	if err != nil {
		return report, &domain.SchemaError{Table: "user_version", Err: err}
	}
	stored, err := s.storedFingerprint(ctx, db)
	if err != nil {
		return report, &domain.SchemaError{Table: "config", Err: err}
	}
	if len(created) == 0 && version >= s.LatestVersion() && stored == s.fingerprint {
		return report, nil
	}

	report.Introspected = true
	for _, t := range s.tables {
		if created[t.Name] {
			continue
		}
		s.addMissingColumns(ctx, db, t, &report)
	}

	for _, m := range s.migrations {
		if m.Version <= version {
			continue
		}
		if err := applyMigration(ctx, db, m); err != nil {
			return report, &domain.SchemaError{Table: fmt.Sprintf("migration %d (%s)", m.Version, m.Name), Err: err}
		}
		s.log.Info().Int("version", m.Version).Str("migration", m.Name).Msg("migración aplicada")
		report.AppliedMigrations = append(report.AppliedMigrations, m.Version)
	}

	// Con columnas pendientes no se guarda la huella: el próximo arranque vuelve a introspectar.
	if len(report.ColumnErrors) == 0 && stored != s.fingerprint {
		if err := newConfigRepo(db).Set(ctx, repository.ConfigSchemaFingerprint, s.fingerprint); err != nil {
			return report, &domain.SchemaError{Table: "config", Err: err}
		}
		report.FingerprintUpdated = true
	}
	return report, nil
}

func (s *SchemaManager) addMissingColumns(ctx context.Context, db *sql.DB, t TableDef, report *SchemaReport) {
	cols, err := s.Introspect(ctx, db, t.Name)
	if err != nil {
		s.log.Error().Err(err).Str("table", t.Name).Msg("no se pudo introspectar la tabla")
		report.ColumnErrors = append(report.ColumnErrors, &domain.SchemaError{Table: t.Name, Err: err})
		return
	}
	have := make(map[string]bool, len(cols))
	for _, c := range cols {
		have[strings.ToLower(c.Name)] = true
	}
	for _, c := range t.Columns {
		if c.PrimaryKey || have[strings.ToLower(c.Name)] {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", quoteIdent(t.Name), columnSQL(c))
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			s.log.Error().Err(err).Str("table", t.Name).Str("column", c.Name).Msg("no se pudo agregar la columna")
			report.ColumnErrors = append(report.ColumnErrors, &domain.SchemaError{Table: t.Name, Column: c.Name, Err: err})
			continue
		}
		s.log.Info().Str("table", t.Name).Str("column", c.Name).Msg("columna agregada")
		report.AddedColumns = append(report.AddedColumns, t.Name+"."+c.Name)
	}
}

// Introspect devuelve las columnas actuales de una tabla (vacío si no existe).
func (s *SchemaManager) Introspect(ctx context.Context, q Querier, table string) ([]ColumnInfo, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("table_info %s: %w", table, err)
	}
	defer rows.Close()
	var cols []ColumnInfo
	for rows.Next() {
		var c ColumnInfo
		var notNull int
		if err := rows.Scan(&c.CID, &c.Name, &c.Type, &notNull, &c.DefaultValue, &c.PrimaryKey); err != nil {
			return nil, fmt.Errorf("scan table_info %s: %w", table, err)
		}
		c.NotNull = notNull != 0
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func (s *SchemaManager) storedFingerprint(ctx context.Context, db *sql.DB) (string, error) {
	v, _, err := newConfigRepo(db).Get(ctx, repository.ConfigSchemaFingerprint)
	return v, err
}

func tableNames(ctx context.Context, q Querier) (map[string]bool, error) {
	rows, err := q.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()
	names := make(map[string]bool)
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names[n] = true
	}
	return names, rows.Err()
}

func userVersion(ctx context.Context, q Querier) (int, error) {
	var v int
	if err := q.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("get user_version: %w", err)
	}
	return v, nil
}

func createTableSQL(t TableDef) string {
	parts := make([]string, 0, len(t.Columns)+len(t.Unique)+len(t.ForeignKeys))
	for _, c := range t.Columns {
		parts = append(parts, columnSQL(c))
	}
	for _, u := range t.Unique {
		parts = append(parts, fmt.Sprintf("UNIQUE (%s)", quoteList(u)))
	}
	for _, fk := range t.ForeignKeys {
		clause := fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)", quoteList(fk.Columns), quoteIdent(fk.References), quoteList(fk.ReferencedColumns))
		if fk.OnDelete != "" {
			clause += " ON DELETE " + fk.OnDelete
		}
		parts = append(parts, clause)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", quoteIdent(t.Name), strings.Join(parts, ",\n\t"))
}

func columnSQL(c ColumnDef) string {
	if c.PrimaryKey {
		if strings.EqualFold(c.Type, "INTEGER") {
			return fmt.Sprintf("%s INTEGER PRIMARY KEY AUTOINCREMENT", quoteIdent(c.Name))
		}
		return fmt.Sprintf("%s %s PRIMARY KEY", quoteIdent(c.Name), c.Type)
	}
	return fmt.Sprintf("%s %s NOT NULL DEFAULT %s", quoteIdent(c.Name), c.Type, defaultFor(c))
}

// defaultFor default explícito; si no, '' para tipos textuales y 0 para el resto.
func defaultFor(c ColumnDef) string {
	if c.Default != nil {
		return *c.Default
	}
	if isTextual(c.Type) {
		return "''"
	}
	return "0"
}

func isTextual(typ string) bool {
	t := strings.ToUpper(strings.TrimSpace(typ))
	return strings.Contains(t, "TEXT") || strings.Contains(t, "CHAR") ||
		strings.Contains(t, "CLOB") || strings.HasPrefix(t, "DATE")
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteList(cols []string) string {
	q := make([]string, len(cols))
	for i, c := range cols {
		q[i] = quoteIdent(c)
	}
	return strings.Join(q, ", ")
}

func fingerprintOf(tables []TableDef) string {
	// json.Marshal de structs es determinista: mismo orden de campos y de slices.
	b, _ := json.Marshal(tables)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
