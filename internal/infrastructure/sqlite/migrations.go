package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/jhoicas/preventa/internal/domain/repository"
)

// Migration paso versionado de evolución. Se aplica una sola vez, dentro de una transacción,
// y deja PRAGMA user_version en Version.
type Migration struct {
	Version int
	Name    string
	Up      func(ctx context.Context, tx *sql.Tx) error
}

// Migrations lista ordenada de migraciones del almacén local.
func Migrations() []Migration {
	return []Migration{
		{Version: 1, Name: "indices de pedidos", Up: migrateOrderIndexes},
		{Version: 2, Name: "sync_key en pedidos existentes", Up: migrateBackfillSyncKeys},
		{Version: 3, Name: "contador de numeración desde pedidos existentes", Up: migrateSeedDocumentCounter},
	}
}

func applyMigration(ctx context.Context, db *sql.DB, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if m.Up != nil {
		if err := m.Up(ctx, tx); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func migrateOrderIndexes(ctx context.Context, tx *sql.Tx) error {
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders (tenant, status)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_client ON orders (tenant, client_code, status)`,
	}
	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

// Bases anteriores a sync_key reciben '' al agregar la columna; cada pedido necesita su propia clave.
func migrateBackfillSyncKeys(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM orders WHERE sync_key = ''`)
	if err != nil {
		return fmt.Errorf("select orders without sync_key: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan order id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate orders: %w", err)
	}
	rows.Close()
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `UPDATE orders SET sync_key = ? WHERE id = ?`, uuid.NewString(), id); err != nil {
			return fmt.Errorf("backfill sync_key: %w", err)
		}
	}
	return nil
}

func migrateSeedDocumentCounter(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO config (key, value)
		 SELECT ?, CAST(COALESCE(MAX(document_number), 0) AS TEXT) FROM orders`,
		repository.ConfigLastDocumentNumber,
	)
	if err != nil {
		return fmt.Errorf("seed document counter: %w", err)
	}
	return nil
}
