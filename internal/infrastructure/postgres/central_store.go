package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/preventa/internal/application/central"
	"github.com/jhoicas/preventa/internal/application/dto"
)

var _ central.Store = (*CentralStore)(nil)

const centralSchema = `
CREATE TABLE IF NOT EXISTS catalog_documents (
	tenant     TEXT        NOT NULL,
	resource   TEXT        NOT NULL,
	key        TEXT        NOT NULL,
	payload    JSONB       NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (tenant, resource, key)
);
CREATE TABLE IF NOT EXISTS received_orders (
	tenant          TEXT          NOT NULL,
	document_number BIGINT        NOT NULL,
	sync_key        TEXT          NOT NULL,
	net_total       NUMERIC(18,4) NOT NULL DEFAULT 0,
	payload         JSONB         NOT NULL,
	received_at     TIMESTAMPTZ   NOT NULL,
	PRIMARY KEY (tenant, document_number)
);
CREATE TABLE IF NOT EXISTS notification_requests (
	id              UUID        PRIMARY KEY,
	tenant          TEXT        NOT NULL,
	type            TEXT        NOT NULL,
	document_number BIGINT      NOT NULL DEFAULT 0,
	message         TEXT        NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL
);`

// CentralStore implementación de central.Store sobre PostgreSQL.
type CentralStore struct {
	pool *pgxpool.Pool
	tx   *TxRunner
}

// NewCentralStore construye el almacén con el pool.
func NewCentralStore(pool *pgxpool.Pool) *CentralStore {
	return &CentralStore{pool: pool, tx: NewTxRunner(pool)}
}

// Migrate crea las tablas si no existen.
func (s *CentralStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, centralSchema); err != nil {
		return fmt.Errorf("migrate central schema: %w", err)
	}
	return nil
}

// PutDocuments inserta o reemplaza los documentos en una transacción.
func (s *CentralStore) PutDocuments(ctx context.Context, tenant, resource string, docs map[string][]byte) error {
	return s.tx.Run(ctx, func(q Querier) error {
		for key, raw := range docs {
			_, err := q.Exec(ctx, `
				INSERT INTO catalog_documents (tenant, resource, key, payload, updated_at)
				VALUES ($1, $2, $3, $4, now())
				ON CONFLICT (tenant, resource, key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`,
				tenant, resource, key, string(raw))
			if err != nil {
				return fmt.Errorf("upsert %s/%s: %w", resource, key, err)
			}
		}
		return nil
	})
}

func (s *CentralStore) GetDocument(ctx context.Context, tenant, resource, key string) ([]byte, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload::text FROM catalog_documents WHERE tenant = $1 AND resource = $2 AND key = $3`,
		tenant, resource, key).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return raw, nil
}

func (s *CentralStore) ListDocuments(ctx context.Context, tenant, resource string, offset, limit int) ([][]byte, error) {
	var lim any // NULL = sin límite
	if limit > 0 {
		lim = limit
	}
	query := `SELECT payload::text FROM catalog_documents WHERE tenant = $1 AND resource = $2
		ORDER BY key LIMIT $3 OFFSET $4`
	args := []any{tenant, resource, lim, offset}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()
	out := [][]byte{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, raw)
	}
	return out, rows.Err()
}

func (s *CentralStore) CountDocuments(ctx context.Context, tenant, resource string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM catalog_documents WHERE tenant = $1 AND resource = $2`, tenant, resource).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// InsertOrder inserta el pedido; si el número ya existe devuelve el guardado.
func (s *CentralStore) InsertOrder(ctx context.Context, tenant string, o central.StoredOrder) (*central.StoredOrder, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO received_orders (tenant, document_number, sync_key, net_total, payload, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		tenant, o.DocumentNumber, o.SyncKey, o.NetTotal, string(o.Payload), o.ReceivedAt)
	if err == nil {
		return nil, nil
	}
	if !isUniqueViolation(err) {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	existing, err := getOrder(ctx, s.pool, tenant, o.DocumentNumber)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("insert order %d: duplicado sin fila visible", o.DocumentNumber)
	}
	return existing, nil
}

func (s *CentralStore) GetOrder(ctx context.Context, tenant string, documentNumber int64) (*central.StoredOrder, error) {
	return getOrder(ctx, s.pool, tenant, documentNumber)
}

func getOrder(ctx context.Context, q Querier, tenant string, documentNumber int64) (*central.StoredOrder, error) {
	var o central.StoredOrder
	var payload string
	err := q.QueryRow(ctx, `
		SELECT document_number, sync_key, net_total, payload::text, received_at
		FROM received_orders WHERE tenant = $1 AND document_number = $2`,
		tenant, documentNumber).Scan(&o.DocumentNumber, &o.SyncKey, &o.NetTotal, &payload, &o.ReceivedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	o.Payload = []byte(payload)
	o.ReceivedAt = o.ReceivedAt.UTC()
	return &o, nil
}

func (s *CentralStore) AddNotification(ctx context.Context, tenant string, n dto.NotificationRequest, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notification_requests (id, tenant, type, document_number, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New().String(), tenant, n.Type, n.DocumentNumber, n.Message, at)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}
