package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/preventa/internal/domain"
	"github.com/jhoicas/preventa/internal/domain/entity"
	"github.com/jhoicas/preventa/internal/domain/repository"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

// OrderRepo implementación del puerto OrderRepository sobre SQLite.
type OrderRepo struct {
	q      Querier
	tenant string
}

// NewOrderRepository construye el adaptador de persistencia para pedidos.
func NewOrderRepository(q Querier, tenant string) *OrderRepo {
	return &OrderRepo{q: q, tenant: tenant}
}

const orderColumns = `tenant, document_number, client_code, salesperson_code, payment_term_code, issued_at,
	gross_total, discount_total, surcharge_total, net_total, item_count, status, observation, sync_key,
	sent_at, registered_at`

func scanOrder(s rowScanner) (*entity.OrderHeader, error) {
	var h entity.OrderHeader
	var issued, sent, registered string
	if err := s.Scan(&h.Tenant, &h.DocumentNumber, &h.ClientCode, &h.SalespersonCode, &h.PaymentTermCode, &issued,
		&h.GrossTotal, &h.DiscountTotal, &h.SurchargeTotal, &h.NetTotal, &h.ItemCount, &h.Status,
		&h.Observation, &h.SyncKey, &sent, &registered); err != nil {
		return nil, err
	}
	h.IssuedAt = parseTime(issued)
	h.SentAt = parseTimePtr(sent)
	h.RegisteredAt = parseTime(registered)
	return &h, nil
}

// CreateHeader inserta la cabecera. Un número repetido devuelve domain.ErrDuplicate.
func (r *OrderRepo) CreateHeader(ctx context.Context, h *entity.OrderHeader) error {
	h.Tenant = r.tenant
	h.RegisteredAt = orNow(h.RegisteredAt)
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO orders (`+orderColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.Tenant, h.DocumentNumber, h.ClientCode, h.SalespersonCode, h.PaymentTermCode, formatTime(h.IssuedAt),
		h.GrossTotal, h.DiscountTotal, h.SurchargeTotal, h.NetTotal, h.ItemCount, h.Status,
		h.Observation, h.SyncKey, formatTimePtr(h.SentAt), formatTime(h.RegisteredAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *OrderRepo) UpdateHeader(ctx context.Context, h *entity.OrderHeader) error {
	query := `
		UPDATE orders SET client_code = ?, salesperson_code = ?, payment_term_code = ?, gross_total = ?,
			discount_total = ?, surcharge_total = ?, net_total = ?, item_count = ?, status = ?, observation = ?,
			sent_at = ?
		WHERE tenant = ? AND document_number = ?`
	res, err := r.q.ExecContext(ctx, query,
		h.ClientCode, h.SalespersonCode, h.PaymentTermCode, h.GrossTotal, h.DiscountTotal, h.SurchargeTotal,
		h.NetTotal, h.ItemCount, h.Status, h.Observation, formatTimePtr(h.SentAt), r.tenant, h.DocumentNumber,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	return requireAffected(res, "update order")
}

// GetHeader devuelve (nil, nil) si el pedido no existe.
func (r *OrderRepo) GetHeader(ctx context.Context, documentNumber int64) (*entity.OrderHeader, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE tenant = ? AND document_number = ?`, r.tenant, documentNumber)
	h, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return h, nil
}

func (r *OrderRepo) DeleteHeader(ctx context.Context, documentNumber int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM orders WHERE tenant = ? AND document_number = ?`, r.tenant, documentNumber)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return requireAffected(res, "delete order")
}

// FindPendingByClient pedido abierto del cliente; (nil, nil) si no hay.
func (r *OrderRepo) FindPendingByClient(ctx context.Context, clientCode string) (*entity.OrderHeader, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE tenant = ? AND client_code = ? AND status = ?
		 ORDER BY document_number LIMIT 1`,
		r.tenant, clientCode, entity.OrderStatusPending)
	h, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find pending order: %w", err)
	}
	return h, nil
}

func (r *OrderRepo) MaxDocumentNumber(ctx context.Context) (int64, error) {
	var n int64
	err := r.q.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(document_number), 0) FROM orders WHERE tenant = ?`, r.tenant).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("max document number: %w", err)
	}
	return n, nil
}

func (r *OrderRepo) ListHeaders(ctx context.Context, status string) ([]*entity.OrderHeader, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE tenant = ?`
	args := []any{r.tenant}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY document_number`
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()
	var list []*entity.OrderHeader
	for rows.Next() {
		h, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		list = append(list, h)
	}
	return list, rows.Err()
}

// MarkSent pasa el pedido a sent solo si sigue pendiente.
func (r *OrderRepo) MarkSent(ctx context.Context, documentNumber int64, sentAt time.Time) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE orders SET status = ?, sent_at = ? WHERE tenant = ? AND document_number = ? AND status = ?`,
		entity.OrderStatusSent, formatTime(sentAt), r.tenant, documentNumber, entity.OrderStatusPending)
	if err != nil {
		return fmt.Errorf("mark order sent: %w", err)
	}
	return requireAffected(res, "mark order sent")
}

const lineColumns = `tenant, document_number, product_code, description, quantity, unit_price, discount_pct,
	discount_amount, surcharge_amount, line_total, registered_at`

func scanLine(s rowScanner) (*entity.OrderLine, error) {
	var l entity.OrderLine
	var registered string
	if err := s.Scan(&l.Tenant, &l.DocumentNumber, &l.ProductCode, &l.Description, &l.Quantity, &l.UnitPrice,
		&l.DiscountPct, &l.DiscountAmount, &l.SurchargeAmount, &l.LineTotal, &registered); err != nil {
		return nil, err
	}
	l.RegisteredAt = parseTime(registered)
	return &l, nil
}

// ListLines líneas del pedido en orden de inserción.
func (r *OrderRepo) ListLines(ctx context.Context, documentNumber int64) ([]*entity.OrderLine, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+lineColumns+` FROM order_lines WHERE tenant = ? AND document_number = ? ORDER BY id`,
		r.tenant, documentNumber)
	if err != nil {
		return nil, fmt.Errorf("list order lines: %w", err)
	}
	defer rows.Close()
	var list []*entity.OrderLine
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		list = append(list, l)
	}
	return list, rows.Err()
}

func (r *OrderRepo) GetLine(ctx context.Context, documentNumber int64, productCode string) (*entity.OrderLine, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+lineColumns+` FROM order_lines WHERE tenant = ? AND document_number = ? AND product_code = ?`,
		r.tenant, documentNumber, productCode)
	l, err := scanLine(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order line: %w", err)
	}
	return l, nil
}

// SaveLine inserta la línea o reemplaza la existente del mismo producto (conserva su posición).
func (r *OrderRepo) SaveLine(ctx context.Context, l *entity.OrderLine) error {
	l.Tenant = r.tenant
	l.RegisteredAt = orNow(l.RegisteredAt)
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO order_lines (`+lineColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (tenant, document_number, product_code) DO UPDATE SET
			description = excluded.description, quantity = excluded.quantity, unit_price = excluded.unit_price,
			discount_pct = excluded.discount_pct, discount_amount = excluded.discount_amount,
			surcharge_amount = excluded.surcharge_amount, line_total = excluded.line_total`,
		l.Tenant, l.DocumentNumber, l.ProductCode, l.Description, l.Quantity, l.UnitPrice, l.DiscountPct,
		l.DiscountAmount, l.SurchargeAmount, l.LineTotal, formatTime(l.RegisteredAt),
	)
	if err != nil {
		return fmt.Errorf("save order line: %w", err)
	}
	return nil
}

func (r *OrderRepo) DeleteLine(ctx context.Context, documentNumber int64, productCode string) error {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM order_lines WHERE tenant = ? AND document_number = ? AND product_code = ?`,
		r.tenant, documentNumber, productCode)
	if err != nil {
		return fmt.Errorf("delete order line: %w", err)
	}
	return requireAffected(res, "delete order line")
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return nil
}
