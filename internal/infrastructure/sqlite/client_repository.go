package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jhoicas/preventa/internal/domain"
	"github.com/jhoicas/preventa/internal/domain/entity"
	"github.com/jhoicas/preventa/internal/domain/repository"
)

var _ repository.ClientRepository = (*ClientRepo)(nil)

// ClientRepo clientes del tenant.
type ClientRepo struct {
	q      Querier
	tenant string
}

func NewClientRepository(q Querier, tenant string) *ClientRepo {
	return &ClientRepo{q: q, tenant: tenant}
}

const clientColumns = `tenant, code, name, trade_name, tax_id, address, city, state, phone, email, credit_limit,
	salesperson_code, route_code, payment_term_code, status, registered_at`

func scanClient(s rowScanner) (*entity.Client, error) {
	var c entity.Client
	var registered string
	if err := s.Scan(&c.Tenant, &c.Code, &c.Name, &c.TradeName, &c.TaxID, &c.Address, &c.City, &c.State,
		&c.Phone, &c.Email, &c.CreditLimit, &c.SalespersonCode, &c.RouteCode, &c.PaymentTermCode,
		&c.Status, &registered); err != nil {
		return nil, err
	}
	c.RegisteredAt = parseTime(registered)
	return &c, nil
}

func (r *ClientRepo) GetByCode(ctx context.Context, code string) (*entity.Client, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE tenant = ? AND code = ?`, r.tenant, code)
	c, err := scanClient(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get client: %w", err)
	}
	return c, nil
}

func (r *ClientRepo) Create(ctx context.Context, c *entity.Client) error {
	c.Tenant = r.tenant
	c.RegisteredAt = orNow(c.RegisteredAt)
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO clients (`+clientColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Tenant, c.Code, c.Name, c.TradeName, c.TaxID, c.Address, c.City, c.State, c.Phone, c.Email,
		c.CreditLimit, c.SalespersonCode, c.RouteCode, c.PaymentTermCode, c.Status, formatTime(c.RegisteredAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

func (r *ClientRepo) Update(ctx context.Context, c *entity.Client) error {
	query := `
		UPDATE clients SET name = ?, trade_name = ?, tax_id = ?, address = ?, city = ?, state = ?, phone = ?, email = ?,
			credit_limit = ?, salesperson_code = ?, route_code = ?, payment_term_code = ?, status = ?
		WHERE tenant = ? AND code = ?`
	_, err := r.q.ExecContext(ctx, query,
		c.Name, c.TradeName, c.TaxID, c.Address, c.City, c.State, c.Phone, c.Email,
		c.CreditLimit, c.SalespersonCode, c.RouteCode, c.PaymentTermCode, c.Status, r.tenant, c.Code,
	)
	if err != nil {
		return fmt.Errorf("update client: %w", err)
	}
	return nil
}

func (r *ClientRepo) List(ctx context.Context, limit, offset int) ([]*entity.Client, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE tenant = ? ORDER BY code LIMIT ? OFFSET ?`,
		r.tenant, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()
	var list []*entity.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func (r *ClientRepo) Count(ctx context.Context) (int, error) {
	return countRows(ctx, r.q, "clients", r.tenant)
}
