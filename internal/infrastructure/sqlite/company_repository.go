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

var (
	_ repository.CompanyRepository   = (*CompanyRepo)(nil)
	_ repository.ParameterRepository = (*ParameterRepo)(nil)
)

// CompanyRepo fila única de la empresa del tenant.
type CompanyRepo struct {
	q      Querier
	tenant string
}

// NewCompanyRepository construye el adaptador. Pasar *sql.DB o *sql.Tx (Querier).
func NewCompanyRepository(q Querier, tenant string) *CompanyRepo {
	return &CompanyRepo{q: q, tenant: tenant}
}

// Get devuelve (nil, nil) si la empresa aún no se sincronizó.
func (r *CompanyRepo) Get(ctx context.Context) (*entity.Company, error) {
	query := `
		SELECT tenant, code, name, trade_name, tax_id, address, city, state, phone, email, status, registered_at
		FROM companies WHERE tenant = ?`
	var c entity.Company
	var registered string
	err := r.q.QueryRowContext(ctx, query, r.tenant).Scan(
		&c.Tenant, &c.Code, &c.Name, &c.TradeName, &c.TaxID, &c.Address, &c.City, &c.State,
		&c.Phone, &c.Email, &c.Status, &registered,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get company: %w", err)
	}
	c.RegisteredAt = parseTime(registered)
	return &c, nil
}

func (r *CompanyRepo) Create(ctx context.Context, c *entity.Company) error {
	c.Tenant = r.tenant
	c.RegisteredAt = orNow(c.RegisteredAt)
	query := `
		INSERT INTO companies (tenant, code, name, trade_name, tax_id, address, city, state, phone, email, status, registered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.q.ExecContext(ctx, query,
		c.Tenant, c.Code, c.Name, c.TradeName, c.TaxID, c.Address, c.City, c.State,
		c.Phone, c.Email, c.Status, formatTime(c.RegisteredAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert company: %w", err)
	}
	return nil
}

func (r *CompanyRepo) Update(ctx context.Context, c *entity.Company) error {
	query := `
		UPDATE companies SET code = ?, name = ?, trade_name = ?, tax_id = ?, address = ?, city = ?, state = ?,
			phone = ?, email = ?, status = ?
		WHERE tenant = ?`
	_, err := r.q.ExecContext(ctx, query,
		c.Code, c.Name, c.TradeName, c.TaxID, c.Address, c.City, c.State, c.Phone, c.Email, c.Status, r.tenant,
	)
	if err != nil {
		return fmt.Errorf("update company: %w", err)
	}
	return nil
}

// ParameterRepo fila única de parámetros comerciales.
type ParameterRepo struct {
	q      Querier
	tenant string
}

func NewParameterRepository(q Querier, tenant string) *ParameterRepo {
	return &ParameterRepo{q: q, tenant: tenant}
}

// Get devuelve (nil, nil) si los parámetros aún no se sincronizaron.
func (r *ParameterRepo) Get(ctx context.Context) (*entity.Parameter, error) {
	query := `
		SELECT tenant, product_version, client_version, salesperson_version, payment_term_version, route_version,
			default_salesperson, price_decimals, quantity_decimals, status, registered_at
		FROM parameters WHERE tenant = ?`
	var p entity.Parameter
	var registered string
	err := r.q.QueryRowContext(ctx, query, r.tenant).Scan(
		&p.Tenant, &p.ProductVersion, &p.ClientVersion, &p.SalespersonVersion, &p.PaymentTermVersion,
		&p.RouteVersion, &p.DefaultSalesperson, &p.PriceDecimals, &p.QuantityDecimals, &p.Status, &registered,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get parameters: %w", err)
	}
	p.RegisteredAt = parseTime(registered)
	return &p, nil
}

func (r *ParameterRepo) Create(ctx context.Context, p *entity.Parameter) error {
	p.Tenant = r.tenant
	p.RegisteredAt = orNow(p.RegisteredAt)
	query := `
		INSERT INTO parameters (tenant, product_version, client_version, salesperson_version, payment_term_version,
			route_version, default_salesperson, price_decimals, quantity_decimals, status, registered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.q.ExecContext(ctx, query,
		p.Tenant, p.ProductVersion, p.ClientVersion, p.SalespersonVersion, p.PaymentTermVersion, p.RouteVersion,
		p.DefaultSalesperson, p.PriceDecimals, p.QuantityDecimals, p.Status, formatTime(p.RegisteredAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert parameters: %w", err)
	}
	return nil
}

func (r *ParameterRepo) Update(ctx context.Context, p *entity.Parameter) error {
	query := `
		UPDATE parameters SET product_version = ?, client_version = ?, salesperson_version = ?, payment_term_version = ?,
			route_version = ?, default_salesperson = ?, price_decimals = ?, quantity_decimals = ?, status = ?
		WHERE tenant = ?`
	_, err := r.q.ExecContext(ctx, query,
		p.ProductVersion, p.ClientVersion, p.SalespersonVersion, p.PaymentTermVersion, p.RouteVersion,
		p.DefaultSalesperson, p.PriceDecimals, p.QuantityDecimals, p.Status, r.tenant,
	)
	if err != nil {
		return fmt.Errorf("update parameters: %w", err)
	}
	return nil
}
