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

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo implementación del puerto ProductRepository sobre SQLite (usable con db o tx).
type ProductRepo struct {
	q      Querier
	tenant string
}

// NewProductRepository construye el adaptador de persistencia para productos del tenant.
func NewProductRepository(q Querier, tenant string) *ProductRepo {
	return &ProductRepo{q: q, tenant: tenant}
}

const productColumns = `tenant, code, description, unit, price, stock, decimal_places, max_discount_pct,
	commission_pct, version, barcode, status, registered_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(s rowScanner) (*entity.Product, error) {
	var p entity.Product
	var registered string
	if err := s.Scan(&p.Tenant, &p.Code, &p.Description, &p.Unit, &p.Price, &p.Stock, &p.DecimalPlaces,
		&p.MaxDiscountPct, &p.CommissionPct, &p.Version, &p.Barcode, &p.Status, &registered); err != nil {
		return nil, err
	}
	p.RegisteredAt = parseTime(registered)
	return &p, nil
}

// GetByCode devuelve (nil, nil) si no existe.
func (r *ProductRepo) GetByCode(ctx context.Context, code string) (*entity.Product, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE tenant = ? AND code = ?`, r.tenant, code)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *ProductRepo) Create(ctx context.Context, p *entity.Product) error {
	p.Tenant = r.tenant
	p.RegisteredAt = orNow(p.RegisteredAt)
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO products (`+productColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Tenant, p.Code, p.Description, p.Unit, p.Price, p.Stock, p.DecimalPlaces, p.MaxDiscountPct,
		p.CommissionPct, p.Version, p.Barcode, p.Status, formatTime(p.RegisteredAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// Update actualiza los campos de negocio. registered_at no cambia.
func (r *ProductRepo) Update(ctx context.Context, p *entity.Product) error {
	query := `
		UPDATE products SET description = ?, unit = ?, price = ?, stock = ?, decimal_places = ?, max_discount_pct = ?,
			commission_pct = ?, version = ?, barcode = ?, status = ?
		WHERE tenant = ? AND code = ?`
	_, err := r.q.ExecContext(ctx, query,
		p.Description, p.Unit, p.Price, p.Stock, p.DecimalPlaces, p.MaxDiscountPct,
		p.CommissionPct, p.Version, p.Barcode, p.Status, r.tenant, p.Code,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

// List lista productos ordenados por código con paginación.
func (r *ProductRepo) List(ctx context.Context, limit, offset int) ([]*entity.Product, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE tenant = ? ORDER BY code LIMIT ? OFFSET ?`,
		r.tenant, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	var list []*entity.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (r *ProductRepo) Count(ctx context.Context) (int, error) {
	return countRows(ctx, r.q, "products", r.tenant)
}

func countRows(ctx context.Context, q Querier, table, tenant string) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+quoteIdent(table)+` WHERE tenant = ?`, tenant).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}
