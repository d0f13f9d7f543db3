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
	_ repository.SalespersonRepository = (*SalespersonRepo)(nil)
	_ repository.RouteRepository       = (*RouteRepo)(nil)
)

// SalespersonRepo vendedores del tenant.
type SalespersonRepo struct {
	q      Querier
	tenant string
}

func NewSalespersonRepository(q Querier, tenant string) *SalespersonRepo {
	return &SalespersonRepo{q: q, tenant: tenant}
}

const salespersonColumns = `tenant, code, name, route_code, phone, email, status, registered_at`

func scanSalesperson(s rowScanner) (*entity.Salesperson, error) {
	var sp entity.Salesperson
	var registered string
	if err := s.Scan(&sp.Tenant, &sp.Code, &sp.Name, &sp.RouteCode, &sp.Phone, &sp.Email, &sp.Status, &registered); err != nil {
		return nil, err
	}
	sp.RegisteredAt = parseTime(registered)
	return &sp, nil
}

func (r *SalespersonRepo) GetByCode(ctx context.Context, code string) (*entity.Salesperson, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+salespersonColumns+` FROM salespeople WHERE tenant = ? AND code = ?`, r.tenant, code)
	sp, err := scanSalesperson(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get salesperson: %w", err)
	}
	return sp, nil
}

func (r *SalespersonRepo) Create(ctx context.Context, sp *entity.Salesperson) error {
	sp.Tenant = r.tenant
	sp.RegisteredAt = orNow(sp.RegisteredAt)
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO salespeople (`+salespersonColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sp.Tenant, sp.Code, sp.Name, sp.RouteCode, sp.Phone, sp.Email, sp.Status, formatTime(sp.RegisteredAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert salesperson: %w", err)
	}
	return nil
}

func (r *SalespersonRepo) Update(ctx context.Context, sp *entity.Salesperson) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE salespeople SET name = ?, route_code = ?, phone = ?, email = ?, status = ? WHERE tenant = ? AND code = ?`,
		sp.Name, sp.RouteCode, sp.Phone, sp.Email, sp.Status, r.tenant, sp.Code,
	)
	if err != nil {
		return fmt.Errorf("update salesperson: %w", err)
	}
	return nil
}

func (r *SalespersonRepo) List(ctx context.Context, limit, offset int) ([]*entity.Salesperson, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+salespersonColumns+` FROM salespeople WHERE tenant = ? ORDER BY code LIMIT ? OFFSET ?`,
		r.tenant, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list salespeople: %w", err)
	}
	defer rows.Close()
	var list []*entity.Salesperson
	for rows.Next() {
		sp, err := scanSalesperson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan salesperson: %w", err)
		}
		list = append(list, sp)
	}
	return list, rows.Err()
}

func (r *SalespersonRepo) Count(ctx context.Context) (int, error) {
	return countRows(ctx, r.q, "salespeople", r.tenant)
}

// RouteRepo rutas de visita del tenant.
type RouteRepo struct {
	q      Querier
	tenant string
}

func NewRouteRepository(q Querier, tenant string) *RouteRepo {
	return &RouteRepo{q: q, tenant: tenant}
}

const routeColumns = `tenant, code, description, salesperson_code, status, registered_at`

func scanRoute(s rowScanner) (*entity.Route, error) {
	var rt entity.Route
	var registered string
	if err := s.Scan(&rt.Tenant, &rt.Code, &rt.Description, &rt.SalespersonCode, &rt.Status, &registered); err != nil {
		return nil, err
	}
	rt.RegisteredAt = parseTime(registered)
	return &rt, nil
}

func (r *RouteRepo) GetByCode(ctx context.Context, code string) (*entity.Route, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+routeColumns+` FROM routes WHERE tenant = ? AND code = ?`, r.tenant, code)
	rt, err := scanRoute(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get route: %w", err)
	}
	return rt, nil
}

func (r *RouteRepo) Create(ctx context.Context, rt *entity.Route) error {
	rt.Tenant = r.tenant
	rt.RegisteredAt = orNow(rt.RegisteredAt)
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO routes (`+routeColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		rt.Tenant, rt.Code, rt.Description, rt.SalespersonCode, rt.Status, formatTime(rt.RegisteredAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert route: %w", err)
	}
	return nil
}

func (r *RouteRepo) Update(ctx context.Context, rt *entity.Route) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE routes SET description = ?, salesperson_code = ?, status = ? WHERE tenant = ? AND code = ?`,
		rt.Description, rt.SalespersonCode, rt.Status, r.tenant, rt.Code,
	)
	if err != nil {
		return fmt.Errorf("update route: %w", err)
	}
	return nil
}

func (r *RouteRepo) List(ctx context.Context, limit, offset int) ([]*entity.Route, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+routeColumns+` FROM routes WHERE tenant = ? ORDER BY code LIMIT ? OFFSET ?`,
		r.tenant, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	defer rows.Close()
	var list []*entity.Route
	for rows.Next() {
		rt, err := scanRoute(rows)
		if err != nil {
			return nil, fmt.Errorf("scan route: %w", err)
		}
		list = append(list, rt)
	}
	return list, rows.Err()
}

func (r *RouteRepo) Count(ctx context.Context) (int, error) {
	return countRows(ctx, r.q, "routes", r.tenant)
}
