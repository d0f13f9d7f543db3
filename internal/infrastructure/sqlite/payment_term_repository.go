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

var _ repository.PaymentTermRepository = (*PaymentTermRepo)(nil)

// PaymentTermRepo condiciones de pago del tenant.
type PaymentTermRepo struct {
	q      Querier
	tenant string
}

func NewPaymentTermRepository(q Querier, tenant string) *PaymentTermRepo {
	return &PaymentTermRepo{q: q, tenant: tenant}
}

const paymentTermColumns = `tenant, code, description, surcharge_pct, discount_pct, installments, status, registered_at`

func scanPaymentTerm(s rowScanner) (*entity.PaymentTerm, error) {
	var pt entity.PaymentTerm
	var registered string
	if err := s.Scan(&pt.Tenant, &pt.Code, &pt.Description, &pt.SurchargePct, &pt.DiscountPct,
		&pt.Installments, &pt.Status, &registered); err != nil {
		return nil, err
	}
	pt.RegisteredAt = parseTime(registered)
	return &pt, nil
}

func (r *PaymentTermRepo) GetByCode(ctx context.Context, code string) (*entity.PaymentTerm, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+paymentTermColumns+` FROM payment_terms WHERE tenant = ? AND code = ?`, r.tenant, code)
	pt, err := scanPaymentTerm(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment term: %w", err)
	}
	return pt, nil
}

func (r *PaymentTermRepo) Create(ctx context.Context, pt *entity.PaymentTerm) error {
	pt.Tenant = r.tenant
	pt.RegisteredAt = orNow(pt.RegisteredAt)
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO payment_terms (`+paymentTermColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		pt.Tenant, pt.Code, pt.Description, pt.SurchargePct, pt.DiscountPct, pt.Installments, pt.Status,
		formatTime(pt.RegisteredAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert payment term: %w", err)
	}
	return nil
}

func (r *PaymentTermRepo) Update(ctx context.Context, pt *entity.PaymentTerm) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE payment_terms SET description = ?, surcharge_pct = ?, discount_pct = ?, installments = ?, status = ?
		 WHERE tenant = ? AND code = ?`,
		pt.Description, pt.SurchargePct, pt.DiscountPct, pt.Installments, pt.Status, r.tenant, pt.Code,
	)
	if err != nil {
		return fmt.Errorf("update payment term: %w", err)
	}
	return nil
}

func (r *PaymentTermRepo) List(ctx context.Context, limit, offset int) ([]*entity.PaymentTerm, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+paymentTermColumns+` FROM payment_terms WHERE tenant = ? ORDER BY code LIMIT ? OFFSET ?`,
		r.tenant, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list payment terms: %w", err)
	}
	defer rows.Close()
	var list []*entity.PaymentTerm
	for rows.Next() {
		pt, err := scanPaymentTerm(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment term: %w", err)
		}
		list = append(list, pt)
	}
	return list, rows.Err()
}

func (r *PaymentTermRepo) Count(ctx context.Context) (int, error) {
	return countRows(ctx, r.q, "payment_terms", r.tenant)
}
