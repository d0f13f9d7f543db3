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

var _ repository.UserRepository = (*UserRepo)(nil)

// UserRepo usuarios habilitados en el dispositivo.
type UserRepo struct {
	q      Querier
	tenant string
}

func NewUserRepository(q Querier, tenant string) *UserRepo {
	return &UserRepo{q: q, tenant: tenant}
}

const userColumns = `tenant, username, name, password_hash, token, salesperson_code, status, registered_at`

func scanUser(s rowScanner) (*entity.User, error) {
	var u entity.User
	var registered string
	if err := s.Scan(&u.Tenant, &u.Username, &u.Name, &u.PasswordHash, &u.Token, &u.SalespersonCode,
		&u.Status, &registered); err != nil {
		return nil, err
	}
	u.RegisteredAt = parseTime(registered)
	return &u, nil
}

// GetByUsername devuelve (nil, nil) si no existe.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE tenant = ? AND username = ?`, r.tenant, username)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *UserRepo) Create(ctx context.Context, u *entity.User) error {
	u.Tenant = r.tenant
	u.RegisteredAt = orNow(u.RegisteredAt)
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Tenant, u.Username, u.Name, u.PasswordHash, u.Token, u.SalespersonCode, u.Status, formatTime(u.RegisteredAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepo) Update(ctx context.Context, u *entity.User) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE users SET name = ?, password_hash = ?, token = ?, salesperson_code = ?, status = ?
		 WHERE tenant = ? AND username = ?`,
		u.Name, u.PasswordHash, u.Token, u.SalespersonCode, u.Status, r.tenant, u.Username,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (r *UserRepo) List(ctx context.Context, limit, offset int) ([]*entity.User, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE tenant = ? ORDER BY username LIMIT ? OFFSET ?`,
		r.tenant, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	var list []*entity.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		list = append(list, u)
	}
	return list, rows.Err()
}
