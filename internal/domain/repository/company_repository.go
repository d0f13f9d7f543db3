package repository

import (
	"context"

	"github.com/jhoicas/preventa/internal/domain/entity"
)

// CompanyRepository define el puerto de persistencia para la fila única de Company del tenant.
// La implementación vive en infrastructure.
type CompanyRepository interface {
	Get(ctx context.Context) (*entity.Company, error)
	Create(ctx context.Context, company *entity.Company) error
	Update(ctx context.Context, company *entity.Company) error
}

// ParameterRepository define el puerto de persistencia para la fila única de Parameter.
type ParameterRepository interface {
	Get(ctx context.Context) (*entity.Parameter, error)
	Create(ctx context.Context, p *entity.Parameter) error
	Update(ctx context.Context, p *entity.Parameter) error
}
