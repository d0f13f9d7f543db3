// Package pullsync baja los datos de referencia del servidor central y los aplica
// sobre la base local del tenant, un tipo por transacción.
package pullsync

import (
	"context"
	"fmt"
	"reflect"

	"github.com/jhoicas/preventa/internal/application/dto"
	"github.com/jhoicas/preventa/internal/application/ports"
	"github.com/jhoicas/preventa/internal/domain"
	"github.com/jhoicas/preventa/internal/domain/entity"
	"github.com/jhoicas/preventa/internal/domain/repository"
	"github.com/jhoicas/preventa/pkg/logger"
	"github.com/jhoicas/preventa/pkg/retry"
)

// UseCase sincronizador de datos de referencia. El servidor es la fuente de verdad:
// las filas locales distintas se sobrescriben.
type UseCase struct {
	store    repository.TenantStore
	source   ports.CatalogSource
	policy   retry.Policy
	pageSize int
	log      *logger.Logger
}

// NewUseCase construye el caso de uso. pageSize < 1 usa 500.
func NewUseCase(store repository.TenantStore, source ports.CatalogSource, policy retry.Policy, pageSize int, log *logger.Logger) *UseCase {
	if pageSize < 1 {
		pageSize = 500
	}
	if log == nil {
		log = logger.Nop()
	}
	return &UseCase{
		store:    store,
		source:   source,
		policy:   policy,
		pageSize: pageSize,
		log:      log.Component("pullsync").Tenant(store.Tenant()),
	}
}

// Pull sincroniza un tipo. Error solo si la descarga falla tras los reintentos o si la
// transacción local se revierte; en ambos casos la base queda como estaba para ese tipo.
func (uc *UseCase) Pull(ctx context.Context, kind EntityKind) (Result, error) {
	var (
		res Result
		err error
	)
	switch kind {
	case KindCompany:
		res, err = apply(ctx, uc, kind, uc.companyPlan())
	case KindParameter:
		res, err = apply(ctx, uc, kind, uc.parameterPlan())
	case KindProduct:
		res, err = apply(ctx, uc, kind, catalogPlan(uc, uc.source.FetchProducts, productFromDTO, validateProduct, sameProduct,
			func(p *entity.Product) string { return p.Code },
			func(r repository.Repositories) repository.CatalogRepository[entity.Product] { return r.Products }))
	case KindClient:
		res, err = apply(ctx, uc, kind, catalogPlan(uc, uc.source.FetchClients, clientFromDTO, validateClient, sameClient,
			func(c *entity.Client) string { return c.Code },
			func(r repository.Repositories) repository.CatalogRepository[entity.Client] { return r.Clients }))
	case KindSalesperson:
		res, err = apply(ctx, uc, kind, catalogPlan(uc, uc.source.FetchSalespeople, salespersonFromDTO, validateSalesperson, sameSalesperson,
			func(s *entity.Salesperson) string { return s.Code },
			func(r repository.Repositories) repository.CatalogRepository[entity.Salesperson] { return r.Salespeople }))
	case KindPaymentTerm:
		res, err = apply(ctx, uc, kind, catalogPlan(uc, uc.source.FetchPaymentTerms, paymentTermFromDTO, validatePaymentTerm, samePaymentTerm,
			func(p *entity.PaymentTerm) string { return p.Code },
			func(r repository.Repositories) repository.CatalogRepository[entity.PaymentTerm] { return r.PaymentTerms }))
	case KindRoute:
		res, err = apply(ctx, uc, kind, catalogPlan(uc, uc.source.FetchRoutes, routeFromDTO, validateRoute, sameRoute,
			func(r *entity.Route) string { return r.Code },
			func(r repository.Repositories) repository.CatalogRepository[entity.Route] { return r.Routes }))
	case KindUser:
		res, err = apply(ctx, uc, kind, uc.userPlan())
	default:
		_, err = ParseKind(string(kind))
		return Result{Kind: kind}, err
	}
	if err != nil {
		uc.log.Error().Err(err).Str("kind", string(kind)).Msg("sincronización abortada")
		return Result{Kind: kind}, err
	}
	uc.log.Info().
		Str("kind", string(kind)).
		Int("inserted", res.Inserted).
		Int("updated", res.Updated).
		Int("skipped", res.Skipped).
		Int("rejected", res.Rejected).
		Int("total", res.Total).
		Msg("sincronización completada")
	return res, nil
}

// PullAll sincroniza los tipos indicados (todos si no se indica ninguno) en secuencia.
// Un tipo fallido no afecta a los ya confirmados ni detiene a los siguientes.
// Solo devuelve error si ctx se cancela.
func (uc *UseCase) PullAll(ctx context.Context, kinds ...EntityKind) (Summary, error) {
	if len(kinds) == 0 {
		kinds = AllKinds()
	}
	var sum Summary
	for _, kind := range kinds {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		res, err := uc.Pull(ctx, kind)
		if err != nil {
			sum.Failures = append(sum.Failures, KindFailure{Kind: kind, Err: err})
			continue
		}
		sum.Results = append(sum.Results, res)
	}
	return sum, ctx.Err()
}

// plan describe cómo bajar y aplicar un tipo. D es el DTO remoto y E la entidad local.
type plan[D, E any] struct {
	fetch    func(ctx context.Context) ([]D, error)
	convert  func(D) *E
	validate func(*E) error
	key      func(*E) string
	lookup   func(ctx context.Context, r repository.Repositories, key string) (*E, error)
	create   func(ctx context.Context, r repository.Repositories, e *E) error
	update   func(ctx context.Context, r repository.Repositories, e *E) error
	same     func(a, b *E) bool
}

// apply descarga todo el tipo y lo aplica en una sola transacción.
func apply[D, E any](ctx context.Context, uc *UseCase, kind EntityKind, s plan[D, E]) (Result, error) {
	items, err := s.fetch(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("pull %s: %w", kind, err)
	}

	var res Result
	err = uc.store.RunInTx(ctx, func(r repository.Repositories) error {
		res = Result{Kind: kind, Total: len(items)}
		for _, d := range items {
			e := s.convert(d)
			key := s.key(e)
			if err := s.validate(e); err != nil {
				res.Rejected++
				res.Errors = append(res.Errors, ItemError{Key: key, Err: err})
				uc.log.Warn().Str("kind", string(kind)).Str("key", key).Err(err).Msg("fila remota rechazada")
				continue
			}
			current, err := s.lookup(ctx, r, key)
			if err != nil {
				return fmt.Errorf("buscar %s %s: %w", kind, key, err)
			}
			switch {
			case current == nil:
				if err := s.create(ctx, r, e); err != nil {
					return fmt.Errorf("insertar %s %s: %w", kind, key, err)
				}
				res.Inserted++
			case s.same(current, e):
				res.Skipped++
				uc.log.Debug().Str("kind", string(kind)).Str("key", key).Msg("ConflictSkipped: fila idéntica")
			default:
				if err := s.update(ctx, r, e); err != nil {
					return fmt.Errorf("actualizar %s %s: %w", kind, key, err)
				}
				res.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("pull %s: %w", kind, err)
	}
	return res, nil
}

// maxPages corta la descarga de un servidor que nunca devuelve una página corta.
const maxPages = 10000

// paged baja todas las páginas hasta recibir una más corta que pageSize. Cada página tiene sus reintentos.
// Una página idéntica a la anterior indica un servidor que ignora la paginación: lo ya bajado es la colección.
func paged[D any](uc *UseCase, fetch func(ctx context.Context, tenant string, page, limit int) ([]D, error)) func(context.Context) ([]D, error) {
	return func(ctx context.Context) ([]D, error) {
		var all, prev []D
		for page := 1; page <= maxPages; page++ {
			items, err := retry.Do(ctx, uc.policy, func(ctx context.Context) ([]D, error) {
				return fetch(ctx, uc.store.Tenant(), page, uc.pageSize)
			})
			if err != nil {
				return nil, err
			}
			if page > 1 && reflect.DeepEqual(items, prev) {
				uc.log.Warn().Int("page", page).Msg("página repetida: el servidor ignora la paginación")
				return all, nil
			}
			all = append(all, items...)
			if len(items) < uc.pageSize {
				return all, nil
			}
			prev = items
		}
		return nil, fmt.Errorf("paginación: más de %d páginas de %d: %w", maxPages, uc.pageSize, domain.ErrInvalidInput)
	}
}

// single baja una fila única (empresa, parámetros) con reintentos.
func single[D any](uc *UseCase, fetch func(ctx context.Context, tenant string) (*D, error)) func(context.Context) ([]D, error) {
	return func(ctx context.Context) ([]D, error) {
		d, err := retry.Do(ctx, uc.policy, func(ctx context.Context) (*D, error) {
			return fetch(ctx, uc.store.Tenant())
		})
		if err != nil {
			return nil, err
		}
		if d == nil {
			return nil, nil
		}
		return []D{*d}, nil
	}
}

func catalogPlan[D, E any](
	uc *UseCase,
	fetch func(ctx context.Context, tenant string, page, limit int) ([]D, error),
	convert func(D) *E,
	validate func(*E) error,
	same func(a, b *E) bool,
	key func(*E) string,
	repo func(repository.Repositories) repository.CatalogRepository[E],
) plan[D, E] {
	return plan[D, E]{
		fetch:    paged(uc, fetch),
		convert:  convert,
		validate: validate,
		key:      key,
		same:     same,
		lookup: func(ctx context.Context, r repository.Repositories, code string) (*E, error) {
			return repo(r).GetByCode(ctx, code)
		},
		create: func(ctx context.Context, r repository.Repositories, e *E) error { return repo(r).Create(ctx, e) },
		update: func(ctx context.Context, r repository.Repositories, e *E) error { return repo(r).Update(ctx, e) },
	}
}

func (uc *UseCase) companyPlan() plan[dto.CompanyDTO, entity.Company] {
	return plan[dto.CompanyDTO, entity.Company]{
		fetch:    single(uc, uc.source.FetchCompany),
		convert:  companyFromDTO,
		validate: validateCompany,
		key:      func(*entity.Company) string { return uc.store.Tenant() },
		same:     sameCompany,
		lookup: func(ctx context.Context, r repository.Repositories, _ string) (*entity.Company, error) {
			return r.Companies.Get(ctx)
		},
		create: func(ctx context.Context, r repository.Repositories, c *entity.Company) error { return r.Companies.Create(ctx, c) },
		update: func(ctx context.Context, r repository.Repositories, c *entity.Company) error { return r.Companies.Update(ctx, c) },
	}
}

func (uc *UseCase) parameterPlan() plan[dto.ParameterDTO, entity.Parameter] {
	return plan[dto.ParameterDTO, entity.Parameter]{
		fetch:    single(uc, uc.source.FetchParameters),
		convert:  parameterFromDTO,
		validate: validateParameter,
		key:      func(*entity.Parameter) string { return uc.store.Tenant() },
		same:     sameParameter,
		lookup: func(ctx context.Context, r repository.Repositories, _ string) (*entity.Parameter, error) {
			return r.Parameters.Get(ctx)
		},
		create: func(ctx context.Context, r repository.Repositories, p *entity.Parameter) error { return r.Parameters.Create(ctx, p) },
		update: func(ctx context.Context, r repository.Repositories, p *entity.Parameter) error { return r.Parameters.Update(ctx, p) },
	}
}

func (uc *UseCase) userPlan() plan[dto.UserDTO, entity.User] {
	return plan[dto.UserDTO, entity.User]{
		fetch:    paged(uc, uc.source.FetchUsers),
		convert:  userFromDTO,
		validate: validateUser,
		key:      func(u *entity.User) string { return u.Username },
		same:     sameUser,
		lookup: func(ctx context.Context, r repository.Repositories, username string) (*entity.User, error) {
			return r.Users.GetByUsername(ctx, username)
		},
		create: func(ctx context.Context, r repository.Repositories, u *entity.User) error { return r.Users.Create(ctx, u) },
		update: func(ctx context.Context, r repository.Repositories, u *entity.User) error { return r.Users.Update(ctx, u) },
	}
}
