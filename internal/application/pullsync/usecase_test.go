package pullsync_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/preventa/internal/application/dto"
	"github.com/jhoicas/preventa/internal/application/pullsync"
	"github.com/jhoicas/preventa/internal/domain"
	"github.com/jhoicas/preventa/internal/infrastructure/sqlite"
	"github.com/jhoicas/preventa/pkg/logger"
	"github.com/jhoicas/preventa/pkg/retry"
)

const tenant = "12345678000199"

// fakeSource fuente remota en memoria con paginación real.
type fakeSource struct {
	company      *dto.CompanyDTO
	parameters   *dto.ParameterDTO
	products     []dto.ProductDTO
	clients      []dto.ClientDTO
	salespeople  []dto.SalespersonDTO
	paymentTerms []dto.PaymentTermDTO
	routes       []dto.RouteDTO
	users        []dto.UserDTO

	err          error // si no es nil, toda descarga de productos falla
	ignorePaging bool  // clientes: devuelve todo en cada página
	endlessRoute bool  // rutas: siempre una página llena y distinta
	calls        map[string]int
}

func (f *fakeSource) hit(name string) {
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
}

func page[T any](items []T, page, limit int) []T {
	start := (page - 1) * limit
	if start >= len(items) {
		return nil
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func (f *fakeSource) FetchCompany(context.Context, string) (*dto.CompanyDTO, error) {
	f.hit("company")
	if f.company == nil {
		return nil, domain.ErrNotFound
	}
	return f.company, nil
}

func (f *fakeSource) FetchParameters(context.Context, string) (*dto.ParameterDTO, error) {
	f.hit("parameters")
	if f.parameters == nil {
		return nil, domain.ErrNotFound
	}
	return f.parameters, nil
}

func (f *fakeSource) FetchProducts(_ context.Context, _ string, p, limit int) ([]dto.ProductDTO, error) {
	f.hit("products")
	if f.err != nil {
		return nil, f.err
	}
	return page(f.products, p, limit), nil
}

func (f *fakeSource) FetchClients(_ context.Context, _ string, p, limit int) ([]dto.ClientDTO, error) {
	f.hit("clients")
	if f.ignorePaging {
		return f.clients, nil
	}
	return page(f.clients, p, limit), nil
}

func (f *fakeSource) FetchSalespeople(_ context.Context, _ string, p, limit int) ([]dto.SalespersonDTO, error) {
	f.hit("salespeople")
	return page(f.salespeople, p, limit), nil
}

func (f *fakeSource) FetchPaymentTerms(_ context.Context, _ string, p, limit int) ([]dto.PaymentTermDTO, error) {
	f.hit("payment_terms")
	return page(f.paymentTerms, p, limit), nil
}

func (f *fakeSource) FetchRoutes(_ context.Context, _ string, p, limit int) ([]dto.RouteDTO, error) {
	f.hit("routes")
	if f.endlessRoute {
		out := make([]dto.RouteDTO, limit)
		for i := range out {
			out[i] = dto.RouteDTO{Code: fmt.Sprintf("R%d-%d", p, i), Description: "ruta"}
		}
		return out, nil
	}
	return page(f.routes, p, limit), nil
}

func (f *fakeSource) FetchUsers(_ context.Context, _ string, p, limit int) ([]dto.UserDTO, error) {
	f.hit("users")
	return page(f.users, p, limit), nil
}

func openHandle(t *testing.T) *sqlite.Handle {
	t.Helper()
	schema, err := sqlite.NewSchemaManager(logger.Nop())
	require.NoError(t, err)
	m := sqlite.NewManager(t.TempDir(), schema, logger.Nop())
	t.Cleanup(func() { _ = m.Close() })
	h, err := m.Open(context.Background(), tenant)
	require.NoError(t, err)
	return h
}

func fastPolicy() retry.Policy {
	p := retry.Default()
	p.Retryable = domain.IsRetryable
	p.Sleep = func(context.Context, time.Duration) error { return nil }
	return p
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func products() []dto.ProductDTO {
	return []dto.ProductDTO{
		{Code: "P1", Description: "Café 500g", Price: dec("10.00"), MaxDiscountPct: dec("10")},
		{Code: "P2", Description: "Azúcar", Price: dec("4.50"), MaxDiscountPct: dec("5")},
		{Code: "P3", Description: "Arroz", Price: dec("7.25"), DecimalPlaces: 2},
	}
}

func TestPull_RepetirNoCambiaNada(t *testing.T) {
	ctx := context.Background()
	h := openHandle(t)
	src := &fakeSource{products: products()}
	uc := pullsync.NewUseCase(h, src, fastPolicy(), 100, logger.Nop())

	first, err := uc.Pull(ctx, pullsync.KindProduct)
	require.NoError(t, err)
	assert.Equal(t, pullsync.Result{Kind: pullsync.KindProduct, Inserted: 3, Total: 3}, first)

	second, err := uc.Pull(ctx, pullsync.KindProduct)
	require.NoError(t, err)
	assert.Equal(t, pullsync.Result{Kind: pullsync.KindProduct, Skipped: 3, Total: 3}, second)

	n, err := h.Repos().Products.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestPull_DiffDetectaUnCampo(t *testing.T) {
	ctx := context.Background()
	h := openHandle(t)
	src := &fakeSource{products: products()}
	uc := pullsync.NewUseCase(h, src, fastPolicy(), 100, logger.Nop())
	_, err := uc.Pull(ctx, pullsync.KindProduct)
	require.NoError(t, err)

	// Solo espacios de borde y mayúsculas: no es un cambio.
	src.products[0].Description = "  CAFÉ 500G "
	res, err := uc.Pull(ctx, pullsync.KindProduct)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Updated)
	assert.Equal(t, 3, res.Skipped)

	src.products[1].Description = " Azúcar morena "
	res, err = uc.Pull(ctx, pullsync.KindProduct)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 2, res.Skipped)

	p, err := h.Repos().Products.GetByCode(ctx, "P2")
	require.NoError(t, err)
	assert.Equal(t, "Azúcar morena", p.Description, "se guarda sin espacios de borde")

	src.products[2].Price = dec("7.30")
	res, err = uc.Pull(ctx, pullsync.KindProduct)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
}

func TestPull_FilasInvalidasSeRechazanSinAbortar(t *testing.T) {
	ctx := context.Background()
	h := openHandle(t)
	src := &fakeSource{products: append(products(),
		dto.ProductDTO{Code: "BAD", Price: dec("-1")},
		dto.ProductDTO{Code: " ", Price: dec("1")},
		dto.ProductDTO{Code: "P9", Price: dec("1"), MaxDiscountPct: dec("-5")},
	)}
	uc := pullsync.NewUseCase(h, src, fastPolicy(), 100, logger.Nop())

	res, err := uc.Pull(ctx, pullsync.KindProduct)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Inserted)
	assert.Equal(t, 3, res.Rejected)
	assert.Equal(t, 6, res.Total)
	require.Len(t, res.Errors, 3)
	assert.Equal(t, "BAD", res.Errors[0].Key)
	assert.True(t, domain.IsValidation(res.Errors[0].Err))

	bad, err := h.Repos().Products.GetByCode(ctx, "BAD")
	require.NoError(t, err)
	assert.Nil(t, bad)
}

func TestPull_Paginacion(t *testing.T) {
	ctx := context.Background()
	h := openHandle(t)
	var clients []dto.ClientDTO
	for _, code := range []string{"C1", "C2", "C3", "C4", "C5"} {
		clients = append(clients, dto.ClientDTO{Code: code, Name: "Cliente " + code, CreditLimit: dec("100")})
	}
	src := &fakeSource{clients: clients}
	uc := pullsync.NewUseCase(h, src, fastPolicy(), 2, logger.Nop())

	res, err := uc.Pull(ctx, pullsync.KindClient)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Inserted)
	assert.Equal(t, 3, src.calls["clients"], "páginas de 2, 2 y 1")
}

func TestPull_ServidorQueIgnoraLaPaginacion(t *testing.T) {
	ctx := context.Background()
	h := openHandle(t)
	src := &fakeSource{ignorePaging: true, clients: []dto.ClientDTO{
		{Code: "C1", Name: "Cliente C1"}, {Code: "C2", Name: "Cliente C2"},
	}}
	uc := pullsync.NewUseCase(h, src, fastPolicy(), 2, logger.Nop())

	res, err := uc.Pull(ctx, pullsync.KindClient)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 2, src.calls["clients"], "la segunda página repite la primera y corta")
}

func TestPull_PaginacionSinFinSeCorta(t *testing.T) {
	ctx := context.Background()
	h := openHandle(t)
	src := &fakeSource{endlessRoute: true}
	uc := pullsync.NewUseCase(h, src, fastPolicy(), 1, logger.Nop())

	_, err := uc.Pull(ctx, pullsync.KindRoute)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 10000, src.calls["routes"])

	n, err := h.Repos().Routes.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPull_FalloRemotoTrasReintentos(t *testing.T) {
	ctx := context.Background()
	h := openHandle(t)
	down := &domain.NetworkError{Op: "list products", Temporary: true, Err: errors.New("connection reset")}
	src := &fakeSource{products: products(), err: down}
	uc := pullsync.NewUseCase(h, src, fastPolicy(), 100, logger.Nop())

	_, err := uc.Pull(ctx, pullsync.KindProduct)
	assert.ErrorIs(t, err, down)
	assert.Equal(t, 3, src.calls["products"], "exactamente 3 intentos")

	n, err := h.Repos().Products.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPull_ErrorDeAlmacenamientoRevierteElTipoCompleto(t *testing.T) {
	ctx := context.Background()
	h := openHandle(t)
	src := &fakeSource{products: products()[:2]}
	uc := pullsync.NewUseCase(h, src, fastPolicy(), 100, logger.Nop())

	res, err := uc.Pull(ctx, pullsync.KindProduct)
	require.NoError(t, err)
	require.Equal(t, 2, res.Inserted)

	_, err = h.DB().ExecContext(ctx, `CREATE TRIGGER products_sin_espacio BEFORE INSERT ON products
		WHEN NEW.code = 'P3' BEGIN SELECT RAISE(ABORT, 'disk full'); END`)
	require.NoError(t, err)

	changed := products()
	changed[0].Price = dec("11.00")
	src.products = changed

	_, err = uc.Pull(ctx, pullsync.KindProduct)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	n, err := h.Repos().Products.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	p1, err := h.Repos().Products.GetByCode(ctx, "P1")
	require.NoError(t, err)
	require.NotNil(t, p1)
	assert.True(t, p1.Price.Equal(dec("10.00")), "la actualización de P1 se revierte con el tipo")
}

func TestPullAll_FalloDeUnTipoNoAfectaALosDemas(t *testing.T) {
	ctx := context.Background()
	h := openHandle(t)
	src := &fakeSource{
		company:      &dto.CompanyDTO{Code: "1", Name: "Distribuidora Sul", TaxID: "12.345.678/0001-99"},
		parameters:   &dto.ParameterDTO{ProductVersion: 4, PriceDecimals: 2, QuantityDecimals: 3, DefaultSalesperson: "V1"},
		products:     products(),
		err:          &domain.NetworkError{Op: "list products", StatusCode: 503, Temporary: true, Err: errors.New("HTTP 503")},
		salespeople:  []dto.SalespersonDTO{{Code: "V1", Name: "Ana"}},
		paymentTerms: []dto.PaymentTermDTO{{Code: "30D", Description: "30 días", SurchargePct: dec("2"), Installments: 1}},
		routes:       []dto.RouteDTO{{Code: "R1", Description: "Centro", SalespersonCode: "V1"}},
		users:        []dto.UserDTO{{Username: "ana", Name: "Ana", PasswordHash: "$2a$10$x", SalespersonCode: "V1"}},
	}
	uc := pullsync.NewUseCase(h, src, fastPolicy(), 100, logger.Nop())

	sum, err := uc.PullAll(ctx)
	require.NoError(t, err)
	assert.True(t, sum.Failed())
	require.Len(t, sum.Failures, 1)
	assert.Equal(t, pullsync.KindProduct, sum.Failures[0].Kind)
	assert.Len(t, sum.Results, len(pullsync.AllKinds())-1)

	company, ok := sum.Result(pullsync.KindCompany)
	require.True(t, ok)
	assert.Equal(t, 1, company.Inserted)

	repos := h.Repos()
	c, err := repos.Companies.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Distribuidora Sul", c.Name)
	par, err := repos.Parameters.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), par.ProductVersion)
	u, err := repos.Users.GetByUsername(ctx, "ana")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "V1", u.SalespersonCode)

	// Empresa repetida: sin cambios.
	src.err = nil
	sum, err = uc.PullAll(ctx, pullsync.KindCompany, pullsync.KindProduct)
	require.NoError(t, err)
	assert.False(t, sum.Failed())
	company, _ = sum.Result(pullsync.KindCompany)
	assert.Equal(t, 1, company.Skipped)
	prods, _ := sum.Result(pullsync.KindProduct)
	assert.Equal(t, 3, prods.Inserted)
}

func TestParseKind(t *testing.T) {
	k, err := pullsync.ParseKind("payment-term")
	require.NoError(t, err)
	assert.Equal(t, pullsync.KindPaymentTerm, k)
	k, err = pullsync.ParseKind(" Product ")
	require.NoError(t, err)
	assert.Equal(t, pullsync.KindProduct, k)
	_, err = pullsync.ParseKind("invoices")
	assert.True(t, domain.IsValidation(err))
}
