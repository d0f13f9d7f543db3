package remote

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jhoicas/preventa/internal/application/dto"
)

// FetchCompany GET /tenants/{tenant}/company.
func (c *Client) FetchCompany(ctx context.Context, tenant string) (*dto.CompanyDTO, error) {
	var out dto.CompanyDTO
	err := c.do(ctx, request{op: "fetch company", method: http.MethodGet, path: tenantPath(tenant, "/company"), auth: true}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchParameters GET /tenants/{tenant}/parameters.
func (c *Client) FetchParameters(ctx context.Context, tenant string) (*dto.ParameterDTO, error) {
	var out dto.ParameterDTO
	err := c.do(ctx, request{op: "fetch parameters", method: http.MethodGet, path: tenantPath(tenant, "/parameters"), auth: true}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) FetchProducts(ctx context.Context, tenant string, page, limit int) ([]dto.ProductDTO, error) {
	return listPage[dto.ProductDTO](ctx, c, tenant, "products", page, limit)
}

func (c *Client) FetchClients(ctx context.Context, tenant string, page, limit int) ([]dto.ClientDTO, error) {
	return listPage[dto.ClientDTO](ctx, c, tenant, "clients", page, limit)
}

func (c *Client) FetchSalespeople(ctx context.Context, tenant string, page, limit int) ([]dto.SalespersonDTO, error) {
	return listPage[dto.SalespersonDTO](ctx, c, tenant, "salespeople", page, limit)
}

func (c *Client) FetchPaymentTerms(ctx context.Context, tenant string, page, limit int) ([]dto.PaymentTermDTO, error) {
	return listPage[dto.PaymentTermDTO](ctx, c, tenant, "payment-terms", page, limit)
}

func (c *Client) FetchRoutes(ctx context.Context, tenant string, page, limit int) ([]dto.RouteDTO, error) {
	return listPage[dto.RouteDTO](ctx, c, tenant, "routes", page, limit)
}

func (c *Client) FetchUsers(ctx context.Context, tenant string, page, limit int) ([]dto.UserDTO, error) {
	return listPage[dto.UserDTO](ctx, c, tenant, "users", page, limit)
}

// listPage GET /tenants/{tenant}/{resource}?page=&limit=.
func listPage[T any](ctx context.Context, c *Client, tenant, resource string, page, limit int) ([]T, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	var out dto.ListResponse[T]
	err := c.do(ctx, request{
		op:     "list " + resource,
		method: http.MethodGet,
		path:   tenantPath(tenant, "/"+resource),
		query:  q,
		auth:   true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Items, nil
}
