package remote

import (
	"context"
	"net/http"
	"strconv"

	"github.com/jhoicas/preventa/internal/application/dto"
)

// SubmitOrder PUT /tenants/{tenant}/orders/{doc}. El servidor deduplica por Idempotency-Key,
// así que reenviar tras un timeout no crea un segundo pedido.
func (c *Client) SubmitOrder(ctx context.Context, tenant string, order dto.OrderSubmission, idempotencyKey string) (*dto.OrderReceipt, error) {
	var out dto.OrderReceipt
	err := c.do(ctx, request{
		op:      "submit order",
		method:  http.MethodPut,
		path:    tenantPath(tenant, "/orders/"+strconv.FormatInt(order.DocumentNumber, 10)),
		body:    order,
		headers: map[string]string{"Idempotency-Key": idempotencyKey},
		auth:    true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetOrder(ctx context.Context, tenant string, documentNumber int64) (*dto.OrderReceipt, error) {
	var out dto.OrderReceipt
	err := c.do(ctx, request{
		op:     "get order",
		method: http.MethodGet,
		path:   tenantPath(tenant, "/orders/"+strconv.FormatInt(documentNumber, 10)),
		auth:   true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Notify POST /tenants/{tenant}/notifications. La entrega del aviso es responsabilidad del servidor.
func (c *Client) Notify(ctx context.Context, tenant string, req dto.NotificationRequest) error {
	return c.do(ctx, request{
		op:     "notify",
		method: http.MethodPost,
		path:   tenantPath(tenant, "/notifications"),
		body:   req,
		auth:   true,
	}, nil)
}

// Login POST /auth/login (sin credencial previa).
func (c *Client) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	var out dto.LoginResponse
	if err := c.do(ctx, request{op: "login", method: http.MethodPost, path: "/auth/login", body: req}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
