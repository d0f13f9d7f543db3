package ports

import (
	"context"

	"github.com/jhoicas/preventa/internal/application/dto"
)

// CatalogSource puerto de salida para bajar datos de referencia del servidor central.
// Los listados son paginados (page desde 1); una página más corta que limit es la última.
type CatalogSource interface {
	FetchCompany(ctx context.Context, tenant string) (*dto.CompanyDTO, error)
	FetchParameters(ctx context.Context, tenant string) (*dto.ParameterDTO, error)
	FetchProducts(ctx context.Context, tenant string, page, limit int) ([]dto.ProductDTO, error)
	FetchClients(ctx context.Context, tenant string, page, limit int) ([]dto.ClientDTO, error)
	FetchSalespeople(ctx context.Context, tenant string, page, limit int) ([]dto.SalespersonDTO, error)
	FetchPaymentTerms(ctx context.Context, tenant string, page, limit int) ([]dto.PaymentTermDTO, error)
	FetchRoutes(ctx context.Context, tenant string, page, limit int) ([]dto.RouteDTO, error)
	FetchUsers(ctx context.Context, tenant string, page, limit int) ([]dto.UserDTO, error)
}

// OrderGateway puerto de salida para enviar pedidos y consultar su recepción.
type OrderGateway interface {
	// SubmitOrder envía cabecera y líneas; idempotencyKey permite reintentar sin duplicar.
	SubmitOrder(ctx context.Context, tenant string, order dto.OrderSubmission, idempotencyKey string) (*dto.OrderReceipt, error)
	// GetOrder devuelve domain.ErrNotFound (envuelto) si el servidor no tiene el pedido.
	GetOrder(ctx context.Context, tenant string, documentNumber int64) (*dto.OrderReceipt, error)
	Notify(ctx context.Context, tenant string, req dto.NotificationRequest) error
}

// ImageSource puerto de salida para el manifiesto y descarga de imágenes de productos.
type ImageSource interface {
	ImageManifest(ctx context.Context, tenant string) ([]dto.ImageEntryDTO, error)
	Download(ctx context.Context, url string) ([]byte, error)
}

// AuthGateway login contra el servidor central.
type AuthGateway interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
}

// TokenSource entrega la credencial vigente del tenant para las llamadas autenticadas.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}
