package central

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/preventa/internal/application/dto"
)

// Recursos del catálogo central. Cada documento se guarda como JSON bajo (tenant, recurso, clave).
const (
	ResourceCompany      = "company"
	ResourceParameters   = "parameters"
	ResourceProducts     = "products"
	ResourceClients      = "clients"
	ResourceSalespeople  = "salespeople"
	ResourcePaymentTerms = "payment-terms"
	ResourceRoutes       = "routes"
	ResourceUsers        = "users"
	ResourceImages       = "images"
)

// singletonKey clave del documento único de company y parameters.
const singletonKey = "-"

// ListResources recursos que se sirven paginados.
func ListResources() []string {
	return []string{ResourceProducts, ResourceClients, ResourceSalespeople, ResourcePaymentTerms, ResourceRoutes, ResourceUsers}
}

// StoredOrder pedido recibido por el servidor.
type StoredOrder struct {
	DocumentNumber int64
	SyncKey        string
	NetTotal       decimal.Decimal
	Payload        []byte // dto.OrderSubmission serializado
	ReceivedAt     time.Time
}

// Store puerto de persistencia del servidor central (PostgreSQL o memoria).
type Store interface {
	// PutDocuments inserta o reemplaza documentos del recurso en una sola transacción.
	PutDocuments(ctx context.Context, tenant, resource string, docs map[string][]byte) error
	// GetDocument devuelve (nil, nil) si no existe.
	GetDocument(ctx context.Context, tenant, resource, key string) ([]byte, error)
	// ListDocuments documentos ordenados por clave. limit 0 = todos.
	ListDocuments(ctx context.Context, tenant, resource string, offset, limit int) ([][]byte, error)
	CountDocuments(ctx context.Context, tenant, resource string) (int, error)
	// InsertOrder guarda el pedido si el número está libre. Si ya existe devuelve el guardado
	// sin modificarlo.
	InsertOrder(ctx context.Context, tenant string, o StoredOrder) (existing *StoredOrder, err error)
	// GetOrder devuelve (nil, nil) si no existe.
	GetOrder(ctx context.Context, tenant string, documentNumber int64) (*StoredOrder, error)
	AddNotification(ctx context.Context, tenant string, n dto.NotificationRequest, at time.Time) error
}
