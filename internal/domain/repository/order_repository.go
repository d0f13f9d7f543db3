package repository

import (
	"context"
	"time"

	"github.com/jhoicas/preventa/internal/domain/entity"
)

// OrderRepository define el puerto de persistencia para cabeceras y líneas de pedido.
type OrderRepository interface {
	CreateHeader(ctx context.Context, h *entity.OrderHeader) error
	// UpdateHeader persiste totales, condición de pago, observación y estado.
	UpdateHeader(ctx context.Context, h *entity.OrderHeader) error
	GetHeader(ctx context.Context, documentNumber int64) (*entity.OrderHeader, error)
	// DeleteHeader elimina la cabecera; las líneas caen por ON DELETE CASCADE.
	DeleteHeader(ctx context.Context, documentNumber int64) error
	FindPendingByClient(ctx context.Context, clientCode string) (*entity.OrderHeader, error)
	MaxDocumentNumber(ctx context.Context) (int64, error)
	// ListHeaders lista por estado; status vacío = todos.
	ListHeaders(ctx context.Context, status string) ([]*entity.OrderHeader, error)
	MarkSent(ctx context.Context, documentNumber int64, sentAt time.Time) error

	ListLines(ctx context.Context, documentNumber int64) ([]*entity.OrderLine, error)
	GetLine(ctx context.Context, documentNumber int64, productCode string) (*entity.OrderLine, error)
	// SaveLine inserta o reemplaza la línea del producto.
	SaveLine(ctx context.Context, l *entity.OrderLine) error
	DeleteLine(ctx context.Context, documentNumber int64, productCode string) error
}
