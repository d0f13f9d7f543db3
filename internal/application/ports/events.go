package ports

import "context"

// Tipos de evento publicados por el motor de sincronización.
const (
	EventOrderSent     = "order.sent"
	EventSyncCompleted = "sync.completed"
)

// EventPublisher puerto de salida para notificar hechos de sincronización (NATS o no-op).
// Publicar es best-effort: un error se registra y nunca revierte la operación que lo originó.
type EventPublisher interface {
	Publish(ctx context.Context, event string, tenant string, payload any) error
}
