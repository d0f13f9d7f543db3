package repository

import "context"

// Claves conocidas de la tabla config.
const (
	ConfigLastDocumentNumber = "orders.last_document_number"
	ConfigSchemaFingerprint  = "schema.fingerprint"
	ConfigAuthToken          = "auth.token"
	ConfigAuthUsername       = "auth.username"
	ConfigSyncVersionPrefix  = "sync.version."
)

// ConfigRepository almacén clave/valor del tenant.
type ConfigRepository interface {
	// Get devuelve ok=false si la clave no existe.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
