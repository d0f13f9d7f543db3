package ports

import "time"

// ImageStore almacenamiento local de imágenes de productos por tenant, con su índice
// de fechas de modificación (nombre de archivo -> mtime remoto aplicado).
type ImageStore interface {
	LoadIndex(tenant string) (map[string]time.Time, error)
	SaveIndex(tenant string, index map[string]time.Time) error
	Write(tenant, name string, data []byte) error
	Exists(tenant, name string) bool
}
