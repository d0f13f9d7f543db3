// Package imagestore guarda las imágenes de productos en <dir>/<tenant>/ y el índice de
// modificación en <dir>/<tenant>.mtimes.json.
package imagestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/jhoicas/preventa/internal/application/ports"
	"github.com/jhoicas/preventa/internal/domain"
)

var _ ports.ImageStore = (*Store)(nil)

// Store adaptador de ports.ImageStore sobre afero (disco real o memoria en tests).
type Store struct {
	fs   afero.Fs
	root string
}

// New construye el store sobre fs con raíz root.
func New(fs afero.Fs, root string) *Store {
	return &Store{fs: fs, root: root}
}

// NewOS store sobre el sistema de archivos del dispositivo.
func NewOS(root string) *Store {
	return New(afero.NewOsFs(), root)
}

// Dir directorio de imágenes del tenant.
func (s *Store) Dir(tenant string) string {
	return path.Join(s.root, tenant)
}

func (s *Store) indexPath(tenant string) string {
	return path.Join(s.root, tenant+".mtimes.json")
}

// Path ruta del archivo name del tenant. Rechaza nombres con separadores o "..".
func (s *Store) Path(tenant, name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", domain.NewValidationError("file_name", "nombre de imagen inválido %q", name)
	}
	return path.Join(s.Dir(tenant), name), nil
}

// LoadIndex lee el índice del tenant. Si no existe devuelve un índice vacío.
func (s *Store) LoadIndex(tenant string) (map[string]time.Time, error) {
	index := make(map[string]time.Time)
	data, err := afero.ReadFile(s.fs, s.indexPath(tenant))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return index, nil
		}
		return nil, fmt.Errorf("leer índice de imágenes: %w", err)
	}
	if len(data) == 0 {
		return index, nil
	}
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("parsear índice de imágenes: %w", err)
	}
	return index, nil
}

// SaveIndex reemplaza el índice del tenant de forma atómica.
func (s *Store) SaveIndex(tenant string, index map[string]time.Time) error {
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("serializar índice de imágenes: %w", err)
	}
	if err := s.fs.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("crear directorio de imágenes: %w", err)
	}
	return s.writeAtomic(s.indexPath(tenant), data)
}

// Write guarda la imagen (crea el directorio del tenant en el primer uso).
func (s *Store) Write(tenant, name string, data []byte) error {
	p, err := s.Path(tenant, name)
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(s.Dir(tenant), 0o755); err != nil {
		return fmt.Errorf("crear directorio de imágenes: %w", err)
	}
	return s.writeAtomic(p, data)
}

// Exists indica si el archivo ya está en disco.
func (s *Store) Exists(tenant, name string) bool {
	p, err := s.Path(tenant, name)
	if err != nil {
		return false
	}
	ok, err := afero.Exists(s.fs, p)
	return err == nil && ok
}

// writeAtomic escribe en un temporal del mismo directorio y renombra: un lector nunca ve un archivo a medias.
func (s *Store) writeAtomic(dst string, data []byte) error {
	tmp := dst + ".tmp-" + uuid.NewString()
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("escribir %s: %w", path.Base(dst), err)
	}
	if err := s.fs.Rename(tmp, dst); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("renombrar %s: %w", path.Base(dst), err)
	}
	return nil
}
