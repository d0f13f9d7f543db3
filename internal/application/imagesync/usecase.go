// Package imagesync replica las imágenes de productos del servidor en el dispositivo,
// bajando solo las nuevas o modificadas.
package imagesync

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/jhoicas/preventa/internal/application/dto"
	"github.com/jhoicas/preventa/internal/application/ports"
	"github.com/jhoicas/preventa/pkg/logger"
	"github.com/jhoicas/preventa/pkg/retry"
)

const defaultExt = ".jpg"

// ItemError imagen que no se pudo bajar o guardar.
type ItemError struct {
	FileName string
	Err      error
}

func (e ItemError) Error() string { return fmt.Sprintf("%s: %v", e.FileName, e.Err) }

// Result conteos de una sincronización de imágenes.
type Result struct {
	New     int
	Updated int
	Skipped int
	Failed  int
	Total   int
	Errors  []ItemError
}

// UseCase sincronizador de imágenes del tenant.
type UseCase struct {
	tenant string
	source ports.ImageSource
	store  ports.ImageStore
	policy retry.Policy
	log    *logger.Logger
}

// NewUseCase construye el caso de uso.
func NewUseCase(tenant string, source ports.ImageSource, store ports.ImageStore, policy retry.Policy, log *logger.Logger) *UseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &UseCase{
		tenant: tenant,
		source: source,
		store:  store,
		policy: policy,
		log:    log.Component("imagesync").Tenant(tenant),
	}
}

// Sync baja el manifiesto y, por cada entrada, la imagen si no está en el dispositivo o si la
// remota es más nueva que la registrada en el índice. onProgress (opcional) se invoca tras cada entrada.
// Solo devuelve error si el manifiesto no se pudo obtener, si el índice no se pudo guardar o si ctx se canceló.
func (uc *UseCase) Sync(ctx context.Context, onProgress func(done, total int)) (Result, error) {
	manifest, err := retry.Do(ctx, uc.policy, func(ctx context.Context) ([]dto.ImageEntryDTO, error) {
		return uc.source.ImageManifest(ctx, uc.tenant)
	})
	if err != nil {
		return Result{}, fmt.Errorf("manifiesto de imágenes: %w", err)
	}

	index, err := uc.store.LoadIndex(uc.tenant)
	if err != nil {
		uc.log.Warn().Err(err).Msg("índice de imágenes ilegible, se reconstruye")
		index = nil
	}
	if index == nil {
		index = map[string]time.Time{}
	}

	res := Result{Total: len(manifest)}
	var ctxErr error
	for i, entry := range manifest {
		if ctxErr = ctx.Err(); ctxErr != nil {
			break
		}
		name := FileName(entry)
		cached, known := index[name]
		onDisk := known && uc.store.Exists(uc.tenant, name)

		switch {
		case onDisk && !entry.ModifiedAt.After(cached):
			res.Skipped++
		default:
			if err := uc.fetch(ctx, entry, name); err != nil {
				res.Failed++
				res.Errors = append(res.Errors, ItemError{FileName: name, Err: err})
				uc.log.Warn().Str("file", name).Err(err).Msg("imagen no descargada")
				break
			}
			index[name] = entry.ModifiedAt
			if onDisk {
				res.Updated++
			} else {
				res.New++
			}
		}
		if onProgress != nil {
			onProgress(i+1, len(manifest))
		}
	}

	if err := uc.store.SaveIndex(uc.tenant, index); err != nil {
		return res, fmt.Errorf("guardar índice de imágenes: %w", err)
	}
	uc.log.Info().
		Int("new", res.New).
		Int("updated", res.Updated).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Int("total", res.Total).
		Msg("sincronización de imágenes completada")
	return res, ctxErr
}

func (uc *UseCase) fetch(ctx context.Context, entry dto.ImageEntryDTO, name string) error {
	if entry.URL == "" {
		return fmt.Errorf("entrada sin URL")
	}
	data, err := retry.Do(ctx, uc.policy, func(ctx context.Context) ([]byte, error) {
		return uc.source.Download(ctx, entry.URL)
	})
	if err != nil {
		return err
	}
	return uc.store.Write(uc.tenant, name, data)
}

// FileName nombre local de la imagen: el del manifiesto, o código del producto + extensión de la URL.
func FileName(e dto.ImageEntryDTO) string {
	if name := strings.TrimSpace(e.FileName); name != "" {
		return name
	}
	ext := defaultExt
	if u, err := url.Parse(e.URL); err == nil {
		if x := path.Ext(u.Path); x != "" {
			ext = strings.ToLower(x)
		}
	}
	return strings.TrimSpace(e.ProductCode) + ext
}
