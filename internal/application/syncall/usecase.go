// Package syncall orquesta la sincronización completa de un tenant: catálogos, pedidos e imágenes.
package syncall

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jhoicas/preventa/internal/application/imagesync"
	"github.com/jhoicas/preventa/internal/application/ports"
	"github.com/jhoicas/preventa/internal/application/pullsync"
	"github.com/jhoicas/preventa/internal/application/pushsync"
	"github.com/jhoicas/preventa/internal/domain/entity"
	"github.com/jhoicas/preventa/internal/domain/repository"
	"github.com/jhoicas/preventa/pkg/logger"
)

// Puller baja un tipo de catálogo.
type Puller interface {
	Pull(ctx context.Context, kind pullsync.EntityKind) (pullsync.Result, error)
}

// Pusher envía pedidos pendientes.
type Pusher interface {
	Submit(ctx context.Context, documentNumbers []int64) (pushsync.Result, error)
}

// ImageSyncer replica las imágenes de productos.
type ImageSyncer interface {
	Sync(ctx context.Context, onProgress func(done, total int)) (imagesync.Result, error)
}

// Options ajustes de una corrida.
type Options struct {
	Force      bool // ignora las marcas de versión y baja todos los tipos
	SkipPush   bool
	SkipImages bool
	OnProgress func(done, total int)
}

// Report resultado combinado. Los errores de cada etapa no detienen las siguientes.
type Report struct {
	Pull       pullsync.Summary
	Unchanged  []pullsync.EntityKind // tipos omitidos por versión sin cambios
	PushRan    bool
	Push       pushsync.Result
	PushErr    error
	ImagesRan  bool
	Images     imagesync.Result
	ImagesErr  error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Failed indica si alguna etapa terminó con errores.
func (r Report) Failed() bool {
	return r.Pull.Failed() || r.PushErr != nil || r.ImagesErr != nil ||
		len(r.Push.Failed) > 0 || r.Images.Failed > 0
}

// completedEvent carga útil de sync.completed.
type completedEvent struct {
	Pulled        []string `json:"pulled"`
	Unchanged     []string `json:"unchanged"`
	FailedKinds   []string `json:"failed_kinds"`
	OrdersSent    int      `json:"orders_sent"`
	OrdersFailed  int      `json:"orders_failed"`
	ImagesNew     int      `json:"images_new"`
	ImagesUpdated int      `json:"images_updated"`
	ImagesFailed  int      `json:"images_failed"`
	DurationMS    int64    `json:"duration_ms"`
}

// UseCase sincronización completa.
type UseCase struct {
	store  repository.TenantStore
	pull   Puller
	push   Pusher
	images ImageSyncer
	events ports.EventPublisher
	log    *logger.Logger
	now    func() time.Time
}

// NewUseCase construye el orquestador. push, images y events pueden ser nil.
func NewUseCase(store repository.TenantStore, pull Puller, push Pusher, images ImageSyncer,
	events ports.EventPublisher, log *logger.Logger) *UseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &UseCase{
		store:  store,
		pull:   pull,
		push:   push,
		images: images,
		events: events,
		log:    log.Component("syncall").Tenant(store.Tenant()),
		now:    time.Now,
	}
}

// Run ejecuta company, parameter, el resto de catálogos, el envío de pedidos y las imágenes,
// en ese orden. Solo devuelve error si ctx se cancela.
func (uc *UseCase) Run(ctx context.Context, opts Options) (Report, error) {
	rep := Report{StartedAt: uc.now()}

	uc.pullKind(ctx, &rep, pullsync.KindCompany)
	paramsFresh := uc.pullKind(ctx, &rep, pullsync.KindParameter)
	if err := ctx.Err(); err != nil {
		return rep, err
	}

	versions, err := uc.remoteVersions(ctx)
	if err != nil {
		uc.log.Warn().Err(err).Msg("no se pudieron leer las marcas de versión: se bajan todos los tipos")
	}
	for _, kind := range pullsync.AllKinds() {
		if kind == pullsync.KindCompany || kind == pullsync.KindParameter {
			continue
		}
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		version, hasVersion := versions[kind]
		if !opts.Force && paramsFresh && hasVersion && uc.applied(ctx, kind) == version {
			rep.Unchanged = append(rep.Unchanged, kind)
			uc.log.Debug().Str("kind", string(kind)).Int64("version", version).Msg("tipo sin cambios")
			continue
		}
		if uc.pullKind(ctx, &rep, kind) && hasVersion {
			if err := uc.store.Repos().Config.Set(ctx, versionKey(kind), strconv.FormatInt(version, 10)); err != nil {
				uc.log.Warn().Err(err).Str("kind", string(kind)).Msg("no se pudo guardar la marca de versión")
			}
		}
	}

	if !opts.SkipPush && uc.push != nil {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rep.PushRan = true
		rep.Push, rep.PushErr = uc.push.Submit(ctx, nil)
	}
	if !opts.SkipImages && uc.images != nil {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rep.ImagesRan = true
		rep.Images, rep.ImagesErr = uc.images.Sync(ctx, opts.OnProgress)
	}
	if err := ctx.Err(); err != nil {
		return rep, err
	}

	rep.FinishedAt = uc.now()
	uc.publish(ctx, rep)
	uc.log.Info().
		Int("pulled", len(rep.Pull.Results)).
		Int("unchanged", len(rep.Unchanged)).
		Int("failed_kinds", len(rep.Pull.Failures)).
		Int("orders_sent", len(rep.Push.Succeeded)).
		Int("images_failed", rep.Images.Failed).
		Dur("duration", rep.FinishedAt.Sub(rep.StartedAt)).
		Msg("sincronización completa")
	return rep, nil
}

func (uc *UseCase) pullKind(ctx context.Context, rep *Report, kind pullsync.EntityKind) bool {
	res, err := uc.pull.Pull(ctx, kind)
	if err != nil {
		rep.Pull.Failures = append(rep.Pull.Failures, pullsync.KindFailure{Kind: kind, Err: err})
		return false
	}
	rep.Pull.Results = append(rep.Pull.Results, res)
	return true
}

// remoteVersions marcas de versión de la fila de parámetros recién sincronizada.
// user no tiene marca y siempre se baja.
func (uc *UseCase) remoteVersions(ctx context.Context) (map[pullsync.EntityKind]int64, error) {
	p, err := uc.store.Repos().Parameters.Get(ctx)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errors.New("sin fila de parámetros")
	}
	return versionsOf(p), nil
}

func versionsOf(p *entity.Parameter) map[pullsync.EntityKind]int64 {
	out := make(map[pullsync.EntityKind]int64, 5)
	for kind, v := range map[pullsync.EntityKind]int64{
		pullsync.KindProduct:     p.ProductVersion,
		pullsync.KindClient:      p.ClientVersion,
		pullsync.KindSalesperson: p.SalespersonVersion,
		pullsync.KindPaymentTerm: p.PaymentTermVersion,
		pullsync.KindRoute:       p.RouteVersion,
	} {
		// 0: el servidor no publica versión para el tipo.
		if v > 0 {
			out[kind] = v
		}
	}
	return out
}

// applied versión aplicada localmente; -1 si nunca se guardó.
func (uc *UseCase) applied(ctx context.Context, kind pullsync.EntityKind) int64 {
	v, ok, err := uc.store.Repos().Config.Get(ctx, versionKey(kind))
	if err != nil || !ok {
		return -1
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return -1
	}
	return n
}

func versionKey(kind pullsync.EntityKind) string {
	return repository.ConfigSyncVersionPrefix + string(kind)
}

func (uc *UseCase) publish(ctx context.Context, rep Report) {
	if uc.events == nil {
		return
	}
	ev := completedEvent{
		Pulled:        []string{},
		Unchanged:     []string{},
		FailedKinds:   []string{},
		OrdersSent:    len(rep.Push.Succeeded),
		OrdersFailed:  len(rep.Push.Failed),
		ImagesNew:     rep.Images.New,
		ImagesUpdated: rep.Images.Updated,
		ImagesFailed:  rep.Images.Failed,
		DurationMS:    rep.FinishedAt.Sub(rep.StartedAt).Milliseconds(),
	}
	for _, r := range rep.Pull.Results {
		ev.Pulled = append(ev.Pulled, string(r.Kind))
	}
	for _, k := range rep.Unchanged {
		ev.Unchanged = append(ev.Unchanged, string(k))
	}
	for _, f := range rep.Pull.Failures {
		ev.FailedKinds = append(ev.FailedKinds, string(f.Kind))
	}
	if err := uc.events.Publish(ctx, ports.EventSyncCompleted, uc.store.Tenant(), ev); err != nil {
		uc.log.Warn().Err(fmt.Errorf("publicar %s: %w", ports.EventSyncCompleted, err)).Msg("evento no publicado")
	}
}
