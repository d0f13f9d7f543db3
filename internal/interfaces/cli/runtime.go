package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/jhoicas/preventa/internal/application/auth"
	"github.com/jhoicas/preventa/internal/application/imagesync"
	"github.com/jhoicas/preventa/internal/application/ports"
	"github.com/jhoicas/preventa/internal/application/pullsync"
	"github.com/jhoicas/preventa/internal/application/pushsync"
	"github.com/jhoicas/preventa/internal/infrastructure/events"
	"github.com/jhoicas/preventa/internal/infrastructure/imagestore"
	"github.com/jhoicas/preventa/internal/infrastructure/remote"
	"github.com/jhoicas/preventa/internal/infrastructure/sqlite"
	"github.com/jhoicas/preventa/pkg/config"
	"github.com/jhoicas/preventa/pkg/logger"
	"github.com/jhoicas/preventa/pkg/retry"
)

// runtime dependencias de una invocación: configuración, logger y la base del tenant.
type runtime struct {
	opts    *RootOptions
	cfg     *config.Config
	log     *logger.Logger
	schema  *sqlite.SchemaManager
	manager *sqlite.Manager
	nc      *nats.Conn
	out     io.Writer
}

func newRuntime(opts *RootOptions, out io.Writer) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("cargar configuración: %w", err)
	}
	level := cfg.App.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: level})

	schema, err := sqlite.NewSchemaManager(log)
	if err != nil {
		return nil, err
	}
	return &runtime{
		opts:    opts,
		cfg:     cfg,
		log:     log,
		schema:  schema,
		manager: sqlite.NewManager(cfg.Storage.DataDir, schema, log),
		out:     out,
	}, nil
}

// withRuntime construye el runtime, ejecuta fn y libera base y conexión NATS.
func withRuntime(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, rt *runtime) error) error {
	rt, err := newRuntime(opts, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer rt.close()
	return fn(cmd.Context(), rt)
}

func (rt *runtime) close() {
	if rt.nc != nil {
		rt.nc.Close()
	}
	if err := rt.manager.Close(); err != nil {
		rt.log.Warn().Err(err).Msg("cerrar base")
	}
}

// open abre la base del tenant con el esquema al día.
func (rt *runtime) open(ctx context.Context) (*sqlite.Handle, error) {
	return rt.manager.Open(ctx, rt.opts.Tenant)
}

func (rt *runtime) policy() retry.Policy {
	return remote.RetryPolicy(rt.cfg.Retry)
}

func (rt *runtime) client(h *sqlite.Handle) *remote.Client {
	return remote.NewClient(rt.cfg.API, auth.NewCredentials(h), rt.log)
}

// events publicador NATS si NATS_URL está definido. Sin conexión se sigue sin eventos.
func (rt *runtime) events() ports.EventPublisher {
	if rt.cfg.NATS.URL == "" {
		return events.Nop{}
	}
	if rt.nc == nil {
		nc, err := events.Connect(rt.cfg.NATS.URL, rt.cfg.App.Name, rt.log)
		if err != nil {
			rt.log.Warn().Err(err).Msg("eventos deshabilitados")
			return events.Nop{}
		}
		rt.nc = nc
	}
	return events.NewNATSPublisher(rt.nc, rt.cfg.NATS.SubjectPrefix)
}

func (rt *runtime) puller(h *sqlite.Handle) *pullsync.UseCase {
	return pullsync.NewUseCase(h, rt.client(h), rt.policy(), rt.cfg.API.PageSize, rt.log)
}

func (rt *runtime) pusher(h *sqlite.Handle) *pushsync.UseCase {
	return pushsync.NewUseCase(h, rt.client(h), rt.events(), rt.policy(), rt.log)
}

func (rt *runtime) imageSyncer(h *sqlite.Handle) *imagesync.UseCase {
	return imagesync.NewUseCase(h.Tenant(), rt.client(h), imagestore.NewOS(rt.cfg.Storage.ImagesDir), rt.policy(), rt.log)
}

func (rt *runtime) asJSON() bool { return rt.opts.Format == "json" }

// emit escribe v como JSON indentado.
func (rt *runtime) emit(v any) error {
	enc := json.NewEncoder(rt.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (rt *runtime) printf(format string, args ...any) {
	fmt.Fprintf(rt.out, format, args...)
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
