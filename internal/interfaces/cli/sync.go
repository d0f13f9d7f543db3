package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jhoicas/preventa/internal/application/imagesync"
	"github.com/jhoicas/preventa/internal/application/pullsync"
	"github.com/jhoicas/preventa/internal/application/pushsync"
	"github.com/jhoicas/preventa/internal/application/syncall"
)

// ── pull ─────────────────────────────────────────────────────────────────────

// NewPullCommand crea el comando pull.
func NewPullCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pull [tipo...]",
		Short: "Baja datos de referencia del servidor",
		Long: `Baja del servidor central los tipos indicados (todos si no se indica ninguno)
y los aplica sobre la base local, un tipo por transacción.

Tipos: company, parameter, product, client, salesperson, payment_term, route, user`,
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := make([]pullsync.EntityKind, 0, len(args))
			for _, a := range args {
				k, err := pullsync.ParseKind(a)
				if err != nil {
					return err
				}
				kinds = append(kinds, k)
			}
			return withRuntime(cmd, rootOpts, func(ctx context.Context, rt *runtime) error {
				h, err := rt.open(ctx)
				if err != nil {
					return err
				}
				sum, err := rt.puller(h).PullAll(ctx, kinds...)
				if err != nil {
					return err
				}
				if err := printPull(rt, sum); err != nil {
					return err
				}
				if sum.Failed() {
					return fmt.Errorf("%d tipo(s) sin sincronizar", len(sum.Failures))
				}
				return nil
			})
		},
	}
}

type pullOutput struct {
	Kind     string   `json:"kind"`
	Inserted int      `json:"inserted"`
	Updated  int      `json:"updated"`
	Skipped  int      `json:"skipped"`
	Rejected int      `json:"rejected"`
	Total    int      `json:"total"`
	Errors   []string `json:"errors,omitempty"`
}

func pullRows(sum pullsync.Summary) []pullOutput {
	rows := make([]pullOutput, 0, len(sum.Results)+len(sum.Failures))
	for _, r := range sum.Results {
		row := pullOutput{Kind: string(r.Kind), Inserted: r.Inserted, Updated: r.Updated, Skipped: r.Skipped,
			Rejected: r.Rejected, Total: r.Total}
		for _, e := range r.Errors {
			row.Errors = append(row.Errors, e.Error())
		}
		rows = append(rows, row)
	}
	for _, f := range sum.Failures {
		rows = append(rows, pullOutput{Kind: string(f.Kind), Errors: []string{f.Err.Error()}})
	}
	return rows
}

func printPull(rt *runtime, sum pullsync.Summary) error {
	rows := pullRows(sum)
	if rt.asJSON() {
		return rt.emit(rows)
	}
	for _, r := range rows {
		if r.Total == 0 && len(r.Errors) > 0 && r.Rejected == 0 {
			rt.printf("%-13s ERROR %s\n", r.Kind, r.Errors[0])
			continue
		}
		rt.printf("%-13s +%d ~%d =%d !%d (%d)\n", r.Kind, r.Inserted, r.Updated, r.Skipped, r.Rejected, r.Total)
		for _, e := range r.Errors {
			rt.printf("  rechazado %s\n", e)
		}
	}
	return nil
}

// ── push / reconcile ─────────────────────────────────────────────────────────

// NewPushCommand crea el comando push.
func NewPushCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "push [pedido...]",
		Short: "Envía pedidos pendientes al servidor",
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := parseDocs(args)
			if err != nil {
				return err
			}
			return withRuntime(cmd, rootOpts, func(ctx context.Context, rt *runtime) error {
				h, err := rt.open(ctx)
				if err != nil {
					return err
				}
				res, err := rt.pusher(h).Submit(ctx, docs)
				if err != nil {
					return err
				}
				if err := printPush(rt, res); err != nil {
					return err
				}
				if len(res.Failed) > 0 {
					return fmt.Errorf("%d pedido(s) sin enviar", len(res.Failed))
				}
				return nil
			})
		},
	}
}

type pushOutput struct {
	Sent   []int64         `json:"sent"`
	Failed []failureOutput `json:"failed"`
}

type failureOutput struct {
	DocumentNumber int64  `json:"document_number"`
	Reason         string `json:"reason"`
	Error          string `json:"error"`
}

func failures(fs []pushsync.Failure) []failureOutput {
	out := make([]failureOutput, 0, len(fs))
	for _, f := range fs {
		out = append(out, failureOutput{DocumentNumber: f.DocumentNumber, Reason: f.Reason, Error: errText(f.Err)})
	}
	return out
}

func printPush(rt *runtime, res pushsync.Result) error {
	if rt.asJSON() {
		return rt.emit(pushOutput{Sent: res.Succeeded, Failed: failures(res.Failed)})
	}
	for _, doc := range res.Succeeded {
		rt.printf("pedido %d enviado\n", doc)
	}
	for _, f := range res.Failed {
		rt.printf("pedido %d no enviado (%s): %v\n", f.DocumentNumber, f.Reason, f.Err)
	}
	if len(res.Succeeded)+len(res.Failed) == 0 {
		rt.printf("sin pedidos pendientes\n")
	}
	return nil
}

// NewReconcileCommand crea el comando reconcile.
func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Marca como enviados los pendientes que el servidor ya recibió",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, rootOpts, func(ctx context.Context, rt *runtime) error {
				h, err := rt.open(ctx)
				if err != nil {
					return err
				}
				res, err := rt.pusher(h).Reconcile(ctx)
				if err != nil {
					return err
				}
				if rt.asJSON() {
					return rt.emit(struct {
						Confirmed []int64         `json:"confirmed"`
						Pending   []int64         `json:"pending"`
						Failed    []failureOutput `json:"failed"`
					}{res.Confirmed, res.Pending, failures(res.Failed)})
				}
				rt.printf("confirmados %d, pendientes %d, con error %d\n", len(res.Confirmed), len(res.Pending), len(res.Failed))
				for _, f := range res.Failed {
					rt.printf("pedido %d (%s): %v\n", f.DocumentNumber, f.Reason, f.Err)
				}
				return nil
			})
		},
	}
}

// ── images ───────────────────────────────────────────────────────────────────

// NewImagesCommand crea el comando images.
func NewImagesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "images",
		Short: "Baja las imágenes de productos nuevas o modificadas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, rootOpts, func(ctx context.Context, rt *runtime) error {
				h, err := rt.open(ctx)
				if err != nil {
					return err
				}
				res, err := rt.imageSyncer(h).Sync(ctx, progress(rt))
				if perr := printImages(rt, res); perr != nil {
					return perr
				}
				return err
			})
		},
	}
}

// progress avance en stderr, solo con --verbose y salida de texto.
func progress(rt *runtime) func(done, total int) {
	if !rt.opts.Verbose || rt.asJSON() {
		return nil
	}
	return func(done, total int) {
		fmt.Fprintf(os.Stderr, "\rimágenes %d/%d", done, total)
		if done == total {
			fmt.Fprintln(os.Stderr)
		}
	}
}

func printImages(rt *runtime, res imagesync.Result) error {
	if rt.asJSON() {
		errs := make([]string, 0, len(res.Errors))
		for _, e := range res.Errors {
			errs = append(errs, e.Error())
		}
		return rt.emit(struct {
			New     int      `json:"new"`
			Updated int      `json:"updated"`
			Skipped int      `json:"skipped"`
			Failed  int      `json:"failed"`
			Total   int      `json:"total"`
			Errors  []string `json:"errors,omitempty"`
		}{res.New, res.Updated, res.Skipped, res.Failed, res.Total, errs})
	}
	rt.printf("imágenes: nuevas %d, actualizadas %d, sin cambios %d, fallidas %d (%d)\n",
		res.New, res.Updated, res.Skipped, res.Failed, res.Total)
	for _, e := range res.Errors {
		rt.printf("  %v\n", e)
	}
	return nil
}

// ── sync ─────────────────────────────────────────────────────────────────────

// SyncOptions flags del comando sync.
type SyncOptions struct {
	*RootOptions
	Force      bool
	SkipPush   bool
	SkipImages bool
}

// NewSyncCommand crea el comando sync.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sincronización completa: catálogos, pedidos e imágenes",
		Long: `Baja empresa y parámetros, luego los catálogos cuya versión remota cambió
(todos con --force), envía los pedidos pendientes y baja las imágenes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, rootOpts, func(ctx context.Context, rt *runtime) error {
				return runSync(ctx, rt, opts)
			})
		},
	}
	cmd.Flags().BoolVar(&opts.Force, "force", false, "bajar todos los tipos aunque su versión no haya cambiado")
	cmd.Flags().BoolVar(&opts.SkipPush, "skip-push", false, "no enviar pedidos")
	cmd.Flags().BoolVar(&opts.SkipImages, "skip-images", false, "no bajar imágenes")
	return cmd
}

func runSync(ctx context.Context, rt *runtime, opts *SyncOptions) error {
	h, err := rt.open(ctx)
	if err != nil {
		return err
	}
	uc := syncall.NewUseCase(h, rt.puller(h), rt.pusher(h), rt.imageSyncer(h), rt.events(), rt.log)
	rep, err := uc.Run(ctx, syncall.Options{
		Force:      opts.Force,
		SkipPush:   opts.SkipPush,
		SkipImages: opts.SkipImages,
		OnProgress: progress(rt),
	})
	if err != nil {
		return err
	}

	if rt.asJSON() {
		unchanged := make([]string, 0, len(rep.Unchanged))
		for _, k := range rep.Unchanged {
			unchanged = append(unchanged, string(k))
		}
		if err := rt.emit(struct {
			Pull       []pullOutput    `json:"pull"`
			Unchanged  []string        `json:"unchanged"`
			Sent       []int64         `json:"sent"`
			SendFailed []failureOutput `json:"send_failed"`
			PushError  string          `json:"push_error,omitempty"`
			ImagesNew  int             `json:"images_new"`
			ImagesUpd  int             `json:"images_updated"`
			ImagesErr  string          `json:"images_error,omitempty"`
			DurationMS int64           `json:"duration_ms"`
		}{
			pullRows(rep.Pull), unchanged, rep.Push.Succeeded, failures(rep.Push.Failed), errText(rep.PushErr),
			rep.Images.New, rep.Images.Updated, errText(rep.ImagesErr), rep.FinishedAt.Sub(rep.StartedAt).Milliseconds(),
		}); err != nil {
			return err
		}
	} else {
		if err := printPull(rt, rep.Pull); err != nil {
			return err
		}
		for _, k := range rep.Unchanged {
			rt.printf("%-13s sin cambios\n", k)
		}
		if rep.PushRan {
			if rep.PushErr != nil {
				rt.printf("pedidos: %v\n", rep.PushErr)
			} else if err := printPush(rt, rep.Push); err != nil {
				return err
			}
		}
		if rep.ImagesRan {
			if rep.ImagesErr != nil {
				rt.printf("imágenes: %v\n", rep.ImagesErr)
			}
			if err := printImages(rt, rep.Images); err != nil {
				return err
			}
		}
	}
	if rep.Failed() {
		return fmt.Errorf("sincronización con errores")
	}
	return nil
}

func parseDocs(args []string) ([]int64, error) {
	docs := make([]int64, 0, len(args))
	for _, a := range args {
		doc, err := parseDoc(a)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func parseDoc(s string) (int64, error) {
	doc, err := strconv.ParseInt(s, 10, 64)
	if err != nil || doc < 1 {
		return 0, fmt.Errorf("número de pedido inválido %q", s)
	}
	return doc, nil
}
