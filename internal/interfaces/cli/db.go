package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// NewDBCommand crea el grupo de comandos de la base local.
func NewDBCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Diagnóstico y mantenimiento de la base local del tenant",
	}
	cmd.AddCommand(newDBProbeCommand(rootOpts))
	cmd.AddCommand(newDBPurgeCommand(rootOpts))
	cmd.AddCommand(newDBSchemaCommand(rootOpts))
	return cmd
}

type probeOutput struct {
	Tenant    string `json:"tenant"`
	Path      string `json:"path"`
	Exists    bool   `json:"exists"`
	HasTables bool   `json:"has_tables"`
}

func newDBProbeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Indica si la base del tenant existe y tiene tablas, sin crearla",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, rootOpts, func(ctx context.Context, rt *runtime) error {
				path, err := rt.manager.Path(rt.opts.Tenant)
				if err != nil {
					return err
				}
				out := probeOutput{Tenant: rt.opts.Tenant, Path: path, Exists: rt.manager.Exists(rt.opts.Tenant)}
				if out.Exists {
					if out.HasTables, err = rt.manager.HasTables(ctx, rt.opts.Tenant); err != nil {
						return err
					}
				}
				if rt.asJSON() {
					return rt.emit(out)
				}
				rt.printf("%s\texiste=%t\ttablas=%t\n", out.Path, out.Exists, out.HasTables)
				return nil
			})
		},
	}
}

func newDBPurgeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Borra el archivo de la base solo si no tiene tablas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, rootOpts, func(ctx context.Context, rt *runtime) error {
				deleted, err := rt.manager.DeleteIfEmpty(ctx, rt.opts.Tenant)
				if err != nil {
					return err
				}
				if rt.asJSON() {
					return rt.emit(map[string]bool{"deleted": deleted})
				}
				if deleted {
					rt.printf("base vacía eliminada\n")
				} else {
					rt.printf("nada que borrar\n")
				}
				return nil
			})
		},
	}
}

type schemaOutput struct {
	Path              string   `json:"path"`
	Version           int      `json:"version"`
	Fingerprint       string   `json:"fingerprint"`
	Tables            []string `json:"tables"`
	CreatedTables     []string `json:"created_tables,omitempty"`
	AddedColumns      []string `json:"added_columns,omitempty"`
	AppliedMigrations []int    `json:"applied_migrations,omitempty"`
	ColumnErrors      []string `json:"column_errors,omitempty"`
	Introspected      bool     `json:"introspected"`
}

func newDBSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Crea o evoluciona las tablas del tenant y muestra qué cambió",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, rootOpts, func(ctx context.Context, rt *runtime) error {
				h, err := rt.open(ctx)
				if err != nil {
					return err
				}
				rep := h.SchemaReport()
				out := schemaOutput{
					Path:              h.Path(),
					Version:           rt.schema.LatestVersion(),
					Fingerprint:       rt.schema.Fingerprint(),
					CreatedTables:     rep.CreatedTables,
					AddedColumns:      rep.AddedColumns,
					AppliedMigrations: rep.AppliedMigrations,
					Introspected:      rep.Introspected,
				}
				for _, t := range rt.schema.Tables() {
					out.Tables = append(out.Tables, t.Name)
				}
				for _, e := range rep.ColumnErrors {
					out.ColumnErrors = append(out.ColumnErrors, e.Error())
				}
				if rt.asJSON() {
					return rt.emit(out)
				}
				rt.printf("%s (versión %d)\n", out.Path, out.Version)
				rt.printf("tablas: %d, creadas: %d, columnas agregadas: %d, migraciones: %v\n",
					len(out.Tables), len(out.CreatedTables), len(out.AddedColumns), out.AppliedMigrations)
				for _, c := range out.AddedColumns {
					rt.printf("  + %s\n", c)
				}
				for _, e := range out.ColumnErrors {
					rt.printf("  ! %s\n", e)
				}
				if !rep.Changed() {
					rt.printf("esquema al día\n")
				}
				return nil
			})
		},
	}
}
