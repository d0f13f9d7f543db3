// Package cli comandos de línea del dispositivo: sesión, sincronización, pedidos y base local.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions flags globales de todos los comandos.
type RootOptions struct {
	Tenant  string
	Verbose bool
	Format  string // "text" | "json"
}

// ValidFormats formatos de salida admitidos.
var ValidFormats = []string{"text", "json"}

// NewRootCommand crea el comando raíz del CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "preventa",
		Short: "Toma de pedidos sin conexión",
		Long: `preventa guarda catálogos y pedidos en una base local por tenant y los
sincroniza con el servidor central cuando hay conexión.

Ejemplo:
  preventa --tenant 12345678000199 login ana --password s3creta --online
  preventa --tenant 12345678000199 sync
  preventa --tenant 12345678000199 order new C1`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("formato %q inválido: debe ser uno de %v", opts.Format, ValidFormats)
			}
			if opts.Tenant == "" {
				return fmt.Errorf("--tenant es requerido")
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.Tenant, "tenant", "t", "", "tax id del tenant (CNPJ/CPF)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log detallado")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "formato de salida (text|json)")

	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))
	cmd.AddCommand(NewPullCommand(opts))
	cmd.AddCommand(NewPushCommand(opts))
	cmd.AddCommand(NewReconcileCommand(opts))
	cmd.AddCommand(NewImagesCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewOrderCommand(opts))
	cmd.AddCommand(NewDBCommand(opts))

	return cmd
}
