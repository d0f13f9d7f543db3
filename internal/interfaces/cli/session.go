package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/preventa/internal/application/auth"
)

// LoginOptions flags del comando login.
type LoginOptions struct {
	*RootOptions
	Password string
	Online   bool
}

// NewLoginCommand crea el comando login.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoginOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "login <usuario>",
		Short: "Inicia sesión y guarda la credencial del tenant",
		Long: `Sin --online valida la contraseña contra los usuarios ya sincronizados
y usa el token que trajo la última sincronización. Con --online pide el
token al servidor central.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, rootOpts, func(ctx context.Context, rt *runtime) error {
				return runLogin(ctx, rt, opts, args[0])
			})
		},
	}
	cmd.Flags().StringVarP(&opts.Password, "password", "p", "", "contraseña (requerida)")
	cmd.Flags().BoolVar(&opts.Online, "online", false, "autenticar contra el servidor central")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

type loginOutput struct {
	Username    string `json:"username"`
	Name        string `json:"name,omitempty"`
	Salesperson string `json:"salesperson_code,omitempty"`
	Online      bool   `json:"online"`
}

func runLogin(ctx context.Context, rt *runtime, opts *LoginOptions, username string) error {
	h, err := rt.open(ctx)
	if err != nil {
		return err
	}
	uc := auth.NewUseCase(h, rt.client(h), auth.NewCredentials(h), rt.log)

	out := loginOutput{Online: opts.Online}
	if opts.Online {
		resp, err := uc.OnlineLogin(ctx, username, opts.Password)
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}
		out.Username, out.Name, out.Salesperson = resp.User.Username, resp.User.Name, resp.User.SalespersonCode
	} else {
		user, err := uc.Login(ctx, username, opts.Password)
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}
		out.Username, out.Name, out.Salesperson = user.Username, user.Name, user.SalespersonCode
	}

	if rt.asJSON() {
		return rt.emit(out)
	}
	rt.printf("sesión iniciada: %s", out.Username)
	if out.Salesperson != "" {
		rt.printf(" (vendedor %s)", out.Salesperson)
	}
	rt.printf("\n")
	return nil
}

// NewLogoutCommand crea el comando logout.
func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Borra la credencial guardada del tenant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, rootOpts, func(ctx context.Context, rt *runtime) error {
				h, err := rt.open(ctx)
				if err != nil {
					return err
				}
				if err := auth.NewUseCase(h, nil, auth.NewCredentials(h), rt.log).Logout(ctx); err != nil {
					return err
				}
				rt.printf("sesión cerrada\n")
				return nil
			})
		},
	}
}
