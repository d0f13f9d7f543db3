// devserver levanta el servidor central de referencia: login, catálogo por tenant, recepción
// de pedidos y avisos, e imágenes estáticas. Usa PostgreSQL si DATABASE_URL o DB_HOST están
// definidos; si no, guarda todo en memoria.
//
// Uso: go run ./cmd/devserver --seed seed.json --files ./files
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"

	"github.com/jhoicas/preventa/internal/application/central"
	"github.com/jhoicas/preventa/internal/infrastructure/memstore"
	"github.com/jhoicas/preventa/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/preventa/internal/interfaces/http"
	"github.com/jhoicas/preventa/pkg/config"
	"github.com/jhoicas/preventa/pkg/logger"
	"github.com/jhoicas/preventa/pkg/retry"
)

// Secreto de desarrollo cuando JWT_SECRET no está definido. Nunca usar en producción.
const devSecret = "preventa-dev-secret"

func main() {
	var seedPath, filesDir string
	cmd := &cobra.Command{
		Use:           "devserver",
		Short:         "Servidor central de referencia para desarrollo",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), seedPath, filesDir)
		},
	}
	cmd.Flags().StringVar(&seedPath, "seed", "", "archivo JSON con los tenants a cargar al arrancar")
	cmd.Flags().StringVar(&filesDir, "files", "", "directorio servido en /files (imágenes)")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "devserver:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, seedPath, filesDir string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("cargar configuración: %w", err)
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando servidor central")

	var store central.Store
	if cfg.DB.Enabled() {
		pool, err := postgres.NewPool(ctx, cfg.DB, retry.Policy{
			Attempts:     cfg.Retry.Attempts,
			InitialDelay: cfg.Retry.InitialDelay,
			Factor:       cfg.Retry.Factor,
			Jitter:       cfg.Retry.Jitter,
		}, log)
		if err != nil {
			return fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		defer pool.Close()
		pg := postgres.NewCentralStore(pool)
		if err := pg.Migrate(ctx); err != nil {
			return err
		}
		store = pg
		log.Info().Msg("almacén: PostgreSQL")
	} else {
		store = memstore.New()
		log.Warn().Msg("almacén: memoria (DATABASE_URL/DB_HOST no definidos)")
	}

	secret := cfg.JWT.Secret
	if secret == "" {
		secret = devSecret
		log.Warn().Msg("JWT_SECRET vacío: se usa el secreto de desarrollo")
	}
	uc := central.NewUseCase(store, central.TokenConfig{
		Secret:     secret,
		Issuer:     cfg.JWT.Issuer,
		Expiration: cfg.JWT.Expiration,
	}, log)

	if seedPath != "" {
		if err := loadSeeds(ctx, uc, seedPath, log); err != nil {
			return err
		}
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
		Immutable:    true,
	})
	app.Use(recover.New())

	httpRouter.Router(app, httpRouter.RouterDeps{
		Central:   uc,
		JWTSecret: secret,
		FilesDir:  filesDir,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("servidor detenido")
	return nil
}

func loadSeeds(ctx context.Context, uc *central.UseCase, path string, log *logger.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("abrir seed: %w", err)
	}
	defer f.Close()

	seeds, err := central.LoadSeeds(f)
	if err != nil {
		return err
	}
	for _, s := range seeds {
		if err := uc.Seed(ctx, s); err != nil {
			return fmt.Errorf("seed %s: %w", s.Tenant, err)
		}
		log.Info().Str("tenant", s.Tenant).Int("products", len(s.Products)).Int("users", len(s.Users)).Msg("tenant cargado")
	}
	return nil
}
