package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/preventa/internal/application/central"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Central   *central.UseCase
	JWTSecret string
	FilesDir  string // directorio servido en /files (imágenes); vacío = no se sirve
}

// Router registra las rutas del API que consumen los dispositivos.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if deps.FilesDir != "" {
		app.Static("/files", deps.FilesDir)
	}

	api := app.Group("/api/v1")

	// Auth (público)
	authHandler := NewAuthHandler(deps.Central)
	api.Post("/auth/login", authHandler.Login)

	// Rutas del tenant: Bearer Token del mismo tenant que el path.
	tenants := api.Group("/tenants", AuthMiddleware(deps.JWTSecret))
	guard := RequireTenant()

	catalog := NewCatalogHandler(deps.Central)
	tenants.Get("/:tenant/company", guard, catalog.Company)
	tenants.Get("/:tenant/parameters", guard, catalog.Parameters)
	tenants.Get("/:tenant/images", guard, catalog.Images)
	for _, resource := range central.ListResources() {
		tenants.Get("/:tenant/"+resource, guard, catalog.List(resource))
	}

	orders := NewOrderHandler(deps.Central)
	tenants.Put("/:tenant/orders/:doc", guard, orders.Put)
	tenants.Get("/:tenant/orders/:doc", guard, orders.Get)
	tenants.Post("/:tenant/notifications", guard, orders.Notify)
}
