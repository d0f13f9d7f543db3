package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/preventa/internal/application/central"
	"github.com/jhoicas/preventa/internal/application/dto"
	"github.com/jhoicas/preventa/pkg/jwt"
)

// Locals keys con los claims del token en Fiber.
const (
	LocalUsername    = "username"
	LocalTenantID    = "tenant_id"
	LocalSalesperson = "salesperson_code"
)

// AuthMiddleware valida el Bearer Token JWT y deja usuario, tenant y vendedor en c.Locals.
func AuthMiddleware(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "Authorization header requerido"})
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "formato: Bearer <token>"})
		}
		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "token vacío"})
		}
		claims, err := jwt.Parse(jwtSecret, tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "token inválido o expirado"})
		}
		c.Locals(LocalUsername, claims.Username)
		c.Locals(LocalTenantID, claims.TenantID)
		c.Locals(LocalSalesperson, claims.SalespersonCode)
		return c.Next()
	}
}

// RequireTenant exige que el tenant del path (:tenant) sea el del token. Va después de AuthMiddleware.
func RequireTenant() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenant, err := central.NormalizeTenant(c.Params("tenant"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_TENANT", Message: err.Error()})
		}
		if tenant != GetTenantID(c) {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "el token no pertenece a este tenant"})
		}
		return c.Next()
	}
}

// GetUsername devuelve el usuario del contexto (después del middleware de auth).
func GetUsername(c *fiber.Ctx) string {
	return local(c, LocalUsername)
}

// GetTenantID devuelve el tenant del token (después del middleware de auth).
func GetTenantID(c *fiber.Ctx) string {
	return local(c, LocalTenantID)
}

// GetSalespersonCode devuelve el vendedor del token, si lo tiene.
func GetSalespersonCode(c *fiber.Ctx) string {
	return local(c, LocalSalesperson)
}

func local(c *fiber.Ctx, key string) string {
	v := c.Locals(key)
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
