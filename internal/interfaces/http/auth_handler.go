package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/preventa/internal/application/central"
	"github.com/jhoicas/preventa/internal/application/dto"
)

// AuthHandler maneja el login de los dispositivos.
type AuthHandler struct {
	uc *central.UseCase
}

// NewAuthHandler construye el handler de auth.
func NewAuthHandler(uc *central.UseCase) *AuthHandler {
	return &AuthHandler{uc: uc}
}

// Login POST /api/v1/auth/login. Body: tenant, username, password.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in dto.LoginRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.Tenant == "" || in.Username == "" || in.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "tenant, username y password son requeridos"})
	}
	out, err := h.uc.Login(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}
