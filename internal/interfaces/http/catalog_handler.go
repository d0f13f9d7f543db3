package http

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/preventa/internal/application/central"
	"github.com/jhoicas/preventa/internal/application/dto"
)

// CatalogHandler sirve el catálogo del tenant a los dispositivos.
type CatalogHandler struct {
	uc *central.UseCase
}

// NewCatalogHandler construye el handler de catálogo.
func NewCatalogHandler(uc *central.UseCase) *CatalogHandler {
	return &CatalogHandler{uc: uc}
}

// Company GET /tenants/:tenant/company.
func (h *CatalogHandler) Company(c *fiber.Ctx) error {
	out, err := h.uc.Company(c.UserContext(), GetTenantID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Parameters GET /tenants/:tenant/parameters.
func (h *CatalogHandler) Parameters(c *fiber.Ctx) error {
	out, err := h.uc.Parameters(c.UserContext(), GetTenantID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// List GET /tenants/:tenant/<resource>?page=&limit=.
func (h *CatalogHandler) List(resource string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, page, err := h.uc.List(c.UserContext(), GetTenantID(c), resource, c.QueryInt("page", 1), c.QueryInt("limit", 0))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(dto.ListResponse[json.RawMessage]{Items: items, Page: page})
	}
}

// Images GET /tenants/:tenant/images.
func (h *CatalogHandler) Images(c *fiber.Ctx) error {
	out, err := h.uc.ImageManifest(c.UserContext(), GetTenantID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}
