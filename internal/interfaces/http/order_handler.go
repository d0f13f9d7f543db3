package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/jhoicas/preventa/internal/application/central"
	"github.com/jhoicas/preventa/internal/application/dto"
)

// OrderHandler recibe pedidos y avisos de los dispositivos.
type OrderHandler struct {
	uc *central.UseCase
}

// NewOrderHandler construye el handler de pedidos.
func NewOrderHandler(uc *central.UseCase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

// Put PUT /tenants/:tenant/orders/:doc. 201 al crear, 200 si el pedido ya se había recibido
// con la misma Idempotency-Key, 409 si el número existe con otra clave.
func (h *OrderHandler) Put(c *fiber.Ctx) error {
	doc, err := strconv.ParseInt(c.Params("doc"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_ID", Message: "número de documento inválido"})
	}
	var in dto.OrderSubmission
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	// el valor de c.Get vive en el buffer de fasthttp; el store lo conserva entre requests
	key := utils.CopyString(c.Get("Idempotency-Key"))
	receipt, created, err := h.uc.SubmitOrder(c.UserContext(), GetTenantID(c), doc, key, in)
	if err != nil {
		return respondError(c, err)
	}
	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(receipt)
}

// Get GET /tenants/:tenant/orders/:doc.
func (h *OrderHandler) Get(c *fiber.Ctx) error {
	doc, err := strconv.ParseInt(c.Params("doc"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_ID", Message: "número de documento inválido"})
	}
	out, err := h.uc.GetOrder(c.UserContext(), GetTenantID(c), doc)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Notify POST /tenants/:tenant/notifications.
func (h *OrderHandler) Notify(c *fiber.Ctx) error {
	var in dto.NotificationRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := h.uc.Notify(c.UserContext(), GetTenantID(c), in); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusAccepted)
}
