package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderSubmission cabecera + líneas enviadas en una sola llamada. El servidor deduplica por SyncKey.
type OrderSubmission struct {
	DocumentNumber  int64           `json:"document_number"`
	SyncKey         string          `json:"sync_key"`
	ClientCode      string          `json:"client_code"`
	SalespersonCode string          `json:"salesperson_code"`
	PaymentTermCode string          `json:"payment_term_code"`
	IssuedAt        time.Time       `json:"issued_at"`
	GrossTotal      decimal.Decimal `json:"gross_total"`
	DiscountTotal   decimal.Decimal `json:"discount_total"`
	SurchargeTotal  decimal.Decimal `json:"surcharge_total"`
	NetTotal        decimal.Decimal `json:"net_total"`
	ItemCount       int             `json:"item_count"`
	Observation     string          `json:"observation"`
	Lines           []OrderLineDTO  `json:"lines"`
}

// OrderLineDTO línea de pedido.
type OrderLineDTO struct {
	ProductCode     string          `json:"product_code"`
	Description     string          `json:"description"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPct     decimal.Decimal `json:"discount_pct"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	SurchargeAmount decimal.Decimal `json:"surcharge_amount"`
	LineTotal       decimal.Decimal `json:"line_total"`
}

// OrderReceipt confirmación del servidor para un pedido recibido.
type OrderReceipt struct {
	DocumentNumber int64           `json:"document_number"`
	SyncKey        string          `json:"sync_key"`
	NetTotal       decimal.Decimal `json:"net_total"`
	ReceivedAt     time.Time       `json:"received_at"`
}

// NotificationRequest solicitud de aviso de confirmación (entrega a cargo del servidor).
type NotificationRequest struct {
	Type           string `json:"type"`
	DocumentNumber int64  `json:"document_number"`
	Message        string `json:"message"`
}
