package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductDTO producto del catálogo central.
type ProductDTO struct {
	Code           string          `json:"code"`
	Description    string          `json:"description"`
	Unit           string          `json:"unit"`
	Price          decimal.Decimal `json:"price"`
	Stock          decimal.Decimal `json:"stock"`
	DecimalPlaces  int             `json:"decimal_places"`
	MaxDiscountPct decimal.Decimal `json:"max_discount_pct"`
	CommissionPct  decimal.Decimal `json:"commission_pct"`
	Version        int64           `json:"version"`
	Barcode        string          `json:"barcode"`
	Status         string          `json:"status"`
	RegisteredAt   time.Time       `json:"registered_at"`
}

// ImageEntryDTO entrada del manifiesto de imágenes de productos.
type ImageEntryDTO struct {
	ProductCode string    `json:"product_code"`
	FileName    string    `json:"file_name"` // p. ej. P1.jpg; vacío = código + extensión de la URL
	ModifiedAt  time.Time `json:"modified_at"`
	URL         string    `json:"url"`
}
