package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto del catálogo de la empresa.
type Product struct {
	ID          string
	CompanyID   string
	SKU         string
	Name        string
	Description string
	Price       decimal.Decimal
	UnitMeasure string // código de unidad de medida, ej. "94" (unidad)
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
