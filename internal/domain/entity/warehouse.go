package entity

import "time"

// Warehouse representa una bodega o sucursal desde donde se despachan o
// reciben documentos (multi-bodega).
type Warehouse struct {
	ID        string
	CompanyID string
	Name      string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
