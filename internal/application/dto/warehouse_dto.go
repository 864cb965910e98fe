package dto

import "time"

// CreateWarehouseRequest alta de bodega.
type CreateWarehouseRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// UpdateWarehouseRequest edición parcial de bodega.
type UpdateWarehouseRequest struct {
	Name    *string `json:"name"`
	Address *string `json:"address"`
}

// WarehouseResponse representación de bodega hacia la UI.
type WarehouseResponse struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"company_id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WarehouseListResponse página de bodegas.
type WarehouseListResponse struct {
	Items []WarehouseResponse `json:"items"`
	Page  PageResponse        `json:"page"`
}
