package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Almacen-api/internal/domain/workflow"
)

// DocumentLineRequest línea de detalle al crear o editar un borrador.
type DocumentLineRequest struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// CreateDocumentRequest creación de un documento (nace en DRAFT).
type CreateDocumentRequest struct {
	Type           string                `json:"type"` // ISSUE, RECEIPT
	CounterpartyID string                `json:"counterparty_id"`
	WarehouseID    string                `json:"warehouse_id"`
	Notes          string                `json:"notes"`
	Lines          []DocumentLineRequest `json:"lines"`
}

// UpdateDocumentRequest edición de un borrador (solo DRAFT, solo el creador).
type UpdateDocumentRequest struct {
	CounterpartyID *string               `json:"counterparty_id"`
	WarehouseID    *string               `json:"warehouse_id"`
	Notes          *string               `json:"notes"`
	Lines          []DocumentLineRequest `json:"lines"`
}

// TransitionRequest petición de transición de estado desde la UI.
type TransitionRequest struct {
	TargetStatus string `json:"target_status"`
	Notes        string `json:"notes"`
}

// DocumentLineResponse línea de detalle en respuestas.
type DocumentLineResponse struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// DocumentResponse representación de un documento hacia la UI. Total siempre
// se recalcula desde las líneas, nunca se confía en un total almacenado.
type DocumentResponse struct {
	ID             string                 `json:"id"`
	CompanyID      string                 `json:"company_id"`
	Type           string                 `json:"type"`
	Reference      string                 `json:"reference"`
	Status         workflow.Status        `json:"status"`
	CreatedBy      string                 `json:"created_by"`
	CounterpartyID string                 `json:"counterparty_id,omitempty"`
	WarehouseID    string                 `json:"warehouse_id,omitempty"`
	Lines          []DocumentLineResponse `json:"lines"`
	Notes          string                 `json:"notes,omitempty"`
	Total          decimal.Decimal        `json:"total"`
	Version        int64                  `json:"version"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// DocumentListResponse página de documentos.
type DocumentListResponse struct {
	Items []DocumentResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// ActionResponse una acción disponible para el actor sobre el documento.
type ActionResponse struct {
	Kind          string `json:"kind"`
	TargetStatus  string `json:"target_status,omitempty"`
	RequiresNotes bool   `json:"requires_notes"`
}

// StatusChangeResponse fila del historial de transiciones.
type StatusChangeResponse struct {
	FromStatus workflow.Status `json:"from_status"`
	ToStatus   workflow.Status `json:"to_status"`
	ActorID    string          `json:"actor_id"`
	ActorRole  string          `json:"actor_role"`
	Notes      string          `json:"notes,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}
