package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Almacen-api/internal/domain/workflow"
)

// Tipos de documento de bodega.
const (
	DocumentTypeIssue   = "ISSUE"   // salida de mercancía (hacia un cliente)
	DocumentTypeReceipt = "RECEIPT" // recepción de mercancía (desde un proveedor)
)

// DocumentLine es una línea de detalle del documento. Los totales nunca se
// almacenan como autoritativos: se recalculan siempre desde las líneas.
type DocumentLine struct {
	ProductID string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

// Subtotal devuelve cantidad * precio unitario de la línea.
func (l DocumentLine) Subtotal() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice)
}

// Document representa un documento de entrada o salida de bodega.
// Status solo puede mutarse vía el coordinador de transiciones; ningún otro
// código escribe ese campo directamente.
type Document struct {
	ID             string
	CompanyID      string
	Type           string // ISSUE, RECEIPT
	Reference      string // consecutivo legible, ej. SAL-000123
	Status         workflow.Status
	CreatedBy      string // UserID del creador (referencia débil, solo lookup)
	CounterpartyID string // cliente (ISSUE) o proveedor (RECEIPT); opcional
	WarehouseID    string
	Lines          []DocumentLine
	Notes          string
	Version        int64 // token de concurrencia optimista; el servidor lo incrementa en cada transición
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Total recalcula el total del documento desde las líneas.
func (d *Document) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range d.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// WorkflowRef devuelve la vista mínima del documento que consumen los guards.
func (d *Document) WorkflowRef() workflow.DocumentRef {
	return workflow.DocumentRef{Status: d.Status, CreatedBy: d.CreatedBy}
}

// Clone devuelve una copia profunda del documento (líneas incluidas). El
// coordinador la usa para snapshots de rollback y para notificar observadores
// sin exponer estado mutable compartido.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	cp := *d
	cp.Lines = make([]DocumentLine, len(d.Lines))
	copy(cp.Lines, d.Lines)
	return &cp
}

// StatusChange es una fila del historial de transiciones de un documento.
type StatusChange struct {
	ID         string
	DocumentID string
	FromStatus workflow.Status
	ToStatus   workflow.Status
	ActorID    string
	ActorRole  string
	Notes      string
	CreatedAt  time.Time
}
