package workflow

import "fmt"

// Status es el estado de un documento dentro del ciclo de vida de bodega.
type Status string

// Estados del ciclo de vida de un documento (entrada o salida de bodega).
const (
	StatusDraft            Status = "DRAFT"              // borrador, editable por el creador
	StatusAwaitingApproval Status = "AWAITING_APPROVAL"  // enviado, pendiente de aprobación
	StatusApproved         Status = "APPROVED"           // aprobado por gerencia
	StatusInPreparation    Status = "IN_PREPARATION"     // alistamiento en bodega
	StatusReadyForDelivery Status = "READY_FOR_DELIVERY" // alistado, pendiente de despacho
	StatusInTransit        Status = "IN_TRANSIT"         // en ruta
	StatusDelivered        Status = "DELIVERED"          // entregado al destinatario
	StatusCompleted        Status = "COMPLETED"          // cerrado (terminal)
	StatusRejected         Status = "REJECTED"           // rechazado, el creador puede reenviar
	StatusCancelled        Status = "CANCELLED"          // anulado (terminal)
)

// allStatuses en orden de ciclo de vida. El orden importa: se usa para
// validación y para listados deterministas.
var allStatuses = []Status{
	StatusDraft,
	StatusAwaitingApproval,
	StatusApproved,
	StatusInPreparation,
	StatusReadyForDelivery,
	StatusInTransit,
	StatusDelivered,
	StatusCompleted,
	StatusRejected,
	StatusCancelled,
}

// AllStatuses devuelve una copia de los estados conocidos, en orden de ciclo de vida.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// IsValid indica si s es un estado conocido del grafo.
func (s Status) IsValid() bool {
	for _, st := range allStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// IsTerminal indica si el estado no tiene transiciones de salida.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// String implementa fmt.Stringer.
func (s Status) String() string { return string(s) }

// ParseStatus valida un string externo contra los estados conocidos.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("estado desconocido: %q", raw)
	}
	return s, nil
}
