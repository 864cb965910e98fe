package workflow

// ActionKind identifica una acción invocable sobre un documento.
type ActionKind string

// Acciones de transición (una por arista del grafo) y acciones auxiliares
// dependientes de estado que no son aristas.
const (
	ActionSubmit           ActionKind = "SUBMIT"
	ActionCancel           ActionKind = "CANCEL"
	ActionApprove          ActionKind = "APPROVE"
	ActionReject           ActionKind = "REJECT"
	ActionStartPreparation ActionKind = "START_PREPARATION"
	ActionMarkReady        ActionKind = "MARK_READY"
	ActionDispatch         ActionKind = "DISPATCH"
	ActionMarkDelivered    ActionKind = "MARK_DELIVERED"
	ActionComplete         ActionKind = "COMPLETE"
	ActionResubmit         ActionKind = "RESUBMIT"

	ActionEdit               ActionKind = "EDIT"
	ActionExport             ActionKind = "EXPORT"
	ActionResendNotification ActionKind = "RESEND_NOTIFICATION"
)

// Action es una operación concreta que el actor puede invocar ahora mismo.
// TargetStatus va vacío en acciones que no son transiciones (EDIT, EXPORT...).
type Action struct {
	Kind          ActionKind `json:"kind"`
	TargetStatus  Status     `json:"target_status,omitempty"`
	RequiresNotes bool       `json:"requires_notes"`
}

// edgeAction mapea (from, to) al kind de acción que representa la arista.
// REJECT exige notas: todo rechazo debe llevar un motivo legible.
type edgeAction struct {
	from, to      Status
	kind          ActionKind
	requiresNotes bool
}

var edgeActions = []edgeAction{
	{StatusDraft, StatusAwaitingApproval, ActionSubmit, false},
	{StatusDraft, StatusCancelled, ActionCancel, false},
	{StatusAwaitingApproval, StatusApproved, ActionApprove, false},
	{StatusAwaitingApproval, StatusRejected, ActionReject, true},
	{StatusAwaitingApproval, StatusCancelled, ActionCancel, false},
	{StatusApproved, StatusInPreparation, ActionStartPreparation, false},
	{StatusInPreparation, StatusReadyForDelivery, ActionMarkReady, false},
	{StatusReadyForDelivery, StatusInTransit, ActionDispatch, false},
	{StatusInTransit, StatusDelivered, ActionMarkDelivered, false},
	{StatusDelivered, StatusCompleted, ActionComplete, false},
	{StatusRejected, StatusAwaitingApproval, ActionResubmit, false},
}

// extraAction es una acción dependiente de estado que no es arista del grafo:
// se habilita por pertenencia a un conjunto estático de estados más un guard.
type extraAction struct {
	kind     ActionKind
	statuses map[Status]bool
	guard    Guard
}

var extraActions = []extraAction{
	// Editar solo aplica a borradores y solo para su creador.
	{ActionEdit, statusSet(StatusDraft), guardOwner},
	// Exportar está disponible desde la aprobación en adelante (la generación
	// del PDF vive fuera de este servicio).
	{ActionExport, statusSet(
		StatusApproved, StatusInPreparation, StatusReadyForDelivery,
		StatusInTransit, StatusDelivered, StatusCompleted,
	), guardAnyViewer},
	// Reenviar la notificación de aprobación pendiente.
	{ActionResendNotification, statusSet(StatusAwaitingApproval), guardRole(RoleGerente, RoleAdmin)},
}

func statusSet(ss ...Status) map[Status]bool {
	m := make(map[Status]bool, len(ss))
	for _, s := range ss {
		m[s] = true
	}
	return m
}

// Resolve devuelve la lista ordenada de acciones que el actor puede invocar
// sobre el documento en este momento. Determinista y sin efectos: dos llamadas
// con los mismos argumentos devuelven exactamente la misma lista, en el mismo
// orden (primero las transiciones en orden de tabla, luego las auxiliares).
// La ausencia de permiso produce una lista sin esa acción, nunca un error.
func Resolve(doc DocumentRef, actor Actor) []Action {
	actions := make([]Action, 0, 4)
	for _, e := range edgeActions {
		if e.from != doc.Status {
			continue
		}
		if !IsLegalTransition(e.from, e.to, actor, doc) {
			continue
		}
		actions = append(actions, Action{
			Kind:          e.kind,
			TargetStatus:  e.to,
			RequiresNotes: e.requiresNotes,
		})
	}
	for _, x := range extraActions {
		if x.statuses[doc.Status] && x.guard(actor, doc) {
			actions = append(actions, Action{Kind: x.kind})
		}
	}
	return actions
}

// TransitionRequiresNotes indica si la arista (from, to) exige notas del actor.
// Una arista desconocida no exige notas: de su legalidad se ocupa el grafo.
func TransitionRequiresNotes(from, to Status) bool {
	for _, e := range edgeActions {
		if e.from == from && e.to == to {
			return e.requiresNotes
		}
	}
	return false
}

// CanInvoke indica si el actor tiene disponible la acción dada. Útil para
// validar peticiones auxiliares (EXPORT, RESEND_NOTIFICATION) en handlers.
func CanInvoke(doc DocumentRef, actor Actor, kind ActionKind) bool {
	for _, a := range Resolve(doc, actor) {
		if a.Kind == kind {
			return true
		}
	}
	return false
}
