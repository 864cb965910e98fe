package workflow

// Guard es un predicado sobre (actor, documento) que debe cumplirse para que
// una transición sea legal. Los guards son puros: sin I/O ni efectos.
type Guard func(actor Actor, doc DocumentRef) bool

// guardOwner: solo el creador del documento.
func guardOwner(actor Actor, doc DocumentRef) bool {
	return actor.UserID != "" && actor.UserID == doc.CreatedBy
}

// guardRole: cualquier actor con alguno de los roles dados.
func guardRole(roles ...string) Guard {
	return func(actor Actor, _ DocumentRef) bool {
		return actor.HasRole(roles...)
	}
}

// guardAnyViewer: cualquier actor autenticado con acceso de lectura al documento.
// El alcance por empresa ya lo garantiza la capa superior.
func guardAnyViewer(actor Actor, _ DocumentRef) bool {
	return actor.UserID != ""
}

// transition es una arista del grafo: estado origen, destino y su guard.
type transition struct {
	from  Status
	to    Status
	guard Guard
}

// transitions es la tabla declarativa de transiciones legales. Es la única
// fuente de verdad: la consultan tanto el resolutor de acciones como el
// coordinador de despachos, así la UI nunca muestra algo que el grafo prohíbe.
// El orden de la tabla define el orden de las acciones resueltas.
var transitions = []transition{
	{StatusDraft, StatusAwaitingApproval, guardOwner},
	{StatusDraft, StatusCancelled, guardOwner},
	{StatusAwaitingApproval, StatusApproved, guardRole(RoleGerente, RoleAdmin)},
	{StatusAwaitingApproval, StatusRejected, guardRole(RoleGerente, RoleAdmin)},
	{StatusAwaitingApproval, StatusCancelled, guardAnyViewer},
	{StatusApproved, StatusInPreparation, guardRole(RoleGerente, RoleAdmin, RoleBodeguero)},
	{StatusInPreparation, StatusReadyForDelivery, guardRole(RoleGerente, RoleAdmin, RoleBodeguero)},
	{StatusReadyForDelivery, StatusInTransit, guardRole(RoleGerente, RoleAdmin, RoleBodeguero)},
	{StatusInTransit, StatusDelivered, guardRole(RoleGerente, RoleAdmin, RoleBodeguero)},
	{StatusDelivered, StatusCompleted, guardRole(RoleGerente, RoleAdmin)},
	{StatusRejected, StatusAwaitingApproval, guardOwner}, // reenvío tras rechazo
}

// IsLegalTransition indica si el actor puede mover el documento de from a to.
// Función pura, sin I/O. Un estado origen desconocido no tiene salidas: se
// falla cerrado, nunca abierto.
func IsLegalTransition(from, to Status, actor Actor, doc DocumentRef) bool {
	for _, t := range transitions {
		if t.from == from && t.to == to {
			return t.guard(actor, doc)
		}
	}
	return false
}

// OutgoingTransitions devuelve, en orden de tabla, los destinos legales para el
// actor desde el estado actual del documento.
func OutgoingTransitions(actor Actor, doc DocumentRef) []Status {
	var out []Status
	for _, t := range transitions {
		if t.from == doc.Status && t.guard(actor, doc) {
			out = append(out, t.to)
		}
	}
	return out
}
