package workflow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Almacen-api/internal/domain/workflow"
)

func kinds(actions []workflow.Action) []workflow.ActionKind {
	out := make([]workflow.ActionKind, 0, len(actions))
	for _, a := range actions {
		out = append(out, a.Kind)
	}
	return out
}

// ──────────────────────────────────────────────────────────────────────────────
// Contenido por escenario
// ──────────────────────────────────────────────────────────────────────────────

func TestResolve_BorradorDelCreador(t *testing.T) {
	doc := docIn(workflow.StatusDraft)
	actions := workflow.Resolve(doc, actor(ownerID, workflow.RoleEmpleado))

	assert.Equal(t,
		[]workflow.ActionKind{workflow.ActionSubmit, workflow.ActionCancel, workflow.ActionEdit},
		kinds(actions),
		"el creador de un borrador puede enviarlo, anularlo o editarlo, en ese orden")
}

func TestResolve_BorradorAjenoSinAcciones(t *testing.T) {
	doc := docIn(workflow.StatusDraft)
	actions := workflow.Resolve(doc, actor(otherID, workflow.RoleGerente))

	assert.Empty(t, actions, "un borrador ajeno no ofrece acciones, ni siquiera a gerencia")
}

func TestResolve_EnAprobacionParaGerente(t *testing.T) {
	doc := docIn(workflow.StatusAwaitingApproval)
	actions := workflow.Resolve(doc, actor(otherID, workflow.RoleGerente))

	got := kinds(actions)
	assert.Contains(t, got, workflow.ActionApprove)
	assert.Contains(t, got, workflow.ActionReject)
	assert.Contains(t, got, workflow.ActionResendNotification)
	assert.NotContains(t, got, workflow.ActionEdit, "un documento enviado ya no es editable")
	assert.NotContains(t, got, workflow.ActionSubmit)

	for _, a := range actions {
		if a.Kind == workflow.ActionReject {
			assert.True(t, a.RequiresNotes, "rechazar siempre exige un motivo")
		}
		if a.Kind == workflow.ActionApprove {
			assert.False(t, a.RequiresNotes)
		}
	}
}

// Escenario de la propiedad comprobable: empleado sin gerencia no ve APPROVE/REJECT.
func TestResolve_EnAprobacionParaEmpleado(t *testing.T) {
	doc := docIn(workflow.StatusAwaitingApproval)
	actions := workflow.Resolve(doc, actor(otherID, workflow.RoleEmpleado))

	got := kinds(actions)
	assert.NotContains(t, got, workflow.ActionApprove)
	assert.NotContains(t, got, workflow.ActionReject)
	// Anular sigue disponible para cualquier actor con acceso.
	assert.Equal(t, []workflow.ActionKind{workflow.ActionCancel}, got)
}

func TestResolve_ExportarDesdeAprobado(t *testing.T) {
	for _, st := range []workflow.Status{
		workflow.StatusApproved, workflow.StatusInPreparation, workflow.StatusReadyForDelivery,
		workflow.StatusInTransit, workflow.StatusDelivered, workflow.StatusCompleted,
	} {
		actions := workflow.Resolve(docIn(st), actor(otherID, workflow.RoleEmpleado))
		assert.Contains(t, kinds(actions), workflow.ActionExport,
			"EXPORT debe estar disponible en %s", st)
	}
	actions := workflow.Resolve(docIn(workflow.StatusDraft), actor(ownerID, workflow.RoleEmpleado))
	assert.NotContains(t, kinds(actions), workflow.ActionExport,
		"EXPORT no aplica a borradores")
}

// ──────────────────────────────────────────────────────────────────────────────
// Propiedades: determinismo y concordancia con el grafo
// ──────────────────────────────────────────────────────────────────────────────

// Resolver dos veces con los mismos argumentos produce exactamente la misma
// lista, en el mismo orden.
func TestResolve_EsDeterminista(t *testing.T) {
	roles := []string{workflow.RoleAdmin, workflow.RoleGerente, workflow.RoleBodeguero, workflow.RoleEmpleado}
	for _, st := range workflow.AllStatuses() {
		for _, role := range roles {
			for _, uid := range []string{ownerID, otherID} {
				a := actor(uid, role)
				doc := docIn(st)
				first := workflow.Resolve(doc, a)
				second := workflow.Resolve(doc, a)
				assert.Equal(t, first, second,
					"resolve(%s, %s/%s) debe ser idempotente", st, uid, role)
			}
		}
	}
}

// Toda acción de transición resuelta debe satisfacer IsLegalTransition, y toda
// transición legal debe aparecer como acción: el resolutor y el grafo no
// pueden divergir.
func TestResolve_ConcuerdaConElGrafo(t *testing.T) {
	roles := []string{workflow.RoleAdmin, workflow.RoleGerente, workflow.RoleBodeguero, workflow.RoleEmpleado}
	for _, st := range workflow.AllStatuses() {
		for _, role := range roles {
			for _, uid := range []string{ownerID, otherID} {
				a := actor(uid, role)
				doc := docIn(st)

				var resolvedTargets []workflow.Status
				for _, act := range workflow.Resolve(doc, a) {
					if act.TargetStatus == "" {
						continue // acción auxiliar, no es arista
					}
					assert.True(t,
						workflow.IsLegalTransition(st, act.TargetStatus, a, doc),
						"resolve ofreció %s -> %s para %s/%s pero el grafo lo prohíbe",
						st, act.TargetStatus, uid, role)
					resolvedTargets = append(resolvedTargets, act.TargetStatus)
				}

				require.Equal(t, workflow.OutgoingTransitions(a, doc), resolvedTargets,
					"las transiciones resueltas deben ser exactamente las salidas legales del grafo")
			}
		}
	}
}

func TestCanInvoke(t *testing.T) {
	doc := docIn(workflow.StatusAwaitingApproval)

	assert.True(t, workflow.CanInvoke(doc, actor(otherID, workflow.RoleGerente), workflow.ActionResendNotification))
	assert.False(t, workflow.CanInvoke(doc, actor(otherID, workflow.RoleEmpleado), workflow.ActionResendNotification))
}

func TestTransitionRequiresNotes(t *testing.T) {
	// El rechazo es la única arista que exige motivo.
	assert.True(t, workflow.TransitionRequiresNotes(workflow.StatusAwaitingApproval, workflow.StatusRejected))
	assert.False(t, workflow.TransitionRequiresNotes(workflow.StatusAwaitingApproval, workflow.StatusApproved))
	assert.False(t, workflow.TransitionRequiresNotes(workflow.StatusDraft, workflow.StatusCancelled))
	assert.False(t, workflow.TransitionRequiresNotes(workflow.StatusCompleted, workflow.StatusDraft), "arista inexistente")
}
