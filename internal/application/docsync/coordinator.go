package docsync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jhoicas/Almacen-api/internal/domain"
	"github.com/jhoicas/Almacen-api/internal/domain/entity"
	"github.com/jhoicas/Almacen-api/internal/domain/workflow"
	"github.com/jhoicas/Almacen-api/pkg/logger"
)

// EventKind clasifica las notificaciones del coordinador a sus observadores.
type EventKind string

const (
	// EventOptimisticApplied el estado local avanzó al destino antes de la
	// confirmación del servidor.
	EventOptimisticApplied EventKind = "OPTIMISTIC_APPLIED"
	// EventReconciled el servidor confirmó; el snapshot local ya es autoritativo.
	EventReconciled EventKind = "RECONCILED"
	// EventRolledBack el servidor rechazó; el snapshot local volvió al valor
	// previo al despacho. Code y Reason explican por qué.
	EventRolledBack EventKind = "ROLLED_BACK"
	// EventRefreshed refetch forzado tras un CONFLICT: el snapshot refleja la
	// verdad actual del servidor.
	EventRefreshed EventKind = "REFRESHED"
)

// Event es la notificación entregada a los observadores de un documento.
// Document es siempre un clon completo: los observadores nunca ven escrituras
// parciales ni comparten estado mutable con el coordinador.
type Event struct {
	Kind     EventKind
	Document *entity.Document
	Code     ErrorCode // solo en ROLLED_BACK
	Reason   string    // motivo legible; nunca se revierte un estado en silencio
}

// Observer recibe eventos de un documento. Se invoca de forma síncrona en la
// goroutine que resuelve el evento, fuera del lock del store.
type Observer func(Event)

// entry es el estado por documento dentro del store compartido.
type entry struct {
	snapshot *entity.Document
	token    uint64 // contador monótono de despachos; ordena totalmente los despachos de este documento
	subs     map[int]Observer
}

// Coordinator aplica transiciones de forma optimista: muta el snapshot local de
// inmediato, invoca el Document Service en segundo plano y reconcilia o revierte
// según el resultado. Es el único código autorizado a escribir Status.
//
// El store (documentId -> snapshot + suscriptores) es compartido por todas las
// vistas: lista y detalle observan la misma identidad de documento.
type Coordinator struct {
	svc     DocumentService
	log     *logger.Logger
	timeout time.Duration

	mu      sync.Mutex
	entries map[string]*entry
	nextSub int

	settles sync.WaitGroup
}

// NewCoordinator construye el coordinador. timeout acota cada llamada al
// Document Service; vencido, se trata igual que un fallo de red (rollback).
func NewCoordinator(svc DocumentService, log *logger.Logger, timeout time.Duration) *Coordinator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Coordinator{
		svc:     svc,
		log:     log,
		timeout: timeout,
		entries: make(map[string]*entry),
	}
}

// Load trae el snapshot autoritativo del documento al store y lo devuelve.
func (c *Coordinator) Load(ctx context.Context, documentID string) (*entity.Document, error) {
	doc, err := c.svc.FetchDocument(ctx, documentID)
	if err != nil {
		var svcErr *ServiceError
		if errors.As(err, &svcErr) && svcErr.Code == CodeNotFound {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	c.mu.Lock()
	e := c.entryLocked(documentID)
	e.snapshot = doc.Clone()
	c.mu.Unlock()
	return doc, nil
}

// Snapshot devuelve un clon del snapshot local actual, si existe.
func (c *Coordinator) Snapshot(documentID string) (*entity.Document, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[documentID]
	if !ok || e.snapshot == nil {
		return nil, false
	}
	return e.snapshot.Clone(), true
}

// Subscribe registra un observador del documento y devuelve la función para
// darse de baja. La baja es responsabilidad de la vista: una respuesta en vuelo
// se aplica igual al store compartido aunque la vista ya no exista.
func (c *Coordinator) Subscribe(documentID string, fn Observer) func() {
	c.mu.Lock()
	e := c.entryLocked(documentID)
	c.nextSub++
	id := c.nextSub
	e.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		if e, ok := c.entries[documentID]; ok {
			delete(e.subs, id)
		}
		c.mu.Unlock()
	}
}

// ResolveActions devuelve las acciones disponibles para el actor sobre el
// snapshot local del documento.
func (c *Coordinator) ResolveActions(documentID string, actor workflow.Actor) ([]workflow.Action, error) {
	snap, ok := c.Snapshot(documentID)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return workflow.Resolve(snap.WorkflowRef(), actor), nil
}

// Dispatch ejecuta una transición iniciada por el usuario:
//
//  1. valida contra el grafo; ilegal => ErrInvalidTransition, sin red ni
//     mutación; una arista que exige notas sin notas => ErrInvalidInput
//  2. guarda el snapshot previo para rollback
//  3. incrementa y captura el token de despacho del documento
//  4. aplica el estado destino al snapshot local y notifica (optimista)
//  5. invoca el Document Service en segundo plano y reconcilia al responder
//
// Devuelve el snapshot optimista. La confirmación o el rollback llegan a los
// observadores vía Subscribe.
func (c *Coordinator) Dispatch(actor workflow.Actor, documentID string, target workflow.Status, notes string) (*entity.Document, error) {
	c.mu.Lock()
	e, ok := c.entries[documentID]
	if !ok || e.snapshot == nil {
		c.mu.Unlock()
		return nil, domain.ErrNotFound
	}

	ref := e.snapshot.WorkflowRef()
	if !workflow.IsLegalTransition(ref.Status, target, actor, ref) {
		from := ref.Status
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, target)
	}
	if workflow.TransitionRequiresNotes(ref.Status, target) && strings.TrimSpace(notes) == "" {
		// Un rechazo sin motivo no se despacha: ni mutación local ni red.
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: la transición a %s exige notas", domain.ErrInvalidInput, target)
	}

	previous := e.snapshot.Clone()
	e.token++
	req := TransitionRequest{
		DocumentID:      documentID,
		TargetStatus:    target,
		Notes:           notes,
		Actor:           actor,
		ExpectedVersion: previous.Version,
		Token:           e.token,
	}

	// Mutación optimista: se aplica de forma síncrona, antes de cualquier
	// suspensión. La latencia percibida por el observador local es cero.
	e.snapshot.Status = target
	e.snapshot.UpdatedAt = time.Now()

	snap := e.snapshot.Clone()
	obs := e.observersLocked()
	c.mu.Unlock()

	emit(obs, Event{Kind: EventOptimisticApplied, Document: snap})

	c.settles.Add(1)
	go c.settle(req, previous)

	return snap, nil
}

// settle espera la respuesta del Document Service y reconcilia el store.
// Usa un contexto propio, no el de la petición HTTP que originó el despacho:
// que el usuario navegue a otra vista no debe cancelar la reconciliación del
// store compartido.
func (c *Coordinator) settle(req TransitionRequest, previous *entity.Document) {
	defer c.settles.Done()

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	serverDoc, err := c.svc.SubmitTransition(ctx, req)

	c.mu.Lock()
	e, ok := c.entries[req.DocumentID]
	if !ok || e.token != req.Token {
		// Un despacho posterior reemplazó a este: la respuesta es obsoleta.
		// No se muta estado ni se propagan errores de una llamada superada.
		c.mu.Unlock()
		c.log.Debug().
			Str("document_id", req.DocumentID).
			Uint64("token", req.Token).
			Msg("respuesta obsoleta descartada")
		return
	}

	if err == nil {
		// El servidor es la fuente de verdad para la forma final: los campos
		// optimistas eran una predicción, no una garantía.
		e.snapshot = serverDoc.Clone()
		snap := serverDoc.Clone()
		obs := e.observersLocked()
		c.mu.Unlock()
		emit(obs, Event{Kind: EventReconciled, Document: snap})
		return
	}

	// Fallo: restaurar el snapshot previo al despacho y explicar el motivo.
	e.snapshot = previous.Clone()
	code, reason := classifyError(err)
	snap := previous.Clone()
	obs := e.observersLocked()
	c.mu.Unlock()

	c.log.Warn().
		Str("document_id", req.DocumentID).
		Str("target", string(req.TargetStatus)).
		Str("code", string(code)).
		Msg("transición revertida")

	emit(obs, Event{Kind: EventRolledBack, Document: snap, Code: code, Reason: reason})

	if code == CodeConflict {
		// Otro actor ganó la carrera: forzar refetch para que el usuario vea
		// la verdad actual antes de reintentar.
		c.refresh(req.DocumentID, req.Token)
	}
}

// refresh refetch forzado tras un CONFLICT. Solo aplica si ningún despacho más
// nuevo tomó el control del documento mientras tanto.
func (c *Coordinator) refresh(documentID string, token uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	doc, err := c.svc.FetchDocument(ctx, documentID)
	if err != nil {
		c.log.Warn().Err(err).Str("document_id", documentID).Msg("refresh tras conflicto falló")
		return
	}

	c.mu.Lock()
	e, ok := c.entries[documentID]
	if !ok || e.token != token {
		c.mu.Unlock()
		return
	}
	e.snapshot = doc.Clone()
	snap := doc.Clone()
	obs := e.observersLocked()
	c.mu.Unlock()

	emit(obs, Event{Kind: EventRefreshed, Document: snap})
}

// Wait bloquea hasta que no queden reconciliaciones en vuelo (apagado limpio).
func (c *Coordinator) Wait() {
	c.settles.Wait()
}

// entryLocked devuelve la entrada del documento, creándola si no existe.
// Requiere c.mu tomado.
func (c *Coordinator) entryLocked(documentID string) *entry {
	e, ok := c.entries[documentID]
	if !ok {
		e = &entry{subs: make(map[int]Observer)}
		c.entries[documentID] = e
	}
	return e
}

// observersLocked devuelve los observadores en orden estable de suscripción.
// Requiere c.mu tomado.
func (e *entry) observersLocked() []Observer {
	ids := make([]int, 0, len(e.subs))
	for id := range e.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]Observer, 0, len(ids))
	for _, id := range ids {
		out = append(out, e.subs[id])
	}
	return out
}

func emit(obs []Observer, ev Event) {
	for _, fn := range obs {
		fn(ev)
	}
}

// classifyError traduce el error del servicio a (código, motivo legible).
// Timeout se trata igual que un fallo de red.
func classifyError(err error) (ErrorCode, string) {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		switch svcErr.Code {
		case CodeUnauthorized:
			return CodeUnauthorized, "el servidor rechazó la operación: permisos insuficientes"
		case CodeConflict:
			return CodeConflict, "otro usuario modificó el documento; se recargó el estado actual"
		case CodeNotFound:
			return CodeNotFound, "el documento ya no existe en el servidor"
		default:
			return svcErr.Code, svcErr.Message
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeNetwork, "tiempo de espera agotado; el cambio no se aplicó"
	}
	return CodeNetwork, "fallo de red; el cambio no se aplicó"
}
