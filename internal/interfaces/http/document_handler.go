package http

import (
	"bufio"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/jhoicas/Almacen-api/internal/application/docsync"
	"github.com/jhoicas/Almacen-api/internal/application/dto"
	"github.com/jhoicas/Almacen-api/internal/application/usecase"
	"github.com/jhoicas/Almacen-api/internal/domain"
	"github.com/jhoicas/Almacen-api/internal/domain/entity"
	"github.com/jhoicas/Almacen-api/internal/domain/workflow"
)

// DocumentHandler maneja las peticiones HTTP de documentos: CRUD de borradores,
// listados, acciones disponibles, transiciones optimistas, historial y eventos.
type DocumentHandler struct {
	uc          *usecase.DocumentUseCase
	coord       *docsync.Coordinator
	eventBuffer int
}

// NewDocumentHandler construye el handler. eventBuffer dimensiona el canal de
// eventos por conexión SSE.
func NewDocumentHandler(uc *usecase.DocumentUseCase, coord *docsync.Coordinator, eventBuffer int) *DocumentHandler {
	if eventBuffer <= 0 {
		eventBuffer = 16
	}
	return &DocumentHandler{uc: uc, coord: coord, eventBuffer: eventBuffer}
}

// loadScoped trae el documento al store del coordinador (si no estaba) y
// verifica que pertenezca a la empresa del actor. Un documento de otra empresa
// se reporta como inexistente: no se revela que el ID exista. Toda ruta por
// documento pasa por aquí antes de tocar el workflow.
func (h *DocumentHandler) loadScoped(c *fiber.Ctx, id string) (*entity.Document, error) {
	doc, ok := h.coord.Snapshot(id)
	if !ok {
		var err error
		doc, err = h.coord.Load(c.UserContext(), id)
		if err != nil {
			return nil, err
		}
	}
	if doc.CompanyID != GetCompanyID(c) {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

// Create godoc
// @Summary      Crear documento (nace en DRAFT)
// @Tags         documents
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateDocumentRequest  true  "Tipo, contraparte, bodega y líneas"
// @Success      201   {object}  dto.DocumentResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/documents [post]
func (h *DocumentHandler) Create(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "company_id requerido"})
	}
	var in dto.CreateDocumentRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.uc.CreateDraft(companyID, ActorFromCtx(c), in)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "tipo debe ser ISSUE o RECEIPT y las líneas deben tener cantidad positiva"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Update godoc
// @Summary      Editar borrador (solo DRAFT, solo el creador)
// @Tags         documents
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID del documento"
// @Param        body  body  dto.UpdateDocumentRequest  true  "Campos a modificar"
// @Success      200   {object}  dto.DocumentResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/documents/{id} [put]
func (h *DocumentHandler) Update(c *fiber.Ctx) error {
	id := c.Params("id")
	var in dto.UpdateDocumentRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.uc.UpdateDraft(GetCompanyID(c), id, ActorFromCtx(c), in)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDocumentLocked):
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DOCUMENT_LOCKED", Message: "el documento ya no está en borrador; no se puede editar"})
		case errors.Is(err, domain.ErrForbidden):
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "solo el creador puede editar el borrador"})
		case errors.Is(err, domain.ErrInvalidInput):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "líneas inválidas"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	if out == nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "documento no encontrado"})
	}
	return c.JSON(out)
}

// List godoc
// @Summary      Listar documentos de la empresa
// @Tags         documents
// @Security     Bearer
// @Produce      json
// @Param        status  query  string  false  "Filtro por estado"
// @Param        type    query  string  false  "ISSUE o RECEIPT"
// @Param        q       query  string  false  "Texto libre sobre referencia y notas"
// @Param        limit   query  int     false  "Límite"  default(20)
// @Param        offset  query  int     false  "Offset"  default(0)
// @Success      200     {object}  dto.DocumentListResponse
// @Router       /api/documents [get]
func (h *DocumentHandler) List(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "company_id requerido"})
	}
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	out, err := h.uc.List(companyID, c.Query("status"), c.Query("type"), c.Query("q"), limit, offset)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "estado de filtro desconocido"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener documento por ID
// @Description  Trae el snapshot autoritativo al store del coordinador y lo devuelve.
// @Tags         documents
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del documento"
// @Success      200  {object}  dto.DocumentResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/documents/{id} [get]
func (h *DocumentHandler) GetByID(c *fiber.Ctx) error {
	doc, err := h.loadScoped(c, c.Params("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "documento no encontrado"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(usecase.ToDocumentResponse(doc))
}

// Actions godoc
// @Summary      Acciones disponibles para el actor sobre el documento
// @Tags         documents
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del documento"
// @Success      200  {array}   dto.ActionResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/documents/{id}/actions [get]
func (h *DocumentHandler) Actions(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := h.loadScoped(c, id); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "documento no encontrado"})
	}
	actions, err := h.coord.ResolveActions(id, ActorFromCtx(c))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "documento no encontrado"})
	}
	out := make([]dto.ActionResponse, 0, len(actions))
	for _, a := range actions {
		out = append(out, dto.ActionResponse{
			Kind:          string(a.Kind),
			TargetStatus:  string(a.TargetStatus),
			RequiresNotes: a.RequiresNotes,
		})
	}
	return c.JSON(out)
}

// Transition godoc
// @Summary      Despachar una transición de estado (optimista)
// @Description  Aplica el estado destino de inmediato y confirma contra el
// @Description  servidor en segundo plano. La respuesta 202 trae el snapshot
// @Description  optimista; la confirmación o el rollback llegan por /events.
// @Tags         documents
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID del documento"
// @Param        body  body  dto.TransitionRequest  true  "Estado destino y notas"
// @Success      202   {object}  dto.DocumentResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/documents/{id}/transitions [post]
func (h *DocumentHandler) Transition(c *fiber.Ctx) error {
	id := c.Params("id")
	var in dto.TransitionRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	target, err := workflow.ParseStatus(in.TargetStatus)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "estado destino desconocido"})
	}

	if _, err := h.loadScoped(c, id); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "documento no encontrado"})
	}

	snap, err := h.coord.Dispatch(ActorFromCtx(c), id, target, in.Notes)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidTransition):
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INVALID_TRANSITION", Message: err.Error()})
		case errors.Is(err, domain.ErrInvalidInput):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "NOTES_REQUIRED", Message: "esta transición exige un motivo en las notas"})
		case errors.Is(err, domain.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "documento no encontrado"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.Status(fiber.StatusAccepted).JSON(usecase.ToDocumentResponse(snap))
}

// History godoc
// @Summary      Historial de transiciones del documento
// @Tags         documents
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del documento"
// @Success      200  {array}  dto.StatusChangeResponse
// @Router       /api/documents/{id}/history [get]
func (h *DocumentHandler) History(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := h.loadScoped(c, id); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "documento no encontrado"})
	}
	out, err := h.uc.History(id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(out)
}

// eventPayload es la forma en el wire de un evento SSE.
type eventPayload struct {
	Kind     string                `json:"kind"`
	Document *dto.DocumentResponse `json:"document,omitempty"`
	Code     string                `json:"code,omitempty"`
	Reason   string                `json:"reason,omitempty"`
}

// Events godoc
// @Summary      Stream SSE de eventos del documento
// @Description  Emite OPTIMISTIC_APPLIED, RECONCILED, ROLLED_BACK y REFRESHED
// @Description  conforme el coordinador muta el snapshot compartido.
// @Tags         documents
// @Security     Bearer
// @Produce      text/event-stream
// @Param        id  path  string  true  "ID del documento"
// @Router       /api/documents/{id}/events [get]
func (h *DocumentHandler) Events(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := h.loadScoped(c, id); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "documento no encontrado"})
	}

	// El canal amortigua ráfagas; si la conexión no drena a tiempo se
	// descartan eventos intermedios, el cliente siempre puede refetchear.
	events := make(chan docsync.Event, h.eventBuffer)
	unsubscribe := h.coord.Subscribe(id, func(ev docsync.Event) {
		select {
		case events <- ev:
		default:
		}
	})

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()
		keepalive := time.NewTicker(25 * time.Second)
		defer keepalive.Stop()
		for {
			select {
			case ev := <-events:
				payload := eventPayload{
					Kind:     string(ev.Kind),
					Document: usecase.ToDocumentResponse(ev.Document),
					Code:     string(ev.Code),
					Reason:   ev.Reason,
				}
				data, err := json.Marshal(payload)
				if err != nil {
					continue
				}
				if _, err := w.WriteString("event: " + string(ev.Kind) + "\ndata: " + string(data) + "\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			case <-keepalive.C:
				if _, err := w.WriteString(": keepalive\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))
	return nil
}
