// Package docservice implementa el Document Service autoritativo sobre
// PostgreSQL. Es la única copia de verdad de cada documento: valida el guard
// otra vez en servidor, aplica la transición con guard de versión optimista y
// deja el rastro en el historial dentro de la misma transacción.
package docservice

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/Almacen-api/internal/application/docsync"
	"github.com/jhoicas/Almacen-api/internal/domain/entity"
	"github.com/jhoicas/Almacen-api/internal/domain/repository"
	"github.com/jhoicas/Almacen-api/internal/domain/workflow"
	"github.com/jhoicas/Almacen-api/pkg/logger"
)

var _ docsync.DocumentService = (*Service)(nil)

// Service implementación del contrato DocumentService.
type Service struct {
	docRepo repository.DocumentRepository
	tx      docsync.TxRunner
	log     *logger.Logger
}

// NewService construye el servicio.
func NewService(docRepo repository.DocumentRepository, tx docsync.TxRunner, log *logger.Logger) *Service {
	return &Service{docRepo: docRepo, tx: tx, log: log}
}

// SubmitTransition aplica una transición de estado. El cliente ya validó el
// guard, pero el servidor no confía: lo reevalúa contra su propio snapshot.
// La escritura de estado y el registro de historial van en una sola tx.
func (s *Service) SubmitTransition(ctx context.Context, req docsync.TransitionRequest) (*entity.Document, error) {
	doc, err := s.docRepo.GetByID(req.DocumentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, docsync.NewServiceError(docsync.CodeNotFound, "documento no existe")
	}
	if doc.CompanyID != req.Actor.CompanyID {
		// Documento de otra empresa: para este actor no existe. Mismo código
		// que un ID inexistente para no revelar IDs ajenos.
		return nil, docsync.NewServiceError(docsync.CodeNotFound, "documento no existe")
	}
	if req.ExpectedVersion != doc.Version {
		// El cliente razonó sobre un snapshot viejo: otro actor ganó la carrera.
		return nil, docsync.NewServiceError(docsync.CodeConflict, "el documento cambió desde la última lectura")
	}
	if !workflow.IsLegalTransition(doc.Status, req.TargetStatus, req.Actor, doc.WorkflowRef()) {
		return nil, docsync.NewServiceError(docsync.CodeUnauthorized, "transición no permitida para este actor")
	}
	if workflow.TransitionRequiresNotes(doc.Status, req.TargetStatus) && strings.TrimSpace(req.Notes) == "" {
		return nil, docsync.NewServiceError(docsync.CodeUnauthorized, "esta transición exige un motivo en las notas")
	}

	from := doc.Status
	now := time.Now()
	doc.Status = req.TargetStatus
	doc.Version++
	doc.UpdatedAt = now

	err = s.tx.Run(ctx, func(docRepo repository.DocumentRepository, histRepo repository.StatusHistoryRepository) error {
		ok, err := docRepo.UpdateStatus(doc, req.ExpectedVersion)
		if err != nil {
			return err
		}
		if !ok {
			// Carrera entre nuestro GetByID y el UPDATE: el guard de versión en
			// la BD es el árbitro final.
			return docsync.NewServiceError(docsync.CodeConflict, "el documento cambió durante la transición")
		}
		return histRepo.Append(&entity.StatusChange{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			FromStatus: from,
			ToStatus:   doc.Status,
			ActorID:    req.Actor.UserID,
			ActorRole:  req.Actor.Role,
			Notes:      req.Notes,
			CreatedAt:  now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("document_id", doc.ID).
		Str("from", string(from)).
		Str("to", string(doc.Status)).
		Str("actor", req.Actor.UserID).
		Msg("transición aplicada")
	return doc, nil
}

// FetchDocument devuelve el snapshot autoritativo actual.
func (s *Service) FetchDocument(ctx context.Context, documentID string) (*entity.Document, error) {
	doc, err := s.docRepo.GetByID(documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, docsync.NewServiceError(docsync.CodeNotFound, "documento no existe")
	}
	return doc, nil
}
