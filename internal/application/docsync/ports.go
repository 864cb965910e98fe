package docsync

import (
	"context"
	"fmt"

	"github.com/jhoicas/Almacen-api/internal/domain/entity"
	"github.com/jhoicas/Almacen-api/internal/domain/repository"
	"github.com/jhoicas/Almacen-api/internal/domain/workflow"
)

// ErrorCode clasifica los fallos del Document Service que el coordinador debe
// distinguir para decidir cómo reconciliar.
type ErrorCode string

const (
	// CodeUnauthorized el servidor rechazó el guard aunque el cliente lo validó:
	// carrera entre cambio de permisos y disponibilidad de la acción. Rollback.
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// CodeConflict otro actor modificó el documento primero. Rollback y refresh
	// forzado para que el usuario vea la verdad actual antes de reintentar.
	CodeConflict ErrorCode = "CONFLICT"
	// CodeNotFound el documento no existe en el servidor.
	CodeNotFound ErrorCode = "NOT_FOUND"
	// CodeNetwork fallo de red o timeout. Rollback; el usuario puede reintentar
	// manualmente, nunca se reintenta de forma automática.
	CodeNetwork ErrorCode = "NETWORK_FAILURE"
)

// ServiceError es el error etiquetado que devuelve el Document Service.
type ServiceError struct {
	Code    ErrorCode
	Message string
}

// Error implementa error.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("document service: %s: %s", e.Code, e.Message)
}

// NewServiceError construye un error etiquetado.
func NewServiceError(code ErrorCode, message string) *ServiceError {
	return &ServiceError{Code: code, Message: message}
}

// TransitionRequest es la petición de transición que el coordinador envía al
// Document Service. Token es el contador monótono por documento que el propio
// coordinador usa para descartar respuestas obsoletas; el servidor lo ignora.
type TransitionRequest struct {
	DocumentID      string
	TargetStatus    workflow.Status
	Notes           string
	Actor           workflow.Actor
	ExpectedVersion int64
	Token           uint64
}

// DocumentService es el contrato estrecho con el servicio autoritativo de
// documentos. Hay exactamente una copia autoritativa de cada documento (lado
// servidor); el coordinador solo sigue su estado probable con baja latencia.
type DocumentService interface {
	// SubmitTransition aplica la transición y devuelve el snapshot autoritativo
	// resultante. Los fallos esperados llegan como *ServiceError.
	SubmitTransition(ctx context.Context, req TransitionRequest) (*entity.Document, error)
	// FetchDocument devuelve el snapshot autoritativo actual.
	FetchDocument(ctx context.Context, documentID string) (*entity.Document, error)
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando
// repositorios atados a esa tx. Lo implementa infrastructure/postgres; lo
// consume el Document Service de servidor para que transición e historial
// queden atómicos.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		docRepo repository.DocumentRepository,
		histRepo repository.StatusHistoryRepository,
	) error) error
}
