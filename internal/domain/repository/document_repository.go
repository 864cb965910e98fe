package repository

import (
	"github.com/jhoicas/Almacen-api/internal/domain/entity"
	"github.com/jhoicas/Almacen-api/internal/domain/workflow"
)

// DocumentFilter filtros del listado de documentos.
type DocumentFilter struct {
	CompanyID string
	Status    workflow.Status // vacío = todos
	Type      string          // ISSUE, RECEIPT; vacío = todos
	CreatedBy string          // vacío = todos
	Limit     int             // <= 0 = sin paginación
	Offset    int
}

// DocumentRepository define el puerto de persistencia para Document (DIP).
// La implementación vive en infrastructure.
type DocumentRepository interface {
	Create(doc *entity.Document) error
	GetByID(id string) (*entity.Document, error)
	// UpdateDraft reescribe cabecera y líneas de un borrador.
	UpdateDraft(doc *entity.Document) error
	// UpdateStatus persiste la transición con guard de versión: si la versión
	// almacenada ya no es expectedVersion no escribe nada y devuelve false.
	UpdateStatus(doc *entity.Document, expectedVersion int64) (bool, error)
	List(filter DocumentFilter) ([]*entity.Document, error)
	CountByCompanyAndType(companyID, docType string) (int64, error)
	Delete(id string) error
}

// StatusHistoryRepository define el puerto de persistencia del historial de transiciones.
type StatusHistoryRepository interface {
	Append(change *entity.StatusChange) error
	ListByDocument(documentID string) ([]*entity.StatusChange, error)
}
