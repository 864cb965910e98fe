package usecase

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/jhoicas/Almacen-api/internal/application/dto"
	"github.com/jhoicas/Almacen-api/internal/domain"
	"github.com/jhoicas/Almacen-api/internal/domain/entity"
	"github.com/jhoicas/Almacen-api/internal/domain/repository"
	"github.com/jhoicas/Almacen-api/internal/domain/workflow"
)

// DocumentUseCase casos de uso sobre documentos que no son transiciones:
// creación de borradores, edición de borradores, listados e historial.
// Las transiciones de estado pasan exclusivamente por el coordinador (docsync).
type DocumentUseCase struct {
	repo     repository.DocumentRepository
	histRepo repository.StatusHistoryRepository
}

// NewDocumentUseCase construye el caso de uso.
func NewDocumentUseCase(repo repository.DocumentRepository, histRepo repository.StatusHistoryRepository) *DocumentUseCase {
	return &DocumentUseCase{repo: repo, histRepo: histRepo}
}

// CreateDraft crea un documento en estado DRAFT a nombre del actor.
// El consecutivo legible se deriva del conteo por empresa y tipo.
func (uc *DocumentUseCase) CreateDraft(companyID string, actor workflow.Actor, in dto.CreateDocumentRequest) (*dto.DocumentResponse, error) {
	if in.Type != entity.DocumentTypeIssue && in.Type != entity.DocumentTypeReceipt {
		return nil, domain.ErrInvalidInput
	}
	lines, err := toLines(in.Lines)
	if err != nil {
		return nil, err
	}

	count, err := uc.repo.CountByCompanyAndType(companyID, in.Type)
	if err != nil {
		return nil, err
	}
	prefix := "SAL"
	if in.Type == entity.DocumentTypeReceipt {
		prefix = "ENT"
	}

	now := time.Now()
	doc := &entity.Document{
		ID:             uuid.New().String(),
		CompanyID:      companyID,
		Type:           in.Type,
		Reference:      fmt.Sprintf("%s-%06d", prefix, count+1),
		Status:         workflow.StatusDraft,
		CreatedBy:      actor.UserID,
		CounterpartyID: in.CounterpartyID,
		WarehouseID:    in.WarehouseID,
		Lines:          lines,
		Notes:          in.Notes,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := uc.repo.Create(doc); err != nil {
		return nil, err
	}
	return ToDocumentResponse(doc), nil
}

// UpdateDraft edita un borrador. Solo el creador puede editar y solo en DRAFT;
// el estado nunca se toca por esta vía. Un documento de otra empresa se trata
// como inexistente.
func (uc *DocumentUseCase) UpdateDraft(companyID, id string, actor workflow.Actor, in dto.UpdateDocumentRequest) (*dto.DocumentResponse, error) {
	doc, err := uc.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if doc == nil || doc.CompanyID != companyID {
		return nil, nil
	}
	if !workflow.CanInvoke(doc.WorkflowRef(), actor, workflow.ActionEdit) {
		if doc.Status != workflow.StatusDraft {
			return nil, domain.ErrDocumentLocked
		}
		return nil, domain.ErrForbidden
	}

	if in.CounterpartyID != nil {
		doc.CounterpartyID = *in.CounterpartyID
	}
	if in.WarehouseID != nil {
		doc.WarehouseID = *in.WarehouseID
	}
	if in.Notes != nil {
		doc.Notes = *in.Notes
	}
	if in.Lines != nil {
		lines, err := toLines(in.Lines)
		if err != nil {
			return nil, err
		}
		doc.Lines = lines
	}
	doc.UpdatedAt = time.Now()
	if err := uc.repo.UpdateDraft(doc); err != nil {
		return nil, err
	}
	return ToDocumentResponse(doc), nil
}

// GetByID obtiene un documento por ID.
func (uc *DocumentUseCase) GetByID(id string) (*dto.DocumentResponse, error) {
	doc, err := uc.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	return ToDocumentResponse(doc), nil
}

// List lista documentos de la empresa con filtros de estado/tipo, filtro de
// texto libre insensible a mayúsculas y tildes sobre referencia y notas, y
// paginación. El texto se filtra antes de paginar: el offset indexa
// coincidencias, no filas crudas.
func (uc *DocumentUseCase) List(companyID string, status, docType, query string, limit, offset int) (*dto.DocumentListResponse, error) {
	filter := repository.DocumentFilter{
		CompanyID: companyID,
		Type:      docType,
	}
	if status != "" {
		st, err := workflow.ParseStatus(status)
		if err != nil {
			return nil, domain.ErrInvalidInput
		}
		filter.Status = st
	}
	folded := foldText(query)
	if folded == "" {
		// Sin texto libre la BD pagina; con texto se traen las filas del filtro
		// estructurado y se pagina sobre las coincidencias.
		filter.Limit = limit
		filter.Offset = offset
	}

	list, err := uc.repo.List(filter)
	if err != nil {
		return nil, err
	}

	if folded != "" {
		matches := list[:0]
		for _, d := range list {
			if matchesQuery(d, folded) {
				matches = append(matches, d)
			}
		}
		list = paginate(matches, limit, offset)
	}

	items := make([]dto.DocumentResponse, 0, len(list))
	for _, d := range list {
		items = append(items, *ToDocumentResponse(d))
	}
	return &dto.DocumentListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	}, nil
}

func paginate(list []*entity.Document, limit, offset int) []*entity.Document {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(list) {
		return nil
	}
	list = list[offset:]
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list
}

// History devuelve el historial de transiciones del documento.
func (uc *DocumentUseCase) History(documentID string) ([]dto.StatusChangeResponse, error) {
	changes, err := uc.histRepo.ListByDocument(documentID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.StatusChangeResponse, 0, len(changes))
	for _, ch := range changes {
		out = append(out, dto.StatusChangeResponse{
			FromStatus: ch.FromStatus,
			ToStatus:   ch.ToStatus,
			ActorID:    ch.ActorID,
			ActorRole:  ch.ActorRole,
			Notes:      ch.Notes,
			CreatedAt:  ch.CreatedAt,
		})
	}
	return out, nil
}

func toLines(in []dto.DocumentLineRequest) ([]entity.DocumentLine, error) {
	if len(in) == 0 {
		return nil, domain.ErrInvalidInput
	}
	lines := make([]entity.DocumentLine, 0, len(in))
	for _, l := range in {
		if l.ProductID == "" || !l.Quantity.IsPositive() || l.UnitPrice.IsNegative() {
			return nil, domain.ErrInvalidInput
		}
		lines = append(lines, entity.DocumentLine{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	return lines, nil
}

func matchesQuery(d *entity.Document, folded string) bool {
	return strings.Contains(foldText(d.Reference), folded) ||
		strings.Contains(foldText(d.Notes), folded)
}

// foldText normaliza para búsqueda: minúsculas y sin marcas diacríticas
// ("Camión" y "camion" deben coincidir).
func foldText(s string) string {
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// ToDocumentResponse mapea la entidad al DTO, recalculando subtotales y total.
func ToDocumentResponse(d *entity.Document) *dto.DocumentResponse {
	if d == nil {
		return nil
	}
	lines := make([]dto.DocumentLineResponse, 0, len(d.Lines))
	for _, l := range d.Lines {
		lines = append(lines, dto.DocumentLineResponse{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Subtotal:  l.Subtotal(),
		})
	}
	return &dto.DocumentResponse{
		ID:             d.ID,
		CompanyID:      d.CompanyID,
		Type:           d.Type,
		Reference:      d.Reference,
		Status:         d.Status,
		CreatedBy:      d.CreatedBy,
		CounterpartyID: d.CounterpartyID,
		WarehouseID:    d.WarehouseID,
		Lines:          lines,
		Notes:          d.Notes,
		Total:          d.Total(),
		Version:        d.Version,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}
