package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Almacen-api/internal/domain"
	"github.com/jhoicas/Almacen-api/internal/domain/entity"
	"github.com/jhoicas/Almacen-api/internal/domain/repository"
)

var _ repository.DocumentRepository = (*DocumentRepo)(nil)

// DocumentRepo implementación del puerto DocumentRepository sobre PostgreSQL
// (usable con pool o tx). Cabecera en documents, líneas en document_lines.
type DocumentRepo struct {
	q Querier
}

// NewDocumentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDocumentRepository(q Querier) *DocumentRepo {
	return &DocumentRepo{q: q}
}

// Create persiste cabecera y líneas de un documento nuevo.
func (r *DocumentRepo) Create(doc *entity.Document) error {
	query := `
		INSERT INTO documents (id, company_id, type, reference, status, created_by, counterparty_id, warehouse_id, notes, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(context.Background(), query,
		doc.ID, doc.CompanyID, doc.Type, doc.Reference, doc.Status, doc.CreatedBy,
		nullable(doc.CounterpartyID), nullable(doc.WarehouseID), doc.Notes,
		doc.Version, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return r.insertLines(doc)
}

// GetByID obtiene cabecera y líneas de un documento.
func (r *DocumentRepo) GetByID(id string) (*entity.Document, error) {
	query := `
		SELECT id, company_id, type, reference, status, created_by, counterparty_id, warehouse_id, notes, version, created_at, updated_at
		FROM documents WHERE id = $1`
	doc, err := r.scanDocument(r.q.QueryRow(context.Background(), query, id))
	if err != nil || doc == nil {
		return nil, err
	}
	lines, err := r.linesFor([]string{doc.ID})
	if err != nil {
		return nil, err
	}
	doc.Lines = lines[doc.ID]
	return doc, nil
}

// UpdateDraft reescribe cabecera y líneas de un borrador. El estado y la
// versión no se tocan por esta vía.
func (r *DocumentRepo) UpdateDraft(doc *entity.Document) error {
	query := `
		UPDATE documents SET counterparty_id = $2, warehouse_id = $3, notes = $4, updated_at = $5
		WHERE id = $1`
	cmd, err := r.q.Exec(context.Background(), query,
		doc.ID, nullable(doc.CounterpartyID), nullable(doc.WarehouseID), doc.Notes, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	if _, err := r.q.Exec(context.Background(),
		`DELETE FROM document_lines WHERE document_id = $1`, doc.ID); err != nil {
		return fmt.Errorf("delete document lines: %w", err)
	}
	return r.insertLines(doc)
}

// UpdateStatus persiste una transición con guard de versión optimista: solo
// escribe si la versión almacenada sigue siendo expectedVersion. Devuelve
// false sin error cuando otro actor ganó la carrera.
func (r *DocumentRepo) UpdateStatus(doc *entity.Document, expectedVersion int64) (bool, error) {
	query := `
		UPDATE documents SET status = $2, version = $3, updated_at = $4
		WHERE id = $1 AND version = $5`
	cmd, err := r.q.Exec(context.Background(), query,
		doc.ID, doc.Status, doc.Version, doc.UpdatedAt, expectedVersion,
	)
	if err != nil {
		return false, fmt.Errorf("update document status: %w", err)
	}
	return cmd.RowsAffected() > 0, nil
}

// List lista documentos por empresa con filtros opcionales y paginación.
func (r *DocumentRepo) List(filter repository.DocumentFilter) ([]*entity.Document, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, company_id, type, reference, status, created_by, counterparty_id, warehouse_id, notes, version, created_at, updated_at
		FROM documents WHERE company_id = $1`)
	args := []any{filter.CompanyID}
	if filter.Status != "" {
		args = append(args, filter.Status)
		sb.WriteString(" AND status = $" + strconv.Itoa(len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		sb.WriteString(" AND type = $" + strconv.Itoa(len(args)))
	}
	if filter.CreatedBy != "" {
		args = append(args, filter.CreatedBy)
		sb.WriteString(" AND created_by = $" + strconv.Itoa(len(args)))
	}
	sb.WriteString(" ORDER BY created_at DESC")
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		sb.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args)))
	}

	rows, err := r.q.Query(context.Background(), sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var list []*entity.Document
	var ids []string
	for rows.Next() {
		doc, err := r.scanDocument(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, doc)
		ids = append(ids, doc.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return list, nil
	}
	lines, err := r.linesFor(ids)
	if err != nil {
		return nil, err
	}
	for _, doc := range list {
		doc.Lines = lines[doc.ID]
	}
	return list, nil
}

// CountByCompanyAndType cuenta documentos para el consecutivo de referencias.
func (r *DocumentRepo) CountByCompanyAndType(companyID, docType string) (int64, error) {
	var n int64
	err := r.q.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM documents WHERE company_id = $1 AND type = $2`,
		companyID, docType,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// Delete elimina un documento; las líneas caen por ON DELETE CASCADE.
func (r *DocumentRepo) Delete(id string) error {
	_, err := r.q.Exec(context.Background(), `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func (r *DocumentRepo) insertLines(doc *entity.Document) error {
	for i, line := range doc.Lines {
		_, err := r.q.Exec(context.Background(), `
			INSERT INTO document_lines (document_id, line_no, product_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5)`,
			doc.ID, i+1, line.ProductID, line.Quantity, line.UnitPrice,
		)
		if err != nil {
			return fmt.Errorf("insert document line: %w", err)
		}
	}
	return nil
}

func (r *DocumentRepo) linesFor(docIDs []string) (map[string][]entity.DocumentLine, error) {
	rows, err := r.q.Query(context.Background(), `
		SELECT document_id, product_id, quantity, unit_price
		FROM document_lines WHERE document_id = ANY($1) ORDER BY document_id, line_no`,
		docIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("list document lines: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]entity.DocumentLine, len(docIDs))
	for rows.Next() {
		var docID string
		var line entity.DocumentLine
		if err := rows.Scan(&docID, &line.ProductID, &line.Quantity, &line.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan document line: %w", err)
		}
		out[docID] = append(out[docID], line)
	}
	return out, rows.Err()
}

func (r *DocumentRepo) scanDocument(row pgx.Row) (*entity.Document, error) {
	var doc entity.Document
	var counterparty, warehouse *string
	err := row.Scan(
		&doc.ID, &doc.CompanyID, &doc.Type, &doc.Reference, &doc.Status, &doc.CreatedBy,
		&counterparty, &warehouse, &doc.Notes, &doc.Version, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	if counterparty != nil {
		doc.CounterpartyID = *counterparty
	}
	if warehouse != nil {
		doc.WarehouseID = *warehouse
	}
	return &doc, nil
}

// nullable convierte "" en NULL para columnas con FK opcional.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
