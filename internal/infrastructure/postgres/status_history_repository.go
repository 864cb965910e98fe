package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/Almacen-api/internal/domain/entity"
	"github.com/jhoicas/Almacen-api/internal/domain/repository"
)

var _ repository.StatusHistoryRepository = (*StatusHistoryRepo)(nil)

// StatusHistoryRepo implementación del puerto StatusHistoryRepository sobre
// PostgreSQL. El historial es append-only.
type StatusHistoryRepo struct {
	q Querier
}

// NewStatusHistoryRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStatusHistoryRepository(q Querier) *StatusHistoryRepo {
	return &StatusHistoryRepo{q: q}
}

// Append registra una transición en el historial.
func (r *StatusHistoryRepo) Append(change *entity.StatusChange) error {
	query := `
		INSERT INTO document_status_history (id, document_id, from_status, to_status, actor_id, actor_role, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(context.Background(), query,
		change.ID, change.DocumentID, change.FromStatus, change.ToStatus,
		change.ActorID, change.ActorRole, change.Notes, change.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert status change: %w", err)
	}
	return nil
}

// ListByDocument devuelve el historial en orden cronológico.
func (r *StatusHistoryRepo) ListByDocument(documentID string) ([]*entity.StatusChange, error) {
	query := `
		SELECT id, document_id, from_status, to_status, actor_id, actor_role, notes, created_at
		FROM document_status_history WHERE document_id = $1 ORDER BY created_at ASC`
	rows, err := r.q.Query(context.Background(), query, documentID)
	if err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	defer rows.Close()
	var list []*entity.StatusChange
	for rows.Next() {
		var ch entity.StatusChange
		if err := rows.Scan(&ch.ID, &ch.DocumentID, &ch.FromStatus, &ch.ToStatus,
			&ch.ActorID, &ch.ActorRole, &ch.Notes, &ch.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan status change: %w", err)
		}
		list = append(list, &ch)
	}
	return list, rows.Err()
}
