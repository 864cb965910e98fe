package docservice_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Almacen-api/internal/application/docsync"
	"github.com/jhoicas/Almacen-api/internal/domain"
	"github.com/jhoicas/Almacen-api/internal/domain/entity"
	"github.com/jhoicas/Almacen-api/internal/domain/repository"
	"github.com/jhoicas/Almacen-api/internal/domain/workflow"
	"github.com/jhoicas/Almacen-api/internal/infrastructure/docservice"
	"github.com/jhoicas/Almacen-api/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes en memoria. El TxRunner no abre transacción real: pasa los mismos
// repos, suficiente para verificar la lógica de guard y versión del servicio.
// ──────────────────────────────────────────────────────────────────────────────

type memDocRepo struct {
	docs map[string]*entity.Document
}

func (r *memDocRepo) Create(doc *entity.Document) error {
	r.docs[doc.ID] = doc.Clone()
	return nil
}

func (r *memDocRepo) GetByID(id string) (*entity.Document, error) {
	d, ok := r.docs[id]
	if !ok {
		return nil, nil
	}
	return d.Clone(), nil
}

func (r *memDocRepo) UpdateDraft(doc *entity.Document) error {
	r.docs[doc.ID] = doc.Clone()
	return nil
}

func (r *memDocRepo) UpdateStatus(doc *entity.Document, expectedVersion int64) (bool, error) {
	current, ok := r.docs[doc.ID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if current.Version != expectedVersion {
		return false, nil
	}
	r.docs[doc.ID] = doc.Clone()
	return true, nil
}

func (r *memDocRepo) List(repository.DocumentFilter) ([]*entity.Document, error) { return nil, nil }

func (r *memDocRepo) CountByCompanyAndType(string, string) (int64, error) { return 0, nil }

func (r *memDocRepo) Delete(id string) error {
	delete(r.docs, id)
	return nil
}

type memHistRepo struct {
	changes []*entity.StatusChange
}

func (r *memHistRepo) Append(ch *entity.StatusChange) error {
	r.changes = append(r.changes, ch)
	return nil
}

func (r *memHistRepo) ListByDocument(documentID string) ([]*entity.StatusChange, error) {
	return r.changes, nil
}

type memTxRunner struct {
	docRepo  *memDocRepo
	histRepo *memHistRepo
}

func (t *memTxRunner) Run(ctx context.Context, fn func(
	docRepo repository.DocumentRepository,
	histRepo repository.StatusHistoryRepository,
) error) error {
	return fn(t.docRepo, t.histRepo)
}

func newService(doc *entity.Document) (*docservice.Service, *memDocRepo, *memHistRepo) {
	docRepo := &memDocRepo{docs: map[string]*entity.Document{}}
	if doc != nil {
		docRepo.docs[doc.ID] = doc
	}
	histRepo := &memHistRepo{}
	svc := docservice.NewService(docRepo, &memTxRunner{docRepo: docRepo, histRepo: histRepo}, logger.Nop())
	return svc, docRepo, histRepo
}

func draftDoc() *entity.Document {
	now := time.Now()
	return &entity.Document{
		ID:        "doc-1",
		CompanyID: "co-1",
		Type:      entity.DocumentTypeIssue,
		Reference: "SAL-000001",
		Status:    workflow.StatusDraft,
		CreatedBy: "user-owner",
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func actorOf(userID, role string) workflow.Actor {
	return workflow.Actor{UserID: userID, CompanyID: "co-1", Role: role}
}

// ──────────────────────────────────────────────────────────────────────────────
// SubmitTransition
// ──────────────────────────────────────────────────────────────────────────────

func TestSubmitTransition_AplicaYDejaHistorial(t *testing.T) {
	svc, docRepo, histRepo := newService(draftDoc())

	got, err := svc.SubmitTransition(context.Background(), docsync.TransitionRequest{
		DocumentID:      "doc-1",
		TargetStatus:    workflow.StatusAwaitingApproval,
		Actor:           actorOf("user-owner", workflow.RoleEmpleado),
		ExpectedVersion: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusAwaitingApproval, got.Status)
	assert.Equal(t, int64(2), got.Version, "toda transición incrementa la versión")

	stored, _ := docRepo.GetByID("doc-1")
	assert.Equal(t, workflow.StatusAwaitingApproval, stored.Status)

	require.Len(t, histRepo.changes, 1)
	ch := histRepo.changes[0]
	assert.Equal(t, workflow.StatusDraft, ch.FromStatus)
	assert.Equal(t, workflow.StatusAwaitingApproval, ch.ToStatus)
	assert.Equal(t, "user-owner", ch.ActorID)
}

func TestSubmitTransition_VersionViejaEsConflicto(t *testing.T) {
	svc, _, histRepo := newService(draftDoc())

	_, err := svc.SubmitTransition(context.Background(), docsync.TransitionRequest{
		DocumentID:      "doc-1",
		TargetStatus:    workflow.StatusAwaitingApproval,
		Actor:           actorOf("user-owner", workflow.RoleEmpleado),
		ExpectedVersion: 99,
	})
	var svcErr *docsync.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, docsync.CodeConflict, svcErr.Code)
	assert.Empty(t, histRepo.changes, "un conflicto no deja rastro en el historial")
}

func TestSubmitTransition_GuardSeReevaluaEnServidor(t *testing.T) {
	svc, _, _ := newService(draftDoc())

	// Un empleado que no es el creador no puede enviar el borrador ajeno.
	_, err := svc.SubmitTransition(context.Background(), docsync.TransitionRequest{
		DocumentID:      "doc-1",
		TargetStatus:    workflow.StatusAwaitingApproval,
		Actor:           actorOf("user-otro", workflow.RoleEmpleado),
		ExpectedVersion: 1,
	})
	var svcErr *docsync.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, docsync.CodeUnauthorized, svcErr.Code)
}

func TestSubmitTransition_OtraEmpresaNoVeElDocumento(t *testing.T) {
	svc, docRepo, histRepo := newService(draftDoc())

	// Un gerente de otra empresa no transiciona documentos ajenos, aunque el
	// guard por rol lo permitiría dentro de su propia empresa. Se responde
	// NOT_FOUND, igual que un ID inexistente.
	_, err := svc.SubmitTransition(context.Background(), docsync.TransitionRequest{
		DocumentID:      "doc-1",
		TargetStatus:    workflow.StatusCancelled,
		Actor:           workflow.Actor{UserID: "user-ajeno", CompanyID: "co-2", Role: workflow.RoleGerente},
		ExpectedVersion: 1,
	})
	var svcErr *docsync.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, docsync.CodeNotFound, svcErr.Code)

	stored, _ := docRepo.GetByID("doc-1")
	assert.Equal(t, workflow.StatusDraft, stored.Status, "el documento no se toca")
	assert.Empty(t, histRepo.changes)
}

func TestSubmitTransition_RechazoSinNotasNoSeAplica(t *testing.T) {
	doc := draftDoc()
	doc.Status = workflow.StatusAwaitingApproval
	svc, docRepo, _ := newService(doc)

	_, err := svc.SubmitTransition(context.Background(), docsync.TransitionRequest{
		DocumentID:      "doc-1",
		TargetStatus:    workflow.StatusRejected,
		Notes:           "   ",
		Actor:           actorOf("user-mgr", workflow.RoleGerente),
		ExpectedVersion: 1,
	})
	var svcErr *docsync.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, docsync.CodeUnauthorized, svcErr.Code)

	stored, _ := docRepo.GetByID("doc-1")
	assert.Equal(t, workflow.StatusAwaitingApproval, stored.Status)

	// Con motivo, el rechazo procede y las notas quedan en el historial.
	got, err := svc.SubmitTransition(context.Background(), docsync.TransitionRequest{
		DocumentID:      "doc-1",
		TargetStatus:    workflow.StatusRejected,
		Notes:           "faltan precios en dos líneas",
		Actor:           actorOf("user-mgr", workflow.RoleGerente),
		ExpectedVersion: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusRejected, got.Status)
}

func TestSubmitTransition_DocumentoInexistente(t *testing.T) {
	svc, _, _ := newService(nil)

	_, err := svc.SubmitTransition(context.Background(), docsync.TransitionRequest{
		DocumentID:      "doc-x",
		TargetStatus:    workflow.StatusAwaitingApproval,
		Actor:           actorOf("user-owner", workflow.RoleEmpleado),
		ExpectedVersion: 1,
	})
	var svcErr *docsync.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, docsync.CodeNotFound, svcErr.Code)
}

func TestFetchDocument_DevuelveSnapshotActual(t *testing.T) {
	svc, _, _ := newService(draftDoc())

	doc, err := svc.FetchDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "SAL-000001", doc.Reference)

	_, err = svc.FetchDocument(context.Background(), "doc-x")
	var svcErr *docsync.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, docsync.CodeNotFound, svcErr.Code)
}
