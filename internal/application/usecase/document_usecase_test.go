package usecase_test

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Almacen-api/internal/application/dto"
	"github.com/jhoicas/Almacen-api/internal/application/usecase"
	"github.com/jhoicas/Almacen-api/internal/domain"
	"github.com/jhoicas/Almacen-api/internal/domain/entity"
	"github.com/jhoicas/Almacen-api/internal/domain/repository"
	"github.com/jhoicas/Almacen-api/internal/domain/workflow"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes en memoria para el caso de uso de documentos. Implementan los puertos
// de repositorio con mapas, sin concurrencia: los casos de uso son síncronos.
// ──────────────────────────────────────────────────────────────────────────────

type memDocRepo struct {
	docs map[string]*entity.Document
}

func newMemDocRepo() *memDocRepo {
	return &memDocRepo{docs: map[string]*entity.Document{}}
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
	if _, ok := r.docs[doc.ID]; !ok {
		return domain.ErrNotFound
	}
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

func (r *memDocRepo) List(filter repository.DocumentFilter) ([]*entity.Document, error) {
	out := []*entity.Document{}
	for _, d := range r.docs {
		if d.CompanyID != filter.CompanyID {
			continue
		}
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		if filter.Type != "" && d.Type != filter.Type {
			continue
		}
		out = append(out, d.Clone())
	}
	return out, nil
}

func (r *memDocRepo) CountByCompanyAndType(companyID, docType string) (int64, error) {
	var n int64
	for _, d := range r.docs {
		if d.CompanyID == companyID && d.Type == docType {
			n++
		}
	}
	return n, nil
}

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
	out := []*entity.StatusChange{}
	for _, ch := range r.changes {
		if ch.DocumentID == documentID {
			out = append(out, ch)
		}
	}
	return out, nil
}

const (
	testCompanyID = "co-1"
	testOwnerID   = "user-owner"
)

func testActor() workflow.Actor {
	return workflow.Actor{UserID: testOwnerID, Role: workflow.RoleEmpleado}
}

func oneLine() []dto.DocumentLineRequest {
	return []dto.DocumentLineRequest{{
		ProductID: "prod-1",
		Quantity:  decimal.NewFromInt(3),
		UnitPrice: decimal.NewFromInt(1500),
	}}
}

// ──────────────────────────────────────────────────────────────────────────────
// CreateDraft
// ──────────────────────────────────────────────────────────────────────────────

func TestCreateDraft_NaceEnBorradorConConsecutivo(t *testing.T) {
	repo := newMemDocRepo()
	uc := usecase.NewDocumentUseCase(repo, &memHistRepo{})

	doc, err := uc.CreateDraft(testCompanyID, testActor(), dto.CreateDocumentRequest{
		Type:  entity.DocumentTypeIssue,
		Lines: oneLine(),
	})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusDraft, doc.Status, "todo documento nace en DRAFT")
	assert.Equal(t, "SAL-000001", doc.Reference)
	assert.Equal(t, int64(1), doc.Version)
	assert.Equal(t, testOwnerID, doc.CreatedBy)
	assert.True(t, decimal.NewFromInt(4500).Equal(doc.Total), "total = 3 × 1500")

	// El consecutivo avanza por empresa y tipo.
	doc2, err := uc.CreateDraft(testCompanyID, testActor(), dto.CreateDocumentRequest{
		Type:  entity.DocumentTypeIssue,
		Lines: oneLine(),
	})
	require.NoError(t, err)
	assert.Equal(t, "SAL-000002", doc2.Reference)

	rec, err := uc.CreateDraft(testCompanyID, testActor(), dto.CreateDocumentRequest{
		Type:  entity.DocumentTypeReceipt,
		Lines: oneLine(),
	})
	require.NoError(t, err)
	assert.Equal(t, "ENT-000001", rec.Reference, "las entradas llevan su propio consecutivo")
}

func TestCreateDraft_RechazaEntradaInvalida(t *testing.T) {
	uc := usecase.NewDocumentUseCase(newMemDocRepo(), &memHistRepo{})

	_, err := uc.CreateDraft(testCompanyID, testActor(), dto.CreateDocumentRequest{
		Type:  "TRANSFER",
		Lines: oneLine(),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "tipo desconocido")

	_, err = uc.CreateDraft(testCompanyID, testActor(), dto.CreateDocumentRequest{
		Type: entity.DocumentTypeIssue,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "sin líneas")

	_, err = uc.CreateDraft(testCompanyID, testActor(), dto.CreateDocumentRequest{
		Type: entity.DocumentTypeIssue,
		Lines: []dto.DocumentLineRequest{{
			ProductID: "prod-1",
			Quantity:  decimal.Zero,
			UnitPrice: decimal.NewFromInt(100),
		}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "cantidad debe ser positiva")
}

// ──────────────────────────────────────────────────────────────────────────────
// UpdateDraft: solo el creador y solo en DRAFT
// ──────────────────────────────────────────────────────────────────────────────

func TestUpdateDraft_SoloCreadorYSoloBorrador(t *testing.T) {
	repo := newMemDocRepo()
	uc := usecase.NewDocumentUseCase(repo, &memHistRepo{})

	created, err := uc.CreateDraft(testCompanyID, testActor(), dto.CreateDocumentRequest{
		Type:  entity.DocumentTypeIssue,
		Lines: oneLine(),
	})
	require.NoError(t, err)

	notes := "despachar por la mañana"
	updated, err := uc.UpdateDraft(testCompanyID, created.ID, testActor(), dto.UpdateDocumentRequest{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, notes, updated.Notes)

	// Otro usuario, incluso gerente, no edita el borrador ajeno.
	otro := workflow.Actor{UserID: "user-otro", CompanyID: testCompanyID, Role: workflow.RoleGerente}
	_, err = uc.UpdateDraft(testCompanyID, created.ID, otro, dto.UpdateDocumentRequest{Notes: &notes})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// Desde otra empresa el borrador ni siquiera se ve: cuenta como inexistente.
	res, err := uc.UpdateDraft("co-ajena", created.ID, testActor(), dto.UpdateDocumentRequest{Notes: &notes})
	require.NoError(t, err)
	assert.Nil(t, res)

	// Fuera de DRAFT el documento queda bloqueado para edición directa.
	stored, _ := repo.GetByID(created.ID)
	stored.Status = workflow.StatusAwaitingApproval
	repo.docs[stored.ID] = stored

	_, err = uc.UpdateDraft(testCompanyID, created.ID, testActor(), dto.UpdateDocumentRequest{Notes: &notes})
	assert.ErrorIs(t, err, domain.ErrDocumentLocked)
}

// ──────────────────────────────────────────────────────────────────────────────
// List: filtros y búsqueda de texto libre insensible a tildes
// ──────────────────────────────────────────────────────────────────────────────

func TestList_FiltraPorEstadoTipoYTexto(t *testing.T) {
	repo := newMemDocRepo()
	uc := usecase.NewDocumentUseCase(repo, &memHistRepo{})

	_, err := uc.CreateDraft(testCompanyID, testActor(), dto.CreateDocumentRequest{
		Type:  entity.DocumentTypeIssue,
		Notes: "Envío en camión refrigerado",
		Lines: oneLine(),
	})
	require.NoError(t, err)
	_, err = uc.CreateDraft(testCompanyID, testActor(), dto.CreateDocumentRequest{
		Type:  entity.DocumentTypeReceipt,
		Notes: "recepción parcial",
		Lines: oneLine(),
	})
	require.NoError(t, err)

	todos, err := uc.List(testCompanyID, "", "", "", 20, 0)
	require.NoError(t, err)
	assert.Len(t, todos.Items, 2)

	salidas, err := uc.List(testCompanyID, "", entity.DocumentTypeIssue, "", 20, 0)
	require.NoError(t, err)
	require.Len(t, salidas.Items, 1)
	assert.Equal(t, entity.DocumentTypeIssue, salidas.Items[0].Type)

	borradores, err := uc.List(testCompanyID, string(workflow.StatusDraft), "", "", 20, 0)
	require.NoError(t, err)
	assert.Len(t, borradores.Items, 2)

	// "camion" sin tilde debe encontrar "camión" en las notas.
	camion, err := uc.List(testCompanyID, "", "", "camion", 20, 0)
	require.NoError(t, err)
	require.Len(t, camion.Items, 1)
	assert.Contains(t, camion.Items[0].Notes, "camión")

	// Búsqueda por referencia, insensible a mayúsculas.
	ent, err := uc.List(testCompanyID, "", "", "ent-0", 20, 0)
	require.NoError(t, err)
	require.Len(t, ent.Items, 1)
	assert.Equal(t, entity.DocumentTypeReceipt, ent.Items[0].Type)

	_, err = uc.List(testCompanyID, "PENDIENTE", "", "", 20, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "estado desconocido en el filtro")
}

func TestList_PaginaSobreCoincidenciasDelTexto(t *testing.T) {
	repo := newMemDocRepo()
	uc := usecase.NewDocumentUseCase(repo, &memHistRepo{})

	// Tres documentos coinciden con "camión"; uno no.
	for _, notes := range []string{
		"Camión refrigerado, turno mañana",
		"camion de plataforma",
		"CAMIÓN externo contratado",
		"retiro en mostrador",
	} {
		_, err := uc.CreateDraft(testCompanyID, testActor(), dto.CreateDocumentRequest{
			Type:  entity.DocumentTypeIssue,
			Notes: notes,
			Lines: oneLine(),
		})
		require.NoError(t, err)
	}

	// El offset indexa coincidencias, no filas crudas: 3 coincidencias dan
	// páginas de 2 y 1, y la tercera sigue alcanzable aunque el limit sea
	// menor que el total de filas de la empresa.
	page1, err := uc.List(testCompanyID, "", "", "camion", 2, 0)
	require.NoError(t, err)
	assert.Len(t, page1.Items, 2)

	page2, err := uc.List(testCompanyID, "", "", "camion", 2, 2)
	require.NoError(t, err)
	assert.Len(t, page2.Items, 1)

	vacia, err := uc.List(testCompanyID, "", "", "camion", 2, 3)
	require.NoError(t, err)
	assert.Empty(t, vacia.Items)

	for _, it := range append(page1.Items, page2.Items...) {
		assert.Contains(t, foldedNotes(it.Notes), "camion")
	}
}

// foldedNotes baja a minúsculas sin tildes para las aserciones.
func foldedNotes(s string) string {
	repl := strings.NewReplacer("ó", "o", "Ó", "O")
	return strings.ToLower(repl.Replace(s))
}
