package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Almacen-api/internal/application/docsync"
	"github.com/jhoicas/Almacen-api/internal/application/dto"
	"github.com/jhoicas/Almacen-api/internal/application/usecase"
	"github.com/jhoicas/Almacen-api/internal/domain"
	"github.com/jhoicas/Almacen-api/internal/domain/entity"
	"github.com/jhoicas/Almacen-api/internal/domain/repository"
	"github.com/jhoicas/Almacen-api/internal/domain/workflow"
	"github.com/jhoicas/Almacen-api/internal/infrastructure/docservice"
	apphttp "github.com/jhoicas/Almacen-api/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/Almacen-api/pkg/jwt"
	"github.com/jhoicas/Almacen-api/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes en memoria para las rutas de documentos. El stack es el real de
// producción (usecase + docservice + coordinador), solo la persistencia es
// un mapa.
// ──────────────────────────────────────────────────────────────────────────────

const otherCompanyID = "00000000-0000-0000-0000-00000000000b"

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
	out := []*entity.StatusChange{}
	for _, ch := range r.changes {
		if ch.DocumentID == documentID {
			out = append(out, ch)
		}
	}
	return out, nil
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

type docTestEnv struct {
	app   *fiber.App
	repo  *memDocRepo
	coord *docsync.Coordinator
}

// buildDocApp monta las rutas de documentos con el middleware de auth real.
func buildDocApp(t *testing.T, docs ...*entity.Document) *docTestEnv {
	t.Helper()
	repo := &memDocRepo{docs: map[string]*entity.Document{}}
	for _, d := range docs {
		repo.docs[d.ID] = d
	}
	hist := &memHistRepo{}
	svc := docservice.NewService(repo, &memTxRunner{docRepo: repo, histRepo: hist}, logger.Nop())
	coord := docsync.NewCoordinator(svc, logger.Nop(), 2*time.Second)
	uc := usecase.NewDocumentUseCase(repo, hist)
	h := apphttp.NewDocumentHandler(uc, coord, 16)

	app := fiber.New()
	g := app.Group("/api/documents", apphttp.AuthMiddleware(testJWTSecret))
	g.Get("/:id", h.GetByID)
	g.Get("/:id/actions", h.Actions)
	g.Post("/:id/transitions", h.Transition)
	g.Get("/:id/history", h.History)
	return &docTestEnv{app: app, repo: repo, coord: coord}
}

func tokenFor(t *testing.T, userID, companyID, role string) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, userID, companyID, role, testIssuer, testExpMin)
	require.NoError(t, err)
	return "Bearer " + tok
}

func docRequest(t *testing.T, env *docTestEnv, method, path, auth string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", auth)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body dto.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Code
}

func awaitingDoc() *entity.Document {
	now := time.Now()
	return &entity.Document{
		ID:        "doc-1",
		CompanyID: testCompanyID,
		Type:      entity.DocumentTypeIssue,
		Reference: "SAL-000001",
		Status:    workflow.StatusAwaitingApproval,
		CreatedBy: testUserID,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Alcance por empresa en rutas de documento
// ──────────────────────────────────────────────────────────────────────────────

func TestDocumentos_OtraEmpresaRecibeNotFound(t *testing.T) {
	env := buildDocApp(t, awaitingDoc())
	ajeno := tokenFor(t, "user-ajeno", otherCompanyID, workflow.RoleGerente)

	for _, path := range []string{
		"/api/documents/doc-1",
		"/api/documents/doc-1/actions",
		"/api/documents/doc-1/history",
	} {
		resp := docRequest(t, env, http.MethodGet, path, ajeno, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		assert.Equal(t, "NOT_FOUND", errorCode(t, resp), path)
		resp.Body.Close()
	}
}

func TestTransition_OtraEmpresaNoTransiciona(t *testing.T) {
	env := buildDocApp(t, awaitingDoc())

	// Un gerente de otra empresa intenta cancelar el documento: para él no
	// existe, y el documento no se mueve.
	ajeno := tokenFor(t, "user-ajeno", otherCompanyID, workflow.RoleGerente)
	resp := docRequest(t, env, http.MethodPost, "/api/documents/doc-1/transitions", ajeno,
		dto.TransitionRequest{TargetStatus: string(workflow.StatusCancelled)})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", errorCode(t, resp))

	env.coord.Wait()
	stored, _ := env.repo.GetByID("doc-1")
	assert.Equal(t, workflow.StatusAwaitingApproval, stored.Status,
		"el documento de otra empresa no debe mutar")

	// El mismo rol dentro de la empresa dueña sí puede.
	propio := tokenFor(t, "user-mgr", testCompanyID, workflow.RoleGerente)
	resp2 := docRequest(t, env, http.MethodPost, "/api/documents/doc-1/transitions", propio,
		dto.TransitionRequest{TargetStatus: string(workflow.StatusCancelled)})
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp2.StatusCode)

	env.coord.Wait()
	stored, _ = env.repo.GetByID("doc-1")
	assert.Equal(t, workflow.StatusCancelled, stored.Status)
}

// ──────────────────────────────────────────────────────────────────────────────
// El rechazo exige motivo
// ──────────────────────────────────────────────────────────────────────────────

func TestTransition_RechazoSinNotasEs400(t *testing.T) {
	env := buildDocApp(t, awaitingDoc())
	gerente := tokenFor(t, "user-mgr", testCompanyID, workflow.RoleGerente)

	resp := docRequest(t, env, http.MethodPost, "/api/documents/doc-1/transitions", gerente,
		dto.TransitionRequest{TargetStatus: string(workflow.StatusRejected)})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "NOTES_REQUIRED", errorCode(t, resp))

	env.coord.Wait()
	stored, _ := env.repo.GetByID("doc-1")
	assert.Equal(t, workflow.StatusAwaitingApproval, stored.Status)

	// Con motivo, el rechazo se despacha y se confirma en el servidor.
	resp2 := docRequest(t, env, http.MethodPost, "/api/documents/doc-1/transitions", gerente,
		dto.TransitionRequest{TargetStatus: string(workflow.StatusRejected), Notes: "faltan soportes"})
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp2.StatusCode)

	env.coord.Wait()
	stored, _ = env.repo.GetByID("doc-1")
	assert.Equal(t, workflow.StatusRejected, stored.Status)
}
