// Package httpapi is the staff review surface: a JSON API over the
// candidate and document services.
package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/hronboard/internal/logging"
	"github.com/dmitrijs2005/hronboard/internal/server/auth"
	"github.com/dmitrijs2005/hronboard/internal/server/lifecycle"
	"github.com/dmitrijs2005/hronboard/internal/server/models"
)

type CandidateService interface {
	Create(ctx context.Context, in models.NewCandidate) (*models.Candidate, error)
	List(ctx context.Context, status models.CandidateStatus) ([]*models.Candidate, error)
	ListArchive(ctx context.Context) ([]*models.ArchivedCandidate, error)
	Get(ctx context.Context, id string) (*models.Candidate, error)
	UpdateNotes(ctx context.Context, id, notes string) error
	ChangeStatus(ctx context.Context, id string, action lifecycle.CandidateAction, actor lifecycle.Actor) (*models.Candidate, error)
	Location(ctx context.Context, id string) (*models.Location, error)
}

type DocumentService interface {
	List(ctx context.Context, candidateID string) ([]*models.CandidateDocument, error)
	Review(ctx context.Context, documentID string, action lifecycle.DocumentAction) (*models.CandidateDocument, error)
	UpdateNotes(ctx context.Context, documentID, notes string) error
	PresignDownload(ctx context.Context, documentID string) (string, error)
	History(ctx context.Context, documentID string) ([]*models.DocumentHistory, error)
}

type BankAccountService interface {
	Accounts(ctx context.Context, candidateID string) ([]*models.BankAccount, error)
}

type MessageService interface {
	List(ctx context.Context, candidateID string, limit int) ([]*models.Message, error)
	Reply(ctx context.Context, candidateID, text string) (*models.Message, error)
}

// Deps are the collaborators of the router.
type Deps struct {
	Candidates   CandidateService
	Documents    DocumentService
	BankAccounts BankAccountService
	Messages     MessageService
	Secret       []byte
	Metrics      http.Handler
	Observer     HTTPObserver
	Logger       logging.Logger
}

type handler struct {
	candidates   CandidateService
	documents    DocumentService
	bankAccounts BankAccountService
	messages     MessageService
	logger       logging.Logger
}

var (
	reviewers = []string{auth.RoleAdmin, auth.RoleHRAdmin}
	readers   = []string{auth.RoleAdmin, auth.RoleHRAdmin, auth.RoleHRUser}
)

// NewRouter builds the API. Health and metrics are public; everything under
// /api needs a staff token, and decisions need a reviewer role.
func NewRouter(deps *Deps) http.Handler {
	logger := deps.Logger.With("module", "httpapi")
	h := &handler{
		candidates:   deps.Candidates,
		documents:    deps.Documents,
		bankAccounts: deps.BankAccounts,
		messages:     deps.Messages,
		logger:       logger,
	}

	r := chi.NewRouter()
	r.Use(recovery(logger))
	r.Use(accessLog(logger, deps.Observer))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(authenticate(deps.Secret))

		read := r.With(requireRoles(readers...))
		read.Post("/candidates", h.createCandidate)
		read.Get("/candidates", h.listCandidates)
		read.Get("/candidates/archive", h.listArchive)
		read.Get("/candidates/{id}", h.getCandidate)
		read.Put("/candidates/{id}/notes", h.updateCandidateNotes)
		read.Get("/candidates/{id}/documents", h.listDocuments)
		read.Get("/candidates/{id}/bank-accounts", h.listBankAccounts)
		read.Get("/candidates/{id}/location", h.getLocation)
		read.Get("/candidates/{id}/messages", h.listMessages)
		read.Post("/candidates/{id}/messages", h.replyMessage)
		read.Put("/documents/{id}/notes", h.updateDocumentNotes)
		read.Get("/documents/{id}/download", h.downloadDocument)
		read.Get("/documents/{id}/history", h.documentHistory)

		review := r.With(requireRoles(reviewers...))
		review.Post("/candidates/{id}/status", h.changeCandidateStatus)
		review.Post("/documents/{id}/review", h.reviewDocument)
	})

	return r
}
