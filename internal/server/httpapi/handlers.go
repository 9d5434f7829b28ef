package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/hronboard/internal/server/lifecycle"
	"github.com/dmitrijs2005/hronboard/internal/server/models"
	"github.com/dmitrijs2005/hronboard/internal/server/services"
)

type candidateResponse struct {
	ID                string     `json:"id"`
	FirstName         string     `json:"first_name"`
	LastName          string     `json:"last_name"`
	Email             string     `json:"email"`
	Sex               bool       `json:"sex"`
	InvitationCode    string     `json:"invitation_code"`
	ChatBound         bool       `json:"chat_bound"`
	Status            string     `json:"status"`
	TutorID           *string    `json:"tutor_uuid,omitempty"`
	Notes             string     `json:"notes"`
	AgreementAccepted bool       `json:"agreement_accepted"`
	AgreementAt       *time.Time `json:"agreement_accepted_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

func toCandidate(c *models.Candidate) candidateResponse {
	return candidateResponse{
		ID:                c.ID,
		FirstName:         c.FirstName,
		LastName:          c.LastName,
		Email:             c.Email,
		Sex:               c.Sex,
		InvitationCode:    c.InvitationCode,
		ChatBound:         c.ChatID != nil,
		Status:            c.Status.String(),
		TutorID:           c.TutorID,
		Notes:             c.Notes,
		AgreementAccepted: c.AgreementAccepted,
		AgreementAt:       c.AgreementAcceptedAt,
		CreatedAt:         c.CreatedAt,
	}
}

type archivedResponse struct {
	CandidateID string    `json:"candidate_id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email"`
	Status      string    `json:"status"`
	ArchivedAt  time.Time `json:"archived_at"`
}

type documentResponse struct {
	ID           string     `json:"id"`
	TemplateCode string     `json:"template_code"`
	TemplateName string     `json:"template_name"`
	Status       string     `json:"status"`
	HasFile      bool       `json:"has_file"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty"`
	Notes        string     `json:"notes"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func toDocument(d *models.CandidateDocument) documentResponse {
	return documentResponse{
		ID:           d.ID,
		TemplateCode: d.TemplateCode,
		TemplateName: d.TemplateName,
		Status:       d.Status.String(),
		HasFile:      d.Object != nil,
		SubmittedAt:  d.SubmittedAt,
		Notes:        d.Notes,
		UpdatedAt:    d.UpdatedAt,
	}
}

type historyResponse struct {
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type bankAccountResponse struct {
	Bank          string     `json:"bank"`
	AccountNumber string     `json:"account_number"`
	OpenDate      *time.Time `json:"open_date,omitempty"`
	CloseDate     *time.Time `json:"close_date,omitempty"`
	AccountType   string     `json:"account_type"`
	Status        string     `json:"status"`
}

type locationResponse struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	UpdatedAt time.Time `json:"updated_at"`
}

type messageResponse struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	FromStaff bool      `json:"from_staff"`
	SentAt    time.Time `json:"sent_at"`
}

func toMessage(m *models.Message) messageResponse {
	return messageResponse{ID: m.ID, Content: m.Content, FromStaff: m.FromStaff, SentAt: m.SentAt}
}

type actionRequest struct {
	Action string `json:"action"`
}

type notesRequest struct {
	Notes string `json:"notes"`
}

type messageRequest struct {
	Text string `json:"text"`
}

// decode reads a JSON body into v, answering 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErrorBody(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return false
	}
	return true
}

var candidateStatusNames = map[string]models.CandidateStatus{
	"invited":      models.CandidateInvited,
	"registered":   models.CandidateRegistered,
	"under_review": models.CandidateUnderReview,
	"accepted":     models.CandidateAccepted,
	"rejected":     models.CandidateRejected,
}

func (h *handler) createCandidate(w http.ResponseWriter, r *http.Request) {
	var in models.NewCandidate
	if !decode(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.FirstName) == "" || strings.TrimSpace(in.Email) == "" {
		writeErrorBody(w, http.StatusBadRequest, "BAD_REQUEST", "first_name and email are required")
		return
	}

	c, err := h.candidates.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCandidate(c))
}

func (h *handler) listCandidates(w http.ResponseWriter, r *http.Request) {
	var status models.CandidateStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st, ok := candidateStatusNames[s]
		if !ok {
			writeErrorBody(w, http.StatusBadRequest, "BAD_REQUEST", fmt.Sprintf("unknown status %q", s))
			return
		}
		status = st
	}

	list, err := h.candidates.List(r.Context(), status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]candidateResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toCandidate(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) listArchive(w http.ResponseWriter, r *http.Request) {
	list, err := h.candidates.ListArchive(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]archivedResponse, 0, len(list))
	for _, a := range list {
		out = append(out, archivedResponse{
			CandidateID: a.CandidateID,
			FirstName:   a.FirstName,
			LastName:    a.LastName,
			Email:       a.Email,
			Status:      a.Status.String(),
			ArchivedAt:  a.ArchivedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// pathID returns the {id} path parameter. Ids are UUIDs; anything else names
// no resource and is answered with 404 before reaching the store.
func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeErrorBody(w, http.StatusNotFound, "NOT_FOUND", "not found")
		return "", false
	}
	return id, true
}

func (h *handler) getCandidate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, err := h.candidates.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCandidate(c))
}

func (h *handler) updateCandidateNotes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req notesRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.candidates.UpdateNotes(r.Context(), id, req.Notes); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) changeCandidateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req actionRequest
	if !decode(w, r, &req) {
		return
	}
	action, err := lifecycle.ParseCandidateAction(req.Action)
	if err != nil || action == lifecycle.ActionAuthenticate {
		writeErrorBody(w, http.StatusBadRequest, "BAD_REQUEST", fmt.Sprintf("unsupported action %q", req.Action))
		return
	}

	c, err := h.candidates.ChangeStatus(r.Context(), id, action, lifecycle.ActorStaff)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCandidate(c))
}

func (h *handler) listDocuments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	docs, err := h.documents.List(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]documentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDocument(d))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) listBankAccounts(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	accounts, err := h.bankAccounts.Accounts(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]bankAccountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, bankAccountResponse{
			Bank:          a.Bank,
			AccountNumber: a.AccountNumber,
			OpenDate:      a.OpenDate,
			CloseDate:     a.CloseDate,
			AccountType:   a.AccountType,
			Status:        a.Status,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) getLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	loc, err := h.candidates.Location(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, locationResponse{
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
		Accuracy:  loc.Accuracy,
		UpdatedAt: loc.UpdatedAt,
	})
}

func (h *handler) listMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	limit := services.DefaultMessageLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeErrorBody(w, http.StatusBadRequest, "BAD_REQUEST", "limit must be a positive integer")
			return
		}
		limit = n
	}

	list, err := h.messages.List(r.Context(), id, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]messageResponse, 0, len(list))
	for _, m := range list {
		out = append(out, toMessage(m))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) replyMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req messageRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeErrorBody(w, http.StatusBadRequest, "BAD_REQUEST", "text is required")
		return
	}

	m, err := h.messages.Reply(r.Context(), id, req.Text)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMessage(m))
}

// reviewable are the document actions staff may take.
var reviewable = map[lifecycle.DocumentAction]bool{
	lifecycle.ActionApprove:             true,
	lifecycle.ActionReject:              true,
	lifecycle.ActionRequestResubmission: true,
}

func (h *handler) reviewDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req actionRequest
	if !decode(w, r, &req) {
		return
	}
	action, err := lifecycle.ParseDocumentAction(req.Action)
	if err != nil || !reviewable[action] {
		writeErrorBody(w, http.StatusBadRequest, "BAD_REQUEST", fmt.Sprintf("unsupported action %q", req.Action))
		return
	}

	d, err := h.documents.Review(r.Context(), id, action)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDocument(d))
}

func (h *handler) updateDocumentNotes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req notesRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.documents.UpdateNotes(r.Context(), id, req.Notes); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) downloadDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	url, err := h.documents.PresignDownload(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (h *handler) documentHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	list, err := h.documents.History(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]historyResponse, 0, len(list))
	for _, e := range list {
		out = append(out, historyResponse{Status: e.Status.String(), CreatedAt: e.CreatedAt})
	}
	writeJSON(w, http.StatusOK, out)
}
