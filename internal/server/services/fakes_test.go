package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/hronboard/internal/common"
	"github.com/dmitrijs2005/hronboard/internal/dbx"
	"github.com/dmitrijs2005/hronboard/internal/server/config"
	"github.com/dmitrijs2005/hronboard/internal/server/models"
	"github.com/dmitrijs2005/hronboard/internal/server/repositories/bankaccounts"
	"github.com/dmitrijs2005/hronboard/internal/server/repositories/candidates"
	"github.com/dmitrijs2005/hronboard/internal/server/repositories/documents"
	"github.com/dmitrijs2005/hronboard/internal/server/repositories/locations"
	"github.com/dmitrijs2005/hronboard/internal/server/repositories/messages"
	"github.com/dmitrijs2005/hronboard/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/hronboard/internal/server/repositories/templates"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// memData is an in-memory entity store shared by the fake repositories. It
// enforces the same conditional update rules as the Postgres queries but
// ignores transactions; rollback behaviour is tested against sqlmock.
type memData struct {
	mu         sync.Mutex
	candidates map[string]*models.Candidate
	templates  []*models.DocumentTemplate
	docs       map[string]*models.CandidateDocument
	history    []*models.DocumentHistory
	accounts   map[string][]models.BankAccount
	locations  map[string]*models.Location
	messages   []*models.Message
	archive    map[string]*models.ArchivedCandidate

	createErrs []error // returned by successive candidate Create calls
	seeds      int
}

func newMemData() *memData {
	return &memData{
		candidates: map[string]*models.Candidate{},
		docs:       map[string]*models.CandidateDocument{},
		accounts:   map[string][]models.BankAccount{},
		locations:  map[string]*models.Location{},
		archive:    map[string]*models.ArchivedCandidate{},
	}
}

func (m *memData) addCandidate(c *models.Candidate) *models.Candidate {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.candidates[c.ID] = &cp
	return c
}

func (m *memData) candidate(id string) models.Candidate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.candidates[id]
}

func (m *memData) doc(id string) models.CandidateDocument {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.docs[id]
}

func (m *memData) historyOf(id string) []models.DocumentStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.DocumentStatus
	for _, h := range m.history {
		if h.DocumentID == id {
			out = append(out, h.Status)
		}
	}
	return out
}

// docByCode returns the candidate's document of the given template.
func (m *memData) docByCode(candidateID, code string) models.CandidateDocument {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.docs {
		if d.CandidateID == candidateID && d.TemplateCode == code {
			return *d
		}
	}
	panic("no document " + code)
}

type memCandidates struct{ m *memData }

func (r memCandidates) Create(_ context.Context, c *models.Candidate) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if len(r.m.createErrs) > 0 {
		err := r.m.createErrs[0]
		r.m.createErrs = r.m.createErrs[1:]
		if err != nil {
			return err
		}
	}
	for _, other := range r.m.candidates {
		if other.InvitationCode == c.InvitationCode {
			return common.ErrAlreadyExists
		}
	}
	c.CreatedAt, c.UpdatedAt = time.Now(), time.Now()
	cp := *c
	r.m.candidates[c.ID] = &cp
	return nil
}

func (r memCandidates) find(pred func(*models.Candidate) bool) (*models.Candidate, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, c := range r.m.candidates {
		if pred(c) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r memCandidates) GetByID(_ context.Context, id string) (*models.Candidate, error) {
	return r.find(func(c *models.Candidate) bool { return c.ID == id })
}

func (r memCandidates) GetByInvitationCode(_ context.Context, code string) (*models.Candidate, error) {
	return r.find(func(c *models.Candidate) bool { return c.InvitationCode == code })
}

func (r memCandidates) GetByChatID(_ context.Context, chatID int64) (*models.Candidate, error) {
	return r.find(func(c *models.Candidate) bool { return c.ChatID != nil && *c.ChatID == chatID })
}

func (r memCandidates) List(_ context.Context, status models.CandidateStatus) ([]*models.Candidate, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.Candidate
	for _, c := range r.m.candidates {
		if status == 0 || c.Status == status {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r memCandidates) BindChat(_ context.Context, id string, chatID int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, c := range r.m.candidates {
		if c.ID != id && c.ChatID != nil && *c.ChatID == chatID {
			return common.ErrAlreadyBound
		}
	}
	c, ok := r.m.candidates[id]
	if !ok || (c.ChatID != nil && *c.ChatID != chatID) {
		return common.ErrAlreadyBound
	}
	c.ChatID = &chatID
	return nil
}

func (r memCandidates) UpdateStatus(_ context.Context, id string, from, to models.CandidateStatus) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.candidates[id]
	if !ok || c.Status != from {
		return fmt.Errorf("%w: candidate %s is no longer %s", common.ErrIllegalTransition, id, from)
	}
	c.Status = to
	return nil
}

func (r memCandidates) AcceptAgreement(_ context.Context, id string, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.candidates[id]
	if !ok {
		return common.ErrNotFound
	}
	c.AgreementAccepted = true
	if c.AgreementAcceptedAt == nil {
		c.AgreementAcceptedAt = &at
	}
	return nil
}

func (r memCandidates) UpdateNotes(_ context.Context, id string, notes string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.candidates[id]
	if !ok {
		return common.ErrNotFound
	}
	c.Notes = notes
	return nil
}

func (r memCandidates) Archive(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c := r.m.candidates[id]
	if _, ok := r.m.archive[id]; !ok {
		r.m.archive[id] = &models.ArchivedCandidate{CandidateID: id, FirstName: c.FirstName, LastName: c.LastName, Email: c.Email, Status: c.Status}
	}
	return nil
}

func (r memCandidates) ListArchive(context.Context) ([]*models.ArchivedCandidate, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.ArchivedCandidate
	for _, a := range r.m.archive {
		out = append(out, a)
	}
	return out, nil
}

type memTemplates struct{ m *memData }

func (r memTemplates) Count(context.Context) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return len(r.m.templates), nil
}

func (r memTemplates) Seed(_ context.Context, ts []models.DocumentTemplate) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.seeds++
	for i, t := range ts {
		t.ID = i + 1
		tt := t
		r.m.templates = append(r.m.templates, &tt)
	}
	return nil
}

func (r memTemplates) List(context.Context) ([]*models.DocumentTemplate, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.m.templates, nil
}

func (r memTemplates) GetByCode(_ context.Context, code string) (*models.DocumentTemplate, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, t := range r.m.templates {
		if t.Code == code {
			return t, nil
		}
	}
	return nil, common.ErrNotFound
}

type memDocuments struct{ m *memData }

func (r memDocuments) Materialize(_ context.Context, candidateID string) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for _, t := range r.m.templates {
		if !t.IsRequired {
			continue
		}
		exists := false
		for _, d := range r.m.docs {
			if d.CandidateID == candidateID && d.TemplateID == t.ID {
				exists = true
			}
		}
		if exists {
			continue
		}
		id := uuid.NewString()
		r.m.docs[id] = &models.CandidateDocument{
			ID: id, CandidateID: candidateID, TemplateID: t.ID, TemplateCode: t.Code,
			TemplateName: t.Name, Instructions: t.Instructions, Status: models.DocumentNotSubmitted,
		}
		n++
	}
	return n, nil
}

func (r memDocuments) ListByCandidate(_ context.Context, candidateID string) ([]*models.CandidateDocument, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.CandidateDocument
	for _, d := range r.m.docs {
		if d.CandidateID == candidateID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TemplateID < out[j].TemplateID })
	return out, nil
}

func (r memDocuments) GetByID(_ context.Context, id string) (*models.CandidateDocument, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	d, ok := r.m.docs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (r memDocuments) UpdateStatus(_ context.Context, id string, from, to models.DocumentStatus, obj *models.StoredObject) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	d, ok := r.m.docs[id]
	if !ok || d.Status != from {
		return fmt.Errorf("%w: document %s is no longer %s", common.ErrIllegalTransition, id, from)
	}
	d.Status = to
	if obj != nil {
		d.Object = obj
	}
	return nil
}

func (r memDocuments) AppendHistory(_ context.Context, id string, status models.DocumentStatus) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.history = append(r.m.history, &models.DocumentHistory{ID: int64(len(r.m.history) + 1), DocumentID: id, Status: status})
	return nil
}

func (r memDocuments) History(_ context.Context, id string) ([]*models.DocumentHistory, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.DocumentHistory
	for _, h := range r.m.history {
		if h.DocumentID == id {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r memDocuments) UpdateNotes(_ context.Context, id string, notes string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	d, ok := r.m.docs[id]
	if !ok {
		return common.ErrNotFound
	}
	d.Notes = notes
	return nil
}

type memAccounts struct{ m *memData }

func (r memAccounts) DeleteByCandidate(_ context.Context, candidateID string) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	n := int64(len(r.m.accounts[candidateID]))
	delete(r.m.accounts, candidateID)
	return n, nil
}

func (r memAccounts) Insert(_ context.Context, row *models.BankAccount) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.accounts[row.CandidateID] = append(r.m.accounts[row.CandidateID], *row)
	return nil
}

func (r memAccounts) ListByCandidate(_ context.Context, candidateID string) ([]*models.BankAccount, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.BankAccount
	for i := range r.m.accounts[candidateID] {
		a := r.m.accounts[candidateID][i]
		out = append(out, &a)
	}
	return out, nil
}

type memLocations struct{ m *memData }

func (r memLocations) Upsert(_ context.Context, loc *models.Location) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	loc.UpdatedAt = time.Now()
	cp := *loc
	r.m.locations[loc.CandidateID] = &cp
	return nil
}

func (r memLocations) Get(_ context.Context, candidateID string) (*models.Location, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	l, ok := r.m.locations[candidateID]
	if !ok {
		return nil, common.ErrNotFound
	}
	return l, nil
}

type memMessages struct{ m *memData }

func (r memMessages) Create(_ context.Context, msg *models.Message) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	msg.ID = int64(len(r.m.messages) + 1)
	msg.SentAt = time.Now()
	r.m.messages = append(r.m.messages, msg)
	return nil
}

func (r memMessages) ListByCandidate(_ context.Context, candidateID string, limit int) ([]*models.Message, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.Message
	for _, msg := range r.m.messages {
		if msg.CandidateID != nil && *msg.CandidateID == candidateID {
			out = append(out, msg)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// fakeRepoManager vends the in-memory repositories regardless of the handle.
type fakeRepoManager struct {
	repomanager.RepositoryManager
	m *memData
}

func (f *fakeRepoManager) Candidates(dbx.DBTX) candidates.Repository {
	return memCandidates{f.m}
}
func (f *fakeRepoManager) Documents(dbx.DBTX) documents.Repository { return memDocuments{f.m} }
func (f *fakeRepoManager) Templates(dbx.DBTX) templates.Repository { return memTemplates{f.m} }
func (f *fakeRepoManager) BankAccounts(dbx.DBTX) bankaccounts.Repository {
	return memAccounts{f.m}
}
func (f *fakeRepoManager) Locations(dbx.DBTX) locations.Repository { return memLocations{f.m} }
func (f *fakeRepoManager) Messages(dbx.DBTX) messages.Repository   { return memMessages{f.m} }

type recordingNotifier struct {
	mu    sync.Mutex
	sent  []models.NotificationIntent
	err   error
	calls int
}

func (n *recordingNotifier) Notify(_ context.Context, to models.Contact, key string, vars map[string]string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, models.NotificationIntent{Contact: to, TemplateKey: key, Vars: vars})
	return nil
}

type recordingSender struct {
	chatID int64
	text   string
	err    error
}

func (s *recordingSender) SendText(_ context.Context, chatID int64, text string) error {
	if s.err != nil {
		return s.err
	}
	s.chatID, s.text = chatID, text
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		S3Bucket:                "candidates",
		PresignValidityDuration: 15 * time.Minute,
		SupportEmail:            "hr@example.com",
	}
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func expectCommit(mock sqlmock.Sqlmock, n int) {
	for i := 0; i < n; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}
}

func expectRollback(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectRollback()
}

var errBoom = errors.New("boom")
