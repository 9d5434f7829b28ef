package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/hronboard/internal/common"
	"github.com/dmitrijs2005/hronboard/internal/dbx"
	"github.com/dmitrijs2005/hronboard/internal/logging"
	sc "github.com/dmitrijs2005/hronboard/internal/server/config"
	"github.com/dmitrijs2005/hronboard/internal/server/lifecycle"
	"github.com/dmitrijs2005/hronboard/internal/server/models"
	"github.com/dmitrijs2005/hronboard/internal/server/notify"
	"github.com/dmitrijs2005/hronboard/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/hronboard/internal/server/storage"
	"github.com/google/uuid"
)

const maxCodeAttempts = 5

// Profile is the summary a candidate sees in the chat.
type Profile struct {
	Candidate *models.Candidate
	Total     int
	Submitted int
	Verified  int
}

type CandidateService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       storage.ObjectStore
	notifier    notify.Notifier
	bucket      string
	logger      logging.Logger
	now         func() time.Time
}

func NewCandidateService(db *sql.DB, repomanager repomanager.RepositoryManager, store storage.ObjectStore,
	notifier notify.Notifier, config *sc.Config, logger logging.Logger,
) *CandidateService {
	return &CandidateService{
		db:          db,
		repomanager: repomanager,
		store:       store,
		notifier:    notifier,
		bucket:      config.S3Bucket,
		logger:      logger.With("module", "candidates"),
		now:         time.Now,
	}
}

// Create registers a candidate invited by staff. It provisions the
// candidate's storage prefix, allocates a unique invitation code and sends
// the invitation.
func (s *CandidateService) Create(ctx context.Context, in models.NewCandidate) (*models.Candidate, error) {
	c := &models.Candidate{
		ID:        uuid.NewString(),
		FirstName: sanitizeText(in.FirstName),
		LastName:  sanitizeText(in.LastName),
		Email:     sanitizeText(in.Email),
		Sex:       in.Sex,
		TutorID:   in.TutorID,
		Status:    models.CandidateInvited,
	}

	if err := s.store.EnsureBucket(ctx, s.bucket); err != nil {
		return nil, err
	}
	if err := s.store.PutObject(ctx, s.bucket, storage.CandidatePrefix(c.ID), nil, "application/x-directory"); err != nil {
		return nil, err
	}

	repo := s.repomanager.Candidates(s.db)
	for attempt := 1; ; attempt++ {
		code, err := common.NewInvitationCode()
		if err != nil {
			return nil, fmt.Errorf("invitation code: %w", err)
		}
		c.InvitationCode = code

		err = repo.Create(ctx, c)
		if err == nil {
			break
		}
		if !errors.Is(err, common.ErrAlreadyExists) || attempt == maxCodeAttempts {
			return nil, err
		}
	}

	s.deliver(ctx, &models.NotificationIntent{
		Contact:     c.Contact(),
		TemplateKey: models.NotifyInvitation,
		Vars:        map[string]string{"name": c.FullName(), "code": c.InvitationCode},
	})
	return c, nil
}

// deliver sends a notification. Failures are logged and never returned.
func (s *CandidateService) deliver(ctx context.Context, intent *models.NotificationIntent) {
	if err := notify.Send(ctx, s.notifier, intent); err != nil {
		s.logger.Error(ctx, "notification failed", "template", intent.TemplateKey,
			"candidate_id", intent.Contact.CandidateID, "error", err)
	}
}

// Authenticate binds chatID to the candidate owning code and moves an
// invited candidate to registered. Repeating it from the same chat is a no-op.
func (s *CandidateService) Authenticate(ctx context.Context, code string, chatID int64) (*models.Candidate, error) {
	code = common.NormalizeInvitationCode(code)
	if code == "" {
		return nil, fmt.Errorf("empty invitation code: %w", common.ErrNotFound)
	}

	return dbx.InTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) (*models.Candidate, error) {
		repo := s.repomanager.Candidates(tx)

		c, err := repo.GetByInvitationCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if err := repo.BindChat(ctx, c.ID, chatID); err != nil {
			return nil, err
		}

		if c.Status == models.CandidateInvited {
			tr, err := lifecycle.ApplyCandidate(c, lifecycle.ActionAuthenticate, lifecycle.ActorCandidate)
			if err != nil {
				return nil, err
			}
			if err := repo.UpdateStatus(ctx, c.ID, tr.From, tr.To); err != nil {
				return nil, err
			}
		}

		return repo.GetByID(ctx, c.ID)
	})
}

// ByChat returns the candidate bound to chatID.
func (s *CandidateService) ByChat(ctx context.Context, chatID int64) (*models.Candidate, error) {
	return s.repomanager.Candidates(s.db).GetByChatID(ctx, chatID)
}

func (s *CandidateService) Get(ctx context.Context, id string) (*models.Candidate, error) {
	return s.repomanager.Candidates(s.db).GetByID(ctx, id)
}

// List returns candidates in status, or all of them when status is zero.
func (s *CandidateService) List(ctx context.Context, status models.CandidateStatus) ([]*models.Candidate, error) {
	return s.repomanager.Candidates(s.db).List(ctx, status)
}

func (s *CandidateService) ListArchive(ctx context.Context) ([]*models.ArchivedCandidate, error) {
	return s.repomanager.Candidates(s.db).ListArchive(ctx)
}

// AcceptPrivacy records the candidate's consent and materializes the required
// documents in one transaction.
func (s *CandidateService) AcceptPrivacy(ctx context.Context, candidateID string) (*models.Candidate, error) {
	return dbx.InTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) (*models.Candidate, error) {
		repo := s.repomanager.Candidates(tx)

		if err := repo.AcceptAgreement(ctx, candidateID, s.now()); err != nil {
			return nil, err
		}
		if err := materializeDocuments(ctx, s.repomanager, tx, candidateID); err != nil {
			return nil, err
		}
		return repo.GetByID(ctx, candidateID)
	})
}

// ChangeStatus applies a candidate lifecycle action. Terminal candidates are
// copied to the archive in the same transaction. The notification is sent
// after commit and its failure does not undo the change.
func (s *CandidateService) ChangeStatus(ctx context.Context, candidateID string, action lifecycle.CandidateAction, actor lifecycle.Actor) (*models.Candidate, error) {
	var intent *models.NotificationIntent

	c, err := dbx.InTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) (*models.Candidate, error) {
		repo := s.repomanager.Candidates(tx)

		c, err := repo.GetByID(ctx, candidateID)
		if err != nil {
			return nil, err
		}
		tr, err := lifecycle.ApplyCandidate(c, action, actor)
		if err != nil {
			return nil, err
		}
		if err := repo.UpdateStatus(ctx, c.ID, tr.From, tr.To); err != nil {
			return nil, err
		}
		if tr.To.IsTerminal() {
			if err := repo.Archive(ctx, c.ID); err != nil {
				return nil, err
			}
		}

		intent = tr.Notification
		c.Status = tr.To
		return c, nil
	})
	if err != nil {
		return nil, err
	}

	if intent != nil {
		s.deliver(ctx, intent)
	}
	return c, nil
}

func (s *CandidateService) UpdateNotes(ctx context.Context, candidateID, notes string) error {
	return s.repomanager.Candidates(s.db).UpdateNotes(ctx, candidateID, sanitizeText(notes))
}

// SaveLocation replaces the candidate's stored location.
func (s *CandidateService) SaveLocation(ctx context.Context, loc *models.Location) error {
	return s.repomanager.Locations(s.db).Upsert(ctx, loc)
}

func (s *CandidateService) Location(ctx context.Context, candidateID string) (*models.Location, error) {
	return s.repomanager.Locations(s.db).Get(ctx, candidateID)
}

// Profile summarizes the candidate and the progress of their documents.
func (s *CandidateService) Profile(ctx context.Context, candidateID string) (*Profile, error) {
	c, err := s.Get(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	docs, err := s.repomanager.Documents(s.db).ListByCandidate(ctx, candidateID)
	if err != nil {
		return nil, err
	}

	p := &Profile{Candidate: c, Total: len(docs)}
	for _, d := range docs {
		switch d.Status {
		case models.DocumentPendingReview:
			p.Submitted++
		case models.DocumentVerified:
			p.Submitted++
			p.Verified++
		}
	}
	return p, nil
}
