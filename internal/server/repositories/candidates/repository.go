package candidates

import (
	"context"
	"time"

	"github.com/dmitrijs2005/hronboard/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, c *models.Candidate) error
	GetByID(ctx context.Context, id string) (*models.Candidate, error)
	GetByInvitationCode(ctx context.Context, code string) (*models.Candidate, error)
	GetByChatID(ctx context.Context, chatID int64) (*models.Candidate, error)
	List(ctx context.Context, status models.CandidateStatus) ([]*models.Candidate, error)
	BindChat(ctx context.Context, id string, chatID int64) error
	UpdateStatus(ctx context.Context, id string, from, to models.CandidateStatus) error
	AcceptAgreement(ctx context.Context, id string, at time.Time) error
	UpdateNotes(ctx context.Context, id string, notes string) error
	Archive(ctx context.Context, id string) error
	ListArchive(ctx context.Context) ([]*models.ArchivedCandidate, error)
}
