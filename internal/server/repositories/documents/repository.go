package documents

import (
	"context"

	"github.com/dmitrijs2005/hronboard/internal/server/models"
)

type Repository interface {
	Materialize(ctx context.Context, candidateID string) (int64, error)
	ListByCandidate(ctx context.Context, candidateID string) ([]*models.CandidateDocument, error)
	GetByID(ctx context.Context, id string) (*models.CandidateDocument, error)
	UpdateStatus(ctx context.Context, id string, from, to models.DocumentStatus, obj *models.StoredObject) error
	AppendHistory(ctx context.Context, id string, status models.DocumentStatus) error
	History(ctx context.Context, id string) ([]*models.DocumentHistory, error)
	UpdateNotes(ctx context.Context, id string, notes string) error
}
