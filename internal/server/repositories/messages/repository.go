package messages

import (
	"context"

	"github.com/dmitrijs2005/hronboard/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, m *models.Message) error
	ListByCandidate(ctx context.Context, candidateID string, limit int) ([]*models.Message, error)
}
