package locations

import (
	"context"

	"github.com/dmitrijs2005/hronboard/internal/server/models"
)

type Repository interface {
	Upsert(ctx context.Context, loc *models.Location) error
	Get(ctx context.Context, candidateID string) (*models.Location, error)
}
