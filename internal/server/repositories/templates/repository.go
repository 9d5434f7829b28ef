package templates

import (
	"context"

	"github.com/dmitrijs2005/hronboard/internal/server/models"
)

type Repository interface {
	Count(ctx context.Context) (int, error)
	Seed(ctx context.Context, templates []models.DocumentTemplate) error
	List(ctx context.Context) ([]*models.DocumentTemplate, error)
	GetByCode(ctx context.Context, code string) (*models.DocumentTemplate, error)
}
