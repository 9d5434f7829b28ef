package bankaccounts

import (
	"context"

	"github.com/dmitrijs2005/hronboard/internal/server/models"
)

type Repository interface {
	DeleteByCandidate(ctx context.Context, candidateID string) (int64, error)
	Insert(ctx context.Context, row *models.BankAccount) error
	ListByCandidate(ctx context.Context, candidateID string) ([]*models.BankAccount, error)
}
