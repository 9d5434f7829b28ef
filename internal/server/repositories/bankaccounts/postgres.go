// Package bankaccounts persists the rows of a candidate's bank statement.
// The set is only ever replaced as a whole inside a transaction.
package bankaccounts

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/hronboard/internal/dbx"
	"github.com/dmitrijs2005/hronboard/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) DeleteByCandidate(ctx context.Context, candidateID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM hr.bank_accounts WHERE candidate_uuid = $1`, candidateID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete bank accounts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}

// Insert stores one row. Nil dates are written as NULL.
func (r *PostgresRepository) Insert(ctx context.Context, row *models.BankAccount) error {
	query := `INSERT INTO hr.bank_accounts
		(candidate_uuid, bank, account_number, open_date, close_date, account_type, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		row.CandidateID, row.Bank, row.AccountNumber, row.OpenDate, row.CloseDate, row.AccountType, row.Status)
	if err != nil {
		return fmt.Errorf("failed to insert bank account: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByCandidate(ctx context.Context, candidateID string) ([]*models.BankAccount, error) {
	query := `SELECT candidate_uuid, bank, account_number, open_date, close_date, account_type, status
		FROM hr.bank_accounts WHERE candidate_uuid = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, candidateID)
	if err != nil {
		return nil, fmt.Errorf("failed to select bank accounts: %w", err)
	}
	defer rows.Close()

	var result []*models.BankAccount
	for rows.Next() {
		var (
			a              models.BankAccount
			opened, closed sql.NullTime
		)
		if err := rows.Scan(&a.CandidateID, &a.Bank, &a.AccountNumber, &opened, &closed, &a.AccountType, &a.Status); err != nil {
			return nil, err
		}
		if opened.Valid {
			a.OpenDate = &opened.Time
		}
		if closed.Valid {
			a.CloseDate = &closed.Time
		}
		result = append(result, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
