// Package templates persists document templates, the reference data every
// candidate's document set is materialized from.
package templates

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/hronboard/internal/common"
	"github.com/dmitrijs2005/hronboard/internal/dbx"
	"github.com/dmitrijs2005/hronboard/internal/server/models"
)

const selectTemplate = `SELECT template_id, code, name, description, instructions, is_required,
	processing_days, order_position FROM hr.document_templates`

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM hr.document_templates`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// Seed inserts templates, skipping codes that already exist, so concurrent
// first use from several candidates cannot duplicate reference data.
func (r *PostgresRepository) Seed(ctx context.Context, templates []models.DocumentTemplate) error {
	query := `INSERT INTO hr.document_templates
		(code, name, description, instructions, is_required, processing_days, order_position)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (code) DO NOTHING`

	for _, t := range templates {
		_, err := r.db.ExecContext(ctx, query,
			t.Code, t.Name, t.Description, t.Instructions, t.IsRequired, t.ProcessingDays, t.OrderPosition)
		if err != nil {
			return fmt.Errorf("failed to seed template %s: %w", t.Code, err)
		}
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.DocumentTemplate, error) {
	rows, err := r.db.QueryContext(ctx, selectTemplate+` ORDER BY order_position, template_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select templates: %w", err)
	}
	defer rows.Close()

	var result []*models.DocumentTemplate
	for rows.Next() {
		var t models.DocumentTemplate
		if err := rows.Scan(&t.ID, &t.Code, &t.Name, &t.Description, &t.Instructions, &t.IsRequired,
			&t.ProcessingDays, &t.OrderPosition); err != nil {
			return nil, err
		}
		result = append(result, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) GetByCode(ctx context.Context, code string) (*models.DocumentTemplate, error) {
	var t models.DocumentTemplate
	err := r.db.QueryRowContext(ctx, selectTemplate+` WHERE code = $1`, code).
		Scan(&t.ID, &t.Code, &t.Name, &t.Description, &t.Instructions, &t.IsRequired, &t.ProcessingDays, &t.OrderPosition)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &t, nil
}
