// Package documents persists candidate documents and their status history.
package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/hronboard/internal/common"
	"github.com/dmitrijs2005/hronboard/internal/dbx"
	"github.com/dmitrijs2005/hronboard/internal/server/models"
)

const selectDocument = `SELECT d.document_id, d.candidate_id, d.template_id, t.code, t.name, t.instructions,
	d.status_id, d.s3_bucket, d.s3_key, d.file_size, d.content_type, d.submitted_at, d.notes, d.updated_at
	FROM hr.candidate_documents d
	JOIN hr.document_templates t ON t.template_id = d.template_id`

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*models.CandidateDocument, error) {
	var (
		d           models.CandidateDocument
		status      int
		bucket, key sql.NullString
		size        sql.NullInt64
		contentType sql.NullString
		submittedAt sql.NullTime
	)
	err := s.Scan(&d.ID, &d.CandidateID, &d.TemplateID, &d.TemplateCode, &d.TemplateName, &d.Instructions,
		&status, &bucket, &key, &size, &contentType, &submittedAt, &d.Notes, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.Status = models.DocumentStatus(status)
	if key.Valid && key.String != "" {
		d.Object = &models.StoredObject{
			Bucket:      bucket.String,
			Key:         key.String,
			Size:        size.Int64,
			ContentType: contentType.String,
		}
	}
	if submittedAt.Valid {
		d.SubmittedAt = &submittedAt.Time
	}
	return &d, nil
}

// Materialize creates a NotSubmitted row for every required template the
// candidate does not have yet and returns how many rows were created. The
// unique (candidate_id, template_id) constraint makes concurrent calls safe.
func (r *PostgresRepository) Materialize(ctx context.Context, candidateID string) (int64, error) {
	query := `INSERT INTO hr.candidate_documents (document_id, candidate_id, template_id, status_id)
		SELECT gen_random_uuid(), $1, t.template_id, $2
		FROM hr.document_templates t
		WHERE t.is_required
		ON CONFLICT (candidate_id, template_id) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query, candidateID, int(models.DocumentNotSubmitted))
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}

// ListByCandidate returns the candidate's documents in template order.
func (r *PostgresRepository) ListByCandidate(ctx context.Context, candidateID string) ([]*models.CandidateDocument, error) {
	query := selectDocument + ` WHERE d.candidate_id = $1 ORDER BY t.order_position, t.template_id`

	rows, err := r.db.QueryContext(ctx, query, candidateID)
	if err != nil {
		return nil, fmt.Errorf("failed to select documents: %w", err)
	}
	defer rows.Close()

	var result []*models.CandidateDocument
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.CandidateDocument, error) {
	d, err := scanDocument(r.db.QueryRowContext(ctx, selectDocument+` WHERE d.document_id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return d, nil
}

// UpdateStatus moves the document from one status to another only if it is
// still in from. When obj is set the stored file reference is replaced in the
// same statement. Zero affected rows means another actor got there first and
// yields common.ErrIllegalTransition.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, from, to models.DocumentStatus, obj *models.StoredObject) error {
	var (
		res sql.Result
		err error
	)
	if obj == nil {
		query := `UPDATE hr.candidate_documents SET status_id = $3, updated_at = now()
			WHERE document_id = $1 AND status_id = $2`
		res, err = r.db.ExecContext(ctx, query, id, int(from), int(to))
	} else {
		query := `UPDATE hr.candidate_documents
			SET status_id = $3, s3_bucket = $4, s3_key = $5, file_size = $6, content_type = $7,
				submitted_at = now(), updated_at = now()
			WHERE document_id = $1 AND status_id = $2`
		res, err = r.db.ExecContext(ctx, query, id, int(from), int(to), obj.Bucket, obj.Key, obj.Size, obj.ContentType)
	}
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return fmt.Errorf("%w: document %s is no longer %s", common.ErrIllegalTransition, id, from)
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

func (r *PostgresRepository) AppendHistory(ctx context.Context, id string, status models.DocumentStatus) error {
	query := `INSERT INTO hr.document_history (document_id, status_id) VALUES ($1, $2)`
	if _, err := r.db.ExecContext(ctx, query, id, int(status)); err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

func (r *PostgresRepository) History(ctx context.Context, id string) ([]*models.DocumentHistory, error) {
	query := `SELECT history_id, document_id, status_id, created_at
		FROM hr.document_history WHERE document_id = $1 ORDER BY history_id`

	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to select history: %w", err)
	}
	defer rows.Close()

	var result []*models.DocumentHistory
	for rows.Next() {
		var (
			h      models.DocumentHistory
			status int
		)
		if err := rows.Scan(&h.ID, &h.DocumentID, &status, &h.CreatedAt); err != nil {
			return nil, err
		}
		h.Status = models.DocumentStatus(status)
		result = append(result, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) UpdateNotes(ctx context.Context, id string, notes string) error {
	query := `UPDATE hr.candidate_documents SET notes = $2, updated_at = now() WHERE document_id = $1`
	res, err := r.db.ExecContext(ctx, query, id, notes)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
