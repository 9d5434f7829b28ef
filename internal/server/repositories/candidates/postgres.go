// Package candidates persists candidates and their archive projection.
package candidates

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/hronboard/internal/common"
	"github.com/dmitrijs2005/hronboard/internal/dbx"
	"github.com/dmitrijs2005/hronboard/internal/server/models"
)

const (
	invitationCodeConstraint = "candidates_invitation_code_key"
	chatIDConstraint         = "candidates_telegram_chat_id_key"
)

const selectCandidate = `SELECT candidate_uuid, first_name, last_name, email, sex, invitation_code,
	telegram_chat_id, status_id, tutor_uuid, notes, agreement_accepted, agreement_accepted_at,
	created_at, updated_at
	FROM hr.candidates`

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

func scanCandidate(s scanner) (*models.Candidate, error) {
	var (
		c          models.Candidate
		status     int
		chatID     sql.NullInt64
		tutorID    sql.NullString
		acceptedAt sql.NullTime
	)
	err := s.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Sex, &c.InvitationCode,
		&chatID, &status, &tutorID, &c.Notes, &c.AgreementAccepted, &acceptedAt,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Status = models.CandidateStatus(status)
	if chatID.Valid {
		c.ChatID = &chatID.Int64
	}
	if tutorID.Valid {
		c.TutorID = &tutorID.String
	}
	if acceptedAt.Valid {
		c.AgreementAcceptedAt = &acceptedAt.Time
	}
	return &c, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, where string, arg any) (*models.Candidate, error) {
	c, err := scanCandidate(r.db.QueryRowContext(ctx, selectCandidate+" WHERE "+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

// Create inserts c. A clash on the invitation code yields common.ErrAlreadyExists
// so the caller can draw a new code.
func (r *PostgresRepository) Create(ctx context.Context, c *models.Candidate) error {
	query := `INSERT INTO hr.candidates
		(candidate_uuid, first_name, last_name, email, sex, invitation_code, status_id, tutor_uuid)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		c.ID, c.FirstName, c.LastName, c.Email, c.Sex, c.InvitationCode, int(c.Status), c.TutorID,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err, invitationCodeConstraint) {
			return fmt.Errorf("invitation code %s: %w", c.InvitationCode, common.ErrAlreadyExists)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Candidate, error) {
	return r.getOne(ctx, "candidate_uuid = $1", id)
}

func (r *PostgresRepository) GetByInvitationCode(ctx context.Context, code string) (*models.Candidate, error) {
	return r.getOne(ctx, "invitation_code = $1", code)
}

func (r *PostgresRepository) GetByChatID(ctx context.Context, chatID int64) (*models.Candidate, error) {
	return r.getOne(ctx, "telegram_chat_id = $1", chatID)
}

// List returns candidates, newest first. A zero status returns all of them.
func (r *PostgresRepository) List(ctx context.Context, status models.CandidateStatus) ([]*models.Candidate, error) {
	query := selectCandidate + ` WHERE ($1 = 0 OR status_id = $1) ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, int(status))
	if err != nil {
		return nil, fmt.Errorf("failed to select candidates: %w", err)
	}
	defer rows.Close()

	var result []*models.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// BindChat sets the chat binding. Re-binding the same chat is a no-op; a
// candidate bound to another chat, or a chat bound to another candidate,
// yields common.ErrAlreadyBound.
func (r *PostgresRepository) BindChat(ctx context.Context, id string, chatID int64) error {
	query := `UPDATE hr.candidates SET telegram_chat_id = $2, updated_at = now()
		WHERE candidate_uuid = $1 AND (telegram_chat_id IS NULL OR telegram_chat_id = $2)`

	res, err := r.db.ExecContext(ctx, query, id, chatID)
	if err != nil {
		if dbx.IsUniqueViolation(err, chatIDConstraint) {
			return common.ErrAlreadyBound
		}
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
		return common.ErrAlreadyBound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

// UpdateStatus moves the candidate from one status to another only if it is
// still in from. Losing that race yields common.ErrIllegalTransition.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, from, to models.CandidateStatus) error {
	query := `UPDATE hr.candidates SET status_id = $3, updated_at = now()
		WHERE candidate_uuid = $1 AND status_id = $2`

	res, err := r.db.ExecContext(ctx, query, id, int(from), int(to))
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
		return fmt.Errorf("%w: candidate %s is no longer %s", common.ErrIllegalTransition, id, from)
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

// AcceptAgreement records privacy acceptance. The first timestamp wins.
func (r *PostgresRepository) AcceptAgreement(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE hr.candidates
		SET agreement_accepted = true, agreement_accepted_at = COALESCE(agreement_accepted_at, $2), updated_at = now()
		WHERE candidate_uuid = $1`
	return r.execOne(ctx, query, id, at)
}

func (r *PostgresRepository) UpdateNotes(ctx context.Context, id string, notes string) error {
	query := `UPDATE hr.candidates SET notes = $2, updated_at = now() WHERE candidate_uuid = $1`
	return r.execOne(ctx, query, id, notes)
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
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

// Archive copies the candidate into the archive projection once.
func (r *PostgresRepository) Archive(ctx context.Context, id string) error {
	query := `INSERT INTO hr.candidate_archive (candidate_uuid, first_name, last_name, email, status_id)
		SELECT candidate_uuid, first_name, last_name, email, status_id
		FROM hr.candidates WHERE candidate_uuid = $1
		ON CONFLICT (candidate_uuid) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to archive candidate: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListArchive(ctx context.Context) ([]*models.ArchivedCandidate, error) {
	query := `SELECT candidate_uuid, first_name, last_name, email, status_id, archived_at
		FROM hr.candidate_archive ORDER BY archived_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select archive: %w", err)
	}
	defer rows.Close()

	var result []*models.ArchivedCandidate
	for rows.Next() {
		var (
			a      models.ArchivedCandidate
			status int
		)
		if err := rows.Scan(&a.CandidateID, &a.FirstName, &a.LastName, &a.Email, &status, &a.ArchivedAt); err != nil {
			return nil, err
		}
		a.Status = models.CandidateStatus(status)
		result = append(result, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
