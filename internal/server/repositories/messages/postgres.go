// Package messages logs chat messages exchanged between candidates and staff.
package messages

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

func (r *PostgresRepository) Create(ctx context.Context, m *models.Message) error {
	query := `INSERT INTO hr.chat_messages (chat_id, candidate_uuid, content, is_from_admin)
		VALUES ($1, $2, $3, $4)
		RETURNING message_id, sent_at`

	err := r.db.QueryRowContext(ctx, query, m.ChatID, m.CandidateID, m.Content, m.FromStaff).
		Scan(&m.ID, &m.SentAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// ListByCandidate returns up to limit most recent messages in chronological order.
func (r *PostgresRepository) ListByCandidate(ctx context.Context, candidateID string, limit int) ([]*models.Message, error) {
	query := `SELECT message_id, chat_id, candidate_uuid, content, is_from_admin, sent_at FROM (
			SELECT message_id, chat_id, candidate_uuid, content, is_from_admin, sent_at
			FROM hr.chat_messages WHERE candidate_uuid = $1
			ORDER BY sent_at DESC, message_id DESC LIMIT $2
		) recent ORDER BY sent_at, message_id`

	rows, err := r.db.QueryContext(ctx, query, candidateID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select messages: %w", err)
	}
	defer rows.Close()

	var result []*models.Message
	for rows.Next() {
		var (
			m    models.Message
			cand sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.ChatID, &cand, &m.Content, &m.FromStaff, &m.SentAt); err != nil {
			return nil, err
		}
		if cand.Valid {
			m.CandidateID = &cand.String
		}
		result = append(result, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
