// Package locations keeps the last location each candidate shared.
package locations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/hronboard/internal/common"
	"github.com/dmitrijs2005/hronboard/internal/dbx"
	"github.com/dmitrijs2005/hronboard/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert replaces the candidate's stored coordinates.
func (r *PostgresRepository) Upsert(ctx context.Context, loc *models.Location) error {
	query := `INSERT INTO hr.candidate_locations (candidate_uuid, latitude, longitude, accuracy, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (candidate_uuid)
		DO UPDATE SET
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			accuracy = EXCLUDED.accuracy,
			updated_at = EXCLUDED.updated_at
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query, loc.CandidateID, loc.Latitude, loc.Longitude, loc.Accuracy).
		Scan(&loc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, candidateID string) (*models.Location, error) {
	query := `SELECT candidate_uuid, latitude, longitude, accuracy, updated_at
		FROM hr.candidate_locations WHERE candidate_uuid = $1`

	var loc models.Location
	err := r.db.QueryRowContext(ctx, query, candidateID).
		Scan(&loc.CandidateID, &loc.Latitude, &loc.Longitude, &loc.Accuracy, &loc.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &loc, nil
}
