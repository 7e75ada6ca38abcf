package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/RMahshie/spectra/internal/repository"
	"github.com/RMahshie/spectra/pkg/models"
	"github.com/google/uuid"
)

// PostgresIngestRepository implements IngestRepository for PostgreSQL
type PostgresIngestRepository struct {
	db *sql.DB
}

// NewPostgresIngestRepository creates a new PostgreSQL ingest repository
func NewPostgresIngestRepository(db *sql.DB) repository.IngestRepository {
	return &PostgresIngestRepository{db: db}
}

// Create inserts a new ingest record
func (r *PostgresIngestRepository) Create(ctx context.Context, ingest *models.Ingest) error {
	query := `
		INSERT INTO ingests (id, filename, format, kind, spectrum_index, prefer_file_timestamp, file_modified_at,
		                     status, progress, s3_key, source_url, created_at, updated_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.db.ExecContext(ctx, query,
		ingest.ID,
		ingest.Filename,
		ingest.Format,
		ingest.Kind,
		ingest.SpectrumIndex,
		ingest.PreferFileTimestamp,
		ingest.FileModifiedAt,
		ingest.Status,
		ingest.Progress,
		ingest.S3Key,
		ingest.SourceURL,
		ingest.CreatedAt,
		ingest.UpdatedAt,
		ingest.CompletedAt)

	return err
}

// GetByID retrieves an ingest by ID
func (r *PostgresIngestRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Ingest, error) {
	query := `
		SELECT id, filename, format, kind, spectrum_index, prefer_file_timestamp, file_modified_at, status, progress,
		       s3_key, source_url, error_message, created_at, updated_at, completed_at
		FROM ingests
		WHERE id = $1`

	var ingest models.Ingest
	var s3Key, sourceURL, errorMsg sql.NullString
	var fileModifiedAt, completedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&ingest.ID,
		&ingest.Filename,
		&ingest.Format,
		&ingest.Kind,
		&ingest.SpectrumIndex,
		&ingest.PreferFileTimestamp,
		&fileModifiedAt,
		&ingest.Status,
		&ingest.Progress,
		&s3Key,
		&sourceURL,
		&errorMsg,
		&ingest.CreatedAt,
		&ingest.UpdatedAt,
		&completedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ingest %s: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if s3Key.Valid {
		ingest.S3Key = &s3Key.String
	}
	if sourceURL.Valid {
		ingest.SourceURL = &sourceURL.String
	}
	if errorMsg.Valid {
		ingest.ErrorMsg = &errorMsg.String
	}
	if fileModifiedAt.Valid {
		ingest.FileModifiedAt = &fileModifiedAt.Time
	}
	if completedAt.Valid {
		ingest.CompletedAt = &completedAt.Time
	}

	return &ingest, nil
}

// UpdateStatus updates the status and progress of an ingest
func (r *PostgresIngestRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, progress int) error {
	query := `
		UPDATE ingests
		SET status = $1, progress = $2, updated_at = NOW(),
		    completed_at = CASE WHEN $1 = 'completed' THEN NOW() ELSE completed_at END
		WHERE id = $3`

	_, err := r.db.ExecContext(ctx, query, status, progress, id)
	return err
}

// ClaimForProcessing moves an ingest to processing unless it is already
// there. It reports false when another caller holds the claim.
func (r *PostgresIngestRepository) ClaimForProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE ingests
		SET status = 'processing', progress = 0, error_message = NULL, updated_at = NOW()
		WHERE id = $1 AND status <> 'processing'`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// UpdateError marks an ingest failed with the given message
func (r *PostgresIngestRepository) UpdateError(ctx context.Context, id uuid.UUID, errorMsg string) error {
	query := `
		UPDATE ingests
		SET status = 'failed', error_message = $1, updated_at = NOW()
		WHERE id = $2`

	_, err := r.db.ExecContext(ctx, query, errorMsg, id)
	return err
}

// StoreRecord stores the parsed spectrum for an ingest, replacing any earlier one
func (r *PostgresIngestRepository) StoreRecord(ctx context.Context, ingestID uuid.UUID, spectrum *models.Spectrum) error {
	data, err := json.Marshal(spectrum)
	if err != nil {
		return fmt.Errorf("failed to marshal spectrum: %w", err)
	}

	query := `
		INSERT INTO spectrum_records (ingest_id, record, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (ingest_id) DO UPDATE SET record = EXCLUDED.record`

	_, err = r.db.ExecContext(ctx, query, ingestID, string(data))
	return err
}

// GetRecord retrieves the parsed spectrum for an ingest
func (r *PostgresIngestRepository) GetRecord(ctx context.Context, ingestID uuid.UUID) (*models.Spectrum, error) {
	query := `
		SELECT record
		FROM spectrum_records
		WHERE ingest_id = $1`

	var raw string
	err := r.db.QueryRowContext(ctx, query, ingestID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record for ingest %s: %w", ingestID, repository.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var spectrum models.Spectrum
	if err := json.Unmarshal([]byte(raw), &spectrum); err != nil {
		return nil, fmt.Errorf("failed to unmarshal spectrum: %w", err)
	}
	return &spectrum, nil
}
