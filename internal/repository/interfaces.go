package repository

import (
	"context"
	"errors"

	"github.com/RMahshie/spectra/pkg/models"
	"github.com/google/uuid"
)

// ErrNotFound is returned when no row matches the requested ID.
var ErrNotFound = errors.New("not found")

// IngestRepository defines the interface for ingest data operations
type IngestRepository interface {
	Create(ctx context.Context, ingest *models.Ingest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Ingest, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, progress int) error
	ClaimForProcessing(ctx context.Context, id uuid.UUID) (bool, error)
	UpdateError(ctx context.Context, id uuid.UUID, errorMsg string) error
	RecordRepository
}

// RecordRepository defines the interface for parsed spectrum storage
type RecordRepository interface {
	StoreRecord(ctx context.Context, ingestID uuid.UUID, spectrum *models.Spectrum) error
	GetRecord(ctx context.Context, ingestID uuid.UUID) (*models.Spectrum, error)
}
