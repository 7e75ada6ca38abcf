package processing

import (
	"context"

	"github.com/RMahshie/spectra/pkg/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockIngestRepository implements repository.IngestRepository for testing
type MockIngestRepository struct {
	mock.Mock
}

func (m *MockIngestRepository) Create(ctx context.Context, ingest *models.Ingest) error {
	args := m.Called(ctx, ingest)
	return args.Error(0)
}

func (m *MockIngestRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Ingest, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*models.Ingest), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIngestRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, progress int) error {
	args := m.Called(ctx, id, status, progress)
	return args.Error(0)
}

func (m *MockIngestRepository) ClaimForProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockIngestRepository) UpdateError(ctx context.Context, id uuid.UUID, errorMsg string) error {
	args := m.Called(ctx, id, errorMsg)
	return args.Error(0)
}

func (m *MockIngestRepository) StoreRecord(ctx context.Context, ingestID uuid.UUID, spectrum *models.Spectrum) error {
	args := m.Called(ctx, ingestID, spectrum)
	return args.Error(0)
}

func (m *MockIngestRepository) GetRecord(ctx context.Context, ingestID uuid.UUID) (*models.Spectrum, error) {
	args := m.Called(ctx, ingestID)
	if v := args.Get(0); v != nil {
		return v.(*models.Spectrum), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockS3Service implements storage.S3Service for testing
type MockS3Service struct {
	mock.Mock
}

func (m *MockS3Service) GenerateUploadURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockS3Service) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockS3Service) DownloadFile(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if v := args.Get(0); v != nil {
		return v.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockS3Service) UploadFile(ctx context.Context, key string, data []byte) error {
	args := m.Called(ctx, key, data)
	return args.Error(0)
}

// MockFetcher implements readers.Fetcher for testing
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	args := m.Called(ctx, url)
	if v := args.Get(0); v != nil {
		return v.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}
