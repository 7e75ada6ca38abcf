package processing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/RMahshie/spectra/internal/readers"
	"github.com/RMahshie/spectra/internal/repository"
	"github.com/RMahshie/spectra/internal/storage"
	"github.com/RMahshie/spectra/pkg/models"
	"github.com/RMahshie/spectra/pkg/spectra"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrNotLibrary is returned when a spectrum listing is requested for a
// non-ENVI ingest.
var ErrNotLibrary = errors.New("ingest is not an ENVI library")

type ProcessingService interface {
	// ProcessIngest downloads and parses an uploaded file. Parse failures are
	// recorded on the ingest; only repository failures are returned.
	ProcessIngest(ctx context.Context, ingestID uuid.UUID) error
	// ReadReference fetches and parses a remote file synchronously and stores
	// it as a completed ingest.
	ReadReference(ctx context.Context, url, format, kind string) (*models.Ingest, *spectra.Record, error)
	// ListSpectra lists the names in the ENVI library behind an ingest.
	ListSpectra(ctx context.Context, ingestID uuid.UUID) ([]readers.SpectrumName, error)
}

// Config holds processing service settings
type Config struct {
	// WorkDir hosts per-ingest temp directories; empty means os.TempDir().
	WorkDir        string
	MaxUploadBytes int64
}

type processingService struct {
	s3         storage.S3Service
	repository repository.IngestRepository
	registry   *readers.Registry
	fetcher    readers.Fetcher
	cfg        Config
}

func NewProcessingService(s3Service storage.S3Service, repo repository.IngestRepository, registry *readers.Registry, fetcher readers.Fetcher, cfg Config) ProcessingService {
	return &processingService{
		s3:         s3Service,
		repository: repo,
		registry:   registry,
		fetcher:    fetcher,
		cfg:        cfg,
	}
}

func (s *processingService) ProcessIngest(ctx context.Context, ingestID uuid.UUID) error {
	start := time.Now()

	// Step 1: Update to processing status
	if err := s.repository.UpdateStatus(ctx, ingestID, models.StatusProcessing, 10); err != nil {
		return err
	}

	// Step 2: Get ingest details
	ingest, err := s.repository.GetByID(ctx, ingestID)
	if err != nil {
		return err
	}
	if ingest.S3Key == nil {
		return s.fail(ctx, ingestID, "Ingest has no uploaded file", nil)
	}

	// Step 3: Download into a private work directory
	if err := s.repository.UpdateStatus(ctx, ingestID, models.StatusProcessing, 20); err != nil {
		return err
	}
	dir, err := os.MkdirTemp(s.cfg.WorkDir, "ingest-"+ingestID.String()+"-")
	if err != nil {
		return fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(dir) // Always cleanup

	local, err := s.download(ctx, dir, *ingest.S3Key)
	if err != nil {
		return s.fail(ctx, ingestID, "Failed to download file", err)
	}
	if ingest.Format == readers.FormatENVI {
		if err := s.downloadCompanionHeaders(ctx, dir, *ingest.S3Key); err != nil {
			return s.fail(ctx, ingestID, "Failed to download ENVI header", err)
		}
	}
	if err := stampModTime(local, ingest); err != nil {
		return s.fail(ctx, ingestID, "Failed to set file timestamp", err)
	}

	// Step 4: Parse
	if err := s.repository.UpdateStatus(ctx, ingestID, models.StatusProcessing, 50); err != nil {
		return err
	}
	rec, err := s.registry.Read(ctx, local, readers.Options{
		Format:              ingest.Format,
		SpectrumIndex:       ingest.SpectrumIndex,
		PreferFileTimestamp: ingest.PreferFileTimestamp,
	})
	if err != nil {
		return s.fail(ctx, ingestID, "Failed to parse file", err)
	}
	rec.SourceID = ingest.Filename
	applyKind(rec, ingest.Kind)

	// Step 5: Store record
	if err := s.repository.UpdateStatus(ctx, ingestID, models.StatusProcessing, 80); err != nil {
		return err
	}
	if err := s.repository.StoreRecord(ctx, ingestID, models.FromRecord(rec)); err != nil {
		return err
	}

	// Step 6: Mark complete
	if err := s.repository.UpdateStatus(ctx, ingestID, models.StatusCompleted, 100); err != nil {
		return err
	}

	log.Info().
		Str("ingestID", ingestID.String()).
		Str("format", ingest.Format).
		Int("samples", rec.Len()).
		Dur("duration", time.Since(start)).
		Msg("Ingest processed")
	return nil
}

func (s *processingService) ReadReference(ctx context.Context, url, format, kind string) (*models.Ingest, *spectra.Record, error) {
	if format == "" {
		format = readers.FormatUSGS
	}
	resolved, err := readers.ResolveFormat(url, format)
	if err != nil {
		return nil, nil, err
	}
	if kind == "" {
		kind = models.KindSpectrum
	}

	ingestID := uuid.New()
	data, rec, err := s.readRemoteFile(ctx, url, resolved)
	if err != nil {
		return nil, nil, err
	}
	rec.SourceID = url
	applyKind(rec, kind)

	key := fmt.Sprintf("references/%s/%s", ingestID, path.Base(url))
	if err := s.s3.UploadFile(ctx, key, data); err != nil {
		return nil, nil, fmt.Errorf("failed to archive reference: %w", err)
	}

	now := time.Now()
	source := url
	ingest := &models.Ingest{
		ID:          ingestID.String(),
		Filename:    path.Base(url),
		Format:      resolved,
		Kind:        kind,
		Status:      models.StatusCompleted,
		Progress:    100,
		S3Key:       &key,
		SourceURL:   &source,
		CreatedAt:   now,
		UpdatedAt:   now,
		CompletedAt: &now,
	}
	if err := s.repository.Create(ctx, ingest); err != nil {
		return nil, nil, fmt.Errorf("failed to create ingest: %w", err)
	}
	if err := s.repository.StoreRecord(ctx, ingestID, models.FromRecord(rec)); err != nil {
		return nil, nil, fmt.Errorf("failed to store record: %w", err)
	}

	log.Info().Str("ingestID", ingest.ID).Str("url", url).Int("samples", rec.Len()).Msg("Reference spectrum stored")
	return ingest, rec, nil
}

func (s *processingService) ListSpectra(ctx context.Context, ingestID uuid.UUID) ([]readers.SpectrumName, error) {
	ingest, err := s.repository.GetByID(ctx, ingestID)
	if err != nil {
		return nil, err
	}
	if ingest.Format != readers.FormatENVI || ingest.S3Key == nil {
		return nil, ErrNotLibrary
	}

	dir, err := os.MkdirTemp(s.cfg.WorkDir, "names-"+ingestID.String()+"-")
	if err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	local := filepath.Join(dir, path.Base(*ingest.S3Key))
	if err := s.downloadCompanionHeaders(ctx, dir, *ingest.S3Key); err != nil {
		return nil, err
	}
	return readers.NewENVIReader().ListSpectra(local)
}

// download stores key in dir under its base name and returns the local path.
func (s *processingService) download(ctx context.Context, dir, key string) (string, error) {
	data, err := s.s3.DownloadFile(ctx, key)
	if err != nil {
		return "", err
	}
	if s.cfg.MaxUploadBytes > 0 && int64(len(data)) > s.cfg.MaxUploadBytes {
		return "", fmt.Errorf("file is %d bytes, limit is %d", len(data), s.cfg.MaxUploadBytes)
	}
	local := filepath.Join(dir, path.Base(key))
	if err := os.WriteFile(local, data, 0o600); err != nil {
		return "", err
	}
	return local, nil
}

// downloadCompanionHeaders fetches whichever .hdr files exist next to an ENVI
// library key. Finding none is left for the reader to report.
func (s *processingService) downloadCompanionHeaders(ctx context.Context, dir, key string) error {
	for _, hdrKey := range readers.HeaderCandidates(key) {
		if hdrKey == key {
			continue
		}
		_, err := s.download(ctx, dir, hdrKey)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		log.Debug().Str("key", hdrKey).Msg("Downloaded ENVI header")
	}
	return nil
}

// readRemoteFile fetches url into a temp file so file-based readers can parse
// it, and returns the fetched bytes alongside the record.
func (s *processingService) readRemoteFile(ctx context.Context, url, format string) ([]byte, *spectra.Record, error) {
	if s.fetcher == nil {
		return nil, nil, fmt.Errorf("no fetcher configured")
	}
	if format == readers.FormatENVI {
		return nil, nil, fmt.Errorf("%w: ENVI libraries must be uploaded with their header", readers.ErrUnsupportedFormat)
	}
	data, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, nil, err
	}

	dir, err := os.MkdirTemp(s.cfg.WorkDir, "reference-")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	local := filepath.Join(dir, path.Base(url))
	if err := os.WriteFile(local, data, 0o600); err != nil {
		return nil, nil, err
	}
	rec, err := s.registry.Read(ctx, local, readers.Options{Format: format})
	if err != nil {
		return nil, nil, err
	}
	return data, rec, nil
}

// fail records a user-facing failure on the ingest and swallows the cause.
func (s *processingService) fail(ctx context.Context, ingestID uuid.UUID, msg string, cause error) error {
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	log.Error().Err(cause).Str("ingestID", ingestID.String()).Msg(msg)
	return s.repository.UpdateError(ctx, ingestID, msg)
}

// stampModTime gives the downloaded copy the client's modification time, or
// the registration time when the client sent none, so readers that fall back
// to file timestamps see the upload rather than the download.
func stampModTime(local string, ingest *models.Ingest) error {
	t := ingest.CreatedAt
	if ingest.FileModifiedAt != nil {
		t = *ingest.FileModifiedAt
	}
	if t.IsZero() {
		return nil
	}
	return os.Chtimes(local, t, t)
}

func applyKind(rec *spectra.Record, kind string) {
	if kind == models.KindResponse {
		rec.ValueUnits = spectra.Response
	}
}
