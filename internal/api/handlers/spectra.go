package handlers

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/RMahshie/spectra/internal/processing"
	"github.com/RMahshie/spectra/internal/readers"
	"github.com/RMahshie/spectra/internal/repository"
	"github.com/RMahshie/spectra/internal/storage"
	"github.com/RMahshie/spectra/pkg/models"
	"github.com/RMahshie/spectra/pkg/spectra"
	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const uploadURLExpiry = 15 * time.Minute

// SpectraHandler handles spectrum ingest and processing HTTP requests
type SpectraHandler struct {
	repo           repository.IngestRepository
	s3Service      storage.S3Service
	processingSvc  processing.ProcessingService
	maxUploadBytes int64
}

// NewSpectraHandler creates a new spectra handler
func NewSpectraHandler(repo repository.IngestRepository, s3Service storage.S3Service, processingSvc processing.ProcessingService, maxUploadBytes int64) *SpectraHandler {
	return &SpectraHandler{
		repo:           repo,
		s3Service:      s3Service,
		processingSvc:  processingSvc,
		maxUploadBytes: maxUploadBytes,
	}
}

// CreateIngest registers a file and returns the URL(s) to upload it to
func (h *SpectraHandler) CreateIngest(ctx context.Context, req *models.CreateIngestRequest) (*models.CreateIngestResponse, error) {
	filename := path.Base(req.Body.Filename)
	log.Info().Str("filename", filename).Int64("fileSize", req.Body.FileSize).Msg("Creating new ingest")

	if h.maxUploadBytes > 0 && req.Body.FileSize > h.maxUploadBytes {
		return nil, huma.Error400BadRequest(fmt.Sprintf("File too large. Limit is %d bytes.", h.maxUploadBytes), nil)
	}

	format, err := readers.ResolveFormat(filename, req.Body.Format)
	if err != nil {
		return nil, huma.Error400BadRequest("File format not supported.", err)
	}
	kind := req.Body.Kind
	if kind == "" {
		kind = models.KindSpectrum
	}

	ingestID := uuid.New()
	key := fmt.Sprintf("uploads/%s/%s", ingestID, filename)

	uploadURL, err := h.s3Service.GenerateUploadURL(ctx, key)
	if err != nil {
		return nil, huma.Error400BadRequest("Failed to prepare upload. Please try again.", err)
	}

	var headerURL string
	if format == readers.FormatENVI {
		hdrKey := readers.HeaderCandidates(key)[0]
		if headerURL, err = h.s3Service.GenerateUploadURL(ctx, hdrKey); err != nil {
			return nil, huma.Error400BadRequest("Failed to prepare header upload. Please try again.", err)
		}
	}

	now := time.Now()
	ingest := &models.Ingest{
		ID:                  ingestID.String(),
		Filename:            filename,
		Format:              format,
		Kind:                kind,
		SpectrumIndex:       req.Body.SpectrumIndex,
		PreferFileTimestamp: req.Body.PreferFileTimestamp,
		FileModifiedAt:      req.Body.FileModifiedAt,
		Status:              models.StatusPending,
		Progress:            0,
		S3Key:               &key,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := h.repo.Create(ctx, ingest); err != nil {
		return nil, huma.Error500InternalServerError("Failed to create ingest", err)
	}

	log.Info().Str("ingestID", ingest.ID).Str("format", format).Msg("Ingest created, returning upload URL to client")
	return &models.CreateIngestResponse{
		Body: models.CreateIngestResponseBody{
			ID:              ingest.ID,
			Format:          format,
			UploadURL:       uploadURL,
			HeaderUploadURL: headerURL,
			ExpiresIn:       int(uploadURLExpiry.Seconds()),
		},
	}, nil
}

// StartProcessing starts parsing an uploaded file in the background
func (h *SpectraHandler) StartProcessing(ctx context.Context, req *models.IngestIDRequest) (*models.StartProcessingResponse, error) {
	ingestID, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}

	if _, err := h.repo.GetByID(ctx, ingestID); err != nil {
		return nil, notFoundOr500("Ingest not found", err)
	}
	claimed, err := h.repo.ClaimForProcessing(ctx, ingestID)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to start processing", err)
	}
	if !claimed {
		return nil, huma.Error409Conflict("Ingest is already processing")
	}

	log.Info().Str("ingestID", ingestID.String()).Msg("Starting background processing goroutine")
	go func() {
		if err := h.processingSvc.ProcessIngest(context.Background(), ingestID); err != nil {
			log.Error().Err(err).Str("ingestID", ingestID.String()).Msg("Processing failed")
			h.repo.UpdateError(context.Background(), ingestID, fmt.Sprintf("Processing failed: %v", err))
		}
	}()

	resp := &models.StartProcessingResponse{}
	resp.Body.Message = "Processing started successfully"
	return resp, nil
}

// GetIngestStatus returns the current status of an ingest
func (h *SpectraHandler) GetIngestStatus(ctx context.Context, req *models.IngestIDRequest) (*models.GetIngestStatusResponse, error) {
	ingestID, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}

	ingest, err := h.repo.GetByID(ctx, ingestID)
	if err != nil {
		return nil, notFoundOr500("Ingest not found", err)
	}

	return &models.GetIngestStatusResponse{
		Body: models.GetIngestStatusResponseBody{
			ID:       ingest.ID,
			Status:   ingest.Status,
			Progress: ingest.Progress,
			Message:  statusMessage(ingest.Status, ingest.Progress),
			Error:    ingest.ErrorMsg,
		},
	}, nil
}

// GetIngestFile returns a download link for the file behind an ingest
func (h *SpectraHandler) GetIngestFile(ctx context.Context, req *models.IngestIDRequest) (*models.FileURLResponse, error) {
	ingestID, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}

	ingest, err := h.repo.GetByID(ctx, ingestID)
	if err != nil {
		return nil, notFoundOr500("Ingest not found", err)
	}
	if ingest.S3Key == nil {
		return nil, huma.Error404NotFound("Ingest has no stored file")
	}

	url, err := h.s3Service.GenerateDownloadURL(ctx, *ingest.S3Key)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to create download URL", err)
	}

	resp := &models.FileURLResponse{}
	resp.Body.ID = ingest.ID
	resp.Body.Filename = ingest.Filename
	resp.Body.DownloadURL = url
	return resp, nil
}

// GetSpectrum returns the parsed spectrum of a completed ingest
func (h *SpectraHandler) GetSpectrum(ctx context.Context, req *models.IngestIDRequest) (*models.SpectrumResponse, error) {
	ingestID, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}
	spectrum, err := h.loadSpectrum(ctx, ingestID)
	if err != nil {
		return nil, err
	}
	return &models.SpectrumResponse{Body: spectrum}, nil
}

// ReadReference fetches, parses and stores a remote library spectrum
func (h *SpectraHandler) ReadReference(ctx context.Context, req *models.ReadReferenceRequest) (*models.ReadReferenceResponse, error) {
	log.Info().Str("url", req.Body.URL).Str("format", req.Body.Format).Msg("Reading reference spectrum")

	ingest, rec, err := h.processingSvc.ReadReference(ctx, req.Body.URL, req.Body.Format, req.Body.Kind)
	switch {
	case errors.Is(err, readers.ErrUnsupportedFormat):
		return nil, huma.Error400BadRequest("Format not supported for remote files.", err)
	case errors.Is(err, readers.ErrFormat):
		return nil, huma.Error422UnprocessableEntity("Remote file is malformed.", err)
	case err != nil:
		return nil, huma.Error502BadGateway("Failed to read remote file.", err)
	}

	return &models.ReadReferenceResponse{
		Body: models.ReadReferenceResponseBody{
			ID:       ingest.ID,
			Spectrum: models.FromRecord(rec),
		},
	}, nil
}

// Resample interpolates a stored spectrum onto a new wavelength grid
func (h *SpectraHandler) Resample(ctx context.Context, req *models.ResampleRequest) (*models.SpectrumResponse, error) {
	ingestID, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}
	rec, err := h.loadRecord(ctx, ingestID)
	if err != nil {
		return nil, err
	}

	if err := rec.Resample(req.Body.Wavelengths); err != nil {
		if errors.Is(err, spectra.ErrInvalidGrid) {
			return nil, huma.Error400BadRequest("Wavelengths must be finite and strictly increasing.", err)
		}
		return nil, huma.Error500InternalServerError("Failed to resample", err)
	}

	spectrum := models.FromRecord(rec)
	if req.Body.Save {
		if err := h.repo.StoreRecord(ctx, ingestID, spectrum); err != nil {
			return nil, huma.Error500InternalServerError("Failed to store resampled spectrum", err)
		}
	}
	return &models.SpectrumResponse{Body: spectrum}, nil
}

// Convolve reduces a stored spectrum with one or more response kernels
func (h *SpectraHandler) Convolve(ctx context.Context, req *models.ConvolveRequest) (*models.ConvolveResponse, error) {
	ingestID, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}
	rec, err := h.loadRecord(ctx, ingestID)
	if err != nil {
		return nil, err
	}

	kernels := make([]*spectra.Record, 0, len(req.Body.KernelIDs))
	for _, raw := range req.Body.KernelIDs {
		kernelID, err := parseID(raw)
		if err != nil {
			return nil, err
		}
		k, err := h.loadRecord(ctx, kernelID)
		if err != nil {
			return nil, err
		}
		kernels = append(kernels, k)
	}

	values, err := rec.Convolve(kernels...)
	if err != nil {
		if errors.Is(err, spectra.ErrNotResponse) || errors.Is(err, spectra.ErrZeroResponse) {
			return nil, huma.Error422UnprocessableEntity("Kernels must be non-zero response functions.", err)
		}
		return nil, huma.Error500InternalServerError("Failed to convolve", err)
	}

	resp := &models.ConvolveResponse{}
	resp.Body.ID = req.ID
	resp.Body.KernelIDs = req.Body.KernelIDs
	resp.Body.Values = models.NullableFloats(values)
	return resp, nil
}

// TimeDifference returns the acquisition time difference of two ingests
func (h *SpectraHandler) TimeDifference(ctx context.Context, req *models.TimeDifferenceRequest) (*models.TimeDifferenceResponse, error) {
	ingestID, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}
	otherID, err := parseID(req.OtherID)
	if err != nil {
		return nil, err
	}
	rec, err := h.loadRecord(ctx, ingestID)
	if err != nil {
		return nil, err
	}
	other, err := h.loadRecord(ctx, otherID)
	if err != nil {
		return nil, err
	}

	seconds, err := rec.TimeDifference(other)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("Both spectra need an acquisition time.", err)
	}

	resp := &models.TimeDifferenceResponse{}
	resp.Body.ID = req.ID
	resp.Body.OtherID = req.OtherID
	resp.Body.Seconds = seconds
	return resp, nil
}

// ListSpectra lists the spectra inside an ENVI library ingest
func (h *SpectraHandler) ListSpectra(ctx context.Context, req *models.IngestIDRequest) (*models.ListSpectraResponse, error) {
	ingestID, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}

	names, err := h.processingSvc.ListSpectra(ctx, ingestID)
	switch {
	case errors.Is(err, processing.ErrNotLibrary):
		return nil, huma.Error400BadRequest("Ingest is not an ENVI library.", err)
	case errors.Is(err, repository.ErrNotFound):
		return nil, huma.Error404NotFound("Ingest not found", err)
	case errors.Is(err, readers.ErrFormat):
		return nil, huma.Error422UnprocessableEntity("Library header is malformed.", err)
	case err != nil:
		return nil, huma.Error500InternalServerError("Failed to list spectra", err)
	}

	resp := &models.ListSpectraResponse{}
	resp.Body.ID = req.ID
	resp.Body.Spectra = make([]models.SpectrumName, len(names))
	for i, n := range names {
		resp.Body.Spectra[i] = models.SpectrumName{Index: n.Index, Name: n.Name, Label: n.String()}
	}
	return resp, nil
}

// loadSpectrum returns the stored spectrum once the ingest has completed
func (h *SpectraHandler) loadSpectrum(ctx context.Context, ingestID uuid.UUID) (*models.Spectrum, error) {
	ingest, err := h.repo.GetByID(ctx, ingestID)
	if err != nil {
		return nil, notFoundOr500("Ingest not found", err)
	}
	if ingest.Status != models.StatusCompleted {
		return nil, huma.Error409Conflict("Ingest not yet completed",
			fmt.Errorf("ingest %s status is %s", ingest.ID, ingest.Status))
	}

	spectrum, err := h.repo.GetRecord(ctx, ingestID)
	if err != nil {
		return nil, notFoundOr500("Spectrum not found", err)
	}
	return spectrum, nil
}

func (h *SpectraHandler) loadRecord(ctx context.Context, ingestID uuid.UUID) (*spectra.Record, error) {
	spectrum, err := h.loadSpectrum(ctx, ingestID)
	if err != nil {
		return nil, err
	}
	rec, err := spectrum.ToRecord()
	if err != nil {
		return nil, huma.Error500InternalServerError("Stored spectrum is invalid", err)
	}
	return rec, nil
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, huma.Error400BadRequest("Invalid ingest ID", err)
	}
	return id, nil
}

func notFoundOr500(msg string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return huma.Error404NotFound(msg, err)
	}
	return huma.Error500InternalServerError(msg, err)
}

// statusMessage creates a human-readable status message
func statusMessage(status string, progress int) string {
	switch status {
	case models.StatusPending:
		return "Waiting for upload..."
	case models.StatusProcessing:
		if progress < 25 {
			return "Starting..."
		} else if progress < 50 {
			return "Downloading file..."
		} else if progress < 80 {
			return "Parsing spectrum..."
		} else {
			return "Storing spectrum..."
		}
	case models.StatusCompleted:
		return "Spectrum ready"
	case models.StatusFailed:
		return "Ingest failed"
	default:
		return "Unknown status"
	}
}
