package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/RMahshie/spectra/internal/processing"
	"github.com/RMahshie/spectra/internal/readers"
	"github.com/RMahshie/spectra/internal/repository"
	"github.com/RMahshie/spectra/pkg/models"
	"github.com/RMahshie/spectra/pkg/spectra"
	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var se huma.StatusError
	require.True(t, errors.As(err, &se), "expected a huma status error, got %v", err)
	return se.GetStatus()
}

func newHandler() (*SpectraHandler, *MockIngestRepository, *MockS3Service, *MockProcessingService) {
	repo := &MockIngestRepository{}
	s3 := &MockS3Service{}
	proc := &MockProcessingService{}
	return NewSpectraHandler(repo, s3, proc, 1<<20), repo, s3, proc
}

func stubCompleted(repo *MockIngestRepository, id uuid.UUID, rec *spectra.Record) {
	repo.On("GetByID", mock.Anything, id).Return(&models.Ingest{ID: id.String(), Status: models.StatusCompleted}, nil)
	repo.On("GetRecord", mock.Anything, id).Return(models.FromRecord(rec), nil)
}

func mustRecord(t *testing.T, wl, values []float64) *spectra.Record {
	t.Helper()
	rec, err := spectra.New("test", wl, values)
	require.NoError(t, err)
	return rec
}

func TestCreateIngest(t *testing.T) {
	tests := []struct {
		name       string
		filename   string
		format     string
		size       int64
		modified   time.Time
		mockSetup  func(*MockIngestRepository, *MockS3Service)
		wantStatus int
		wantFormat string
		wantHeader bool
	}{
		{
			name:     "sig file",
			filename: "field/wyken1_049.sig",
			size:     4096,
			mockSetup: func(repo *MockIngestRepository, s3 *MockS3Service) {
				s3.On("GenerateUploadURL", mock.Anything, mock.MatchedBy(func(k string) bool {
					return strings.HasPrefix(k, "uploads/") && strings.HasSuffix(k, "/wyken1_049.sig")
				})).Return("https://example.com/upload", nil)
				repo.On("Create", mock.Anything, mock.MatchedBy(func(i *models.Ingest) bool {
					return i.Format == readers.FormatSig && i.Kind == models.KindSpectrum && i.Status == models.StatusPending
				})).Return(nil)
			},
			wantFormat: readers.FormatSig,
		},
		{
			name:     "envi library gets header url",
			filename: "lib.sli",
			size:     4096,
			mockSetup: func(repo *MockIngestRepository, s3 *MockS3Service) {
				s3.On("GenerateUploadURL", mock.Anything, mock.MatchedBy(func(k string) bool {
					return strings.HasSuffix(k, "/lib.sli")
				})).Return("https://example.com/lib", nil)
				s3.On("GenerateUploadURL", mock.Anything, mock.MatchedBy(func(k string) bool {
					return strings.HasSuffix(k, "/lib.hdr")
				})).Return("https://example.com/hdr", nil)
				repo.On("Create", mock.Anything, mock.Anything).Return(nil)
			},
			wantFormat: readers.FormatENVI,
			wantHeader: true,
		},
		{
			name:     "explicit format",
			filename: "sts_0001.txt",
			format:   "sts",
			size:     4096,
			mockSetup: func(repo *MockIngestRepository, s3 *MockS3Service) {
				s3.On("GenerateUploadURL", mock.Anything, mock.Anything).Return("https://example.com/upload", nil)
				repo.On("Create", mock.Anything, mock.Anything).Return(nil)
			},
			wantFormat: readers.FormatOceanOptic,
		},
		{
			name:     "client modification time is kept",
			filename: "sts_0002.txt",
			format:   "oceanoptics",
			size:     4096,
			modified: time.Date(2019, 6, 3, 9, 30, 0, 0, time.UTC),
			mockSetup: func(repo *MockIngestRepository, s3 *MockS3Service) {
				s3.On("GenerateUploadURL", mock.Anything, mock.Anything).Return("https://example.com/upload", nil)
				repo.On("Create", mock.Anything, mock.MatchedBy(func(i *models.Ingest) bool {
					return i.FileModifiedAt != nil && i.FileModifiedAt.Equal(time.Date(2019, 6, 3, 9, 30, 0, 0, time.UTC))
				})).Return(nil)
			},
			wantFormat: readers.FormatOceanOptic,
		},
		{
			name:       "file too large",
			filename:   "a.sig",
			size:       (1 << 20) + 1,
			mockSetup:  func(*MockIngestRepository, *MockS3Service) {},
			wantStatus: 400,
		},
		{
			name:       "unsupported extension",
			filename:   "image.tif",
			size:       4096,
			mockSetup:  func(*MockIngestRepository, *MockS3Service) {},
			wantStatus: 400,
		},
		{
			name:     "presign failure",
			filename: "a.sig",
			size:     4096,
			mockSetup: func(repo *MockIngestRepository, s3 *MockS3Service) {
				s3.On("GenerateUploadURL", mock.Anything, mock.Anything).Return("", assert.AnError)
			},
			wantStatus: 400,
		},
		{
			name:     "database failure",
			filename: "a.sig",
			size:     4096,
			mockSetup: func(repo *MockIngestRepository, s3 *MockS3Service) {
				s3.On("GenerateUploadURL", mock.Anything, mock.Anything).Return("https://example.com/upload", nil)
				repo.On("Create", mock.Anything, mock.Anything).Return(assert.AnError)
			},
			wantStatus: 500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, repo, s3, _ := newHandler()
			tt.mockSetup(repo, s3)

			req := &models.CreateIngestRequest{}
			req.Body.Filename = tt.filename
			req.Body.FileSize = tt.size
			req.Body.Format = tt.format
			if !tt.modified.IsZero() {
				req.Body.FileModifiedAt = &tt.modified
			}

			resp, err := handler.CreateIngest(context.Background(), req)
			if tt.wantStatus != 0 {
				assert.Equal(t, tt.wantStatus, statusOf(t, err))
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, resp.Body.ID)
				assert.NotEmpty(t, resp.Body.UploadURL)
				assert.Equal(t, tt.wantFormat, resp.Body.Format)
				assert.Equal(t, tt.wantHeader, resp.Body.HeaderUploadURL != "")
				assert.Equal(t, 900, resp.Body.ExpiresIn) // 15 minutes in seconds
			}

			repo.AssertExpectations(t)
			s3.AssertExpectations(t)
		})
	}
}

func TestStartProcessing(t *testing.T) {
	handler, repo, _, proc := newHandler()
	id := uuid.New()
	repo.On("GetByID", mock.Anything, id).Return(&models.Ingest{ID: id.String(), Status: models.StatusPending}, nil)
	repo.On("ClaimForProcessing", mock.Anything, id).Return(true, nil).Once()

	done := make(chan struct{})
	proc.On("ProcessIngest", mock.Anything, id).Run(func(mock.Arguments) { close(done) }).Return(nil)

	resp, err := handler.StartProcessing(context.Background(), &models.IngestIDRequest{ID: id.String()})
	require.NoError(t, err)
	assert.Equal(t, "Processing started successfully", resp.Body.Message)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("processing was not started")
	}
}

func TestStartProcessing_Errors(t *testing.T) {
	handler, repo, _, _ := newHandler()

	_, err := handler.StartProcessing(context.Background(), &models.IngestIDRequest{ID: "not-a-uuid"})
	assert.Equal(t, 400, statusOf(t, err))

	missing := uuid.New()
	repo.On("GetByID", mock.Anything, missing).Return(nil, fmt.Errorf("x: %w", repository.ErrNotFound))
	_, err = handler.StartProcessing(context.Background(), &models.IngestIDRequest{ID: missing.String()})
	assert.Equal(t, 404, statusOf(t, err))

	busy := uuid.New()
	repo.On("GetByID", mock.Anything, busy).Return(&models.Ingest{ID: busy.String(), Status: models.StatusProcessing}, nil)
	repo.On("ClaimForProcessing", mock.Anything, busy).Return(false, nil)
	_, err = handler.StartProcessing(context.Background(), &models.IngestIDRequest{ID: busy.String()})
	assert.Equal(t, 409, statusOf(t, err))

	broken := uuid.New()
	repo.On("GetByID", mock.Anything, broken).Return(&models.Ingest{ID: broken.String(), Status: models.StatusPending}, nil)
	repo.On("ClaimForProcessing", mock.Anything, broken).Return(false, assert.AnError)
	_, err = handler.StartProcessing(context.Background(), &models.IngestIDRequest{ID: broken.String()})
	assert.Equal(t, 500, statusOf(t, err))
}

func TestStartProcessing_SecondRequestIsRejected(t *testing.T) {
	handler, repo, _, proc := newHandler()
	id := uuid.New()
	repo.On("GetByID", mock.Anything, id).Return(&models.Ingest{ID: id.String(), Status: models.StatusPending}, nil)
	repo.On("ClaimForProcessing", mock.Anything, id).Return(true, nil).Once()
	repo.On("ClaimForProcessing", mock.Anything, id).Return(false, nil)

	done := make(chan struct{})
	proc.On("ProcessIngest", mock.Anything, id).Run(func(mock.Arguments) { close(done) }).Return(nil).Once()

	_, err := handler.StartProcessing(context.Background(), &models.IngestIDRequest{ID: id.String()})
	require.NoError(t, err)
	_, err = handler.StartProcessing(context.Background(), &models.IngestIDRequest{ID: id.String()})
	assert.Equal(t, 409, statusOf(t, err))

	<-done
	proc.AssertNumberOfCalls(t, "ProcessIngest", 1)
}

func TestGetIngestStatus(t *testing.T) {
	handler, repo, _, _ := newHandler()
	id := uuid.New()
	msg := "Failed to parse file: bad.sig: latitude: missing"
	repo.On("GetByID", mock.Anything, id).Return(&models.Ingest{
		ID: id.String(), Status: models.StatusFailed, Progress: 50, ErrorMsg: &msg,
	}, nil)

	resp, err := handler.GetIngestStatus(context.Background(), &models.IngestIDRequest{ID: id.String()})
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, resp.Body.Status)
	assert.Equal(t, "Ingest failed", resp.Body.Message)
	assert.Equal(t, &msg, resp.Body.Error)
}

func TestGetIngestFile(t *testing.T) {
	handler, repo, s3, _ := newHandler()

	id := uuid.New()
	key := fmt.Sprintf("references/%s/Grass.txt", id)
	repo.On("GetByID", mock.Anything, id).Return(&models.Ingest{ID: id.String(), Filename: "Grass.txt", S3Key: &key}, nil)
	s3.On("GenerateDownloadURL", mock.Anything, key).Return("https://example.com/download", nil)

	resp, err := handler.GetIngestFile(context.Background(), &models.IngestIDRequest{ID: id.String()})
	require.NoError(t, err)
	assert.Equal(t, "Grass.txt", resp.Body.Filename)
	assert.Equal(t, "https://example.com/download", resp.Body.DownloadURL)

	bare := uuid.New()
	repo.On("GetByID", mock.Anything, bare).Return(&models.Ingest{ID: bare.String()}, nil)
	_, err = handler.GetIngestFile(context.Background(), &models.IngestIDRequest{ID: bare.String()})
	assert.Equal(t, 404, statusOf(t, err))
}

func TestStatusMessage(t *testing.T) {
	assert.Equal(t, "Downloading file...", statusMessage(models.StatusProcessing, 20+10))
	assert.Equal(t, "Parsing spectrum...", statusMessage(models.StatusProcessing, 50))
	assert.Equal(t, "Spectrum ready", statusMessage(models.StatusCompleted, 100))
	assert.Equal(t, "Unknown status", statusMessage("archived", 0))
}

func TestGetSpectrum(t *testing.T) {
	handler, repo, _, _ := newHandler()

	id := uuid.New()
	stubCompleted(repo, id, mustRecord(t, []float64{400, 500}, []float64{0.1, 0.2}))
	resp, err := handler.GetSpectrum(context.Background(), &models.IngestIDRequest{ID: id.String()})
	require.NoError(t, err)
	assert.Equal(t, []float64{400, 500}, resp.Body.Wavelengths)

	pending := uuid.New()
	repo.On("GetByID", mock.Anything, pending).Return(&models.Ingest{ID: pending.String(), Status: models.StatusProcessing}, nil)
	_, err = handler.GetSpectrum(context.Background(), &models.IngestIDRequest{ID: pending.String()})
	assert.Equal(t, 409, statusOf(t, err))
}

func TestResample(t *testing.T) {
	handler, repo, _, _ := newHandler()
	id := uuid.New()
	stubCompleted(repo, id, mustRecord(t, []float64{400, 500, 600}, []float64{0.1, 0.2, 0.3}))
	repo.On("StoreRecord", mock.Anything, id, mock.MatchedBy(func(s *models.Spectrum) bool {
		return len(s.Wavelengths) == 2
	})).Return(nil)

	req := &models.ResampleRequest{ID: id.String()}
	req.Body.Wavelengths = []float64{450, 550}
	req.Body.Save = true

	resp, err := handler.Resample(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []float64{450, 550}, resp.Body.Wavelengths)
	assert.InDelta(t, 0.15, *resp.Body.Values[0], 1e-12)
	assert.InDelta(t, 0.25, *resp.Body.Values[1], 1e-12)
	repo.AssertExpectations(t)

	req.Body.Wavelengths = []float64{550, 450}
	req.Body.Save = false
	_, err = handler.Resample(context.Background(), req)
	assert.Equal(t, 400, statusOf(t, err))
}

func TestConvolve(t *testing.T) {
	handler, repo, _, _ := newHandler()
	id := uuid.New()
	stubCompleted(repo, id, mustRecord(t, []float64{400, 500, 600, 700}, []float64{0.5, 0.5, 0.5, 0.5}))

	kernelID := uuid.New()
	kernel := mustRecord(t, []float64{450, 500, 550}, []float64{0, 1, 0})
	kernel.ValueUnits = spectra.Response
	stubCompleted(repo, kernelID, kernel)

	notKernelID := uuid.New()
	stubCompleted(repo, notKernelID, mustRecord(t, []float64{450, 500, 550}, []float64{0, 1, 0}))

	req := &models.ConvolveRequest{ID: id.String()}
	req.Body.KernelIDs = []string{kernelID.String()}
	resp, err := handler.Convolve(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.Body.Values, 1)
	assert.InDelta(t, 0.5, *resp.Body.Values[0], 1e-12)

	req.Body.KernelIDs = []string{kernelID.String(), notKernelID.String()}
	_, err = handler.Convolve(context.Background(), req)
	assert.Equal(t, 422, statusOf(t, err))

	req.Body.KernelIDs = []string{"nope"}
	_, err = handler.Convolve(context.Background(), req)
	assert.Equal(t, 400, statusOf(t, err))
}

func TestTimeDifference(t *testing.T) {
	handler, repo, _, _ := newHandler()

	at := func(ts time.Time) *spectra.Record {
		rec := mustRecord(t, []float64{400, 500}, []float64{1, 2})
		rec.AcquisitionTime = &ts
		return rec
	}
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	stubCompleted(repo, a, at(time.Date(2023, 1, 2, 13, 0, 0, 0, time.UTC)))
	stubCompleted(repo, b, at(time.Date(2023, 1, 2, 12, 0, 0, 0, time.UTC)))
	stubCompleted(repo, c, mustRecord(t, []float64{400, 500}, []float64{1, 2}))

	resp, err := handler.TimeDifference(context.Background(), &models.TimeDifferenceRequest{ID: a.String(), OtherID: b.String()})
	require.NoError(t, err)
	assert.Equal(t, 3600.0, resp.Body.Seconds)

	resp, err = handler.TimeDifference(context.Background(), &models.TimeDifferenceRequest{ID: b.String(), OtherID: a.String()})
	require.NoError(t, err)
	assert.Equal(t, -3600.0, resp.Body.Seconds)

	_, err = handler.TimeDifference(context.Background(), &models.TimeDifferenceRequest{ID: a.String(), OtherID: c.String()})
	assert.Equal(t, 422, statusOf(t, err))
}

func TestListSpectra(t *testing.T) {
	handler, _, _, proc := newHandler()

	lib := uuid.New()
	proc.On("ListSpectra", mock.Anything, lib).Return([]readers.SpectrumName{{Index: 1, Name: "grass"}, {Index: 2, Name: "dry soil"}}, nil)
	resp, err := handler.ListSpectra(context.Background(), &models.IngestIDRequest{ID: lib.String()})
	require.NoError(t, err)
	require.Len(t, resp.Body.Spectra, 2)
	assert.Equal(t, "001: grass", resp.Body.Spectra[0].Label)

	sig := uuid.New()
	proc.On("ListSpectra", mock.Anything, sig).Return(nil, processing.ErrNotLibrary)
	_, err = handler.ListSpectra(context.Background(), &models.IngestIDRequest{ID: sig.String()})
	assert.Equal(t, 400, statusOf(t, err))
}

func TestReadReference(t *testing.T) {
	const url = "https://speclab.example/splib07a/Grass.txt"
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "ok"},
		{name: "unsupported", err: fmt.Errorf("%w: tiff", readers.ErrUnsupportedFormat), wantStatus: 400},
		{name: "malformed", err: &readers.FormatError{Path: url, Err: errors.New("no data rows")}, wantStatus: 422},
		{name: "fetch failure", err: errors.New("status 404"), wantStatus: 502},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, _, _, proc := newHandler()
			if tt.err != nil {
				proc.On("ReadReference", mock.Anything, url, "usgs", "").Return(nil, nil, tt.err)
			} else {
				rec := mustRecord(t, []float64{0.4, 0.5}, []float64{0.1, 0.2})
				proc.On("ReadReference", mock.Anything, url, "usgs", "").Return(&models.Ingest{ID: "abc"}, rec, nil)
			}

			req := &models.ReadReferenceRequest{}
			req.Body.URL = url
			req.Body.Format = "usgs"

			resp, err := handler.ReadReference(context.Background(), req)
			if tt.wantStatus != 0 {
				assert.Equal(t, tt.wantStatus, statusOf(t, err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "abc", resp.Body.ID)
			assert.Len(t, resp.Body.Spectrum.Values, 2)
		})
	}
}
