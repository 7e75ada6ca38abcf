package api

import (
	"net/http"

	"github.com/RMahshie/spectra/internal/api/handlers"
	"github.com/RMahshie/spectra/internal/processing"
	"github.com/RMahshie/spectra/internal/repository"
	"github.com/RMahshie/spectra/internal/storage"
	"github.com/danielgtaylor/huma/v2"
)

// RegisterRoutes sets up all API routes
func RegisterRoutes(api huma.API, repo repository.IngestRepository, s3Service storage.S3Service, processingSvc processing.ProcessingService, maxUploadBytes int64) {
	h := handlers.NewSpectraHandler(repo, s3Service, processingSvc, maxUploadBytes)

	// Ingest lifecycle
	huma.Register(api, huma.Operation{
		OperationID: "createIngest",
		Method:      http.MethodPost,
		Path:        "/api/ingests",
		Summary:     "Create a new ingest",
		Description: "Registers a spectrum file and returns pre-signed upload URLs",
		Tags:        []string{"Ingest"},
	}, h.CreateIngest)

	huma.Register(api, huma.Operation{
		OperationID: "startProcessing",
		Method:      http.MethodPost,
		Path:        "/api/ingests/{id}/process",
		Summary:     "Start processing an ingest",
		Description: "Parses the uploaded file in the background",
		Tags:        []string{"Ingest"},
	}, h.StartProcessing)

	huma.Register(api, huma.Operation{
		OperationID: "getIngestStatus",
		Method:      http.MethodGet,
		Path:        "/api/ingests/{id}/status",
		Summary:     "Get ingest status",
		Description: "Returns the current status and progress of an ingest",
		Tags:        []string{"Ingest"},
	}, h.GetIngestStatus)

	huma.Register(api, huma.Operation{
		OperationID: "getIngestFile",
		Method:      http.MethodGet,
		Path:        "/api/ingests/{id}/file",
		Summary:     "Get ingest file",
		Description: "Returns a pre-signed download URL for the uploaded or archived file",
		Tags:        []string{"Ingest"},
	}, h.GetIngestFile)

	huma.Register(api, huma.Operation{
		OperationID: "listSpectra",
		Method:      http.MethodGet,
		Path:        "/api/ingests/{id}/spectra",
		Summary:     "List library spectra",
		Description: "Lists the spectrum names held in an uploaded ENVI library",
		Tags:        []string{"Ingest"},
	}, h.ListSpectra)

	huma.Register(api, huma.Operation{
		OperationID: "readReference",
		Method:      http.MethodPost,
		Path:        "/api/references",
		Summary:     "Read a remote reference spectrum",
		Description: "Fetches a library file by URL, parses it and stores the spectrum",
		Tags:        []string{"Ingest"},
	}, h.ReadReference)

	// Spectrum operations
	huma.Register(api, huma.Operation{
		OperationID: "getSpectrum",
		Method:      http.MethodGet,
		Path:        "/api/spectra/{id}",
		Summary:     "Get a spectrum",
		Description: "Returns the parsed spectrum of a completed ingest",
		Tags:        []string{"Spectra"},
	}, h.GetSpectrum)

	huma.Register(api, huma.Operation{
		OperationID: "resampleSpectrum",
		Method:      http.MethodPost,
		Path:        "/api/spectra/{id}/resample",
		Summary:     "Resample a spectrum",
		Description: "Linearly interpolates a spectrum onto new wavelengths, optionally replacing the stored copy",
		Tags:        []string{"Spectra"},
	}, h.Resample)

	huma.Register(api, huma.Operation{
		OperationID: "convolveSpectrum",
		Method:      http.MethodPost,
		Path:        "/api/spectra/{id}/convolve",
		Summary:     "Convolve a spectrum",
		Description: "Reduces a spectrum to one value per response kernel",
		Tags:        []string{"Spectra"},
	}, h.Convolve)

	huma.Register(api, huma.Operation{
		OperationID: "timeDifference",
		Method:      http.MethodGet,
		Path:        "/api/spectra/{id}/time-difference/{otherId}",
		Summary:     "Acquisition time difference",
		Description: "Returns the first spectrum's acquisition time minus the second's, in seconds",
		Tags:        []string{"Spectra"},
	}, h.TimeDifference)
}
