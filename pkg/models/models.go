package models

import (
	"time"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Body struct {
		Status  string    `json:"status" example:"healthy" doc:"Service health status"`
		Version string    `json:"version" example:"1.0.0" doc:"API version"`
		Time    time.Time `json:"time" doc:"Current server time"`
	}
}

// CreateIngestRequest represents a request to register a spectrum file upload
type CreateIngestRequest struct {
	Body struct {
		Filename            string     `json:"filename" minLength:"3" maxLength:"255" required:"true" doc:"Original file name; its extension selects the parser unless format is set"`
		FileSize            int64      `json:"file_size" minimum:"1" required:"true" doc:"File size in bytes"`
		Format              string     `json:"format,omitempty" required:"false" doc:"Explicit format name (sig, txt, csv, envi, usgs, dart, oceanoptics, oceanview)"`
		Kind                string     `json:"kind,omitempty" required:"false" enum:"spectrum,response" doc:"Use response for instrument response functions"`
		SpectrumIndex       int        `json:"spectrum_index,omitempty" required:"false" minimum:"0" doc:"ENVI library row to read, counting from 1"`
		PreferFileTimestamp bool       `json:"prefer_file_timestamp,omitempty" required:"false" doc:"Ocean Optics: ignore the Date header"`
		FileModifiedAt      *time.Time `json:"file_modified_at,omitempty" required:"false" doc:"Modification time of the file on the client; used as the acquisition time when the file carries none"`
	}
}

// CreateIngestResponseBody is the body of the create ingest response
type CreateIngestResponseBody struct {
	ID        string `json:"id" doc:"Ingest unique identifier"`
	Format    string `json:"format" doc:"Resolved format name"`
	UploadURL string `json:"upload_url" doc:"Pre-signed S3 URL for file upload"`
	// HeaderUploadURL is only set for ENVI libraries.
	HeaderUploadURL string `json:"header_upload_url,omitempty" doc:"Pre-signed S3 URL for the library's .hdr file"`
	ExpiresIn       int    `json:"expires_in" doc:"URL expiration time in seconds"`
}

// CreateIngestResponse represents the response from creating an ingest
type CreateIngestResponse struct {
	Body CreateIngestResponseBody
}

// IngestIDRequest addresses one ingest by path
type IngestIDRequest struct {
	ID string `path:"id" doc:"Ingest ID"`
}

// StartProcessingResponse represents the response from starting processing
type StartProcessingResponse struct {
	Body struct {
		Message string `json:"message" doc:"Confirmation message"`
	}
}

// GetIngestStatusResponseBody is the body of the status response
type GetIngestStatusResponseBody struct {
	ID       string  `json:"id" doc:"Ingest ID"`
	Status   string  `json:"status" enum:"pending,processing,completed,failed" doc:"Ingest status"`
	Progress int     `json:"progress" minimum:"0" maximum:"100" doc:"Processing progress percentage"`
	Message  string  `json:"message,omitempty" doc:"Human-readable status message"`
	Error    *string `json:"error,omitempty" doc:"Failure reason when status is failed"`
}

// GetIngestStatusResponse represents the current status of an ingest
type GetIngestStatusResponse struct {
	Body GetIngestStatusResponseBody
}

// SpectrumResponse returns a parsed spectrum
type SpectrumResponse struct {
	Body *Spectrum
}

// ReadReferenceRequest asks the service to fetch and parse a remote library file
type ReadReferenceRequest struct {
	Body struct {
		URL    string `json:"url" format:"uri" required:"true" doc:"http(s) URL of a USGS library ASCII file"`
		Format string `json:"format,omitempty" required:"false" default:"usgs" doc:"Format name"`
		Kind   string `json:"kind,omitempty" required:"false" enum:"spectrum,response" doc:"Use response for instrument response functions"`
	}
}

// ReadReferenceResponseBody is the body of the reference read response
type ReadReferenceResponseBody struct {
	ID       string    `json:"id" doc:"Ingest ID under which the spectrum was stored"`
	Spectrum *Spectrum `json:"spectrum" doc:"Parsed spectrum"`
}

// ReadReferenceResponse represents the parsed remote spectrum
type ReadReferenceResponse struct {
	Body ReadReferenceResponseBody
}

// ResampleRequest represents a request to move a spectrum onto a new grid
type ResampleRequest struct {
	ID   string `path:"id" doc:"Ingest ID"`
	Body struct {
		Wavelengths []float64 `json:"wavelengths" minItems:"1" required:"true" doc:"Strictly increasing target wavelengths"`
		Save        bool      `json:"save,omitempty" required:"false" doc:"Replace the stored spectrum with the resampled one"`
	}
}

// ConvolveRequest represents a request to reduce a spectrum with response kernels
type ConvolveRequest struct {
	ID   string `path:"id" doc:"Ingest ID"`
	Body struct {
		KernelIDs []string `json:"kernel_ids" minItems:"1" required:"true" doc:"Ingest IDs of response-kind spectra"`
	}
}

// ConvolveResponse holds one value per kernel
type ConvolveResponse struct {
	Body struct {
		ID        string     `json:"id" doc:"Ingest ID"`
		KernelIDs []string   `json:"kernel_ids" doc:"Kernel ingest IDs in request order"`
		Values    []*float64 `json:"values" doc:"Response-weighted values; null where the spectrum had missing samples"`
	}
}

// TimeDifferenceRequest addresses a pair of ingests
type TimeDifferenceRequest struct {
	ID      string `path:"id" doc:"Ingest ID"`
	OtherID string `path:"otherId" doc:"Ingest ID to subtract"`
}

// TimeDifferenceResponse holds the signed acquisition time difference
type TimeDifferenceResponse struct {
	Body struct {
		ID      string  `json:"id" doc:"Ingest ID"`
		OtherID string  `json:"other_id" doc:"Other ingest ID"`
		Seconds float64 `json:"seconds" doc:"Acquisition time of id minus that of other_id, in seconds"`
	}
}

// SpectrumName is one entry of an ENVI library's name list
type SpectrumName struct {
	Index int    `json:"index" doc:"Library row, counting from 1"`
	Name  string `json:"name" doc:"Spectrum name"`
	Label string `json:"label" example:"001: grass" doc:"Display label"`
}

// ListSpectraResponse lists the spectra stored in an ENVI library
type ListSpectraResponse struct {
	Body struct {
		ID      string         `json:"id" doc:"Ingest ID"`
		Spectra []SpectrumName `json:"spectra" doc:"Spectra in library order"`
	}
}

// FileURLResponse returns a pre-signed link to an ingest's raw file
type FileURLResponse struct {
	Body struct {
		ID          string `json:"id" doc:"Ingest ID"`
		Filename    string `json:"filename" doc:"Stored file name"`
		DownloadURL string `json:"download_url" doc:"Pre-signed S3 URL for the raw file"`
	}
}
