package models

import "time"

// Ingest statuses
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Ingest kinds
const (
	KindSpectrum = "spectrum"
	// KindResponse marks an instrument response function usable as a
	// convolution kernel.
	KindResponse = "response"
)

// Ingest represents one uploaded or fetched file and the state of its parse
// (for internal use). FileModifiedAt is the client's modification time of the
// uploaded file.
type Ingest struct {
	ID                  string     `json:"id"`
	Filename            string     `json:"filename"`
	Format              string     `json:"format"`
	Kind                string     `json:"kind"`
	SpectrumIndex       int        `json:"spectrum_index"`
	PreferFileTimestamp bool       `json:"prefer_file_timestamp"`
	FileModifiedAt      *time.Time `json:"file_modified_at,omitempty"`
	Status              string     `json:"status"`
	Progress            int        `json:"progress"`
	S3Key               *string    `json:"s3_key,omitempty"`
	SourceURL           *string    `json:"source_url,omitempty"`
	ErrorMsg            *string    `json:"error_message,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
}
