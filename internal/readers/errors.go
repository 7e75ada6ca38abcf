package readers

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat marks any structurally malformed input. Every *FormatError
	// matches it with errors.Is.
	ErrFormat = errors.New("format error")

	// ErrUnsupportedFormat is returned when no reader matches a format name
	// or file extension.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrMultipleOverlaps is returned for .sig files with more than one
	// wavelength restart.
	ErrMultipleOverlaps = errors.New("multiple overlap regions")
)

// FormatError describes a parse failure in a single source file.
type FormatError struct {
	Path  string
	Field string
	Err   error
}

func (e *FormatError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

func (e *FormatError) Is(target error) bool { return target == ErrFormat }

func formatErr(path, field string, err error) error {
	return &FormatError{Path: path, Field: field, Err: err}
}

func formatErrf(path, field, msg string, args ...any) error {
	return &FormatError{Path: path, Field: field, Err: fmt.Errorf(msg, args...)}
}
