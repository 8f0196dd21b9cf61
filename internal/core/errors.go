package core

import (
	"errors"
	"fmt"
)

// ErrNotFound is wrapped by every lookup miss.
var ErrNotFound = errors.New("not found")

var (
	ErrDriverNotFound = fmt.Errorf("driver %w", ErrNotFound)
	ErrStopNotFound   = fmt.Errorf("stop %w", ErrNotFound)
)

// Validation failures. The web layer answers these with 400.
var (
	ErrInvalidSlot        = errors.New("invalid slot: expected a time of day such as 14:30")
	ErrDriverNameRequired = errors.New("driver name is required")
	ErrInvalidID          = errors.New("invalid id: expected a UUID")
	ErrInvalidDate        = errors.New("invalid date: expected YYYY-MM-DD")
)

// Report intake failures.
var (
	ErrNoFile          = errors.New("no file provided")
	ErrEmptyFile       = errors.New("empty file")
	ErrFileTooLarge    = errors.New("file too large")
	ErrUnsupportedFile = errors.New("unsupported file type: expected .csv, .tsv, .txt or .xlsx")
)

// IsValidationError reports whether err is caused by bad caller input
// rather than by the system.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrInvalidSlot, ErrDriverNameRequired, ErrInvalidID, ErrInvalidDate,
		ErrNoFile, ErrEmptyFile, ErrFileTooLarge, ErrUnsupportedFile, errSpreadsheet,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
