package media

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMissingUploadURL means the create response carried no pre-signed upload target.
	ErrMissingUploadURL = errors.New("upload url missing in API response")
	// ErrNotInLedger means a resume was requested for a mid the local ledger never saw.
	ErrNotInLedger = errors.New("media not found in local ledger")
)

// ValidationError reports bad caller input. It is never worth retrying.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// UploadError is returned when the pre-signed PUT answers with a non-2xx status.
type UploadError struct {
	StatusCode int
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("binary upload failed with status %d", e.StatusCode)
}

// TimeoutError is returned when a media record did not reach a terminal
// status in time. LastStatus lets the caller decide whether to keep waiting.
type TimeoutError struct {
	MID        string
	LastStatus string
	Elapsed    time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for media %s after %s, last status=%s", e.MID, e.Elapsed, e.LastStatus)
}
