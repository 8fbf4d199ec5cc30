package visualization

import (
	"errors"
	"fmt"
)

var (
	ErrNoHeatmapURL   = errors.New("no heatmap url in media result")
	ErrNoResultURL    = errors.New("no result url in media result")
	ErrNoParticipants = errors.New("no participants in media result")
)

// NotAvailableError is returned when an artifact URL answers 404, most often
// because its pre-signed URL has expired.
type NotAvailableError struct {
	URL string
}

func (e *NotAvailableError) Error() string {
	return "artifact not available (404), the pre-signed url may have expired: " + e.URL
}

// MalformedResultError is returned when a result document lacks the expected structure.
type MalformedResultError struct {
	URL    string
	Reason string
}

func (e *MalformedResultError) Error() string {
	if e.URL == "" {
		return "malformed result document: " + e.Reason
	}
	return fmt.Sprintf("malformed result document %s: %s", e.URL, e.Reason)
}

// SourceOpenError is returned when the source video cannot be opened for reading.
type SourceOpenError struct {
	Path string
	Err  error
}

func (e *SourceOpenError) Error() string {
	return fmt.Sprintf("could not open source video %s: %v", e.Path, e.Err)
}

func (e *SourceOpenError) Unwrap() error {
	return e.Err
}

// AmbiguousTypeError is returned when neither the model type nor the view
// says whether the heatmap is an image or a set of videos.
type AmbiguousTypeError struct {
	ModelType string
}

func (e *AmbiguousTypeError) Error() string {
	return fmt.Sprintf("could not determine heatmap type (model type %q, no heatmap url or participants)", e.ModelType)
}
