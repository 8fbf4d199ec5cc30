package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Media statuses reported by the Authenta API. Comparison is case-insensitive.
const (
	StatusCreated    = "CREATED"
	StatusUploaded   = "UPLOADED"
	StatusProcessing = "PROCESSING"
	StatusProcessed  = "PROCESSED"
	StatusFailed     = "FAILED"
	StatusError      = "ERROR"
)

// Model types accepted by POST /api/media.
const (
	ModelDeepfake       = "DF-1"
	ModelClassification = "AC-1"
	ModelFaceDetection  = "FD-1"
)

// Model family prefixes used to pick image vs. video presentation.
const (
	ImageModelPrefix = "AC-"
	VideoModelPrefix = "DF-"
)

// SupportedModelTypes lists every model code the service accepts.
var SupportedModelTypes = []string{ModelDeepfake, ModelClassification, ModelFaceDetection}

// IsSupportedModelType reports whether modelType is one of SupportedModelTypes.
func IsSupportedModelType(modelType string) bool {
	for _, m := range SupportedModelTypes {
		if m == modelType {
			return true
		}
	}
	return false
}

// IsImageModel reports whether modelType belongs to the image-classification family.
func IsImageModel(modelType string) bool {
	return hasPrefixFold(modelType, ImageModelPrefix)
}

// IsVideoModel reports whether modelType belongs to the video-deepfake family.
func IsVideoModel(modelType string) bool {
	return hasPrefixFold(modelType, VideoModelPrefix)
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// IsTerminalStatus reports whether status ends the processing lifecycle.
func IsTerminalStatus(status string) bool {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case StatusProcessed, StatusFailed, StatusError:
		return true
	}
	return false
}

// Participant is one detected subject within a video asset.
type Participant struct {
	Fake       bool    `json:"fake"`
	Confidence float64 `json:"confidence"`
	HeatmapURL string  `json:"heatmap,omitempty"`
}

// MediaRecord is the status document returned by GET /api/media/{mid}.
type MediaRecord struct {
	MID         string    `json:"mid"`
	Name        string    `json:"name"`
	Type        string    `json:"type,omitempty"`
	ContentType string    `json:"contentType,omitempty"`
	Size        int64     `json:"size,omitempty"`
	ModelType   string    `json:"modelType"`
	Status      string    `json:"status"`
	CreatedAt   Timestamp `json:"createdAt"`
	SrcURL      string    `json:"srcURL,omitempty"`

	// Populated once processing completes.
	HeatmapURL   string        `json:"heatmapURL,omitempty"`
	ResultURL    string        `json:"resultURL,omitempty"`
	Fake         *bool         `json:"fake,omitempty"`
	Confidence   *float64      `json:"confidence,omitempty"`
	Faces        *int          `json:"faces,omitempty"`
	DeepFakes    *int          `json:"deepFakes,omitempty"`
	Participants []Participant `json:"participants,omitempty"`
}

// IsTerminal reports whether the record reached PROCESSED, FAILED or ERROR.
func (m *MediaRecord) IsTerminal() bool {
	return IsTerminalStatus(m.Status)
}

// NormalizedStatus returns the upper-cased status.
func (m *MediaRecord) NormalizedStatus() string {
	return strings.ToUpper(strings.TrimSpace(m.Status))
}

// Timestamp is a createdAt value as the API sends it: RFC3339, a date-time
// without offset (read as UTC), epoch milliseconds, or ""/null for unset.
// Unrecognised strings decode to the zero time; the field is display-only.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp parses s with the first matching layout.
func ParseTimestamp(s string) (Timestamp, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t}, true
		}
	}
	return Timestamp{}, false
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	t.Time = time.Time{}

	switch {
	case raw == "" || raw == "null":
		return nil
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if parsed, ok := ParseTimestamp(s); ok {
			*t = parsed
		}
		return nil
	}

	ms, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %s", raw)
	}
	t.Time = time.UnixMilli(int64(ms)).UTC()
	return nil
}

// MarshalJSON writes RFC3339 with nanoseconds, or null for the zero time.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// CreateMediaRequest is the body of POST /api/media.
type CreateMediaRequest struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	ModelType   string `json:"modelType"`
}

// CreateMediaResponse is the created record plus its pre-signed upload target.
type CreateMediaResponse struct {
	MediaRecord
	UploadURL string `json:"uploadUrl"`
}

// MediaList is one page of GET /api/media.
type MediaList struct {
	Items    []MediaRecord
	Total    int
	Page     int
	PageSize int
}
