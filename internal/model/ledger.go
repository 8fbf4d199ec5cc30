package model

import "time"

// StoredMedia is the local ledger entry kept for every submitted asset, so an
// interrupted upload can be retried against the same record.
type StoredMedia struct {
	Record    MediaRecord
	UploadURL string
	FilePath  string
	UpdatedAt time.Time
}

// Artifact kinds recorded in the ledger.
const (
	ArtifactHeatmapImage = "heatmap_image"
	ArtifactHeatmapVideo = "heatmap_video"
	ArtifactBoundingBox  = "bbox_video"
)

// Artifact is a rendered output file linked to a media record.
type Artifact struct {
	ID        int64     `json:"id"`
	MID       string    `json:"mid"`
	Kind      string    `json:"kind"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"createdAt"`
}

// StatusEvent is emitted for every status poll of a media record.
type StatusEvent struct {
	RunID    string        `json:"runId"`
	MID      string        `json:"mid"`
	Status   string        `json:"status"`
	Attempt  int           `json:"attempt"`
	Elapsed  time.Duration `json:"elapsed"`
	Terminal bool          `json:"terminal"`
	Time     time.Time     `json:"time"`
}
