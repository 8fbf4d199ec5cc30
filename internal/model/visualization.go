package model

import "sort"

// ViewKind discriminates how a result should be presented.
type ViewKind string

const (
	KindNone  ViewKind = "none"
	KindImage ViewKind = "image"
	KindVideo ViewKind = "video"
)

// ParticipantView keeps only what rendering needs from a Participant.
type ParticipantView struct {
	Index      int
	HeatmapURL string
}

// VisualizationView is the model-agnostic shape consumed by the renderers.
type VisualizationView struct {
	Kind         ViewKind
	ResultURL    string
	HeatmapURL   string
	Participants []ParticipantView
}

// Bounding box classifications.
const (
	ClassReal = "real"
	ClassFake = "fake"
)

// BoundingBoxItem is one detection on one frame. Box holds x1, y1, x2, y2
// in the result document's coordinate space (half the video resolution).
type BoundingBoxItem struct {
	Box        [4]float64
	Class      string
	Confidence float64
}

// IsReal reports whether the box was classified as real.
func (b BoundingBoxItem) IsReal() bool {
	return b.Class == ClassReal
}

// DetectionSequence maps a frame index to the boxes detected on that frame.
// Frame indices need not be contiguous.
type DetectionSequence map[int][]BoundingBoxItem

// Frames returns the frame indices in ascending order.
func (s DetectionSequence) Frames() []int {
	frames := make([]int, 0, len(s))
	for frame := range s {
		frames = append(frames, frame)
	}
	sort.Ints(frames)
	return frames
}
