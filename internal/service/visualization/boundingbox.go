package visualization

import (
	"authenta/internal/model"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"net/http"
	"sort"
	"strconv"
)

const (
	// DefaultFPS is used when the source video reports no usable frame rate.
	DefaultFPS = 30.0

	// coordinateScale converts result-document coordinates, recorded at half
	// the native resolution, to video pixels.
	coordinateScale = 2

	boxThickness   = 2
	labelScale     = 0.9
	labelThickness = 2
	labelOffset    = 10

	// The result document carries no per-box classification, so every box
	// is reported as fake with full confidence.
	defaultClass      = model.ClassFake
	defaultConfidence = 1.0

	maxResultSize = 64 << 20
)

var (
	colorReal = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	colorFake = color.RGBA{R: 255, G: 0, B: 0, A: 0}
)

// FetchDetectionSequence downloads the result document behind view.ResultURL
// and extracts its frame-indexed bounding boxes.
func (r *Renderer) FetchDetectionSequence(ctx context.Context, view model.VisualizationView) (model.DetectionSequence, error) {
	if view.ResultURL == "" {
		return nil, ErrNoResultURL
	}

	resp, err := r.client.Fetch(ctx, view.ResultURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &NotAvailableError{URL: view.ResultURL}
	}
	if !isSuccess(resp.StatusCode) {
		return nil, apiError(resp, view.ResultURL)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResultSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read result document: %w", err)
	}

	sequence, err := ParseDetectionSequence(data)
	if err != nil {
		if malformed, ok := err.(*MalformedResultError); ok {
			malformed.URL = view.ResultURL
		}
		return nil, err
	}

	r.logger.Info("Loaded %d annotated frames from %s", len(sequence), view.ResultURL)
	return sequence, nil
}

// ParseDetectionSequence reads boundingBoxes[0].boundingBox from a result
// document. boundingBoxes may be an array or an object keyed by "0". Each
// frame entry is either one [x1,y1,x2,y2] box or a list of them.
func ParseDetectionSequence(data []byte) (model.DetectionSequence, error) {
	var document map[string]json.RawMessage
	if err := json.Unmarshal(data, &document); err != nil {
		return nil, &MalformedResultError{Reason: "not a json object: " + err.Error()}
	}

	first, err := firstBoundingBoxEntry(document["boundingBoxes"])
	if err != nil {
		return nil, err
	}

	var entry map[string]json.RawMessage
	if err := json.Unmarshal(first, &entry); err != nil {
		return nil, &MalformedResultError{Reason: "boundingBoxes[0] is not an object"}
	}

	raw, ok := entry["boundingBox"]
	if !ok || isNull(raw) {
		return nil, &MalformedResultError{Reason: "boundingBoxes[0].boundingBox not found"}
	}

	var frames map[string]json.RawMessage
	if err := json.Unmarshal(raw, &frames); err != nil {
		return nil, &MalformedResultError{Reason: "boundingBoxes[0].boundingBox is not an object"}
	}

	// Keys such as "5" and "05" name the same frame; their boxes are merged
	// in key order.
	keys := make([]string, 0, len(frames))
	for key := range frames {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	sequence := make(model.DetectionSequence, len(frames))
	for _, key := range keys {
		value := frames[key]
		frame, err := strconv.Atoi(key)
		if err != nil || frame < 0 {
			return nil, &MalformedResultError{Reason: fmt.Sprintf("invalid frame index %q", key)}
		}

		boxes, err := parseBoxes(value)
		if err != nil {
			return nil, &MalformedResultError{Reason: fmt.Sprintf("frame %d: %v", frame, err)}
		}

		items := make([]model.BoundingBoxItem, 0, len(boxes))
		for _, box := range boxes {
			items = append(items, model.BoundingBoxItem{
				Box:        box,
				Class:      defaultClass,
				Confidence: defaultConfidence,
			})
		}
		sequence[frame] = append(sequence[frame], items...)
	}

	return sequence, nil
}

func firstBoundingBoxEntry(raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 || isNull(raw) {
		return nil, &MalformedResultError{Reason: "boundingBoxes not found"}
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return nil, &MalformedResultError{Reason: "boundingBoxes is empty"}
		}
		return list[0], nil
	}

	var keyed map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keyed); err == nil {
		if first, ok := keyed["0"]; ok {
			return first, nil
		}
	}

	return nil, &MalformedResultError{Reason: "boundingBoxes[0] not found"}
}

func parseBoxes(raw json.RawMessage) ([][4]float64, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("expected coordinate array, got %s", truncate(raw, 64))
	}

	if box, err := parseBox(items); err == nil {
		return [][4]float64{box}, nil
	}

	boxes := make([][4]float64, 0, len(items))
	for _, item := range items {
		var coords []json.RawMessage
		if err := json.Unmarshal(item, &coords); err != nil {
			return nil, fmt.Errorf("expected [x1,y1,x2,y2] coordinates, got %s", truncate(raw, 64))
		}
		box, err := parseBox(coords)
		if err != nil {
			return nil, err
		}
		boxes = append(boxes, box)
	}
	return boxes, nil
}

func parseBox(coords []json.RawMessage) ([4]float64, error) {
	var box [4]float64
	if len(coords) != 4 {
		return box, fmt.Errorf("expected 4 coordinates, got %d", len(coords))
	}
	for i, c := range coords {
		if err := json.Unmarshal(c, &box[i]); err != nil {
			return box, fmt.Errorf("coordinate %d is not a number: %s", i, truncate(c, 32))
		}
	}
	return box, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func truncate(raw json.RawMessage, n int) string {
	if len(raw) <= n {
		return string(raw)
	}
	return string(raw[:n]) + "..."
}

// RenderBoundingBoxVideo copies srcPath to outPath frame by frame, drawing the
// boxes of every frame present in sequence. Frames without detections are
// written unchanged, so the output has as many frames as the source.
func (r *Renderer) RenderBoundingBoxVideo(sequence model.DetectionSequence, srcPath, outPath string) (string, error) {
	reader, err := r.codec.OpenReader(srcPath)
	if err != nil {
		return "", &SourceOpenError{Path: srcPath, Err: err}
	}
	defer reader.Close()

	width, height := reader.Width(), reader.Height()
	fps := reader.FPS()
	if fps <= 0 || math.IsNaN(fps) {
		r.logger.Warning("Source %s reports fps %.2f, using %.0f", srcPath, fps, DefaultFPS)
		fps = DefaultFPS
	}

	if err := ensureDirectory(outPath); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", outPath, err)
	}

	writer, err := r.codec.OpenWriter(outPath, fps, width, height)
	if err != nil {
		return "", err
	}

	frames, annotated, err := r.annotateFrames(reader, writer, sequence)
	if closeErr := writer.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("failed to finalize %s: %w", outPath, closeErr)
	}
	if err != nil {
		return "", err
	}

	r.logger.Info("Saved bounding box video: %s (%d frames, %d annotated)", outPath, frames, annotated)
	return outPath, nil
}

func (r *Renderer) annotateFrames(reader FrameReader, writer FrameWriter, sequence model.DetectionSequence) (int, int, error) {
	frames, annotated := 0, 0
	for {
		frame, ok := reader.Read()
		if !ok {
			return frames, annotated, nil
		}

		if boxes, found := sequence[frames]; found {
			for _, box := range boxes {
				if err := drawBox(frame, box); err != nil {
					return frames, annotated, fmt.Errorf("failed to annotate frame %d: %w", frames, err)
				}
			}
			annotated++
		}

		if err := writer.Write(frame); err != nil {
			return frames, annotated, fmt.Errorf("failed to write frame %d: %w", frames, err)
		}
		frames++
	}
}

func drawBox(frame Frame, box model.BoundingBoxItem) error {
	c := colorFake
	if box.IsReal() {
		c = colorReal
	}

	rect := image.Rectangle{
		Min: image.Pt(int(box.Box[0]*coordinateScale), int(box.Box[1]*coordinateScale)),
		Max: image.Pt(int(box.Box[2]*coordinateScale), int(box.Box[3]*coordinateScale)),
	}
	if err := frame.DrawRectangle(rect, c, boxThickness); err != nil {
		return err
	}

	origin := image.Pt(rect.Min.X, rect.Min.Y-labelOffset)
	return frame.DrawText(Label(box), origin, labelScale, c, labelThickness)
}

// Label formats a box caption such as "fake 97.5%".
func Label(box model.BoundingBoxItem) string {
	class := model.ClassFake
	if box.IsReal() {
		class = model.ClassReal
	}
	percent := math.Round(box.Confidence*1000) / 10
	return class + " " + strconv.FormatFloat(percent, 'f', -1, 64) + "%"
}

// SaveBoundingBoxVideo fetches the detection sequence for view and renders it
// over srcPath into outPath.
func (r *Renderer) SaveBoundingBoxVideo(ctx context.Context, view model.VisualizationView, srcPath, outPath string) (string, error) {
	sequence, err := r.FetchDetectionSequence(ctx, view)
	if err != nil {
		return "", err
	}
	return r.RenderBoundingBoxVideo(sequence, srcPath, outPath)
}
