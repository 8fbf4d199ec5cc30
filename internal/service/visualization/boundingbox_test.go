package visualization

import (
	"authenta/internal/model"
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
)

// ========================================
// Fake video codec
// ========================================

type drawnRect struct {
	rect      image.Rectangle
	color     color.RGBA
	thickness int
}

type drawnText struct {
	text  string
	org   image.Point
	scale float64
}

type fakeFrame struct {
	index int
	rects []drawnRect
	texts []drawnText
}

func (f *fakeFrame) DrawRectangle(rect image.Rectangle, c color.RGBA, thickness int) error {
	f.rects = append(f.rects, drawnRect{rect: rect, color: c, thickness: thickness})
	return nil
}

func (f *fakeFrame) DrawText(text string, org image.Point, scale float64, c color.RGBA, thickness int) error {
	f.texts = append(f.texts, drawnText{text: text, org: org, scale: scale})
	return nil
}

type fakeReader struct {
	frames []*fakeFrame
	pos    int
	width  int
	height int
	fps    float64
	closed bool
}

func (r *fakeReader) Read() (Frame, bool) {
	if r.pos >= len(r.frames) {
		return nil, false
	}
	frame := r.frames[r.pos]
	r.pos++
	return frame, true
}

func (r *fakeReader) Width() int   { return r.width }
func (r *fakeReader) Height() int  { return r.height }
func (r *fakeReader) FPS() float64 { return r.fps }

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

type fakeWriter struct {
	path    string
	fps     float64
	width   int
	height  int
	written []*fakeFrame
	closed  bool
}

func (w *fakeWriter) Write(frame Frame) error {
	w.written = append(w.written, frame.(*fakeFrame))
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return os.WriteFile(w.path, []byte("encoded"), 0644)
}

type fakeCodec struct {
	reader  *fakeReader
	writer  *fakeWriter
	openErr error
}

func newFakeCodec(frames int, fps float64) *fakeCodec {
	reader := &fakeReader{width: 1280, height: 720, fps: fps}
	for i := 0; i < frames; i++ {
		reader.frames = append(reader.frames, &fakeFrame{index: i})
	}
	return &fakeCodec{reader: reader}
}

func (c *fakeCodec) OpenReader(path string) (FrameReader, error) {
	if c.openErr != nil {
		return nil, c.openErr
	}
	return c.reader, nil
}

func (c *fakeCodec) OpenWriter(path string, fps float64, width, height int) (FrameWriter, error) {
	c.writer = &fakeWriter{path: path, fps: fps, width: width, height: height}
	return c.writer, nil
}

// ========================================
// Detection sequence parsing
// ========================================

func TestParseDetectionSequence(t *testing.T) {
	tests := []struct {
		name     string
		document string
	}{
		{
			name:     "array of entries",
			document: `{"boundingBoxes":[{"boundingBox":{"0":[10,20,30,40],"2":[1,2,3,4],"5":[5,6,7,8]}}]}`,
		},
		{
			name:     "entries keyed by index",
			document: `{"boundingBoxes":{"0":{"boundingBox":{"5":[5,6,7,8],"0":[10,20,30,40],"2":[1,2,3,4]}}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sequence, err := ParseDetectionSequence([]byte(tt.document))
			if err != nil {
				t.Fatalf("ParseDetectionSequence() error = %v", err)
			}

			frames := sequence.Frames()
			expected := []int{0, 2, 5}
			if len(frames) != len(expected) {
				t.Fatalf("Frames() = %v, expected %v", frames, expected)
			}
			for i := range expected {
				if frames[i] != expected[i] {
					t.Errorf("Frames()[%d] = %d, expected %d", i, frames[i], expected[i])
				}
			}

			box := sequence[0][0]
			if box.Box != [4]float64{10, 20, 30, 40} {
				t.Errorf("Box = %v, expected [10 20 30 40]", box.Box)
			}
			if box.Class != model.ClassFake || box.Confidence != 1.0 {
				t.Errorf("Class/Confidence = %s/%v, expected fake/1", box.Class, box.Confidence)
			}
		})
	}
}

func TestParseDetectionSequence_MultipleBoxesPerFrame(t *testing.T) {
	document := `{"boundingBoxes":[{"boundingBox":{"3":[[1,1,2,2],[3.5,4.5,5.5,6.5]]}}]}`

	sequence, err := ParseDetectionSequence([]byte(document))
	if err != nil {
		t.Fatalf("ParseDetectionSequence() error = %v", err)
	}
	if len(sequence[3]) != 2 {
		t.Fatalf("len(sequence[3]) = %d, expected 2", len(sequence[3]))
	}
	if sequence[3][1].Box != [4]float64{3.5, 4.5, 5.5, 6.5} {
		t.Errorf("Box = %v, expected [3.5 4.5 5.5 6.5]", sequence[3][1].Box)
	}
}

func TestParseDetectionSequence_SameFrameUnderTwoKeys(t *testing.T) {
	document := `{"boundingBoxes":[{"boundingBox":{"5":[1,2,3,4],"05":[5,6,7,8],"7":[9,9,9,9]}}]}`

	sequence, err := ParseDetectionSequence([]byte(document))
	if err != nil {
		t.Fatalf("ParseDetectionSequence() error = %v", err)
	}

	frames := sequence.Frames()
	if len(frames) != 2 || frames[0] != 5 || frames[1] != 7 {
		t.Fatalf("Frames() = %v, expected [5 7]", frames)
	}
	if len(sequence[5]) != 2 {
		t.Fatalf("len(sequence[5]) = %d, expected 2", len(sequence[5]))
	}
	if sequence[5][0].Box != [4]float64{5, 6, 7, 8} || sequence[5][1].Box != [4]float64{1, 2, 3, 4} {
		t.Errorf("sequence[5] = %+v, expected boxes of \"05\" then \"5\"", sequence[5])
	}
}

func TestParseDetectionSequence_Malformed(t *testing.T) {
	tests := []struct {
		name     string
		document string
	}{
		{"not json", `<html>`},
		{"not an object", `[1,2,3]`},
		{"missing boundingBoxes", `{"result":"ok"}`},
		{"null boundingBoxes", `{"boundingBoxes":null}`},
		{"empty boundingBoxes", `{"boundingBoxes":[]}`},
		{"keyed without zero", `{"boundingBoxes":{"1":{"boundingBox":{}}}}`},
		{"missing boundingBox", `{"boundingBoxes":[{"other":{}}]}`},
		{"boundingBox not an object", `{"boundingBoxes":[{"boundingBox":[1,2,3,4]}]}`},
		{"non-numeric frame", `{"boundingBoxes":[{"boundingBox":{"first":[1,2,3,4]}}]}`},
		{"negative frame", `{"boundingBoxes":[{"boundingBox":{"-1":[1,2,3,4]}}]}`},
		{"three coordinates", `{"boundingBoxes":[{"boundingBox":{"0":[1,2,3]}}]}`},
		{"string coordinate", `{"boundingBoxes":[{"boundingBox":{"0":[1,"2",3,4]}}]}`},
		{"coordinates object", `{"boundingBoxes":[{"boundingBox":{"0":{"x":1}}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDetectionSequence([]byte(tt.document))

			var malformed *MalformedResultError
			if !errors.As(err, &malformed) {
				t.Errorf("error = %v, expected *MalformedResultError", err)
			}
		})
	}
}

// ========================================
// Fetching
// ========================================

func TestFetchDetectionSequence(t *testing.T) {
	srv := newPayloadServer(t)
	good := srv.add("result.json", payload{contentType: "application/json", body: []byte(`{"boundingBoxes":[{"boundingBox":{"0":[1,2,3,4],"2":[1,2,3,4],"5":[1,2,3,4]}}]}`)})
	bad := srv.add("bad.json", payload{contentType: "application/json", body: []byte(`{"boundingBoxes":[]}`)})
	r := newTestRenderer(t, nil)

	t.Run("success", func(t *testing.T) {
		sequence, err := r.FetchDetectionSequence(context.Background(), model.VisualizationView{ResultURL: good})
		if err != nil {
			t.Fatalf("FetchDetectionSequence() error = %v", err)
		}
		if len(sequence) != 3 {
			t.Errorf("len(sequence) = %d, expected 3", len(sequence))
		}
	})

	t.Run("missing result url", func(t *testing.T) {
		_, err := r.FetchDetectionSequence(context.Background(), model.VisualizationView{})
		if !errors.Is(err, ErrNoResultURL) {
			t.Errorf("error = %v, expected ErrNoResultURL", err)
		}
	})

	t.Run("expired result url", func(t *testing.T) {
		_, err := r.FetchDetectionSequence(context.Background(), model.VisualizationView{ResultURL: srv.url("gone.json")})

		var notAvailable *NotAvailableError
		if !errors.As(err, &notAvailable) {
			t.Errorf("error = %v, expected *NotAvailableError", err)
		}
	})

	t.Run("malformed document names url", func(t *testing.T) {
		_, err := r.FetchDetectionSequence(context.Background(), model.VisualizationView{ResultURL: bad})

		var malformed *MalformedResultError
		if !errors.As(err, &malformed) {
			t.Fatalf("error = %v, expected *MalformedResultError", err)
		}
		if malformed.URL != bad {
			t.Errorf("URL = %q, expected %q", malformed.URL, bad)
		}
	})
}

// ========================================
// Rendering
// ========================================

func TestRenderBoundingBoxVideo(t *testing.T) {
	codec := newFakeCodec(10, 25)
	r := newTestRenderer(t, codec)

	sequence := model.DetectionSequence{
		0: {{Box: [4]float64{10, 20, 30, 40}, Class: model.ClassFake, Confidence: 1.0}},
		4: {
			{Box: [4]float64{1.5, 2.5, 100, 200}, Class: model.ClassReal, Confidence: 0.875},
			{Box: [4]float64{50, 60, 70, 80}, Class: model.ClassFake, Confidence: 0.5},
		},
		9:  {{Box: [4]float64{0, 5, 1, 6}, Class: model.ClassFake, Confidence: 1.0}},
		42: {{Box: [4]float64{1, 1, 1, 1}, Class: model.ClassFake, Confidence: 1.0}},
	}

	outPath := filepath.Join(t.TempDir(), "out", "bbox.mp4")
	path, err := r.RenderBoundingBoxVideo(sequence, "source.mp4", outPath)
	if err != nil {
		t.Fatalf("RenderBoundingBoxVideo() error = %v", err)
	}
	if path != outPath {
		t.Errorf("path = %q, expected %q", path, outPath)
	}

	w := codec.writer
	if w.fps != 25 || w.width != 1280 || w.height != 720 {
		t.Errorf("writer = %vfps %dx%d, expected 25fps 1280x720", w.fps, w.width, w.height)
	}
	if !w.closed || !codec.reader.closed {
		t.Errorf("writer closed = %v, reader closed = %v, expected both closed", w.closed, codec.reader.closed)
	}

	if len(w.written) != 10 {
		t.Fatalf("written frames = %d, expected 10", len(w.written))
	}
	for i, frame := range w.written {
		if frame.index != i {
			t.Errorf("written[%d] is source frame %d", i, frame.index)
		}

		boxes, annotated := sequence[i]
		if annotated != (len(frame.rects) > 0) {
			t.Errorf("frame %d annotated = %v, expected %v", i, len(frame.rects) > 0, annotated)
		}
		if len(frame.rects) != len(boxes) {
			t.Fatalf("frame %d rects = %d, expected %d", i, len(frame.rects), len(boxes))
		}
		for j, box := range boxes {
			expected := image.Rectangle{
				Min: image.Pt(int(box.Box[0]*2), int(box.Box[1]*2)),
				Max: image.Pt(int(box.Box[2]*2), int(box.Box[3]*2)),
			}
			if frame.rects[j].rect != expected {
				t.Errorf("frame %d rect %d = %v, expected %v", i, j, frame.rects[j].rect, expected)
			}
			if frame.rects[j].thickness != 2 {
				t.Errorf("thickness = %d, expected 2", frame.rects[j].thickness)
			}
			if frame.texts[j].org != image.Pt(expected.Min.X, expected.Min.Y-10) {
				t.Errorf("label origin = %v, expected %v", frame.texts[j].org, image.Pt(expected.Min.X, expected.Min.Y-10))
			}
		}
	}

	mixed := w.written[4]
	if mixed.rects[0].color != colorReal {
		t.Errorf("real box color = %v, expected %v", mixed.rects[0].color, colorReal)
	}
	if mixed.rects[1].color != colorFake {
		t.Errorf("fake box color = %v, expected %v", mixed.rects[1].color, colorFake)
	}
	if mixed.texts[0].text != "real 87.5%" {
		t.Errorf("label = %q, expected %q", mixed.texts[0].text, "real 87.5%")
	}

	if _, err := os.Stat(outPath); err != nil {
		t.Errorf("output file missing: %v", err)
	}
}

func TestRenderBoundingBoxVideo_FPSFallback(t *testing.T) {
	for _, fps := range []float64{0, -1} {
		codec := newFakeCodec(3, fps)
		r := newTestRenderer(t, codec)

		if _, err := r.RenderBoundingBoxVideo(model.DetectionSequence{}, "source.mp4", filepath.Join(t.TempDir(), "out.mp4")); err != nil {
			t.Fatalf("RenderBoundingBoxVideo() error = %v", err)
		}
		if codec.writer.fps != DefaultFPS {
			t.Errorf("source fps %v: writer fps = %v, expected %v", fps, codec.writer.fps, DefaultFPS)
		}
		if len(codec.writer.written) != 3 {
			t.Errorf("written frames = %d, expected 3", len(codec.writer.written))
		}
	}
}

func TestRenderBoundingBoxVideo_SourceOpenError(t *testing.T) {
	codec := newFakeCodec(0, 30)
	codec.openErr = errors.New("no such file")
	r := newTestRenderer(t, codec)

	_, err := r.RenderBoundingBoxVideo(model.DetectionSequence{}, "missing.mp4", filepath.Join(t.TempDir(), "out.mp4"))

	var openErr *SourceOpenError
	if !errors.As(err, &openErr) {
		t.Fatalf("error = %v, expected *SourceOpenError", err)
	}
	if openErr.Path != "missing.mp4" {
		t.Errorf("Path = %q, expected %q", openErr.Path, "missing.mp4")
	}
	if codec.writer != nil {
		t.Error("writer opened for unreadable source")
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		box      model.BoundingBoxItem
		expected string
	}{
		{model.BoundingBoxItem{Class: model.ClassFake, Confidence: 1.0}, "fake 100%"},
		{model.BoundingBoxItem{Class: model.ClassReal, Confidence: 0.875}, "real 87.5%"},
		{model.BoundingBoxItem{Class: model.ClassFake, Confidence: 0.12345}, "fake 12.3%"},
		{model.BoundingBoxItem{Class: "", Confidence: 0}, "fake 0%"},
	}

	for _, tt := range tests {
		if got := Label(tt.box); got != tt.expected {
			t.Errorf("Label(%+v) = %q, expected %q", tt.box, got, tt.expected)
		}
	}
}

// ========================================
// Composition
// ========================================

func TestSaveBoundingBoxVideo(t *testing.T) {
	srv := newPayloadServer(t)
	resultURL := srv.add("result.json", payload{body: []byte(`{"boundingBoxes":[{"boundingBox":{"1":[4,4,8,8]}}]}`)})
	codec := newFakeCodec(3, 30)
	r := newTestRenderer(t, codec)

	outPath := filepath.Join(t.TempDir(), "bbox.mp4")
	if _, err := r.SaveBoundingBoxVideo(context.Background(), model.VisualizationView{ResultURL: resultURL}, "src.mp4", outPath); err != nil {
		t.Fatalf("SaveBoundingBoxVideo() error = %v", err)
	}

	written := codec.writer.written
	if len(written) != 3 {
		t.Fatalf("written frames = %d, expected 3", len(written))
	}
	if len(written[0].rects) != 0 || len(written[1].rects) != 1 || len(written[2].rects) != 0 {
		t.Errorf("annotations per frame = %d/%d/%d, expected 0/1/0", len(written[0].rects), len(written[1].rects), len(written[2].rects))
	}
	if written[1].rects[0].rect != image.Rect(8, 8, 16, 16) {
		t.Errorf("rect = %v, expected (8,8)-(16,16)", written[1].rects[0].rect)
	}
}

func TestSaveArtefacts(t *testing.T) {
	srv := newPayloadServer(t)
	imageURL := srv.add("h.jpg", payload{contentType: "image/jpeg", body: []byte("jpeg")})
	videoURL := srv.add("p0", payload{contentType: "video/mp4", body: []byte("mp4")})
	resultURL := srv.add("result.json", payload{body: []byte(`{"boundingBoxes":[{"boundingBox":{"0":[1,1,2,2]}}]}`)})

	t.Run("image", func(t *testing.T) {
		r := newTestRenderer(t, nil)
		outDir := filepath.Join(t.TempDir(), "artefacts")

		artefacts, err := r.SaveImageArtefacts(context.Background(), model.VisualizationView{Kind: model.KindImage, HeatmapURL: imageURL}, outDir, "")
		if err != nil {
			t.Fatalf("SaveImageArtefacts() error = %v", err)
		}
		if artefacts.HeatmapImage != filepath.Join(outDir, "image_heatmap.jpg") {
			t.Errorf("HeatmapImage = %q", artefacts.HeatmapImage)
		}
		if paths := artefacts.Paths(); len(paths[model.ArtifactHeatmapImage]) != 1 {
			t.Errorf("Paths() = %v", paths)
		}
	})

	t.Run("video", func(t *testing.T) {
		codec := newFakeCodec(2, 30)
		r := newTestRenderer(t, codec)
		outDir := t.TempDir()
		view := model.VisualizationView{
			Kind:         model.KindVideo,
			ResultURL:    resultURL,
			Participants: []model.ParticipantView{{Index: 0, HeatmapURL: videoURL}},
		}

		artefacts, err := r.SaveVideoArtefacts(context.Background(), view, "src.mp4", outDir, "clip")
		if err != nil {
			t.Fatalf("SaveVideoArtefacts() error = %v", err)
		}
		if artefacts.BoundingBoxVideo != filepath.Join(outDir, "clip_bbox.mp4") {
			t.Errorf("BoundingBoxVideo = %q", artefacts.BoundingBoxVideo)
		}
		if len(artefacts.HeatmapVideos.Paths) != 1 || artefacts.HeatmapVideos.Paths[0] != filepath.Join(outDir, "clip_heatmap_p0.mp4") {
			t.Errorf("HeatmapVideos.Paths = %v", artefacts.HeatmapVideos.Paths)
		}
		if paths := artefacts.Paths(); len(paths) != 2 {
			t.Errorf("Paths() = %v, expected two kinds", paths)
		}
	})
}
