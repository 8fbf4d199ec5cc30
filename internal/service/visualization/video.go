package visualization

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Frame is one decoded video frame that can be drawn on.
type Frame interface {
	DrawRectangle(rect image.Rectangle, c color.RGBA, thickness int) error
	DrawText(text string, org image.Point, scale float64, c color.RGBA, thickness int) error
}

// FrameReader yields frames in source order.
type FrameReader interface {
	// Read returns the next frame; false means the stream ended. The frame is
	// only valid until the next call to Read.
	Read() (Frame, bool)
	Width() int
	Height() int
	FPS() float64
	Close() error
}

// FrameWriter encodes frames in the order they are written.
type FrameWriter interface {
	Write(frame Frame) error
	Close() error
}

// VideoCodec opens readers and writers for video files.
type VideoCodec interface {
	OpenReader(path string) (FrameReader, error)
	OpenWriter(path string, fps float64, width, height int) (FrameWriter, error)
}

// GocvCodec is the OpenCV-backed VideoCodec. Output uses the mp4v FourCC.
type GocvCodec struct{}

func (GocvCodec) OpenReader(path string) (FrameReader, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, err
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, errors.New("video capture not opened")
	}

	return &gocvReader{capture: capture, mat: gocv.NewMat()}, nil
}

func (GocvCodec) OpenWriter(path string, fps float64, width, height int) (FrameWriter, error) {
	writer, err := gocv.VideoWriterFile(path, "mp4v", fps, width, height, true)
	if err != nil {
		return nil, fmt.Errorf("failed to open video writer: %w", err)
	}
	if !writer.IsOpened() {
		writer.Close()
		return nil, fmt.Errorf("video writer for %s not opened", path)
	}
	return &gocvWriter{writer: writer}, nil
}

type gocvReader struct {
	capture *gocv.VideoCapture
	mat     gocv.Mat
}

func (r *gocvReader) Read() (Frame, bool) {
	if ok := r.capture.Read(&r.mat); !ok || r.mat.Empty() {
		return nil, false
	}
	return &gocvFrame{mat: &r.mat}, true
}

func (r *gocvReader) Width() int {
	return int(r.capture.Get(gocv.VideoCaptureFrameWidth))
}

func (r *gocvReader) Height() int {
	return int(r.capture.Get(gocv.VideoCaptureFrameHeight))
}

func (r *gocvReader) FPS() float64 {
	return r.capture.Get(gocv.VideoCaptureFPS)
}

func (r *gocvReader) Close() error {
	r.mat.Close()
	return r.capture.Close()
}

type gocvFrame struct {
	mat *gocv.Mat
}

func (f *gocvFrame) DrawRectangle(rect image.Rectangle, c color.RGBA, thickness int) error {
	return gocv.Rectangle(f.mat, rect, c, thickness)
}

func (f *gocvFrame) DrawText(text string, org image.Point, scale float64, c color.RGBA, thickness int) error {
	return gocv.PutText(f.mat, text, org, gocv.FontHersheySimplex, scale, c, thickness)
}

type gocvWriter struct {
	writer *gocv.VideoWriter
}

func (w *gocvWriter) Write(frame Frame) error {
	f, ok := frame.(*gocvFrame)
	if !ok {
		return fmt.Errorf("unsupported frame type %T", frame)
	}
	return w.writer.Write(*f.mat)
}

func (w *gocvWriter) Close() error {
	return w.writer.Close()
}
