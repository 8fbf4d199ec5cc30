package visualization

import (
	"authenta/internal/client"
	"authenta/internal/logger"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// Renderer turns a VisualizationView into files on disk: heatmap images,
// per-participant heatmap videos and annotated bounding-box videos.
type Renderer struct {
	client *client.Client
	codec  VideoCodec
	logger *logger.Logger
}

// NewRenderer creates a Renderer that decodes and encodes video with OpenCV.
func NewRenderer(c *client.Client, logger *logger.Logger) *Renderer {
	return NewRendererWithCodec(c, GocvCodec{}, logger)
}

// NewRendererWithCodec creates a Renderer using the given VideoCodec.
func NewRendererWithCodec(c *client.Client, codec VideoCodec, logger *logger.Logger) *Renderer {
	return &Renderer{
		client: c,
		codec:  codec,
		logger: logger,
	}
}

// ensureDirectory creates the parent directory of path when it is missing.
func ensureDirectory(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}

// writeFile streams r into path. A partially written file is removed on failure.
func writeFile(path string, r io.Reader) (err error) {
	if err := ensureDirectory(path); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, closeErr)
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	if _, err := io.Copy(file, r); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// apiError builds a client.APIError from a failed pre-signed download.
func apiError(resp *http.Response, url string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &client.APIError{Method: http.MethodGet, URL: url, StatusCode: resp.StatusCode, Body: string(body)}
}

func isSuccess(status int) bool {
	return status >= 200 && status <= 299
}
