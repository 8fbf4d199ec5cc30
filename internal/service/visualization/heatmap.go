package visualization

import (
	"authenta/internal/model"
	"context"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// DefaultHeatmapBaseName prefixes heatmap video files when no base name is given.
const DefaultHeatmapBaseName = "heatmap"

// HeatmapResult is either an *ImageResult or a *VideoResults.
type HeatmapResult interface {
	isHeatmapResult()
}

// ImageResult is the path of a saved image heatmap.
type ImageResult struct {
	Path string
}

// ParticipantFailure explains why one participant heatmap was skipped.
type ParticipantFailure struct {
	Index      int
	Reason     string
	StatusCode int // 0 when no response was received
}

// VideoResults lists the saved participant heatmaps and the skipped ones.
// Skips do not fail the call.
type VideoResults struct {
	Paths    []string
	Failures []ParticipantFailure
}

func (*ImageResult) isHeatmapResult()  {}
func (*VideoResults) isHeatmapResult() {}

var extensionsByContentType = map[string]string{
	"video/mp4":       ".mp4",
	"video/webm":      ".webm",
	"video/avi":       ".avi",
	"video/quicktime": ".mov",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
}

// extensionFor maps a Content-Type header to a file extension, ".mp4" when unknown.
func extensionFor(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	}
	if ext, ok := extensionsByContentType[mediaType]; ok {
		return ext
	}
	return ".mp4"
}

// SaveImageHeatmap downloads the single heatmap of an image model to outPath.
func (r *Renderer) SaveImageHeatmap(ctx context.Context, view model.VisualizationView, outPath string) (string, error) {
	if view.HeatmapURL == "" {
		return "", ErrNoHeatmapURL
	}

	resp, err := r.client.Fetch(ctx, view.HeatmapURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", &NotAvailableError{URL: view.HeatmapURL}
	}
	if !isSuccess(resp.StatusCode) {
		return "", apiError(resp, view.HeatmapURL)
	}

	if err := writeFile(outPath, resp.Body); err != nil {
		return "", err
	}

	r.logger.Info("Saved heatmap image: %s", outPath)
	return outPath, nil
}

// SaveVideoHeatmaps downloads one heatmap video per participant into outDir
// as {baseName}_p{index}{ext}. Participants without a URL, with a 403/404
// response, or whose download fails are skipped and reported in Failures.
func (r *Renderer) SaveVideoHeatmaps(ctx context.Context, view model.VisualizationView, outDir, baseName string) (*VideoResults, error) {
	if len(view.Participants) == 0 {
		return nil, ErrNoParticipants
	}
	if baseName == "" {
		baseName = DefaultHeatmapBaseName
	}

	results := &VideoResults{}
	for _, p := range view.Participants {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		if p.HeatmapURL == "" {
			r.logger.Warning("No heatmap URL for participant %d, skipping.", p.Index)
			results.Failures = append(results.Failures, ParticipantFailure{Index: p.Index, Reason: "no heatmap url"})
			continue
		}

		path, failure := r.saveParticipantHeatmap(ctx, p, outDir, baseName)
		if failure != nil {
			results.Failures = append(results.Failures, *failure)
			continue
		}

		results.Paths = append(results.Paths, path)
		r.logger.Info("Saved heatmap video: %s", path)
	}

	return results, nil
}

func (r *Renderer) saveParticipantHeatmap(ctx context.Context, p model.ParticipantView, outDir, baseName string) (string, *ParticipantFailure) {
	resp, err := r.client.Fetch(ctx, p.HeatmapURL)
	if err != nil {
		r.logger.Error("Failed to download heatmap for participant %d: %v", p.Index, err)
		return "", &ParticipantFailure{Index: p.Index, Reason: err.Error()}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusForbidden:
		r.logger.Warning("Participant %d heatmap returned %d, skipping.", p.Index, resp.StatusCode)
		return "", &ParticipantFailure{Index: p.Index, Reason: "heatmap not available", StatusCode: resp.StatusCode}
	case !isSuccess(resp.StatusCode):
		err := apiError(resp, p.HeatmapURL)
		r.logger.Error("Failed to download heatmap for participant %d: %v", p.Index, err)
		return "", &ParticipantFailure{Index: p.Index, Reason: err.Error(), StatusCode: resp.StatusCode}
	}

	name := fmt.Sprintf("%s_p%d%s", baseName, p.Index, extensionFor(resp.Header.Get("Content-Type")))
	path := filepath.Join(outDir, name)
	if err := writeFile(path, resp.Body); err != nil {
		r.logger.Error("Failed to save heatmap for participant %d: %v", p.Index, err)
		return "", &ParticipantFailure{Index: p.Index, Reason: err.Error(), StatusCode: resp.StatusCode}
	}
	return path, nil
}

// SaveHeatmap picks image or video heatmaps. An explicit modelType prefix
// (AC- image, DF- video) wins over the view's own kind. For videos outPath is
// the output directory.
func (r *Renderer) SaveHeatmap(ctx context.Context, view model.VisualizationView, outPath, modelType string) (HeatmapResult, error) {
	kind := view.Kind
	switch {
	case model.IsImageModel(modelType):
		kind = model.KindImage
	case model.IsVideoModel(modelType):
		kind = model.KindVideo
	}

	switch kind {
	case model.KindImage:
		path, err := r.SaveImageHeatmap(ctx, view, outPath)
		if err != nil {
			return nil, err
		}
		return &ImageResult{Path: path}, nil
	case model.KindVideo:
		results, err := r.SaveVideoHeatmaps(ctx, view, outPath, DefaultHeatmapBaseName)
		if err != nil {
			return nil, err
		}
		return results, nil
	}

	return nil, &AmbiguousTypeError{ModelType: modelType}
}
