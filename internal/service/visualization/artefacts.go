package visualization

import (
	"authenta/internal/model"
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Artefacts lists the files written for one media record.
type Artefacts struct {
	HeatmapImage     string
	HeatmapVideos    *VideoResults
	BoundingBoxVideo string
}

// Paths returns every written file with its artifact kind.
func (a *Artefacts) Paths() map[string][]string {
	paths := make(map[string][]string)
	if a == nil {
		return paths
	}
	if a.HeatmapImage != "" {
		paths[model.ArtifactHeatmapImage] = []string{a.HeatmapImage}
	}
	if a.HeatmapVideos != nil && len(a.HeatmapVideos.Paths) > 0 {
		paths[model.ArtifactHeatmapVideo] = append([]string(nil), a.HeatmapVideos.Paths...)
	}
	if a.BoundingBoxVideo != "" {
		paths[model.ArtifactBoundingBox] = []string{a.BoundingBoxVideo}
	}
	return paths
}

// SaveImageArtefacts writes {outDir}/{baseName}_heatmap.jpg.
func (r *Renderer) SaveImageArtefacts(ctx context.Context, view model.VisualizationView, outDir, baseName string) (*Artefacts, error) {
	if baseName == "" {
		baseName = "image"
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	path, err := r.SaveImageHeatmap(ctx, view, filepath.Join(outDir, baseName+"_heatmap.jpg"))
	if err != nil {
		return nil, err
	}
	return &Artefacts{HeatmapImage: path}, nil
}

// SaveVideoArtefacts writes the participant heatmaps as {baseName}_heatmap_p{i}
// and the annotated source video as {baseName}_bbox.mp4, both under outDir.
func (r *Renderer) SaveVideoArtefacts(ctx context.Context, view model.VisualizationView, srcPath, outDir, baseName string) (*Artefacts, error) {
	if baseName == "" {
		baseName = "video"
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	heatmaps, err := r.SaveVideoHeatmaps(ctx, view, outDir, baseName+"_heatmap")
	if err != nil {
		return nil, err
	}

	bbox, err := r.SaveBoundingBoxVideo(ctx, view, srcPath, filepath.Join(outDir, baseName+"_bbox.mp4"))
	if err != nil {
		return &Artefacts{HeatmapVideos: heatmaps}, err
	}

	return &Artefacts{HeatmapVideos: heatmaps, BoundingBoxVideo: bbox}, nil
}
