package sqlite

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"authenta/internal/model"
	"authenta/internal/repository"
)

var (
	_ repository.MediaRepository    = (*MediaRepository)(nil)
	_ repository.ArtifactRepository = (*ArtifactRepository)(nil)
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(filepath.Join(t.TempDir(), "data", "ledger.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func storedMedia(mid, status, modelType string, updatedAt time.Time) *model.StoredMedia {
	confidence := 0.93
	fake := true
	return &model.StoredMedia{
		Record: model.MediaRecord{
			MID:        mid,
			Name:       "clip " + mid,
			Type:       "Video",
			ModelType:  modelType,
			Status:     status,
			CreatedAt:  model.Timestamp{Time: updatedAt.Add(-time.Minute).UTC().Truncate(time.Second)},
			Fake:       &fake,
			Confidence: &confidence,
			Participants: []model.Participant{
				{Fake: true, Confidence: 0.93, HeatmapURL: "https://cdn.test/" + mid + "/p0.mp4"},
			},
		},
		UploadURL: "https://upload.test/" + mid,
		FilePath:  "/videos/" + mid + ".mp4",
		UpdatedAt: updatedAt,
	}
}

// ========================================
// Database
// ========================================

func TestDatabase_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "ledger.db")

	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file should exist")
	}
}

func TestDatabase_ReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")

	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	if err := NewMediaRepository(db).Upsert(storedMedia("m1", "PROCESSING", "DF-1", time.Now())); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	db.Close()

	db, err = New(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer db.Close()

	entry, err := NewMediaRepository(db).GetByMID("m1")
	if err != nil || entry == nil {
		t.Fatalf("GetByMID() = %v, %v, expected entry", entry, err)
	}
}

// ========================================
// Media repository
// ========================================

func TestMediaRepository_UpsertAndGet(t *testing.T) {
	repo := NewMediaRepository(setupTestDB(t))
	entry := storedMedia("m1", "CREATED", "DF-1", time.Now())

	if err := repo.Upsert(entry); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := repo.GetByMID("m1")
	if err != nil {
		t.Fatalf("GetByMID() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetByMID() returned nil")
	}
	if got.UploadURL != entry.UploadURL || got.FilePath != entry.FilePath {
		t.Errorf("UploadURL/FilePath = %q/%q, expected %q/%q", got.UploadURL, got.FilePath, entry.UploadURL, entry.FilePath)
	}
	if got.Record.Name != entry.Record.Name || got.Record.ModelType != "DF-1" {
		t.Errorf("Record = %+v, expected %+v", got.Record, entry.Record)
	}
	if got.Record.Confidence == nil || *got.Record.Confidence != 0.93 {
		t.Errorf("Confidence = %v, expected 0.93", got.Record.Confidence)
	}
	if len(got.Record.Participants) != 1 || got.Record.Participants[0].HeatmapURL != entry.Record.Participants[0].HeatmapURL {
		t.Errorf("Participants = %+v", got.Record.Participants)
	}
	if !got.Record.CreatedAt.Equal(entry.Record.CreatedAt.Time) {
		t.Errorf("CreatedAt = %v, expected %v", got.Record.CreatedAt, entry.Record.CreatedAt)
	}

	entry.Record.Status = "processed"
	if err := repo.Upsert(entry); err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}

	all, err := repo.GetAll(nil)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("GetAll() returned %d entries, expected 1", len(all))
	}
	if all[0].Record.Status != "processed" {
		t.Errorf("Status = %q, expected %q", all[0].Record.Status, "processed")
	}
}

func TestMediaRepository_GetByMID_Missing(t *testing.T) {
	repo := NewMediaRepository(setupTestDB(t))

	got, err := repo.GetByMID("missing")
	if err != nil {
		t.Fatalf("GetByMID() error = %v", err)
	}
	if got != nil {
		t.Errorf("GetByMID() = %+v, expected nil", got)
	}
}

func TestMediaRepository_UpsertRequiresMID(t *testing.T) {
	repo := NewMediaRepository(setupTestDB(t))

	if err := repo.Upsert(&model.StoredMedia{}); err == nil {
		t.Error("Upsert() without mid should fail")
	}
	if err := repo.Upsert(nil); err == nil {
		t.Error("Upsert(nil) should fail")
	}
}

func TestMediaRepository_GetAllFilters(t *testing.T) {
	repo := NewMediaRepository(setupTestDB(t))
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []*model.StoredMedia{
		storedMedia("m1", "PROCESSED", "DF-1", base),
		storedMedia("m2", "FAILED", "DF-1", base.Add(1*time.Minute)),
		storedMedia("m3", "Processed", "AC-1", base.Add(2*time.Minute)),
		storedMedia("m4", "PROCESSING", "df-1", base.Add(3*time.Minute)),
	}
	for _, e := range entries {
		if err := repo.Upsert(e); err != nil {
			t.Fatalf("Upsert(%s) error = %v", e.Record.MID, err)
		}
	}

	tests := []struct {
		name     string
		filter   *repository.MediaFilter
		expected []string
	}{
		{"all newest first", &repository.MediaFilter{}, []string{"m4", "m3", "m2", "m1"}},
		{"status is case-insensitive", &repository.MediaFilter{Status: "processed"}, []string{"m3", "m1"}},
		{"model type", &repository.MediaFilter{ModelType: "DF-1"}, []string{"m4", "m2", "m1"}},
		{"both", &repository.MediaFilter{Status: "PROCESSED", ModelType: "AC-1"}, []string{"m3"}},
		{"limit", &repository.MediaFilter{Limit: 2}, []string{"m4", "m3"}},
		{"limit and offset", &repository.MediaFilter{Limit: 2, Offset: 1}, []string{"m3", "m2"}},
		{"offset only", &repository.MediaFilter{Offset: 3}, []string{"m1"}},
		{"no match", &repository.MediaFilter{Status: "ERROR"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.GetAll(tt.filter)
			if err != nil {
				t.Fatalf("GetAll() error = %v", err)
			}
			if len(got) != len(tt.expected) {
				t.Fatalf("GetAll() returned %d entries, expected %d", len(got), len(tt.expected))
			}
			for i, mid := range tt.expected {
				if got[i].Record.MID != mid {
					t.Errorf("entry %d = %s, expected %s", i, got[i].Record.MID, mid)
				}
			}
		})
	}
}

func TestMediaRepository_DeleteRemovesArtifacts(t *testing.T) {
	db := setupTestDB(t)
	mediaRepo := NewMediaRepository(db)
	artifactRepo := NewArtifactRepository(db)

	if err := mediaRepo.Upsert(storedMedia("m1", "PROCESSED", "DF-1", time.Now())); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if _, err := artifactRepo.Insert(&model.Artifact{MID: "m1", Kind: model.ArtifactBoundingBox, Path: "out/m1_bbox.mp4"}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	if err := mediaRepo.Delete("m1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if got, _ := mediaRepo.GetByMID("m1"); got != nil {
		t.Error("media should be deleted")
	}
	artifacts, err := artifactRepo.GetByMID("m1")
	if err != nil {
		t.Fatalf("GetByMID() error = %v", err)
	}
	if len(artifacts) != 0 {
		t.Errorf("artifacts = %+v, expected none", artifacts)
	}

	if err := mediaRepo.Delete("never-existed"); err != nil {
		t.Errorf("Delete() of missing mid error = %v", err)
	}
}

// ========================================
// Artifact repository
// ========================================

func TestArtifactRepository_InsertAndGet(t *testing.T) {
	repo := NewArtifactRepository(setupTestDB(t))

	id, err := repo.Insert(&model.Artifact{MID: "m1", Kind: model.ArtifactHeatmapImage, Path: "out/image_heatmap.jpg"})
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if id <= 0 {
		t.Errorf("id = %d, expected positive", id)
	}

	batch := []model.Artifact{
		{MID: "m1", Kind: model.ArtifactHeatmapVideo, Path: "out/video_heatmap_p0.mp4"},
		{MID: "m1", Kind: model.ArtifactHeatmapVideo, Path: "out/video_heatmap_p1.mp4"},
		{MID: "m2", Kind: model.ArtifactBoundingBox, Path: "out/video_bbox.mp4"},
	}
	if err := repo.InsertBatch(batch); err != nil {
		t.Fatalf("InsertBatch() error = %v", err)
	}

	artifacts, err := repo.GetByMID("m1")
	if err != nil {
		t.Fatalf("GetByMID() error = %v", err)
	}
	if len(artifacts) != 3 {
		t.Fatalf("GetByMID() returned %d artifacts, expected 3", len(artifacts))
	}
	if artifacts[0].Path != "out/image_heatmap.jpg" || artifacts[2].Path != "out/video_heatmap_p1.mp4" {
		t.Errorf("artifacts out of order: %+v", artifacts)
	}
	if artifacts[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}

	if err := repo.DeleteByMID("m1"); err != nil {
		t.Fatalf("DeleteByMID() error = %v", err)
	}
	remaining, _ := repo.GetByMID("m2")
	if len(remaining) != 1 {
		t.Errorf("m2 artifacts = %d, expected 1", len(remaining))
	}
}
