package handler

import (
	"authenta/internal/dto"
	"authenta/internal/logger"
	"authenta/internal/model"
	"authenta/internal/repository"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// GetMediaFromLedgerHandler returns the filtered, paginated media ledger.
func GetMediaFromLedgerHandler(logger *logger.Logger, mediaRepo repository.MediaRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 24)

		filter := &repository.MediaFilter{
			Status:    q.Get("status"),
			ModelType: q.Get("modelType"),
			Limit:     limit,
			Offset:    (page - 1) * limit,
		}

		entries, err := mediaRepo.GetAll(filter)
		if err != nil {
			logger.Error("Error querying media from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		data := dto.LedgerData{
			Media:       make([]dto.LedgerEntry, 0, len(entries)),
			Length:      len(entries),
			CurrentPage: page,
			Limit:       limit,
		}
		for _, entry := range entries {
			data.Media = append(data.Media, toLedgerEntry(entry))
		}

		writeJSON(w, logger, http.StatusOK, data)
	}
}

// GetMediaHandler returns one ledger entry by mid.
func GetMediaHandler(logger *logger.Logger, mediaRepo repository.MediaRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mid := chi.URLParam(r, "mid")

		entry, err := mediaRepo.GetByMID(mid)
		if err != nil {
			logger.Error("Error reading media %s: %v", mid, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if entry == nil {
			http.Error(w, "Media not found", http.StatusNotFound)
			return
		}

		writeJSON(w, logger, http.StatusOK, toLedgerEntry(*entry))
	}
}

// GetArtifactsHandler lists the rendered files recorded for a media record.
func GetArtifactsHandler(logger *logger.Logger, artifactRepo repository.ArtifactRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mid := chi.URLParam(r, "mid")

		artifacts, err := artifactRepo.GetByMID(mid)
		if err != nil {
			logger.Error("Error reading artifacts for %s: %v", mid, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if artifacts == nil {
			artifacts = []model.Artifact{}
		}

		writeJSON(w, logger, http.StatusOK, artifacts)
	}
}

func toLedgerEntry(entry model.StoredMedia) dto.LedgerEntry {
	return dto.LedgerEntry{
		MID:        entry.Record.MID,
		Name:       entry.Record.Name,
		ModelType:  entry.Record.ModelType,
		Status:     entry.Record.NormalizedStatus(),
		Terminal:   entry.Record.IsTerminal(),
		FilePath:   entry.FilePath,
		HeatmapURL: entry.Record.HeatmapURL,
		ResultURL:  entry.Record.ResultURL,
		UpdatedAt:  entry.UpdatedAt,
	}
}
