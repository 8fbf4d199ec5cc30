package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"authenta/internal/model"
	"authenta/internal/repository"
)

// MediaRepository implements repository.MediaRepository for SQLite.
type MediaRepository struct {
	db *DB
}

// NewMediaRepository creates a new SQLite media repository.
func NewMediaRepository(db *DB) *MediaRepository {
	return &MediaRepository{db: db}
}

// Upsert inserts the entry or replaces the stored one with the same mid.
func (r *MediaRepository) Upsert(entry *model.StoredMedia) error {
	if entry == nil || entry.Record.MID == "" {
		return fmt.Errorf("failed to upsert media: missing mid")
	}

	record, err := json.Marshal(entry.Record)
	if err != nil {
		return fmt.Errorf("failed to encode media record: %w", err)
	}

	updatedAt := entry.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	var createdAt interface{}
	if !entry.Record.CreatedAt.IsZero() {
		createdAt = entry.Record.CreatedAt.UTC()
	}

	r.db.Lock()
	defer r.db.Unlock()

	_, err = r.db.Conn().Exec(`
		INSERT INTO media (mid, name, model_type, status, upload_url, file_path, record, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(mid) DO UPDATE SET
			name = excluded.name,
			model_type = excluded.model_type,
			status = excluded.status,
			upload_url = excluded.upload_url,
			file_path = excluded.file_path,
			record = excluded.record,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`, entry.Record.MID, entry.Record.Name, entry.Record.ModelType, entry.Record.NormalizedStatus(),
		entry.UploadURL, entry.FilePath, string(record), createdAt, updatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert media: %w", err)
	}
	return nil
}

// GetByMID retrieves a ledger entry by its mid. A missing entry returns nil, nil.
func (r *MediaRepository) GetByMID(mid string) (*model.StoredMedia, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRow(`
		SELECT record, upload_url, file_path, updated_at
		FROM media WHERE mid = ?
	`, mid)

	entry, err := scanMedia(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get media: %w", err)
	}
	return entry, nil
}

// GetAll retrieves ledger entries, most recently updated first.
func (r *MediaRepository) GetAll(filter *repository.MediaFilter) ([]model.StoredMedia, error) {
	if filter == nil {
		filter = &repository.MediaFilter{}
	}

	r.db.RLock()
	defer r.db.RUnlock()

	query := `
		SELECT record, upload_url, file_path, updated_at
		FROM media
		WHERE 1=1
	`
	args := []interface{}{}

	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, strings.ToUpper(filter.Status))
	}

	if filter.ModelType != "" {
		query += " AND UPPER(model_type) = ?"
		args = append(args, strings.ToUpper(filter.ModelType))
	}

	query += " ORDER BY updated_at DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		query += " LIMIT -1"
	}

	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query media: %w", err)
	}
	defer rows.Close()

	var entries []model.StoredMedia
	for rows.Next() {
		entry, err := scanMedia(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan media: %w", err)
		}
		entries = append(entries, *entry)
	}

	return entries, rows.Err()
}

// Delete removes a ledger entry and its artifacts.
func (r *MediaRepository) Delete(mid string) error {
	r.db.Lock()
	defer r.db.Unlock()

	// First delete related artifacts
	if _, err := r.db.Conn().Exec(`DELETE FROM artifacts WHERE mid = ?`, mid); err != nil {
		return fmt.Errorf("failed to delete artifacts: %w", err)
	}

	if _, err := r.db.Conn().Exec(`DELETE FROM media WHERE mid = ?`, mid); err != nil {
		return fmt.Errorf("failed to delete media: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMedia(s scanner) (*model.StoredMedia, error) {
	var (
		entry  model.StoredMedia
		record string
	)
	if err := s.Scan(&record, &entry.UploadURL, &entry.FilePath, &entry.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(record), &entry.Record); err != nil {
		return nil, fmt.Errorf("failed to decode media record: %w", err)
	}
	return &entry, nil
}
