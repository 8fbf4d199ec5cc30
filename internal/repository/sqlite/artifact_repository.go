package sqlite

import (
	"fmt"
	"time"

	"authenta/internal/model"
)

// ArtifactRepository implements repository.ArtifactRepository for SQLite.
type ArtifactRepository struct {
	db *DB
}

// NewArtifactRepository creates a new SQLite artifact repository.
func NewArtifactRepository(db *DB) *ArtifactRepository {
	return &ArtifactRepository{db: db}
}

// Insert adds a new artifact record to the database.
func (r *ArtifactRepository) Insert(artifact *model.Artifact) (int64, error) {
	createdAt := artifact.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO artifacts (mid, kind, path, created_at)
		VALUES (?, ?, ?, ?)
	`, artifact.MID, artifact.Kind, artifact.Path, createdAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to insert artifact: %w", err)
	}

	return result.LastInsertId()
}

// InsertBatch adds multiple artifacts in a single transaction.
func (r *ArtifactRepository) InsertBatch(artifacts []model.Artifact) error {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO artifacts (mid, kind, path, created_at)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, a := range artifacts {
		createdAt := a.CreatedAt.UTC()
		if a.CreatedAt.IsZero() {
			createdAt = now
		}
		if _, err := stmt.Exec(a.MID, a.Kind, a.Path, createdAt); err != nil {
			return fmt.Errorf("failed to insert artifact: %w", err)
		}
	}

	return tx.Commit()
}

// GetByMID retrieves all artifacts for a media record, oldest first.
func (r *ArtifactRepository) GetByMID(mid string) ([]model.Artifact, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, mid, kind, path, created_at
		FROM artifacts WHERE mid = ?
		ORDER BY id
	`, mid)
	if err != nil {
		return nil, fmt.Errorf("failed to query artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []model.Artifact
	for rows.Next() {
		var a model.Artifact
		if err := rows.Scan(&a.ID, &a.MID, &a.Kind, &a.Path, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}

// DeleteByMID removes all artifacts for a media record.
func (r *ArtifactRepository) DeleteByMID(mid string) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM artifacts WHERE mid = ?`, mid); err != nil {
		return fmt.Errorf("failed to delete artifacts: %w", err)
	}
	return nil
}
