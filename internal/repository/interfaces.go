package repository

import (
	"authenta/internal/model"
)

// MediaFilter narrows ledger queries. Zero values are ignored.
type MediaFilter struct {
	Status    string
	ModelType string
	Limit     int
	Offset    int
}

// MediaRepository defines the interface for the local media ledger.
type MediaRepository interface {
	// Create/update operations
	Upsert(entry *model.StoredMedia) error

	// Read operations
	GetByMID(mid string) (*model.StoredMedia, error)
	GetAll(filter *MediaFilter) ([]model.StoredMedia, error)

	// Delete operations
	Delete(mid string) error
}

// ArtifactRepository defines the interface for rendered artifact records.
type ArtifactRepository interface {
	// Create operations
	Insert(artifact *model.Artifact) (int64, error)

	// Read operations
	GetByMID(mid string) ([]model.Artifact, error)

	// Delete operations
	DeleteByMID(mid string) error
}
