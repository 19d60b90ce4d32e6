package entity

import (
	"time"

	"github.com/google/uuid"
)

// Chunk is immutable once stored. Id is assigned by the store and only grows.
type Chunk struct {
	Id            int64
	DocumentId    uuid.UUID
	VersionNumber int
	ChunkIndex    int
	Content       string
	Embedding     []float32
	TokenCount    int
	CreatedAt     time.Time
}
