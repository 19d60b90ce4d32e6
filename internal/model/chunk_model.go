package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

type Chunk struct {
	Id            int64           `gorm:"primaryKey;autoIncrement"`
	DocumentId    uuid.UUID       `gorm:"type:uuid;not null;index:idx_chunks_document_version,priority:1"`
	VersionNumber int             `gorm:"not null;index:idx_chunks_document_version,priority:2"`
	ChunkIndex    int             `gorm:"not null;default:0"`
	Content       string          `gorm:"type:text;not null"`
	Embedding     pgvector.Vector `gorm:"type:vector(768)"` // nomic-embed-text and text-embedding-004 both emit 768 dims
	TokenCount    int             `gorm:"not null;default:0"`
	CreatedAt     time.Time       `gorm:"autoCreateTime"`
}

func (Chunk) TableName() string {
	return "chunks"
}
