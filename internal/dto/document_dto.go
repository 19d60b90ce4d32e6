package dto

import (
	"time"

	"github.com/google/uuid"
)

type IngestRequest struct {
	File         []byte     `json:"-"`
	FileName     string     `json:"file_name" validate:"required"`
	MimeType     string     `json:"mime_type"`
	OwnerId      uuid.UUID  `json:"-"`
	CollectionId *uuid.UUID `json:"collection_id"`
	Tags         []string   `json:"tags"`
	UseBatch     bool       `json:"use_batch"`
}

type IngestResponse struct {
	DocumentId uuid.UUID `json:"document_id"`
	ChunkCount int       `json:"chunk_count"`
	Summary    string    `json:"summary"`
}

type CreateVersionRequest struct {
	DocumentId        uuid.UUID `json:"-"`
	RequesterId       uuid.UUID `json:"-"`
	File              []byte    `json:"-"`
	FileName          string    `json:"file_name" validate:"required"`
	MimeType          string    `json:"mime_type"`
	ChangeDescription string    `json:"change_description"`
}

type VersionResponse struct {
	DocumentId        uuid.UUID  `json:"document_id"`
	VersionNumber     int        `json:"version_number"`
	ChunkStartId      int64      `json:"chunk_start_id"`
	ChunkEndId        int64      `json:"chunk_end_id"`
	IsActive          bool       `json:"is_active"`
	Status            string     `json:"status"`
	ChangeDescription string     `json:"change_description"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         *time.Time `json:"updated_at"`
}

type ShowVersionResponse struct {
	VersionResponse
	Chunks []ChunkResponse `json:"chunks"`
}

type ChunkResponse struct {
	Id            int64     `json:"id"`
	DocumentId    uuid.UUID `json:"document_id"`
	VersionNumber int       `json:"version_number"`
	ChunkIndex    int       `json:"chunk_index"`
	Content       string    `json:"content"`
	TokenCount    int       `json:"token_count"`
}

type DocumentResponse struct {
	Id             uuid.UUID  `json:"id"`
	FileName       string     `json:"file_name"`
	FileType       string     `json:"file_type"`
	MimeType       string     `json:"mime_type"`
	FileSize       int64      `json:"file_size"`
	OwnerId        uuid.UUID  `json:"owner_id"`
	CollectionId   *uuid.UUID `json:"collection_id"`
	Tags           []string   `json:"tags"`
	CurrentVersion int        `json:"current_version"`
	IsArchived     bool       `json:"is_archived"`
	Status         string     `json:"status"`
	Summary        string     `json:"summary"`
	ChunkCount     int        `json:"chunk_count"`
	TotalTokens    int64      `json:"total_tokens"`
	AccessCount    int64      `json:"access_count"`
	LastAccessedAt *time.Time `json:"last_accessed_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at"`
}

type UpdateTagsRequest struct {
	Tags []string `json:"tags" validate:"dive,required,max=64"`
}

type SetArchivedRequest struct {
	Archived bool `json:"archived"`
}

type MoveDocumentRequest struct {
	// Nil removes the document from its collection.
	CollectionId *uuid.UUID `json:"collection_id"`
}

type QueryRequest struct {
	Query         string     `json:"query" validate:"required"`
	Model         string     `json:"model"`
	CollectionId  *uuid.UUID `json:"collection_id"`
	DocumentId    *uuid.UUID `json:"document_id"`
	VersionNumber *int       `json:"version_number" validate:"omitempty,min=1"`
	RequesterId   uuid.UUID  `json:"-"`
}

type QuerySource struct {
	ChunkId       int64     `json:"chunk_id"`
	DocumentId    uuid.UUID `json:"document_id"`
	VersionNumber int       `json:"version_number"`
	ChunkIndex    int       `json:"chunk_index"`
	Similarity    float64   `json:"similarity"`
	Content       string    `json:"content"`
}

type QueryResponse struct {
	Answer    string        `json:"answer"`
	ModelUsed string        `json:"model_used"`
	Sources   []QuerySource `json:"sources"`
}
