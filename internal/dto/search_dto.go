package dto

import "github.com/google/uuid"

type SimilarRequest struct {
	Content       string      `json:"content" validate:"required"`
	Limit         int         `json:"limit" validate:"omitempty,min=1,max=100"`
	CollectionIds []uuid.UUID `json:"collection_ids"`
}

type BatchSimilarRequest struct {
	Requests []SimilarRequest `json:"requests" validate:"required,dive"`
}

type SearchResultMetadata struct {
	FileName     string     `json:"file_name"`
	FileType     string     `json:"file_type"`
	Summary      string     `json:"summary"`
	Tags         []string   `json:"tags"`
	CollectionId *uuid.UUID `json:"collection_id"`
}

type SearchResult struct {
	DocumentId uuid.UUID            `json:"document_id"`
	ChunkId    int64                `json:"chunk_id,omitempty"`
	Source     string               `json:"source"` // "fulltext" or "vector"
	Score      float64              `json:"score"`
	Rank       float64              `json:"rank"`
	Metadata   SearchResultMetadata `json:"metadata"`
}

type SearchResponse struct {
	Results       []SearchResult `json:"results"`
	Total         int            `json:"total"`
	FullTextTotal int            `json:"full_text_total"`
	VectorTotal   int            `json:"vector_total"`
}
