package dto

import "github.com/google/uuid"

const (
	IndexActionUpsert = "upsert"
	IndexActionDelete = "delete"
)

// IndexMessage is the payload on the full-text indexing topic.
type IndexMessage struct {
	Action     string    `json:"action"`
	DocumentId uuid.UUID `json:"document_id"`
}
