package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateCollectionRequest struct {
	Name           string                 `json:"name" validate:"required,max=255"`
	Description    string                 `json:"description"`
	AccessUsers    []string               `json:"access_users"`
	AccessRoles    []string               `json:"access_roles"`
	Tags           []string               `json:"tags"`
	IsPublic       bool                   `json:"is_public"`
	ParentId       *uuid.UUID             `json:"parent_id"`
	EmbeddingModel string                 `json:"embedding_model"`
	DefaultModel   string                 `json:"default_model"`
	Metadata       map[string]interface{} `json:"metadata"`
}

type UpdateCollectionRequest struct {
	Id             uuid.UUID              `json:"-"`
	Name           string                 `json:"name" validate:"required,max=255"`
	Description    string                 `json:"description"`
	AccessUsers    []string               `json:"access_users"`
	AccessRoles    []string               `json:"access_roles"`
	Tags           []string               `json:"tags"`
	IsPublic       bool                   `json:"is_public"`
	DefaultModel   string                 `json:"default_model"`
	Metadata       map[string]interface{} `json:"metadata"`
}

type CollectionResponse struct {
	Id             uuid.UUID              `json:"id"`
	Name           string                 `json:"name"`
	Description    string                 `json:"description"`
	OwnerId        uuid.UUID              `json:"owner_id"`
	AccessUsers    []string               `json:"access_users"`
	AccessRoles    []string               `json:"access_roles"`
	Tags           []string               `json:"tags"`
	IsPublic       bool                   `json:"is_public"`
	ParentId       *uuid.UUID             `json:"parent_id"`
	DocumentCount  int                    `json:"document_count"`
	TotalTokens    int64                  `json:"total_tokens"`
	EmbeddingModel string                 `json:"embedding_model"`
	DefaultModel   string                 `json:"default_model"`
	Metadata       map[string]interface{} `json:"metadata"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      *time.Time             `json:"updated_at"`
}

type CollectionNodeResponse struct {
	CollectionResponse
	Level int `json:"level"`
}

// CollectionFilter selects one listing mode; the first non-empty field wins.
type CollectionFilter struct {
	Owner  bool   `query:"owner"`
	Public bool   `query:"public"`
	Tag    string `query:"tag"`
	Search string `query:"q"`
}
