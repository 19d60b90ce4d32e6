package entity

import (
	"time"

	"github.com/google/uuid"
)

type Collection struct {
	Id             uuid.UUID
	Name           string
	Description    string
	OwnerId        uuid.UUID
	AccessUsers    []string
	AccessRoles    []string
	Tags           []string
	IsPublic       bool
	ParentId       *uuid.UUID
	DocumentCount  int
	TotalTokens    int64
	EmbeddingModel string
	DefaultModel   string
	Metadata       map[string]interface{}
	Revision       int64
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}

func (c *Collection) AccessibleBy(userId string, roles []string) bool {
	if c.IsPublic || c.OwnerId.String() == userId {
		return true
	}
	for _, u := range c.AccessUsers {
		if u == userId {
			return true
		}
	}
	for _, want := range roles {
		for _, r := range c.AccessRoles {
			if r == want {
				return true
			}
		}
	}
	return false
}

// CollectionNode is a collection positioned in a tree walk; the root has Level 0.
type CollectionNode struct {
	Collection *Collection
	Level      int
}
