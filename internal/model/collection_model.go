package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Collection struct {
	Id             uuid.UUID                   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name           string                      `gorm:"type:varchar(255);not null"`
	Description    string                      `gorm:"type:text"`
	OwnerId        uuid.UUID                   `gorm:"type:uuid;not null;index"`
	AccessUsers    datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	AccessRoles    datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	Tags           datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	IsPublic       bool                        `gorm:"not null;default:false;index"`
	ParentId       *uuid.UUID                  `gorm:"type:uuid;index"`
	DocumentCount  int                         `gorm:"not null;default:0"`
	TotalTokens    int64                       `gorm:"not null;default:0"`
	EmbeddingModel string                      `gorm:"type:varchar(128)"`
	DefaultModel   string                      `gorm:"type:varchar(128)"`
	Metadata       datatypes.JSONMap           `gorm:"type:jsonb"`
	Revision       int64                       `gorm:"not null;default:1"`
	CreatedAt      time.Time                   `gorm:"autoCreateTime"`
	UpdatedAt      time.Time                   `gorm:"autoUpdateTime"`
}

func (Collection) TableName() string {
	return "collections"
}
