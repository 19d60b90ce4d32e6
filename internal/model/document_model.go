package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Document struct {
	Id             uuid.UUID                   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FileName       string                      `gorm:"type:varchar(255);not null"`
	FileType       string                      `gorm:"type:varchar(16);not null"`
	MimeType       string                      `gorm:"type:varchar(128)"`
	FileSize       int64                       `gorm:"not null;default:0"`
	OwnerId        uuid.UUID                   `gorm:"type:uuid;not null;index"`
	CollectionId   *uuid.UUID                  `gorm:"type:uuid;index"`
	Tags           datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	CurrentVersion int                         `gorm:"not null;default:1"`
	IsArchived     bool                        `gorm:"not null;default:false"`
	Status         string                      `gorm:"type:varchar(16);not null;default:'pending'"`
	Summary        string                      `gorm:"type:text"`
	ChunkCount     int                         `gorm:"not null;default:0"`
	TotalTokens    int64                       `gorm:"not null;default:0"`
	AccessCount    int64                       `gorm:"not null;default:0"`
	LastAccessedAt *time.Time
	Revision       int64     `gorm:"not null;default:1"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

func (Document) TableName() string {
	return "documents"
}
