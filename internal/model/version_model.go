package model

import (
	"time"

	"github.com/google/uuid"
)

type Version struct {
	Id                uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DocumentId        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_versions_document_number,priority:1"`
	VersionNumber     int       `gorm:"not null;uniqueIndex:idx_versions_document_number,priority:2"`
	ChunkStartId      int64     `gorm:"not null;default:0"`
	ChunkEndId        int64     `gorm:"not null;default:0"`
	IsActive          bool      `gorm:"not null;default:false"`
	Status            string    `gorm:"type:varchar(16);not null;default:'pending'"`
	ChangeDescription string    `gorm:"type:text"`
	CreatedAt         time.Time `gorm:"autoCreateTime"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime"`
}

func (Version) TableName() string {
	return "document_versions"
}
