package entity

import (
	"time"

	"github.com/google/uuid"
)

type Version struct {
	Id            uuid.UUID
	DocumentId    uuid.UUID
	VersionNumber int
	// ChunkStartId and ChunkEndId bound the chunks this version wrote, inclusive.
	// Both are zero until the first chunk is persisted.
	ChunkStartId      int64
	ChunkEndId        int64
	IsActive          bool
	Status            ProcessingStatus
	ChangeDescription string
	CreatedAt         time.Time
	UpdatedAt         *time.Time
}

func (v *Version) HasRange() bool {
	return v.ChunkStartId > 0 && v.ChunkEndId >= v.ChunkStartId
}

// ExtendRange widens the range to cover ids.
func (v *Version) ExtendRange(ids ...int64) {
	for _, id := range ids {
		if v.ChunkStartId == 0 || id < v.ChunkStartId {
			v.ChunkStartId = id
		}
		if id > v.ChunkEndId {
			v.ChunkEndId = id
		}
	}
}
