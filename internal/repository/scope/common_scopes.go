package scope

import "gorm.io/gorm"

func OrderByCreatedDesc(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC")
}

func OrderByCreatedAsc(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC")
}

// ChunkOrder is the order chunks were written in: by version, then position.
func ChunkOrder(db *gorm.DB) *gorm.DB {
	return db.Order("version_number ASC").Order("chunk_index ASC")
}
