package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByOwner struct {
	OwnerID uuid.UUID
}

func (s ByOwner) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("owner_id = ?", s.OwnerID)
}

type ByDocumentID struct {
	DocumentID uuid.UUID
}

func (s ByDocumentID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("document_id = ?", s.DocumentID)
}

type ByCollectionID struct {
	CollectionID uuid.UUID
}

func (s ByCollectionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("collection_id = ?", s.CollectionID)
}

// WithRevision guards an UPDATE on the revision the caller read.
type WithRevision struct {
	Revision int64
}

func (s WithRevision) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("revision = ?", s.Revision)
}

// ChunkIDBetween is inclusive on both ends.
type ChunkIDBetween struct {
	Start int64
	End   int64
}

func (s ChunkIDBetween) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("chunks.id BETWEEN ? AND ?", s.Start, s.End)
}

// InActiveVersionRange keeps chunks that fall inside the active version of their document.
type InActiveVersionRange struct{}

func (s InActiveVersionRange) Apply(db *gorm.DB) *gorm.DB {
	return db.Where(`EXISTS (SELECT 1 FROM document_versions v
		WHERE v.document_id = chunks.document_id AND v.is_active
		AND chunks.id BETWEEN v.chunk_start_id AND v.chunk_end_id)`)
}

// InCollections joins documents to filter chunks by collection.
type InCollections struct {
	CollectionIDs []uuid.UUID
}

func (s InCollections) Apply(db *gorm.DB) *gorm.DB {
	return db.Joins("JOIN documents ON documents.id = chunks.document_id").
		Where("documents.collection_id IN ?", s.CollectionIDs)
}
