package fulltext

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SearchEntry backs PostgresIndex. The search_vector column is generated by
// Postgres (see EnsureSchema) and never written from Go.
type SearchEntry struct {
	Id           string                      `gorm:"type:varchar(64);primaryKey"`
	Kind         string                      `gorm:"type:varchar(16);not null"`
	DocumentId   uuid.UUID                   `gorm:"type:uuid;not null;index"`
	CollectionId *uuid.UUID                  `gorm:"type:uuid;index"`
	ChunkId      *int64                      `gorm:"index"`
	Title        string                      `gorm:"type:varchar(255)"`
	Content      string                      `gorm:"type:text"`
	Tags         datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	UpdatedAt    time.Time                   `gorm:"autoUpdateTime"`
}

func (SearchEntry) TableName() string {
	return "search_entries"
}

type PostgresIndex struct {
	db *gorm.DB
}

var _ Index = (*PostgresIndex)(nil)

func NewPostgresIndex(db *gorm.DB) *PostgresIndex {
	return &PostgresIndex{db: db}
}

// EnsureSchema creates the table plus the generated tsvector column and its GIN index.
func (p *PostgresIndex) EnsureSchema(ctx context.Context) error {
	db := p.db.WithContext(ctx)
	if err := db.AutoMigrate(&SearchEntry{}); err != nil {
		return err
	}
	if err := db.Exec(`ALTER TABLE search_entries ADD COLUMN IF NOT EXISTS search_vector tsvector
		GENERATED ALWAYS AS (to_tsvector('simple', coalesce(title, '') || ' ' || coalesce(content, ''))) STORED`).Error; err != nil {
		return err
	}
	return db.Exec(`CREATE INDEX IF NOT EXISTS idx_search_entries_vector ON search_entries USING GIN (search_vector)`).Error
}

func (p *PostgresIndex) upsert(ctx context.Context, entry *SearchEntry) error {
	return p.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"collection_id", "title", "content", "tags", "updated_at"}),
		}).
		Create(entry).Error
}

func (p *PostgresIndex) IndexDocument(ctx context.Context, doc DocumentEntry) error {
	return p.upsert(ctx, &SearchEntry{
		Id:           documentEntryId(doc.DocumentId),
		Kind:         KindDocument,
		DocumentId:   doc.DocumentId,
		CollectionId: doc.CollectionId,
		Title:        doc.Title,
		Content:      doc.Summary + " " + strings.Join(doc.Tags, " "),
		Tags:         datatypes.JSONSlice[string](doc.Tags),
	})
}

func (p *PostgresIndex) IndexChunk(ctx context.Context, chunk ChunkEntry) error {
	chunkId := chunk.ChunkId
	return p.upsert(ctx, &SearchEntry{
		Id:           chunkEntryId(chunk.ChunkId),
		Kind:         KindChunk,
		DocumentId:   chunk.DocumentId,
		CollectionId: chunk.CollectionId,
		ChunkId:      &chunkId,
		Content:      chunk.Content,
	})
}

func (p *PostgresIndex) Search(ctx context.Context, query string, filters Filters, limit int) ([]Hit, error) {
	terms := Terms(query)
	if len(terms) == 0 {
		return []Hit{}, nil
	}
	if limit <= 0 {
		limit = 10
	}
	// Any term may match; ts_rank_cd rewards entries matching more of them.
	tsQuery := strings.Join(terms, " | ")

	type row struct {
		Id         string
		Kind       string
		DocumentId uuid.UUID
		ChunkId    *int64
		Score      float64
	}
	var rows []row

	q := p.db.WithContext(ctx).
		Table("search_entries").
		Select("id, kind, document_id, chunk_id, ts_rank_cd(search_vector, to_tsquery('simple', ?)) AS score", tsQuery).
		Where("search_vector @@ to_tsquery('simple', ?)", tsQuery)
	if len(filters.CollectionIds) > 0 {
		q = q.Where("collection_id IN ?", filters.CollectionIds)
	}
	if len(filters.DocumentIds) > 0 {
		q = q.Where("document_id IN ?", filters.DocumentIds)
	}

	if filters.DistinctDocuments {
		best := q.Select("DISTINCT ON (document_id) id, kind, document_id, chunk_id, ts_rank_cd(search_vector, to_tsquery('simple', ?)) AS score", tsQuery).
			Order("document_id").Order("score DESC").Order("id ASC")
		q = p.db.WithContext(ctx).Table("(?) AS best", best)
	}

	if err := q.Order("score DESC").Order("id ASC").Limit(limit).Scan(&rows).Error; err != nil {
		return nil, err
	}

	hits := make([]Hit, len(rows))
	for i, r := range rows {
		hits[i] = Hit{Id: r.Id, Kind: r.Kind, DocumentId: r.DocumentId, Score: r.Score}
		if r.ChunkId != nil {
			hits[i].ChunkId = *r.ChunkId
		}
	}
	return hits, nil
}

func (p *PostgresIndex) DeleteDocument(ctx context.Context, documentId uuid.UUID) error {
	return p.db.WithContext(ctx).Where("document_id = ?", documentId).Delete(&SearchEntry{}).Error
}
