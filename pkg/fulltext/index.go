package fulltext

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

const (
	KindDocument = "document"
	KindChunk    = "chunk"
)

// DocumentEntry is the denormalized document-level record (filename, summary, tags).
type DocumentEntry struct {
	DocumentId   uuid.UUID
	CollectionId *uuid.UUID
	Title        string
	Summary      string
	Tags         []string
}

type ChunkEntry struct {
	ChunkId      int64
	DocumentId   uuid.UUID
	CollectionId *uuid.UUID
	Content      string
}

type Filters struct {
	CollectionIds []uuid.UUID
	DocumentIds   []uuid.UUID
	// DistinctDocuments keeps only the best hit of each document, so the limit
	// counts documents rather than entries.
	DistinctDocuments bool
}

// Hit is one matching record. Score is backend relevance; only its order within one
// result set is meaningful.
type Hit struct {
	Id         string
	Kind       string
	DocumentId uuid.UUID
	ChunkId    int64
	Score      float64
}

type Index interface {
	IndexDocument(ctx context.Context, doc DocumentEntry) error
	IndexChunk(ctx context.Context, chunk ChunkEntry) error
	Search(ctx context.Context, query string, filters Filters, limit int) ([]Hit, error)
	DeleteDocument(ctx context.Context, documentId uuid.UUID) error
}

func documentEntryId(id uuid.UUID) string {
	return "doc:" + id.String()
}

func chunkEntryId(id int64) string {
	return fmt.Sprintf("chunk:%d", id)
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Terms lowercases query, splits it on anything that is not a letter or digit, and drops repeats.
func Terms(query string) []string {
	fields := tokenize(query)

	seen := make(map[string]bool, len(fields))
	terms := fields[:0]
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			terms = append(terms, f)
		}
	}
	return terms
}
