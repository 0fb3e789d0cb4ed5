package store

import (
	"context"

	"github.com/google/uuid"

	"ragserver/types"
)

// VectorStorer is a similarity-searchable index of chunks grouped by
// originating document. Implementations are safe for concurrent use and
// a Reset is observed atomically by concurrent readers.
type VectorStorer interface {
	// Add inserts parallel slices; lengths must match and every vector
	// must have the store's configured dimension.
	Add(ctx context.Context, ids []uuid.UUID, texts []string, vectors [][]float32, metadatas []types.ChunkMetadata) error

	// Search returns up to topK hits ranked by cosine similarity
	// descending, ties broken by insertion order.
	Search(ctx context.Context, vector []float32, topK int) ([]types.SearchHit, error)

	// ListMetadata returns the id and metadata of every stored chunk.
	ListMetadata(ctx context.Context) ([]types.ChunkRef, error)

	// DeleteByDocument removes every chunk of the document and reports
	// how many were removed; zero for an unknown document.
	DeleteByDocument(ctx context.Context, docID uuid.UUID) (int, error)

	// Reset atomically empties the store.
	Reset(ctx context.Context) error
}

// ChatLedger is the append-only, strictly ordered conversation record.
// Appended ids are monotonically increasing and never reused.
type ChatLedger interface {
	Append(ctx context.Context, text, role string) (int64, error)
	Get(ctx context.Context, id int64) (*types.ChatEntry, error)
	ListAll(ctx context.Context) ([]types.ChatEntry, error)
	Reset(ctx context.Context) error
}
