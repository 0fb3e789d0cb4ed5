package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"ragserver/types"
)

func addChunk(t *testing.T, s *MemoryVectorStore, docID uuid.UUID, name string, index int, text string, vector []float32) {
	t.Helper()
	err := s.Add(context.Background(),
		[]uuid.UUID{uuid.New()},
		[]string{text},
		[][]float32{vector},
		[]types.ChunkMetadata{{DocID: docID, DocName: name, ChunkIndex: index}},
	)
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
}

func TestMemoryVectorStore_DimensionMismatch(t *testing.T) {
	s := NewMemoryVectorStore(3)
	err := s.Add(context.Background(),
		[]uuid.UUID{uuid.New()},
		[]string{"text"},
		[][]float32{{1, 2}},
		[]types.ChunkMetadata{{}},
	)
	var dimErr *types.DimensionMismatchError
	if !errors.As(err, &dimErr) {
		t.Fatalf("expected DimensionMismatchError, got %v", err)
	}
	if dimErr.Want != 3 || dimErr.Got != 2 {
		t.Errorf("unexpected dimensions in error: want=%d got=%d", dimErr.Want, dimErr.Got)
	}
}

func TestMemoryVectorStore_LengthMismatch(t *testing.T) {
	s := NewMemoryVectorStore(2)
	err := s.Add(context.Background(),
		[]uuid.UUID{uuid.New(), uuid.New()},
		[]string{"only one"},
		[][]float32{{1, 0}},
		[]types.ChunkMetadata{{}},
	)
	if err == nil {
		t.Fatal("expected error for mismatched slice lengths")
	}
}

func TestMemoryVectorStore_SearchRanking(t *testing.T) {
	s := NewMemoryVectorStore(2)
	doc := uuid.New()
	addChunk(t, s, doc, "doc", 0, "east", []float32{1, 0})
	addChunk(t, s, doc, "doc", 1, "north", []float32{0, 1})
	addChunk(t, s, doc, "doc", 2, "northeast", []float32{1, 1})

	hits, err := s.Search(context.Background(), []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}
	if hits[0].Content != "east" {
		t.Errorf("expected most similar first, got %q", hits[0].Content)
	}
	if hits[1].Content != "northeast" {
		t.Errorf("expected northeast second, got %q", hits[1].Content)
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Errorf("hits not sorted descending at %d", i)
		}
	}
}

func TestMemoryVectorStore_TieBreakByInsertionOrder(t *testing.T) {
	s := NewMemoryVectorStore(2)
	doc := uuid.New()
	addChunk(t, s, doc, "doc", 7, "first inserted", []float32{2, 0})
	addChunk(t, s, doc, "doc", 3, "second inserted", []float32{4, 0})

	hits, err := s.Search(context.Background(), []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if hits[0].Content != "first inserted" {
		t.Errorf("tie must go to earlier insertion, got %q first", hits[0].Content)
	}
}

func TestMemoryVectorStore_TopKClamped(t *testing.T) {
	s := NewMemoryVectorStore(2)
	addChunk(t, s, uuid.New(), "doc", 0, "only", []float32{1, 0})

	hits, err := s.Search(context.Background(), []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("expected clamp to 1 stored item, got %d", len(hits))
	}
}

func TestMemoryVectorStore_DeleteByDocumentIdempotent(t *testing.T) {
	s := NewMemoryVectorStore(2)
	doc := uuid.New()
	other := uuid.New()
	for i := 0; i < 3; i++ {
		addChunk(t, s, doc, "doc", i, "chunk", []float32{1, 0})
	}
	addChunk(t, s, other, "other", 0, "keep", []float32{0, 1})

	deleted, err := s.DeleteByDocument(context.Background(), doc)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if deleted != 3 {
		t.Errorf("expected 3 deletions, got %d", deleted)
	}

	deleted, err = s.DeleteByDocument(context.Background(), doc)
	if err != nil {
		t.Fatalf("second delete failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("expected 0 deletions second time, got %d", deleted)
	}

	refs, _ := s.ListMetadata(context.Background())
	if len(refs) != 1 || refs[0].Metadata.DocID != other {
		t.Errorf("unrelated document must survive the delete")
	}
}

func TestMemoryVectorStore_ListMetadataPairsIDWithMetadata(t *testing.T) {
	s := NewMemoryVectorStore(2)
	doc := uuid.New()
	chunkIDs := []uuid.UUID{uuid.New(), uuid.New()}
	err := s.Add(context.Background(),
		chunkIDs,
		[]string{"a", "b"},
		[][]float32{{1, 0}, {0, 1}},
		[]types.ChunkMetadata{
			{DocID: doc, DocName: "doc", ChunkIndex: 0},
			{DocID: doc, DocName: "doc", ChunkIndex: 1},
		},
	)
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}

	refs, err := s.ListMetadata(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("expected 2 refs, got %d", len(refs))
	}
	for i, ref := range refs {
		if ref.ID != chunkIDs[i] {
			t.Errorf("ref %d: expected chunk id %s, got %s", i, chunkIDs[i], ref.ID)
		}
		if ref.Metadata.ChunkIndex != i {
			t.Errorf("ref %d: expected chunk index %d, got %d", i, i, ref.Metadata.ChunkIndex)
		}
	}
}

func TestMemoryVectorStore_Reset(t *testing.T) {
	s := NewMemoryVectorStore(2)
	addChunk(t, s, uuid.New(), "doc", 0, "gone", []float32{1, 0})

	if err := s.Reset(context.Background()); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	hits, err := s.Search(context.Background(), []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("search after reset failed: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected empty store after reset, got %d hits", len(hits))
	}
}
