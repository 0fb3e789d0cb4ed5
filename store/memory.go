package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"ragserver/types"
)

type memoryEntry struct {
	id       uuid.UUID
	text     string
	vector   []float32
	metadata types.ChunkMetadata
}

// MemoryVectorStore is a brute-force cosine similarity index. Reset swaps
// the whole slice under the write lock, so a concurrent Search sees the
// pre-reset or post-reset index, never a partially emptied one.
type MemoryVectorStore struct {
	mu        sync.RWMutex
	dimension int
	entries   []memoryEntry
}

func NewMemoryVectorStore(dimension int) *MemoryVectorStore {
	return &MemoryVectorStore{dimension: dimension}
}

func (s *MemoryVectorStore) Add(ctx context.Context, ids []uuid.UUID, texts []string, vectors [][]float32, metadatas []types.ChunkMetadata) error {
	if len(ids) != len(texts) || len(ids) != len(vectors) || len(ids) != len(metadatas) {
		return fmt.Errorf("parallel slice length mismatch: ids=%d texts=%d vectors=%d metadatas=%d",
			len(ids), len(texts), len(vectors), len(metadatas))
	}
	for _, v := range vectors {
		if len(v) != s.dimension {
			return &types.DimensionMismatchError{Want: s.dimension, Got: len(v)}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range ids {
		s.entries = append(s.entries, memoryEntry{
			id:       ids[i],
			text:     texts[i],
			vector:   vectors[i],
			metadata: metadatas[i],
		})
	}
	return nil
}

func (s *MemoryVectorStore) Search(ctx context.Context, vector []float32, topK int) ([]types.SearchHit, error) {
	s.mu.RLock()
	entries := s.entries
	s.mu.RUnlock()

	if topK <= 0 {
		return nil, nil
	}

	type scored struct {
		order int
		score float64
	}
	scores := make([]scored, len(entries))
	for i, e := range entries {
		scores[i] = scored{order: i, score: cosineSimilarity(vector, e.vector)}
	}

	// Stable sort keeps earlier-inserted entries first on equal scores.
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].score > scores[j].score
	})

	if topK > len(scores) {
		topK = len(scores)
	}
	hits := make([]types.SearchHit, topK)
	for i := 0; i < topK; i++ {
		e := entries[scores[i].order]
		hits[i] = types.SearchHit{
			Content:  e.text,
			Score:    scores[i].score,
			Metadata: e.metadata,
		}
	}
	return hits, nil
}

func (s *MemoryVectorStore) ListMetadata(ctx context.Context) ([]types.ChunkRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	refs := make([]types.ChunkRef, len(s.entries))
	for i, e := range s.entries {
		refs[i] = types.ChunkRef{ID: e.id, Metadata: e.metadata}
	}
	return refs, nil
}

func (s *MemoryVectorStore) DeleteByDocument(ctx context.Context, docID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0:0]
	deleted := 0
	for _, e := range s.entries {
		if e.metadata.DocID == docID {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return deleted, nil
}

func (s *MemoryVectorStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
