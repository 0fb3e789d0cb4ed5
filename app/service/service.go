package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ragserver/app/agent"
	"ragserver/model"
	"ragserver/store"
	"ragserver/types"
)

// RAGService is the transport-agnostic core: ingestion, retrieval-backed
// querying, document listing and session lifecycle. The session lock
// makes a reset atomic with respect to every other operation, so no
// caller observes the ledger cleared but the index not (or vice versa).
type RAGService struct {
	sessionMu sync.RWMutex

	vector   store.VectorStorer
	ledger   store.ChatLedger
	embedder model.EmbedderInterface
	orch     *Orchestrator
	logger   *zap.SugaredLogger

	chunkSize    int
	chunkOverlap int
	defaultTopK  int
}

func NewRAGService(
	vector store.VectorStorer,
	ledger store.ChatLedger,
	embedder model.EmbedderInterface,
	generator agent.Generator,
	cfg types.Config,
	logger *zap.SugaredLogger,
) *RAGService {
	return &RAGService{
		vector:       vector,
		ledger:       ledger,
		embedder:     embedder,
		orch:         NewOrchestrator(ledger, vector, embedder, generator, cfg.Workers, cfg.QueueSize, logger),
		logger:       logger,
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
		defaultTopK:  cfg.DefaultTopK,
	}
}

// Ingest chunks the text, embeds every chunk and stores the result under
// a fresh document id. Every failure is surfaced to the caller; ingestion
// never partially succeeds silently.
func (s *RAGService) Ingest(ctx context.Context, rawText, displayName string) (*types.IngestResult, error) {
	s.sessionMu.RLock()
	defer s.sessionMu.RUnlock()

	docID := uuid.New()
	chunks := model.ChunkText(rawText, s.chunkSize, s.chunkOverlap)
	if len(chunks) == 0 {
		return &types.IngestResult{DocID: docID, DocName: displayName}, nil
	}

	vectors, err := s.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(chunks))
	metadatas := make([]types.ChunkMetadata, len(chunks))
	for i := range chunks {
		ids[i] = uuid.New()
		metadatas[i] = types.ChunkMetadata{DocID: docID, DocName: displayName, ChunkIndex: i}
	}

	if err := s.vector.Add(ctx, ids, chunks, vectors, metadatas); err != nil {
		return nil, fmt.Errorf("failed to index document: %w", err)
	}

	s.logger.Infow("document ingested", "file_id", docID, "file_name", displayName, "chunks", len(chunks))
	return &types.IngestResult{DocID: docID, DocName: displayName, TotalChunks: len(chunks)}, nil
}

// SubmitQuery schedules background processing and returns the job id.
func (s *RAGService) SubmitQuery(ctx context.Context, question string, topK int) (int64, error) {
	s.sessionMu.RLock()
	defer s.sessionMu.RUnlock()

	if topK <= 0 {
		topK = s.defaultTopK
	}
	return s.orch.Submit(ctx, question, topK)
}

// PollResult reports whether the job's answer is available yet.
func (s *RAGService) PollResult(id int64) types.JobStatus {
	s.sessionMu.RLock()
	defer s.sessionMu.RUnlock()

	return s.orch.Poll(id)
}

// ListDocuments derives the distinct documents from chunk metadata,
// first-ingested first.
func (s *RAGService) ListDocuments(ctx context.Context) ([]types.Document, error) {
	s.sessionMu.RLock()
	defer s.sessionMu.RUnlock()

	refs, err := s.vector.ListMetadata(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]struct{}, len(refs))
	docs := make([]types.Document, 0, len(refs))
	for _, ref := range refs {
		m := ref.Metadata
		if _, ok := seen[m.DocID]; ok {
			continue
		}
		seen[m.DocID] = struct{}{}
		docs = append(docs, types.Document{ID: m.DocID, Name: m.DocName})
	}
	return docs, nil
}

// DeleteDocument removes every chunk of the document. An unknown id is a
// no-op reported as zero deletions, not a failure.
func (s *RAGService) DeleteDocument(ctx context.Context, docID uuid.UUID) (int, error) {
	s.sessionMu.RLock()
	defer s.sessionMu.RUnlock()

	deleted, err := s.vector.DeleteByDocument(ctx, docID)
	if err != nil {
		return 0, err
	}
	s.logger.Infow("document deleted", "file_id", docID, "chunks", deleted)
	return deleted, nil
}

// ListHistory returns the full conversation in ascending entry order.
func (s *RAGService) ListHistory(ctx context.Context) ([]types.ChatEntry, error) {
	s.sessionMu.RLock()
	defer s.sessionMu.RUnlock()

	return s.ledger.ListAll(ctx)
}

// ResetSession clears the ledger, the vector index and the pending result
// slots under the session write lock.
func (s *RAGService) ResetSession(ctx context.Context) error {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	// Start the new session before emptying the stores so any job that
	// finishes from here on is already stale and cannot write into them.
	s.orch.clearResults()

	if err := s.ledger.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset conversation: %w", err)
	}
	if err := s.vector.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset index: %w", err)
	}

	s.logger.Info("session reset, all data cleared")
	return nil
}

// Close shuts the worker pool down, letting queued jobs finish.
func (s *RAGService) Close() {
	s.orch.Close()
}
