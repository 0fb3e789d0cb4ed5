package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"ragserver/app/agent"
	"ragserver/model"
	"ragserver/store"
	"ragserver/types"
)

// MsgLLMUnavailable is appended to the conversation when the generation
// stage fails; MsgQueryFailed when embedding or retrieval fails. The
// failure is never raised past the background worker.
const (
	MsgLLMUnavailable = "⚠️ LLM service is currently unavailable. Please try again later."
	MsgQueryFailed    = "❌ An error occurred while processing your query."
)

type job struct {
	id       int64
	question string
	topK     int
	session  int64
}

// Orchestrator accepts a question, records it in the ledger, and runs the
// remaining stages (embed, search, generate, append) on a bounded worker
// pool. The eventual answer lives in a result slot keyed by the job id,
// so ledger entries of concurrent jobs may interleave freely.
type Orchestrator struct {
	ledger    store.ChatLedger
	vector    store.VectorStorer
	embedder  model.EmbedderInterface
	generator agent.Generator
	logger    *zap.SugaredLogger

	queue chan job
	wg    sync.WaitGroup

	// sendMu orders enqueues against Close so a Submit can never send on
	// the closed queue.
	sendMu sync.RWMutex
	closed bool

	mu      sync.RWMutex
	session int64
	results map[int64]string
}

func NewOrchestrator(
	ledger store.ChatLedger,
	vector store.VectorStorer,
	embedder model.EmbedderInterface,
	generator agent.Generator,
	workers, queueSize int,
	logger *zap.SugaredLogger,
) *Orchestrator {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 64
	}

	o := &Orchestrator{
		ledger:    ledger,
		vector:    vector,
		embedder:  embedder,
		generator: generator,
		logger:    logger,
		queue:     make(chan job, queueSize),
		results:   make(map[int64]string),
	}

	o.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go o.worker()
	}
	return o
}

// Submit appends the user entry, schedules the background stages, and
// returns the entry id as the job id without waiting for them. When the
// queue is full, Submit blocks until a worker frees a slot; if the
// caller's context expires first the job is failed in place, keeping the
// ledger's user/assistant pairing intact.
func (o *Orchestrator) Submit(ctx context.Context, question string, topK int) (int64, error) {
	if topK <= 0 {
		topK = 5
	}

	o.sendMu.RLock()
	defer o.sendMu.RUnlock()
	if o.closed {
		return 0, fmt.Errorf("orchestrator is shut down")
	}

	id, err := o.ledger.Append(ctx, question, types.RoleUser)
	if err != nil {
		return 0, fmt.Errorf("failed to record question: %w", err)
	}

	o.mu.RLock()
	session := o.session
	o.mu.RUnlock()

	j := job{id: id, question: question, topK: topK, session: session}
	select {
	case o.queue <- j:
	case <-ctx.Done():
		// The user entry is already in the ledger; close it out so the
		// conversation stays consistent and the id stays pollable.
		o.fail(context.Background(), j, MsgQueryFailed, fmt.Errorf("query was never scheduled: %w", ctx.Err()))
		return 0, ctx.Err()
	}

	o.logger.Infow("query scheduled", "job_id", id)
	return id, nil
}

// Poll reports the job's state. An id with no filled slot is processing,
// including ids this process never issued.
func (o *Orchestrator) Poll(id int64) types.JobStatus {
	o.mu.RLock()
	answer, ok := o.results[id]
	o.mu.RUnlock()

	if !ok {
		return types.JobStatus{Status: types.JobProcessing}
	}
	return types.JobStatus{Status: types.JobDone, Answer: answer}
}

// Close stops accepting jobs and waits for queued ones to finish.
func (o *Orchestrator) Close() {
	o.sendMu.Lock()
	if o.closed {
		o.sendMu.Unlock()
		return
	}
	o.closed = true
	o.sendMu.Unlock()

	close(o.queue)
	o.wg.Wait()
}

func (o *Orchestrator) worker() {
	defer o.wg.Done()
	for j := range o.queue {
		o.process(j)
	}
}

// process runs one job's stages strictly in order. Scheduled jobs have no
// cancellation path; an abandoned result stays pollable.
func (o *Orchestrator) process(j job) {
	ctx := context.Background()

	vectors, err := o.embedder.EmbedBatch(ctx, []string{j.question})
	if err != nil {
		o.fail(ctx, j, MsgQueryFailed, fmt.Errorf("embed question: %w", err))
		return
	}
	if len(vectors) != 1 {
		o.fail(ctx, j, MsgQueryFailed, fmt.Errorf("embedder returned %d vectors for one question", len(vectors)))
		return
	}

	hits, err := o.vector.Search(ctx, vectors[0], j.topK)
	if err != nil {
		o.fail(ctx, j, MsgQueryFailed, fmt.Errorf("search index: %w", err))
		return
	}

	contextTexts := make([]string, len(hits))
	for i, hit := range hits {
		contextTexts[i] = hit.Content
	}

	answer, err := o.generator.GenerateAnswer(ctx, j.question, contextTexts)
	if err != nil {
		o.fail(ctx, j, MsgLLMUnavailable, err)
		return
	}

	o.complete(ctx, j, answer)
	o.logger.Infow("query completed", "job_id", j.id, "context_chunks", len(hits))
}

func (o *Orchestrator) fail(ctx context.Context, j job, message string, cause error) {
	o.logger.Errorw("query failed", "job_id", j.id, "error", cause)
	o.complete(ctx, j, message)
}

// complete appends the assistant entry and fills the result slot; filling
// the slot is what makes the job observably done. A job outlived by a
// session reset is discarded whole: nothing is appended to the fresh
// ledger and its old id keeps reading as processing.
func (o *Orchestrator) complete(ctx context.Context, j job, text string) {
	o.mu.RLock()
	stale := j.session != o.session
	o.mu.RUnlock()
	if stale {
		o.logger.Infow("discarding result of job from a previous session", "job_id", j.id)
		return
	}

	if _, err := o.ledger.Append(ctx, text, types.RoleAssistant); err != nil {
		o.logger.Errorw("failed to record answer", "job_id", j.id, "error", err)
	}

	o.mu.Lock()
	if j.session == o.session {
		o.results[j.id] = text
	}
	o.mu.Unlock()
}

// clearResults starts a new session: every result slot is dropped and
// in-flight jobs of the old session are invalidated.
func (o *Orchestrator) clearResults() {
	o.mu.Lock()
	o.session++
	o.results = make(map[int64]string)
	o.mu.Unlock()
}
