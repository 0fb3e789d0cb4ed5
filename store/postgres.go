package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"ragserver/types"
)

// PostgresVectorStore persists chunks in a pgvector table. The seq column
// records insertion order and breaks cosine ties.
type PostgresVectorStore struct {
	pool      *pgxpool.Pool
	dimension int
}

func NewPostgresVectorStore(ctx context.Context, connStr string, dimension int) (*PostgresVectorStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	s := &PostgresVectorStore{pool: pool, dimension: dimension}
	if err := s.createTables(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresVectorStore) createTables(ctx context.Context) error {
	query := fmt.Sprintf(`
    CREATE EXTENSION IF NOT EXISTS vector;

    CREATE TABLE IF NOT EXISTS chunks (
        seq BIGSERIAL,
        id UUID PRIMARY KEY,
        doc_id UUID NOT NULL,
        doc_name TEXT NOT NULL,
        chunk_index INT NOT NULL,
        content TEXT NOT NULL,
        embedding vector(%d) NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_chunks_embedding ON chunks USING ivfflat (embedding vector_cosine_ops)
    WITH (lists = 100);

    CREATE INDEX IF NOT EXISTS idx_chunks_doc_id ON chunks(doc_id);
    `, s.dimension)
	_, err := s.pool.Exec(ctx, query)
	return err
}

func (s *PostgresVectorStore) Add(ctx context.Context, ids []uuid.UUID, texts []string, vectors [][]float32, metadatas []types.ChunkMetadata) error {
	if len(ids) != len(texts) || len(ids) != len(vectors) || len(ids) != len(metadatas) {
		return fmt.Errorf("parallel slice length mismatch: ids=%d texts=%d vectors=%d metadatas=%d",
			len(ids), len(texts), len(vectors), len(metadatas))
	}
	for _, v := range vectors {
		if len(v) != s.dimension {
			return &types.DimensionMismatchError{Want: s.dimension, Got: len(v)}
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
    INSERT INTO chunks (id, doc_id, doc_name, chunk_index, content, embedding)
    VALUES ($1, $2, $3, $4, $5, $6)
    `
	for i := range ids {
		_, err := tx.Exec(ctx, query,
			ids[i], metadatas[i].DocID, metadatas[i].DocName, metadatas[i].ChunkIndex,
			texts[i], pgvector.NewVector(vectors[i]),
		)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", i, err)
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresVectorStore) Search(ctx context.Context, vector []float32, topK int) ([]types.SearchHit, error) {
	if topK <= 0 {
		return nil, nil
	}

	query := `
    SELECT content, doc_id, doc_name, chunk_index,
           1 - (embedding <=> $1) AS score
    FROM chunks
    ORDER BY embedding <=> $1 ASC, seq ASC
    LIMIT $2
    `
	rows, err := s.pool.Query(ctx, query, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []types.SearchHit
	for rows.Next() {
		var hit types.SearchHit
		if err := rows.Scan(&hit.Content, &hit.Metadata.DocID, &hit.Metadata.DocName, &hit.Metadata.ChunkIndex, &hit.Score); err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

func (s *PostgresVectorStore) ListMetadata(ctx context.Context) ([]types.ChunkRef, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, doc_id, doc_name, chunk_index FROM chunks ORDER BY seq")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []types.ChunkRef
	for rows.Next() {
		var ref types.ChunkRef
		if err := rows.Scan(&ref.ID, &ref.Metadata.DocID, &ref.Metadata.DocName, &ref.Metadata.ChunkIndex); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func (s *PostgresVectorStore) DeleteByDocument(ctx context.Context, docID uuid.UUID) (int, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM chunks WHERE doc_id = $1", docID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresVectorStore) Reset(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "TRUNCATE chunks")
	return err
}

// Close closes the connection pool.
func (s *PostgresVectorStore) Close() {
	s.pool.Close()
}
