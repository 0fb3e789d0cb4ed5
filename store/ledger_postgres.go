package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ragserver/types"
)

// PostgresLedger stores conversation turns in a table whose BIGSERIAL id
// gives atomic, strictly increasing entry ids.
type PostgresLedger struct {
	pool *pgxpool.Pool
}

func NewPostgresLedger(ctx context.Context, connStr string) (*PostgresLedger, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	l := &PostgresLedger{pool: pool}
	if err := l.createTables(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return l, nil
}

func (l *PostgresLedger) createTables(ctx context.Context) error {
	query := `
    CREATE TABLE IF NOT EXISTS chat_entries (
        id BIGSERIAL PRIMARY KEY,
        role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
        message TEXT NOT NULL,
        created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
    );
    `
	_, err := l.pool.Exec(ctx, query)
	return err
}

func (l *PostgresLedger) Append(ctx context.Context, text, role string) (int64, error) {
	var id int64
	err := l.pool.QueryRow(ctx,
		"INSERT INTO chat_entries (role, message) VALUES ($1, $2) RETURNING id",
		role, text,
	).Scan(&id)
	return id, err
}

func (l *PostgresLedger) Get(ctx context.Context, id int64) (*types.ChatEntry, error) {
	entry := &types.ChatEntry{}
	err := l.pool.QueryRow(ctx,
		"SELECT id, role, message FROM chat_entries WHERE id = $1", id,
	).Scan(&entry.ID, &entry.Role, &entry.Text)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (l *PostgresLedger) ListAll(ctx context.Context) ([]types.ChatEntry, error) {
	rows, err := l.pool.Query(ctx, "SELECT id, role, message FROM chat_entries ORDER BY id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []types.ChatEntry
	for rows.Next() {
		var e types.ChatEntry
		if err := rows.Scan(&e.ID, &e.Role, &e.Text); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (l *PostgresLedger) Reset(ctx context.Context) error {
	_, err := l.pool.Exec(ctx, "TRUNCATE chat_entries RESTART IDENTITY")
	return err
}

// Close closes the connection pool.
func (l *PostgresLedger) Close() {
	l.pool.Close()
}
