package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"paperforge/internal/models"
)

// ChunkRecord is one chunk ready for insertion, embedding included.
type ChunkRecord struct {
	ChunkID    string
	DocumentID string
	PaperID    string
	ChunkIndex int
	Content    string
	Source     map[string]any
	Embedding  []float32
}

type ChunkRepo struct {
	db *DB
}

func NewChunkRepo(db *DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

func (r *ChunkRepo) InsertChunks(ctx context.Context, chunks []ChunkRecord) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx insert chunks: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for _, c := range chunks {
		source, err := json.Marshal(c.Source)
		if err != nil {
			return fmt.Errorf("encode chunk source: %w", err)
		}
		_, err = tx.Exec(ctx, `
INSERT INTO chunks (chunk_id, document_id, paper_id, chunk_index, content, source, embedding)
VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)`,
			c.ChunkID, c.DocumentID, c.PaperID, c.ChunkIndex, c.Content, source, pgvector.NewVector(c.Embedding),
		)
		if err != nil {
			return fmt.Errorf("insert chunk %s: %w", c.ChunkID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit chunks tx: %w", err)
	}
	return nil
}

func (r *ChunkRepo) ListChunksByPaper(ctx context.Context, paperID string) ([]models.Chunk, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT chunk_id, document_id, paper_id, chunk_index, content, COALESCE(source,'{}'::jsonb), created_at
FROM chunks
WHERE paper_id=$1
ORDER BY document_id, chunk_index ASC`, paperID)
	if err != nil {
		return nil, fmt.Errorf("list chunks by paper: %w", err)
	}
	defer rows.Close()
	out := make([]models.Chunk, 0, 64)
	for rows.Next() {
		var c models.Chunk
		var source []byte
		if err := rows.Scan(&c.ChunkID, &c.DocumentID, &c.PaperID, &c.ChunkIndex, &c.Content, &source, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chunk by paper: %w", err)
		}
		_ = json.Unmarshal(source, &c.Source)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks by paper: %w", err)
	}
	return out, nil
}

func (r *ChunkRepo) CountChunksByPaper(ctx context.Context, paperID string) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM chunks WHERE paper_id=$1`, paperID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}
