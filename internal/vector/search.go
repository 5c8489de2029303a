package vector

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"paperforge/internal/models"
)

type Searcher struct {
	q Queryer
}

type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func NewSearcher(q Queryer) *Searcher {
	return &Searcher{q: q}
}

// MatchChunks runs cosine similarity search over one paper's chunks. Scores
// are 1 - cosine distance; rows below threshold are filtered in SQL so topK
// bounds the rows returned, not the rows scored.
func (s *Searcher) MatchChunks(ctx context.Context, queryVec []float32, paperID string, topK int, threshold float64) ([]models.ChunkMatch, error) {
	if topK <= 0 {
		topK = 5
	}
	vec := pgvector.NewVector(queryVec)

	rows, err := s.q.Query(ctx, `
SELECT chunk_id,
       content,
       1 - (embedding <=> $1) AS score
FROM chunks
WHERE paper_id = $2
  AND embedding IS NOT NULL
  AND 1 - (embedding <=> $1) >= $3
ORDER BY embedding <=> $1
LIMIT $4`, vec, paperID, threshold, topK)
	if err != nil {
		return nil, fmt.Errorf("query chunk matches: %w", err)
	}
	defer rows.Close()

	results := make([]models.ChunkMatch, 0, topK)
	for rows.Next() {
		var m models.ChunkMatch
		if err := rows.Scan(&m.ChunkID, &m.Content, &m.Score); err != nil {
			return nil, fmt.Errorf("scan chunk match: %w", err)
		}
		results = append(results, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunk matches: %w", err)
	}
	return results, nil
}

// ContextBlock joins matched chunks into the prompt context block, separated
// by blank lines, in score order.
func ContextBlock(matches []models.ChunkMatch) string {
	if len(matches) == 0 {
		return ""
	}
	out := make([]byte, 0, 1024)
	for i, m := range matches {
		if i > 0 {
			out = append(out, "\n\n"...)
		}
		out = append(out, m.Content...)
	}
	return string(out)
}
