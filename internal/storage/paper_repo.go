package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"paperforge/internal/models"
)

var ErrNotFound = errors.New("not found")

type PaperRepo struct {
	db   *DB
	caps Capabilities
}

func NewPaperRepo(db *DB, caps Capabilities) *PaperRepo {
	return &PaperRepo{db: db, caps: caps}
}

func (r *PaperRepo) CreatePaper(ctx context.Context, p models.Paper) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO papers (paper_id, title, domain, authors, affiliations, keywords, status)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.PaperID, p.Title, p.Domain, p.Authors, p.Affiliations, p.Keywords, p.Status,
	)
	if err != nil {
		return fmt.Errorf("create paper: %w", err)
	}
	return nil
}

const paperColumns = `paper_id, COALESCE(title,''), COALESCE(domain,''),
       COALESCE(authors,'{}'), COALESCE(affiliations,'{}'), COALESCE(keywords,'{}'),
       status, created_at, updated_at`

func (r *PaperRepo) GetPaper(ctx context.Context, paperID string) (models.Paper, error) {
	var p models.Paper
	err := r.db.Pool.QueryRow(ctx,
		`SELECT `+paperColumns+` FROM papers WHERE paper_id=$1`, paperID).
		Scan(&p.PaperID, &p.Title, &p.Domain, &p.Authors, &p.Affiliations, &p.Keywords,
			&p.Status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Paper{}, fmt.Errorf("get paper %s: %w", paperID, ErrNotFound)
	}
	if err != nil {
		return models.Paper{}, fmt.Errorf("get paper: %w", err)
	}
	if r.caps.PaperMetadata {
		var raw []byte
		if err := r.db.Pool.QueryRow(ctx,
			`SELECT COALESCE(metadata,'{}'::jsonb) FROM papers WHERE paper_id=$1`, paperID).Scan(&raw); err == nil {
			_ = json.Unmarshal(raw, &p.Metadata)
		}
	}
	return p, nil
}

func (r *PaperRepo) ListPapers(ctx context.Context) ([]models.Paper, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+paperColumns+` FROM papers ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list papers: %w", err)
	}
	defer rows.Close()

	out := make([]models.Paper, 0)
	for rows.Next() {
		var p models.Paper
		if err := rows.Scan(&p.PaperID, &p.Title, &p.Domain, &p.Authors, &p.Affiliations, &p.Keywords,
			&p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan paper: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate papers: %w", err)
	}
	return out, nil
}

func (r *PaperRepo) UpdateStatus(ctx context.Context, paperID, status string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE papers SET status=$2, updated_at=NOW() WHERE paper_id=$1`, paperID, status)
	if err != nil {
		return fmt.Errorf("update paper status: %w", err)
	}
	return nil
}

// UpdateStatusWithMetadata writes the status plus a metadata merge. Without
// the metadata column only the status is written.
func (r *PaperRepo) UpdateStatusWithMetadata(ctx context.Context, paperID, status string, metadata map[string]any) error {
	if !r.caps.PaperMetadata || len(metadata) == 0 {
		return r.UpdateStatus(ctx, paperID, status)
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encode paper metadata: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx, `
UPDATE papers
SET status=$2, metadata=COALESCE(metadata,'{}'::jsonb) || $3::jsonb, updated_at=NOW()
WHERE paper_id=$1`, paperID, status, raw)
	if err != nil {
		return fmt.Errorf("update paper status with metadata: %w", err)
	}
	return nil
}
