package storage

import (
	"context"
	"fmt"

	"paperforge/internal/models"
)

type DocumentRepo struct {
	db *DB
}

func NewDocumentRepo(db *DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) InsertDocument(ctx context.Context, d models.Document) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO documents (document_id, paper_id, filename, file_size, file_type)
VALUES ($1, $2, $3, $4, $5)`,
		d.DocumentID, d.PaperID, d.Filename, d.FileSize, d.FileType)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepo) ListDocumentsByPaper(ctx context.Context, paperID string) ([]models.Document, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT document_id, paper_id, filename, file_size, file_type, created_at
FROM documents
WHERE paper_id=$1
ORDER BY created_at ASC`, paperID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()
	out := make([]models.Document, 0)
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.DocumentID, &d.PaperID, &d.Filename, &d.FileSize, &d.FileType, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}
