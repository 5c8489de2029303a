package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"paperforge/internal/models"
)

type SectionRepo struct {
	db   *DB
	caps Capabilities
}

func NewSectionRepo(db *DB, caps Capabilities) *SectionRepo {
	return &SectionRepo{db: db, caps: caps}
}

// InsertSection appends a new row per generation; regenerating a section adds
// a newer row rather than overwriting, and reads resolve to the latest row
// per name. Metadata is dropped when the column is absent.
func (r *SectionRepo) InsertSection(ctx context.Context, s models.Section) error {
	if r.caps.SectionMetadata {
		raw, err := json.Marshal(s.Metadata)
		if err != nil {
			return fmt.Errorf("encode section metadata: %w", err)
		}
		_, err = r.db.Pool.Exec(ctx, `
INSERT INTO sections (section_id, paper_id, section_name, content, order_index, metadata)
VALUES ($1, $2, $3, $4, $5, $6::jsonb)`,
			s.SectionID, s.PaperID, s.SectionName, s.Content, s.OrderIndex, raw)
		if err != nil {
			return fmt.Errorf("insert section: %w", err)
		}
		return nil
	}
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO sections (section_id, paper_id, section_name, content, order_index)
VALUES ($1, $2, $3, $4, $5)`,
		s.SectionID, s.PaperID, s.SectionName, s.Content, s.OrderIndex)
	if err != nil {
		return fmt.Errorf("insert section: %w", err)
	}
	return nil
}

// ListSections returns the latest row per section name in paper order.
func (r *SectionRepo) ListSections(ctx context.Context, paperID string) ([]models.Section, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT DISTINCT ON (section_name)
       section_id, paper_id, section_name, content, order_index, created_at
FROM sections
WHERE paper_id=$1
ORDER BY section_name, created_at DESC`, paperID)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	defer rows.Close()
	out := make([]models.Section, 0, 12)
	for rows.Next() {
		var s models.Section
		if err := rows.Scan(&s.SectionID, &s.PaperID, &s.SectionName, &s.Content, &s.OrderIndex, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sections: %w", err)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (r *SectionRepo) ListSectionNames(ctx context.Context, paperID string) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT DISTINCT section_name FROM sections WHERE paper_id=$1`, paperID)
	if err != nil {
		return nil, fmt.Errorf("list section names: %w", err)
	}
	defer rows.Close()
	out := make([]string, 0, 12)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan section name: %w", err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate section names: %w", err)
	}
	return out, nil
}
