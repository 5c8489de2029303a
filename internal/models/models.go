package models

import "time"

// Paper statuses as written by the generation workflow. Batch progress uses
// the "generating_batch_N" form, so Status is matched by prefix where needed.
const (
	StatusDraft      = "draft"
	StatusGenerating = "generating"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

type Paper struct {
	PaperID      string         `json:"paper_id"`
	Title        string         `json:"title"`
	Domain       string         `json:"domain"`
	Authors      []string       `json:"authors"`
	Affiliations []string       `json:"affiliations"`
	Keywords     []string       `json:"keywords"`
	Status       string         `json:"status"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type Document struct {
	DocumentID string    `json:"document_id"`
	PaperID    string    `json:"paper_id"`
	Filename   string    `json:"filename"`
	FileSize   int64     `json:"file_size"`
	FileType   string    `json:"file_type"`
	CreatedAt  time.Time `json:"created_at"`
}

type Chunk struct {
	ChunkID    string         `json:"chunk_id"`
	DocumentID string         `json:"document_id"`
	PaperID    string         `json:"paper_id"`
	ChunkIndex int            `json:"chunk_index"`
	Content    string         `json:"content"`
	Source     map[string]any `json:"source,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

type Section struct {
	SectionID   string         `json:"section_id"`
	PaperID     string         `json:"paper_id"`
	SectionName string         `json:"section_name"`
	Content     string         `json:"content"`
	OrderIndex  int            `json:"order_index"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ChunkMatch is one similarity-search hit, scoped to a single paper.
type ChunkMatch struct {
	ChunkID string  `json:"chunk_id"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}
