package activities

import "paperforge/internal/models"

type GetPaperInput struct {
	PaperID string `json:"paper_id"`
}

type GetPaperOutput struct {
	Paper models.Paper `json:"paper"`
}

type ListSectionNamesInput struct {
	PaperID string `json:"paper_id"`
}

type ListSectionNamesOutput struct {
	Names []string `json:"names"`
}

type EmbedQueryInput struct {
	Operation string `json:"operation"`
	Text      string `json:"text"`
}

type EmbedQueryOutput struct {
	Vector       []float32 `json:"vector"`
	ProviderName string    `json:"provider_name"`
	Model        string    `json:"model"`
}

type MatchChunksInput struct {
	PaperID   string    `json:"paper_id"`
	QueryVec  []float32 `json:"query_vec"`
	TopK      int       `json:"top_k"`
	Threshold float64   `json:"threshold"`
}

type MatchChunksOutput struct {
	Matches []models.ChunkMatch `json:"matches"`
	Context string              `json:"context"`
}

type GenerateSectionInput struct {
	PaperID     string   `json:"paper_id"`
	SectionName string   `json:"section_name"`
	Title       string   `json:"title"`
	Domain      string   `json:"domain"`
	Authors     []string `json:"authors"`
	Keywords    []string `json:"keywords"`
	Context     string   `json:"context"`
}

type GenerateSectionOutput struct {
	Content      string `json:"content"`
	ProviderName string `json:"provider_name"`
	Model        string `json:"model"`
}

type GenerateBatchInput struct {
	PaperID      string   `json:"paper_id"`
	SectionNames []string `json:"section_names"`
	Title        string   `json:"title"`
	Domain       string   `json:"domain"`
	Authors      []string `json:"authors"`
	Keywords     []string `json:"keywords"`
	Context      string   `json:"context"`
}

type GenerateBatchOutput struct {
	Sections     map[string]string `json:"sections"`
	ProviderName string            `json:"provider_name"`
	Model        string            `json:"model"`
}

type SaveSectionInput struct {
	PaperID     string `json:"paper_id"`
	SectionName string `json:"section_name"`
	Content     string `json:"content"`
	OrderIndex  int    `json:"order_index"`
	Model       string `json:"model,omitempty"`
}

type SaveSectionOutput struct {
	SectionID string  `json:"section_id"`
	Words     int     `json:"words"`
	Pages     float64 `json:"pages"`
}

type UpdatePaperStatusInput struct {
	PaperID  string         `json:"paper_id"`
	Status   string         `json:"status"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type TestConnectionInput struct{}

type LogLLMCallInput struct {
	Operation    string `json:"operation"`
	PaperID      string `json:"paper_id,omitempty"`
	SectionName  string `json:"section_name,omitempty"`
	ProviderName string `json:"provider_name"`
	Model        string `json:"model,omitempty"`
	Attempts     int    `json:"attempts,omitempty"`
	Status       string `json:"status"`
	ErrorType    string `json:"error_type,omitempty"`
}
