package workflows

type GenerateInput struct {
	PaperID       string  `json:"paper_id"`
	BatchSize     int     `json:"batch_size,omitempty"`
	PacingSeconds int     `json:"pacing_seconds,omitempty"`
	TopK          int     `json:"top_k,omitempty"`
	Threshold     float64 `json:"threshold,omitempty"`
}

type GenerateProgress struct {
	PaperID      string   `json:"paper_id"`
	Status       string   `json:"status"`
	CurrentBatch int      `json:"current_batch"`
	TotalBatches int      `json:"total_batches"`
	Completed    []string `json:"completed_sections"`
	Failed       []string `json:"failed_sections"`
}

type GenerateResult struct {
	PaperID           string   `json:"paper_id"`
	Status            string   `json:"status"`
	SectionsGenerated int      `json:"sections_generated"`
	SectionsFailed    int      `json:"sections_failed"`
	FailedSections    []string `json:"failed_sections,omitempty"`
	TotalWords        int      `json:"total_words"`
	EstimatedPages    float64  `json:"estimated_pages"`
}
