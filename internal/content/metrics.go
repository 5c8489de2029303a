package content

import (
	"math"
	"strings"
)

// wordsPerPage is the rough IEEE two-column density used for page estimates.
const wordsPerPage = 250.0

// Metrics summarizes one generated section for progress reporting.
type Metrics struct {
	Words          int     `json:"words"`
	Characters     int     `json:"characters"`
	EstimatedPages float64 `json:"estimated_pages"`
}

// Estimate computes word, character, and page metrics for generated content.
// Pages are words/250 rounded to one decimal.
func Estimate(text string) Metrics {
	words := len(strings.Fields(text))
	return Metrics{
		Words:          words,
		Characters:     len(text),
		EstimatedPages: math.Round(float64(words)/wordsPerPage*10) / 10,
	}
}
