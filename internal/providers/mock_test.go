package providers

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"paperforge/internal/content"
)

func TestMockEmbedDeterministicAndDimensioned(t *testing.T) {
	m := NewMockProvider(768)
	a, _, err := m.Embed(context.Background(), EmbedRequest{Inputs: []string{"alpha", "beta"}, Dimension: 32})
	require.NoError(t, err)
	require.Len(t, a, 2)
	require.Len(t, a[0], 32)

	b, _, err := m.Embed(context.Background(), EmbedRequest{Inputs: []string{"alpha"}, Dimension: 32})
	require.NoError(t, err)
	require.Equal(t, a[0], b[0])

	var sum float64
	for _, x := range a[0] {
		sum += float64(x) * float64(x)
	}
	require.InDelta(t, 1.0, sum, 1e-4)
}

func TestMockGenerateBatchEmitsMarkers(t *testing.T) {
	m := NewMockProvider(768)
	prompt := content.BuildBatchPrompt([]string{"Abstract", "Introduction"}, content.PaperInfo{Title: "T", Domain: "D"}, "ctx")
	resp, _, err := m.Generate(context.Background(), GenerateRequest{Prompt: prompt})
	require.NoError(t, err)

	parsed := content.ParseBatch(resp.Text, []string{"Abstract", "Introduction"})
	require.Len(t, parsed, 2)
	require.NotEmpty(t, parsed["Abstract"])
	require.NotEmpty(t, parsed["Introduction"])
}

func TestMockGenerateSingleSection(t *testing.T) {
	m := NewMockProvider(768)
	prompt := content.BuildSectionPrompt("Methodology", content.PaperInfo{Title: "T", Domain: "D"}, "")
	resp, _, err := m.Generate(context.Background(), GenerateRequest{Prompt: prompt})
	require.NoError(t, err)
	require.True(t, strings.Contains(resp.Text, "Methodology"))
}
