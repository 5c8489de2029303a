package content

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEstimateMetrics(t *testing.T) {
	m := Estimate("one two   three\nfour")
	require.Equal(t, 4, m.Words)
	require.InDelta(t, 0.0, m.EstimatedPages, 1e-9)

	m = Estimate(words(500))
	require.Equal(t, 500, m.Words)
	require.InDelta(t, 2.0, m.EstimatedPages, 1e-9)

	// 280 words -> 1.12 pages -> 1.1 after one-decimal rounding.
	m = Estimate(words(280))
	require.InDelta(t, 1.1, m.EstimatedPages, 1e-9)
}

func TestEstimateEmpty(t *testing.T) {
	m := Estimate("")
	require.Zero(t, m.Words)
	require.Zero(t, m.EstimatedPages)
}

func words(n int) string {
	out := make([]byte, 0, n*2)
	for i := 0; i < n; i++ {
		out = append(out, 'w', ' ')
	}
	return string(out)
}
