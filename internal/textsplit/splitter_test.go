package textsplit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitEmptyInput(t *testing.T) {
	require.Nil(t, Split("", 100, 20))
}

func TestSplitShortInputSingleChunk(t *testing.T) {
	chunks := Split("short text", 100, 20)
	require.Equal(t, []string{"short text"}, chunks)
}

func TestSplitCoverage(t *testing.T) {
	// Concatenating the non-overlapping cores must reconstruct the input.
	texts := []string{
		"one two three four five six seven eight nine ten",
		"para one.\n\npara two is a bit longer.\n\npara three ends it.",
		strings.Repeat("word ", 200),
		"averyveryverylongwordwithoutanyspacesatallthatmustbecuthard",
	}
	for _, text := range texts {
		size, overlap := 20, 5
		chunks := Split(text, size, overlap)
		var b strings.Builder
		for i, c := range chunks {
			if i == 0 {
				b.WriteString(c)
				continue
			}
			b.WriteString(c[overlap:])
		}
		require.Equal(t, text, b.String(), "input %q", text)
	}
}

func TestSplitSizeBound(t *testing.T) {
	text := strings.Repeat("alpha beta gamma delta. ", 50)
	for _, c := range Split(text, 80, 16) {
		require.LessOrEqual(t, len([]rune(c)), 80, "chunk %q", c)
	}
}

func TestSplitOverlapShared(t *testing.T) {
	text := strings.Repeat("lorem ipsum dolor sit amet ", 40)
	size, overlap := 60, 12
	chunks := Split(text, size, overlap)
	require.Greater(t, len(chunks), 2)
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1])
		tail := string(prev[len(prev)-overlap:])
		require.True(t, strings.HasPrefix(chunks[i], tail),
			"chunk %d does not start with the previous chunk's tail", i)
	}
}

func TestSplitPrefersParagraphBoundaries(t *testing.T) {
	text := "first paragraph here.\n\nsecond paragraph here.\n\nthird paragraph here."
	chunks := Split(text, 30, 0)
	require.Equal(t, []string{
		"first paragraph here.\n\n",
		"second paragraph here.\n\n",
		"third paragraph here.",
	}, chunks)
}

func TestSplitLongWordHardCut(t *testing.T) {
	text := strings.Repeat("x", 95)
	chunks := Split(text, 30, 0)
	require.Len(t, chunks, 4)
	require.Equal(t, strings.Repeat("x", 5), chunks[3])
}

func TestSplitClampsBadOverlap(t *testing.T) {
	// overlap >= size is a misconfiguration; the splitter degrades to no overlap.
	text := strings.Repeat("a b c d e ", 20)
	chunks := Split(text, 10, 10)
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c)
	}
	require.Equal(t, text, b.String())
}
