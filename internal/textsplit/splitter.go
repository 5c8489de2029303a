// Package textsplit turns extracted document text into retrieval-sized chunks.
//
// The splitter prefers the coarsest boundary that fits: paragraph, then line,
// then sentence, then word, then a raw rune cut. Adjacent chunks share the
// configured overlap so retrieval keeps context across cut points.
package textsplit

import "strings"

const DefaultChunkSize = 1000

// separators from coarsest to finest. The empty separator means a raw cut.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// Split chunks text into pieces of at most size runes, with each chunk after
// the first repeating the last overlap runes of its predecessor.
//
// overlap >= size is a caller misconfiguration and is clamped to no overlap,
// matching how other knob guards in this codebase behave.
func Split(text string, size, overlap int) []string {
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	// Units are packed into a budget of size-overlap so that prepending the
	// overlap tail never pushes a chunk past size.
	limit := size - overlap
	units := splitByBoundary(text, limit, separators)
	cores := packUnits(units, limit)

	chunks := make([]string, 0, len(cores))
	for i, core := range cores {
		if i == 0 || overlap == 0 {
			chunks = append(chunks, core)
			continue
		}
		prev := []rune(chunks[i-1])
		tail := string(prev[len(prev)-min(overlap, len(prev)):])
		chunks = append(chunks, tail+core)
	}
	return chunks
}

// splitByBoundary cuts text into units of at most limit runes, recursing into
// finer separators only when a single unit is still too large.
func splitByBoundary(text string, limit int, seps []string) []string {
	if len([]rune(text)) <= limit {
		return []string{text}
	}

	sep := ""
	rest := []string(nil)
	for i, s := range seps {
		if s == "" {
			break
		}
		if strings.Contains(text, s) {
			sep = s
			rest = seps[i+1:]
			break
		}
	}
	if sep == "" {
		return hardCut(text, limit)
	}

	out := make([]string, 0, 8)
	for _, piece := range splitKeep(text, sep) {
		if len([]rune(piece)) <= limit {
			out = append(out, piece)
			continue
		}
		out = append(out, splitByBoundary(piece, limit, rest)...)
	}
	return out
}

// splitKeep splits on sep but keeps the separator attached to the preceding
// piece, so concatenating the pieces reconstructs the input exactly.
func splitKeep(text, sep string) []string {
	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	for i, p := range parts {
		if i < len(parts)-1 {
			p += sep
		}
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func hardCut(text string, limit int) []string {
	runes := []rune(text)
	out := make([]string, 0, len(runes)/limit+1)
	for i := 0; i < len(runes); i += limit {
		end := i + limit
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[i:end]))
	}
	return out
}

// packUnits greedily merges consecutive units into windows of at most limit
// runes, so chunk boundaries land on the coarsest boundary available.
func packUnits(units []string, limit int) []string {
	out := make([]string, 0, len(units))
	var b strings.Builder
	length := 0
	for _, u := range units {
		n := len([]rune(u))
		if length > 0 && length+n > limit {
			out = append(out, b.String())
			b.Reset()
			length = 0
		}
		b.WriteString(u)
		length += n
	}
	if length > 0 {
		out = append(out, b.String())
	}
	return out
}
