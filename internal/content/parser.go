package content

import (
	"regexp"
	"strings"
)

var (
	preambleRe   = regexp.MustCompile(`(?i)^(Here is the|Here's the|The following is)`)
	blankRunsRe  = regexp.MustCompile(`\n\s*\n\s*\n+`)
	anyNewlineRe = regexp.MustCompile(`\n+`)
)

// ParseBatch splits a multi-section model response back into per-section
// content using the "=== SECTION: <name> ===" markers the batch prompt asks
// for. Fragment headers are matched case-insensitively by substring
// containment against the expected names; unmatched fragments are dropped.
//
// A result with fewer entries than expected is not an error here; the caller
// decides how to handle the shortfall.
func ParseBatch(raw string, expected []string) map[string]string {
	sections := make(map[string]string, len(expected))

	parts := strings.Split(raw, SectionMarker)
	for _, part := range parts[1:] {
		lines := strings.Split(strings.TrimSpace(part), "\n")
		if len(lines) == 0 {
			continue
		}
		header := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(lines[0], "===", "")))

		matched := ""
		for _, want := range expected {
			if strings.Contains(header, strings.ToLower(want)) {
				matched = want
				break
			}
		}
		if matched == "" {
			continue
		}
		body := strings.TrimSpace(strings.Join(lines[1:], "\n"))
		sections[matched] = PostProcess(body, matched)
	}
	return sections
}

// PostProcess cleans one generated section: strips generic model preambles
// and a leading section-name echo, collapses runs of blank lines, and forces
// the Abstract into a single paragraph.
func PostProcess(text, section string) string {
	text = strings.TrimSpace(preambleRe.ReplaceAllString(text, ""))

	echoRe := regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(section) + `\s*:?\s*`)
	text = echoRe.ReplaceAllString(text, "")

	text = blankRunsRe.ReplaceAllString(text, "\n\n")
	text = strings.TrimSpace(text)

	if section == "Abstract" {
		text = anyNewlineRe.ReplaceAllString(text, " ")
		text = strings.TrimSpace(text)
	}
	return text
}
