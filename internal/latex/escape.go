package latex

import (
	"regexp"
	"strings"
)

var unicodeNormalizer = strings.NewReplacer(
	"­", "", // soft hyphen
	"​", "", // zero-width space
	"‌", "",
	"‍", "",
	"\uFEFF", "",
	"‘", "'",
	"’", "'",
	"“", `"`,
	"”", `"`,
	"–", "--",
	"—", "---",
	"…", "...",
	" ", " ",
)

var specialEscaper = strings.NewReplacer(
	"&", `\&`,
	"%", `\%`,
	"#", `\#`,
	"_", `\_`,
	"{", `\{`,
	"}", `\}`,
	"~", `\textasciitilde{}`,
	"^", `\textasciicircum{}`,
)

var (
	boldRe   = regexp.MustCompile(`\*\*([^*\n]+?)\*\*`)
	italicRe = regexp.MustCompile(`\*([^*\n]+?)\*`)
	mathRe   = regexp.MustCompile(`\$[^$]+\$`)
)

// Escape normalizes problem Unicode and escapes LaTeX specials while leaving
// inline math ($...$) and \textbf/\textit spans produced earlier intact.
func Escape(text string) string {
	if text == "" {
		return ""
	}
	text = unicodeNormalizer.Replace(text)

	var math []string
	text = mathRe.ReplaceAllStringFunc(text, func(m string) string {
		math = append(math, m)
		return mathToken(len(math) - 1)
	})

	text = boldRe.ReplaceAllString(text, `\textbf{$1}`)
	text = italicRe.ReplaceAllString(text, `\textit{$1}`)

	var b strings.Builder
	for _, part := range splitKeepCommands(text) {
		if strings.HasPrefix(part, `\`) || strings.HasPrefix(part, "@@MATH") {
			b.WriteString(part)
			continue
		}
		b.WriteString(specialEscaper.Replace(part))
	}
	out := b.String()

	for i, m := range math {
		out = strings.Replace(out, mathToken(i), m, 1)
	}
	// Unpaired asterisks render as stray glyphs, drop them.
	return strings.ReplaceAll(out, "*", "")
}

func mathToken(i int) string {
	return "@@MATH" + strings.Repeat("I", i+1) + "@@"
}

var commandRe = regexp.MustCompile(`\\[a-zA-Z]+\{[^}]*\}|@@MATHI+@@`)

func splitKeepCommands(s string) []string {
	var parts []string
	last := 0
	for _, loc := range commandRe.FindAllStringIndex(s, -1) {
		if loc[0] > last {
			parts = append(parts, s[last:loc[0]])
		}
		parts = append(parts, s[loc[0]:loc[1]])
		last = loc[1]
	}
	if last < len(s) {
		parts = append(parts, s[last:])
	}
	return parts
}
