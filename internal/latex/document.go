package latex

import (
	"fmt"
	"regexp"
	"strings"

	"paperforge/internal/models"
)

const documentTemplate = `\documentclass[conference,10pt]{IEEEtran}
\IEEEoverridecommandlockouts

\usepackage{cite}
\usepackage{amsmath,amssymb,amsfonts}
\usepackage{algorithmic}
\usepackage{graphicx}
\usepackage{textcomp}
\usepackage{xcolor}
\usepackage{balance}

\sloppy
\hyphenpenalty=5000
\tolerance=1000

\title{<<TITLE>>}

<<AUTHORS>>

\begin{document}
\maketitle

<<ABSTRACT>>

<<KEYWORDS>>

<<SECTIONS>>

<<REFERENCES>>

\balance

\end{document}
`

// Render produces a compilable IEEE conference document from a paper and its
// generated sections. The Abstract section feeds the abstract environment;
// every other section becomes a numbered \section in stored order.
func Render(paper models.Paper, sections []models.Section) string {
	return RenderWithReferences(paper, sections, "")
}

// RenderWithReferences is Render with a caller-supplied reference list, one
// entry per line. An empty or unusable list falls back to seeded placeholders.
func RenderWithReferences(paper models.Paper, sections []models.Section, references string) string {
	doc := documentTemplate
	doc = strings.Replace(doc, "<<TITLE>>", Escape(paper.Title), 1)
	doc = strings.Replace(doc, "<<AUTHORS>>", authorsBlock(paper.Authors, paper.Affiliations), 1)

	abstract := ""
	body := make([]models.Section, 0, len(sections))
	for _, s := range sections {
		if strings.EqualFold(s.SectionName, "Abstract") {
			abstract = s.Content
			continue
		}
		body = append(body, s)
	}

	if abstract != "" {
		doc = strings.Replace(doc, "<<ABSTRACT>>",
			"\\begin{abstract}\n"+Escape(abstract)+"\n\\end{abstract}", 1)
	} else {
		doc = strings.Replace(doc, "<<ABSTRACT>>", "", 1)
	}

	if len(paper.Keywords) > 0 {
		kws := make([]string, 0, len(paper.Keywords))
		for _, k := range paper.Keywords {
			kws = append(kws, Escape(k))
		}
		doc = strings.Replace(doc, "<<KEYWORDS>>",
			"\\begin{IEEEkeywords}\n"+strings.Join(kws, ", ")+"\n\\end{IEEEkeywords}", 1)
	} else {
		doc = strings.Replace(doc, "<<KEYWORDS>>", "", 1)
	}

	var secs strings.Builder
	for _, s := range body {
		fmt.Fprintf(&secs, "\\section{%s}\n\n%s\n\n", Escape(s.SectionName), FormatContent(s.Content, s.SectionName))
	}
	doc = strings.Replace(doc, "<<SECTIONS>>", strings.TrimRight(secs.String(), "\n"), 1)

	refBlock := formatReferences(references)
	if refBlock == "" {
		refBlock = referencesBlock(paper.Domain)
	}
	doc = strings.Replace(doc, "<<REFERENCES>>", refBlock, 1)
	return doc
}

var refNumberRe = regexp.MustCompile(`^\[?\d+[\].]\s*`)

// formatReferences turns a newline-separated reference list into bibitems.
// Leading "[1]" or "1." numbering is stripped; bibitem keys renumber.
func formatReferences(raw string) string {
	var entries []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = refNumberRe.ReplaceAllString(line, "")
		if line == "" {
			continue
		}
		entries = append(entries, Escape(line))
	}
	if len(entries) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\\begin{thebibliography}{99}\n")
	for i, r := range entries {
		fmt.Fprintf(&b, "\\bibitem{ref%d} %s\n", i+1, r)
	}
	b.WriteString("\\end{thebibliography}")
	return b.String()
}

// authorsBlock groups authors by affiliation the way IEEEtran expects.
// Affiliations pair with authors positionally; a single affiliation covers
// everyone.
func authorsBlock(authors, affiliations []string) string {
	if len(authors) == 0 {
		return ""
	}
	affFor := func(i int) string {
		switch {
		case i < len(affiliations):
			return affiliations[i]
		case len(affiliations) == 1:
			return affiliations[0]
		default:
			return "Independent Researcher"
		}
	}

	groups := make(map[string][]string)
	order := make([]string, 0, len(authors))
	for i, a := range authors {
		aff := affFor(i)
		if _, seen := groups[aff]; !seen {
			order = append(order, aff)
		}
		groups[aff] = append(groups[aff], a)
	}

	var b strings.Builder
	b.WriteString("\\author{\n")
	for i, aff := range order {
		if i > 0 {
			b.WriteString("\\and\n")
		}
		names := make([]string, 0, len(groups[aff]))
		for _, n := range groups[aff] {
			names = append(names, Escape(n))
		}
		fmt.Fprintf(&b, "\\IEEEauthorblockN{%s}\n\\IEEEauthorblockA{%s}\n", strings.Join(names, ", "), Escape(aff))
	}
	b.WriteString("}")
	return b.String()
}

func referencesBlock(domain string) string {
	if domain == "" {
		domain = "Technology"
	}
	d := Escape(domain)
	refs := []string{
		fmt.Sprintf("Smith, J. A., ``Advanced Methods in %s,'' IEEE Transactions, vol. 45, no. 3, pp. 123-135, 2023.", d),
		fmt.Sprintf("Johnson, B. C., ``Recent Developments in %s,'' IEEE Conference, pp. 456-467, 2022.", d),
		fmt.Sprintf("Williams, C. D., ``Novel Approaches to %s,'' IEEE Journal, vol. 12, no. 4, pp. 789-801, 2023.", d),
	}
	var b strings.Builder
	b.WriteString("\\begin{thebibliography}{99}\n")
	for i, r := range refs {
		fmt.Fprintf(&b, "\\bibitem{ref%d} %s\n", i+1, r)
	}
	b.WriteString("\\end{thebibliography}")
	return b.String()
}

var (
	mdHeaderRe    = regexp.MustCompile(`(?m)^#{2,3}\s+(.+)$`)
	codeFenceRe   = regexp.MustCompile("(?:'''|```)(?:pseudocode)?")
	displayMathRe = regexp.MustCompile(`\$\$([^$]+)\$\$`)
	headingNumRe  = regexp.MustCompile(`^(?:[A-Z]\.|\d+\.)\s+`)
)

// FormatContent converts the markdown-flavored text models emit into LaTeX
// body text: bold-only lines become subsections, "- " runs become itemize
// environments, code fences are stripped, display math is converted.
func FormatContent(content, sectionName string) string {
	if content == "" {
		return ""
	}
	content = stripSectionEcho(content, sectionName)
	content = mdHeaderRe.ReplaceAllString(content, "**$1**")
	content = codeFenceRe.ReplaceAllString(content, "")
	content = displayMathRe.ReplaceAllString(content, `\[$1\]`)

	var lines []string
	inItemize := false
	closeItemize := func() {
		if inItemize {
			lines = append(lines, `\end{itemize}`, "")
			inItemize = false
		}
	}

	for _, para := range strings.Split(content, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if isBoldHeading(para) {
			closeItemize()
			heading := headingNumRe.ReplaceAllString(strings.TrimSpace(para[2:len(para)-2]), "")
			lines = append(lines, "", fmt.Sprintf(`\subsection{%s}`, Escape(heading)), "")
			continue
		}
		if strings.HasPrefix(para, "- ") {
			if !inItemize {
				lines = append(lines, `\begin{itemize}`)
				inItemize = true
			}
			for _, item := range strings.Split(para, "\n") {
				item = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(item), "- "))
				if item != "" {
					lines = append(lines, `\item `+Escape(item))
				}
			}
			continue
		}
		closeItemize()
		if esc := Escape(para); esc != "" {
			lines = append(lines, esc, "")
		}
	}
	closeItemize()
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func isBoldHeading(para string) bool {
	return strings.HasPrefix(para, "**") && strings.HasSuffix(para, "**") &&
		!strings.Contains(para, "\n") && len(para) > 4
}

// stripSectionEcho drops leading lines that merely repeat the section title,
// for example "III. Methodology" or "**Methodology**".
func stripSectionEcho(content, sectionName string) string {
	if sectionName == "" {
		return content
	}
	echoRe := regexp.MustCompile(`(?i)^(?:\*\*)?(?:[IVX]+[-.][A-Z]\s+|[IVX]+\.\s+|[A-Z]\.\s+|\d+[-.][A-Z]\s+)?` +
		regexp.QuoteMeta(strings.ToLower(sectionName)) + `(?:\*\*)?\s*$`)
	var kept []string
	for i, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(strings.ToLower(line))
		if i < 3 && echoRe.MatchString(trimmed) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
