package latex

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"paperforge/internal/models"
)

func testPaper() models.Paper {
	return models.Paper{
		PaperID:      "p1",
		Title:        "Efficient Graph Networks & Applications",
		Domain:       "Machine Learning",
		Authors:      []string{"Ada Lovelace", "Alan Turing"},
		Affiliations: []string{"Analytical Engines Lab"},
		Keywords:     []string{"graphs", "neural networks"},
	}
}

func TestRenderFullDocument(t *testing.T) {
	sections := []models.Section{
		{SectionName: "Abstract", Content: "We study graph networks.\nResults are strong.", OrderIndex: 0},
		{SectionName: "Introduction", Content: "Graphs are everywhere.", OrderIndex: 1},
		{SectionName: "Conclusion", Content: "We conclude.", OrderIndex: 10},
	}
	doc := Render(testPaper(), sections)

	require.Contains(t, doc, `\documentclass[conference,10pt]{IEEEtran}`)
	require.Contains(t, doc, `\title{Efficient Graph Networks \& Applications}`)
	require.Contains(t, doc, `\IEEEauthorblockN{Ada Lovelace, Alan Turing}`)
	require.Contains(t, doc, `\IEEEauthorblockA{Analytical Engines Lab}`)
	require.Contains(t, doc, "\\begin{abstract}\nWe study graph networks.\nResults are strong.\n\\end{abstract}")
	require.Contains(t, doc, "\\begin{IEEEkeywords}\ngraphs, neural networks\n\\end{IEEEkeywords}")
	require.Contains(t, doc, `\section{Introduction}`)
	require.Contains(t, doc, `\section{Conclusion}`)
	require.NotContains(t, doc, `\section{Abstract}`)
	require.Contains(t, doc, `\begin{thebibliography}{99}`)
	require.Contains(t, doc, "Advanced Methods in Machine Learning")
	require.Contains(t, doc, `\end{document}`)
}

func TestRenderMultipleAffiliations(t *testing.T) {
	p := testPaper()
	p.Affiliations = []string{"Lab One", "Lab Two"}
	doc := Render(p, nil)
	require.Contains(t, doc, `\and`)
	require.Contains(t, doc, `\IEEEauthorblockA{Lab One}`)
	require.Contains(t, doc, `\IEEEauthorblockA{Lab Two}`)
}

func TestEscapeSpecials(t *testing.T) {
	got := Escape("50% of #tests & all_cases {ok}")
	require.Equal(t, `50\% of \#tests \& all\_cases \{ok\}`, got)
}

func TestEscapePreservesMathAndConvertsMarkdown(t *testing.T) {
	got := Escape("loss $L_2$ and **key** idea")
	require.Contains(t, got, "$L_2$")
	require.Contains(t, got, `\textbf{key}`)
}

func TestEscapeNormalizesUnicode(t *testing.T) {
	got := Escape("it\u2019s a test\u2026 with\u00a0space")
	require.Equal(t, "it's a test... with space", got)
}

func TestFormatContentSubsectionsAndLists(t *testing.T) {
	content := "Overview text.\n\n**A. Design Goals**\n\n- fast retrieval\n- low cost\n\nClosing paragraph."
	got := FormatContent(content, "Methodology")

	require.Contains(t, got, `\subsection{Design Goals}`)
	require.Contains(t, got, `\begin{itemize}`)
	require.Contains(t, got, `\item fast retrieval`)
	require.Contains(t, got, `\item low cost`)
	require.Contains(t, got, `\end{itemize}`)
	require.Contains(t, got, "Closing paragraph.")
	idx1 := strings.Index(got, `\begin{itemize}`)
	idx2 := strings.Index(got, `\end{itemize}`)
	require.Less(t, idx1, idx2)
}

func TestFormatContentStripsSectionEcho(t *testing.T) {
	content := "III. Methodology\n\nActual body text."
	got := FormatContent(content, "Methodology")
	require.NotContains(t, got, "III.")
	require.Contains(t, got, "Actual body text.")
}

func TestFormatContentCodeFencesAndHeaders(t *testing.T) {
	content := "## Setup\n\n```pseudocode\nfor each x\n```\n\nDone."
	got := FormatContent(content, "Results")
	require.Contains(t, got, `\subsection{Setup}`)
	require.NotContains(t, got, "```")
	require.Contains(t, got, "Done.")
}

func TestRenderWithGeneratedReferences(t *testing.T) {
	raw := "[1] Doe, J., \"Fast Graphs,\" IEEE Trans., vol. 1, 2023.\n" +
		"\n" +
		"[2] Roe, R., \"Deep & Wide Nets,\" IEEE Conf., 2022.\n"
	doc := RenderWithReferences(testPaper(), nil, raw)

	require.Contains(t, doc, `\bibitem{ref1} Doe, J., "Fast Graphs," IEEE Trans., vol. 1, 2023.`)
	require.Contains(t, doc, `\bibitem{ref2} Roe, R., "Deep \& Wide Nets," IEEE Conf., 2022.`)
	// Seeded placeholders only appear when no usable references were supplied.
	require.NotContains(t, doc, "Smith, J. A.")
}

func TestRenderEmptyReferencesFallsBackToSeeded(t *testing.T) {
	doc := RenderWithReferences(testPaper(), nil, "  \n\n")
	require.Contains(t, doc, "Smith, J. A.")
	require.Contains(t, doc, "Machine Learning")
}
