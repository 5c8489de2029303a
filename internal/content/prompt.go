package content

import (
	"fmt"
	"strings"
)

// SectionMarker is the literal delimiter the model is instructed to emit
// between sections of a batched response.
const SectionMarker = "=== SECTION:"

// batchContextBudget bounds the context block in batched prompts to keep the
// combined prompt within a predictable token cost.
const batchContextBudget = 2000

// PaperInfo carries the paper metadata every prompt embeds.
type PaperInfo struct {
	Title    string
	Domain   string
	Authors  []string
	Keywords []string
}

var sectionInstructions = map[string]string{
	"Abstract": `- Write a complete abstract that summarizes the entire paper
- Include: problem statement, proposed approach, key results, main contributions
- Use quantitative results where possible (e.g., "achieved 95% accuracy")
- Make it standalone - readable without the rest of the paper
- No citations in abstract`,
	"Introduction": `- Start with broad context and narrow down to specific problem
- Clearly articulate the research problem and its importance
- Explain why existing solutions are inadequate
- Present your approach and key contributions (numbered list)
- Provide a roadmap of the paper structure
- Include motivation with real-world examples`,
	"Literature Review": `- Organize related work into logical categories/themes
- For each category, discuss 3-5 relevant papers with critical analysis
- Compare and contrast different approaches
- Identify limitations and gaps in existing work
- Position your work clearly against existing literature
- Use proper citations throughout [1], [2], etc.`,
	"Methodology": `- Provide detailed technical approach with step-by-step explanation
- Include algorithms in pseudocode format
- Explain design decisions and rationale
- Describe system architecture with component interactions
- Include mathematical formulations where relevant
- Ensure reproducibility with sufficient detail`,
	"Results": `- Present comprehensive experimental results with analysis
- Include quantitative metrics with statistical significance
- Compare against multiple baseline methods
- Provide both tabular data and analytical discussion
- Explain what the results mean and why they occurred
- Address any unexpected or negative results honestly`,
	"Discussion": `- Analyze the implications of your results
- Discuss strengths and limitations honestly
- Compare with state-of-the-art approaches
- Explain the broader impact of your work
- Address potential concerns or criticisms
- Suggest improvements and extensions`,
	"Conclusion": `- Summarize the key contributions and findings
- Restate the problem and how you solved it
- Highlight the significance and impact of your work
- Acknowledge limitations
- Provide specific directions for future work
- End with a strong closing statement about the work's importance`,
}

const genericInstructions = `- Write comprehensive, technically sound content
- Include detailed analysis and insights
- Support all claims with evidence or reasoning
- Maintain academic rigor throughout`

// BuildSectionPrompt assembles the single-section generation prompt. An empty
// context block is valid; the model is still given the paper metadata and the
// section requirements.
func BuildSectionPrompt(section string, paper PaperInfo, context string) string {
	req := RequirementsFor(section)

	var b strings.Builder
	fmt.Fprintf(&b, `You are a world-class academic researcher and writer specializing in %s with expertise in IEEE publication standards. You are writing a comprehensive research paper for a top-tier IEEE conference/journal.

PAPER INFORMATION:
- Title: %s
- Domain: %s
- Authors: %s
- Keywords: %s

SECTION TO WRITE: %s

SECTION REQUIREMENTS:
- Target Length: %s
- Structure: %s
- Requirements: %s

CONTEXT FROM REFERENCE PAPERS:
%s

WRITING GUIDELINES:
1. COMPREHENSIVE CONTENT: Write detailed, substantial content that meets the target length
2. TECHNICAL DEPTH: Include technical details, algorithms, mathematical formulations where appropriate
3. IEEE STANDARDS: Follow IEEE formatting and citation style ([1], [2], etc.)
4. ACADEMIC RIGOR: Use formal academic language with proper terminology
5. LOGICAL FLOW: Ensure smooth transitions and logical progression
6. EVIDENCE-BASED: Support claims with evidence from context or established knowledge
7. ORIGINAL INSIGHTS: Provide novel insights and analysis beyond just summarizing
8. PUBLICATION QUALITY: Write at the level expected for top-tier IEEE venues

SPECIFIC INSTRUCTIONS FOR %s:
%s
`,
		paper.Domain, paper.Title, paper.Domain,
		strings.Join(paper.Authors, ", "), strings.Join(paper.Keywords, ", "),
		section,
		req.Length, req.Structure, req.Requirements,
		context,
		section, instructionsFor(section),
	)

	fmt.Fprintf(&b, `
IMPORTANT: Generate substantial, high-quality content that would be suitable for publication in a top-tier IEEE conference or journal. The content should be comprehensive, technically sound, and meet the target length of %s.

Write the %s section now:
`, req.Length, section)

	return b.String()
}

// BuildBatchPrompt assembles one prompt for a batch of sections (in practice
// one or two), instructing the model to delimit each section's output with a
// literal "=== SECTION: <name> ===" marker. The context block is truncated to
// a fixed character budget to control prompt cost.
func BuildBatchPrompt(sections []string, paper PaperInfo, context string) string {
	var infos strings.Builder
	for _, s := range sections {
		req := RequirementsFor(s)
		fmt.Fprintf(&infos, `
SECTION: %s
- Target Length: %s
- Structure: %s
- Requirements: %s
`, s, req.Length, req.Structure, req.Requirements)
	}

	return fmt.Sprintf(`You are a world-class academic researcher writing a comprehensive IEEE research paper.

PAPER INFORMATION:
- Title: %s
- Domain: %s
- Authors: %s
- Keywords: %s

CONTEXT FROM REFERENCE PAPERS:
%s

TASK: Generate content for the following sections in a single response.
Separate each section with "=== SECTION: [Section Name] ===" markers.

SECTIONS TO GENERATE:
%s

WRITING GUIDELINES:
1. CONCISE CONTENT: Keep within the specified word limits for each section
2. IEEE STANDARDS: Follow IEEE formatting and citation style
3. ACADEMIC RIGOR: Use formal academic language
4. LOGICAL FLOW: Ensure smooth transitions within each section
5. EVIDENCE-BASED: Support claims with evidence from context
6. PUBLICATION QUALITY: Write at the level expected for IEEE venues

IMPORTANT:
- Start each section with "=== SECTION: [Section Name] ==="
- Keep content concise but comprehensive
- Ensure each section meets its specific requirements
- Total response should be efficient to avoid rate limits

Generate the sections now:
`,
		paper.Title, paper.Domain,
		strings.Join(paper.Authors, ", "), strings.Join(paper.Keywords, ", "),
		truncate(context, batchContextBudget),
		infos.String(),
	)
}

// BuildReferencesPrompt asks for a realistic IEEE-style reference list for the
// paper's domain, seeded with a slice of the retrieved context.
func BuildReferencesPrompt(domain, context string) string {
	return fmt.Sprintf(`Generate 15-20 realistic academic references for a %s research paper.
Based on this context: %s

Format each reference as:
[1] Author, A. B., "Title of Paper," Journal/Conference Name, vol. X, no. Y, pp. Z-W, Year.

Include a mix of:
- Recent papers (2020-2024)
- Foundational papers (2015-2019)
- Key journals and conferences in %s
- Realistic author names and titles

Generate the references:
`, domain, truncate(context, 1000), domain)
}

func instructionsFor(section string) string {
	if s, ok := sectionInstructions[section]; ok {
		return s
	}
	return genericInstructions
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
