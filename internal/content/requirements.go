package content

// CanonicalSections is the fixed, ordered set of sections a complete paper is
// expected to contain. The generation workflow walks this list in order.
var CanonicalSections = []string{
	"Abstract",
	"Introduction",
	"Literature Review",
	"Methodology",
	"System Design",
	"Implementation",
	"Experimental Setup",
	"Results",
	"Discussion",
	"Conclusion",
	"Future Work",
}

// SectionIndex returns the canonical order index for a section name, or -1
// for names outside the canonical list.
func SectionIndex(name string) int {
	for i, s := range CanonicalSections {
		if s == name {
			return i
		}
	}
	return -1
}

// Requirements describes what the model is asked to produce for one section.
// This is tunable data, not logic; word ranges are targets, not contracts.
type Requirements struct {
	Length       string
	Structure    string
	Requirements string
}

var genericRequirements = Requirements{
	Length:       "300-500 words",
	Structure:    "Introduction, Main Content, Analysis, Summary",
	Requirements: "Well-structured technical content with proper analysis",
}

var sectionRequirements = map[string]Requirements{
	"Abstract": {
		Length:       "150-200 words",
		Structure:    "Background, Problem, Method, Results, Conclusion",
		Requirements: "Concise summary of entire paper, no citations, standalone",
	},
	"Introduction": {
		Length:       "400-600 words",
		Structure:    "Background, Problem Statement, Motivation, Contributions",
		Requirements: "Clear problem definition, motivation, research gap, contributions",
	},
	"Literature Review": {
		Length:       "500-700 words",
		Structure:    "Related Work Categories, Critical Analysis, Research Gaps",
		Requirements: "Comprehensive survey, critical analysis, identify gaps",
	},
	"Related Work": {
		Length:       "400-600 words",
		Structure:    "Categorized Related Work, Comparative Analysis",
		Requirements: "Systematic categorization, comparative analysis",
	},
	"Methodology": {
		Length:       "600-800 words",
		Structure:    "System Architecture, Algorithm Design, Implementation Details",
		Requirements: "Detailed technical approach, algorithms, architecture",
	},
	"System Design": {
		Length:       "500-700 words",
		Structure:    "Architecture Overview, Component Design, Interface Specifications",
		Requirements: "Detailed system architecture, component interactions",
	},
	"Implementation": {
		Length:       "400-600 words",
		Structure:    "Technology Stack, Development Process, Key Challenges",
		Requirements: "Technical implementation details, tools used, challenges",
	},
	"Experimental Setup": {
		Length:       "300-500 words",
		Structure:    "Dataset Description, Evaluation Metrics, Baseline Methods",
		Requirements: "Comprehensive experimental design, datasets, metrics",
	},
	"Results": {
		Length:       "500-700 words",
		Structure:    "Quantitative Results, Performance Comparison, Discussion",
		Requirements: "Detailed results with analysis, comparisons",
	},
	"Evaluation": {
		Length:       "400-600 words",
		Structure:    "Performance Analysis, Comparison Studies, Discussion",
		Requirements: "Thorough evaluation with multiple perspectives",
	},
	"Discussion": {
		Length:       "400-600 words",
		Structure:    "Key Findings, Implications, Limitations",
		Requirements: "Critical analysis of results, implications, limitations",
	},
	"Conclusion": {
		Length:       "200-300 words",
		Structure:    "Summary, Key Contributions, Impact",
		Requirements: "Concise summary, clear contributions, impact statement",
	},
	"Future Work": {
		Length:       "200-300 words",
		Structure:    "Immediate Extensions, Long-term Directions",
		Requirements: "Specific future research directions, potential improvements",
	},
}

// RequirementsFor returns the requirements entry for a section name, falling
// back to a generic entry for unrecognized names.
func RequirementsFor(name string) Requirements {
	if r, ok := sectionRequirements[name]; ok {
		return r
	}
	return genericRequirements
}
