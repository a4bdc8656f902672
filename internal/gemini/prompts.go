package gemini

import (
	"strings"

	"github.com/Skufu/radiolens/internal/report"
)

const promptIntro = `You are a highly skilled medical analyst specializing in image-based diagnosis. Carefully analyze the provided medical image
following this EXACT format:
`

var sectionGuidance = map[string]string{
	"detailed_analysis":       "Provide an in-depth examination of abnormalities, patterns, or findings present.",
	"analysis_report":         `Offer a structured summary of your observations, including the specific disease or condition identified. If you identify a specific condition, clearly state: "Condition: [condition name]"`,
	"recommendations":         "List further tests, consultations, or imaging requirements.",
	"treatments":              "Suggest comprehensive treatment plans and methods for faster recovery.",
	"initial_treatment_notes": "Brief initial treatment suggestions.",
}

const promptRules = `
Important:
1. Always include the disclaimer: "Consult with a doctor before making medical decisions."
2. If you identify a specific medical condition, clearly state it in the Analysis Report section using the format "Condition: [condition name]"
3. Be specific about any abnormalities you observe.
4. Use the EXACT section headers as shown above with double asterisks.
`

// ImagePrompt renders the analysis instructions for the headers of profile p.
func ImagePrompt(p report.Profile) string {
	var sb strings.Builder

	sb.WriteString(promptIntro)
	for _, s := range p.Sections {
		sb.WriteString("\n")
		sb.WriteString(s.Marker())
		sb.WriteString(": ")
		if g, ok := sectionGuidance[s.Key]; ok {
			sb.WriteString(g)
		} else {
			sb.WriteString("Describe the " + strings.ToLower(s.Label) + ".")
		}
		sb.WriteString("\n")
	}
	sb.WriteString(promptRules)

	return sb.String()
}
