package report

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Strategy looks for a diagnosed condition in text. It reports false when it has nothing to offer.
type Strategy func(text string) (string, bool)

var conditionPattern = regexp.MustCompile(`(?i)Condition:\s*([^\n.]+)`)

// hedging phrases, tried in order; only the first match of each is considered.
var hedgingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:diagnosed with|shows signs of|indicates|suggests|consistent with)\s+([a-zA-Z\s]+?)(?:\.|,|\n|$)`),
	regexp.MustCompile(`(?i)(?:appears to be|likely|probably|possibly)\s+([a-zA-Z\s]+?)(?:\.|,|\n|$)`),
	regexp.MustCompile(`(?i)(?:evidence of|signs of)\s+([a-zA-Z\s]+?)(?:\.|,|\n|$)`),
}

var medicalTermPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(pneumonia|bronchitis|asthma)\b`),
	regexp.MustCompile(`(?i)\b(fracture|break|crack)\b`),
	regexp.MustCompile(`(?i)\b(infection|inflammatory|inflammation)\b`),
	regexp.MustCompile(`(?i)\b(tumor|mass|lesion|nodule)\b`),
	regexp.MustCompile(`(?i)\b(arthritis|osteoarthritis)\b`),
	regexp.MustCompile(`(?i)\b(stenosis|blockage|obstruction)\b`),
	regexp.MustCompile(`(?i)\b(abnormality|anomaly)\b`),
}

// Hedged captures outside (minHedgedLen, maxHedgedLen) characters are rejected.
const (
	minHedgedLen = 3
	maxHedgedLen = 50
)

// ExplicitCondition matches a "Condition: <name>" statement up to the next period or newline.
func ExplicitCondition(text string) (string, bool) {
	m := conditionPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	// A match ends the cascade even when the capture trims to nothing.
	return strings.TrimSpace(m[1]), true
}

// HedgedCondition matches the phrase after a clinical qualifier such as "consistent with" or "likely".
func HedgedCondition(text string) (string, bool) {
	for _, re := range hedgingPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		condition := strings.TrimSpace(m[1])
		if n := utf8.RuneCountInString(condition); n > minHedgedLen && n < maxHedgedLen {
			return condition, true
		}
	}
	return "", false
}

// MedicalTerm matches a bare medical term as a last resort.
func MedicalTerm(text string) (string, bool) {
	for _, re := range medicalTermPatterns {
		if m := re.FindString(text); m != "" {
			return strings.TrimSpace(m), true
		}
	}
	return "", false
}

// Strategies returns the extraction cascade for a profile.
func Strategies(p Profile) []Strategy {
	out := []Strategy{ExplicitCondition, HedgedCondition}
	if p.MedicalTerms {
		out = append(out, MedicalTerm)
	}
	return out
}

func extractCondition(text string, strategies []Strategy) string {
	if text == "" {
		return ""
	}
	for _, s := range strategies {
		if condition, ok := s(text); ok {
			return condition
		}
	}
	return ""
}
