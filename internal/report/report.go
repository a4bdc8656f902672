// Package report turns free-text model output into labeled sections and a best-guess diagnosed condition.
package report

import (
	"encoding/json"
	"fmt"
	"strings"
)

// WarningStructureMismatch is set when no section header was recognised.
const WarningStructureMismatch = "parsing structure mismatch"

// Report is the parsed form of one model reply. It is never modified after Parse returns.
type Report struct {
	keys               []string
	sections           map[string]string
	DiagnosedCondition string
	Warning            string
	Error              string
}

// Keys returns the section keys in profile order.
func (r Report) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Section returns the accumulated text of a section, or "" for an unknown key.
func (r Report) Section(key string) string {
	return r.sections[key]
}

// Sections returns a copy of the section map.
func (r Report) Sections() map[string]string {
	out := make(map[string]string, len(r.sections))
	for k, v := range r.sections {
		out[k] = v
	}
	return out
}

// Empty reports whether every section is empty.
func (r Report) Empty() bool {
	for _, v := range r.sections {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// MarshalJSON flattens sections next to the condition and diagnostics.
func (r Report) MarshalJSON() ([]byte, error) {
	out := make(map[string]string, len(r.sections)+3)
	for k, v := range r.sections {
		out[k] = v
	}
	out["diagnosed_condition"] = r.DiagnosedCondition
	if r.Warning != "" {
		out["parsing_warning"] = r.Warning
	}
	if r.Error != "" {
		out["parsing_error"] = r.Error
	}
	return json.Marshal(out)
}

// Parser splits model output according to one profile. It holds no mutable state and is safe for
// concurrent use.
type Parser struct {
	profile    Profile
	strategies []Strategy
}

// NewParser returns a parser for p using the profile's default extraction cascade.
func NewParser(p Profile) *Parser {
	return &Parser{profile: p, strategies: Strategies(p)}
}

// WithStrategies returns a copy of the parser using the given extraction cascade.
func (p *Parser) WithStrategies(strategies ...Strategy) *Parser {
	return &Parser{profile: p.profile, strategies: append([]Strategy(nil), strategies...)}
}

// Profile returns the profile the parser was built with.
func (p *Parser) Profile() Profile {
	return p.profile
}

// Parse never fails: a reply that does not follow the layout yields empty sections and a warning, and
// an internal failure is reported through Report.Error.
func (p *Parser) Parse(raw string) (rep Report) {
	sections := make(map[string]string, len(p.profile.Sections))
	for _, s := range p.profile.Sections {
		sections[s.Key] = ""
	}
	rep = Report{keys: p.profile.Keys(), sections: sections}

	defer func() {
		if r := recover(); r != nil {
			rep.Error = fmt.Sprintf("could not parse response: %v", r)
		}
	}()

	p.splitSections(raw, sections)

	condition := extractCondition(sections[KeyAnalysisReport], p.strategies)
	if condition == "" {
		condition = extractCondition(raw, p.strategies)
	}
	rep.DiagnosedCondition = condition

	if rep.Empty() {
		rep.Warning = WarningStructureMismatch
	}

	return rep
}

func (p *Parser) splitSections(raw string, sections map[string]string) {
	current := ""

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if key, rest, ok := p.matchHeader(line); ok {
			current = key
			if rest != "" {
				sections[key] = rest
			}
			continue
		}

		if current == "" {
			continue
		}
		if sections[current] != "" {
			sections[current] += "\n" + line
		} else {
			sections[current] = line
		}
	}
}

// matchHeader finds the first profile marker in line and returns the text following it.
func (p *Parser) matchHeader(line string) (string, string, bool) {
	for _, s := range p.profile.Sections {
		marker := s.Marker()
		idx := strings.LastIndex(line, marker)
		if idx < 0 {
			continue
		}
		rest := strings.TrimSpace(line[idx+len(marker):])
		rest = strings.TrimSpace(strings.TrimPrefix(rest, ":"))
		return s.Key, rest, true
	}
	return "", "", false
}
