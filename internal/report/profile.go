package report

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Built-in profile names.
const (
	ProfileImaging       = "imaging"
	ProfileComprehensive = "comprehensive"
)

// KeyAnalysisReport is the section searched first for the diagnosed condition.
const KeyAnalysisReport = "analysis_report"

var (
	ErrUnknownProfile   = errors.New("unknown report profile")
	ErrNoSections       = errors.New("profile has no sections")
	ErrDuplicateSection = errors.New("duplicate section key")
	ErrEmptyLabel       = errors.New("section label is empty")
	ErrMissingAnalysis  = errors.New("profile has no " + KeyAnalysisReport + " section")
	ErrEmptyKey         = errors.New("section key is empty")
	ErrReservedKey      = errors.New("section key is reserved")
	ErrEmptyName        = errors.New("profile name is empty")
	ErrDuplicateProfile = errors.New("duplicate profile name")
)

// reservedKeys are written by Report.MarshalJSON next to the sections.
var reservedKeys = map[string]bool{
	"diagnosed_condition": true,
	"parsing_warning":     true,
	"parsing_error":       true,
}

//go:embed profiles.yaml
var builtinProfiles []byte

// Section maps a bold header label in model output to a section key.
type Section struct {
	Key   string `yaml:"key"`
	Label string `yaml:"label"`
}

// Marker is the literal text that opens the section, e.g. "**Treatments**".
func (s Section) Marker() string {
	return "**" + s.Label + "**"
}

// Profile is one header layout plus the condition-extraction options that go with it.
type Profile struct {
	Name         string    `yaml:"name"`
	MedicalTerms bool      `yaml:"medical_terms"`
	Sections     []Section `yaml:"sections"`
}

// Keys returns the section keys in profile order.
func (p Profile) Keys() []string {
	keys := make([]string, 0, len(p.Sections))
	for _, s := range p.Sections {
		keys = append(keys, s.Key)
	}
	return keys
}

// Validate checks the invariants the parser relies on.
func (p Profile) Validate() error {
	if p.Name == "" {
		return ErrEmptyName
	}
	if len(p.Sections) == 0 {
		return fmt.Errorf("%s: %w", p.Name, ErrNoSections)
	}

	seen := make(map[string]bool, len(p.Sections))
	for _, s := range p.Sections {
		if s.Key == "" {
			return fmt.Errorf("%s/%s: %w", p.Name, s.Label, ErrEmptyKey)
		}
		if reservedKeys[s.Key] {
			return fmt.Errorf("%s/%s: %w", p.Name, s.Key, ErrReservedKey)
		}
		if s.Label == "" {
			return fmt.Errorf("%s/%s: %w", p.Name, s.Key, ErrEmptyLabel)
		}
		if seen[s.Key] {
			return fmt.Errorf("%s/%s: %w", p.Name, s.Key, ErrDuplicateSection)
		}
		seen[s.Key] = true
	}

	if !seen[KeyAnalysisReport] {
		return fmt.Errorf("%s: %w", p.Name, ErrMissingAnalysis)
	}

	return nil
}

// Profiles is a set of named profiles.
type Profiles map[string]Profile

// Get returns the named profile.
func (ps Profiles) Get(name string) (Profile, error) {
	p, ok := ps[name]
	if !ok {
		return Profile{}, fmt.Errorf("%q: %w", name, ErrUnknownProfile)
	}
	return p, nil
}

type profileFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// ParseProfiles decodes and validates a YAML profile document.
func ParseProfiles(data []byte) (Profiles, error) {
	var doc profileFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode profiles: %w", err)
	}

	out := make(Profiles, len(doc.Profiles))
	for _, p := range doc.Profiles {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := out[p.Name]; dup {
			return nil, fmt.Errorf("%s: %w", p.Name, ErrDuplicateProfile)
		}
		out[p.Name] = p
	}

	return out, nil
}

// DefaultProfiles returns the embedded imaging and comprehensive profiles.
func DefaultProfiles() Profiles {
	ps, err := ParseProfiles(builtinProfiles)
	if err != nil {
		panic(fmt.Sprintf("embedded profiles are invalid: %v", err))
	}
	return ps
}

// LoadProfiles returns the built-in profiles, overlaid with the ones defined in path when set.
func LoadProfiles(path string) (Profiles, error) {
	ps := DefaultProfiles()
	if path == "" {
		return ps, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}

	custom, err := ParseProfiles(data)
	if err != nil {
		return nil, err
	}
	for name, p := range custom {
		ps[name] = p
	}

	return ps, nil
}

// Parser builds a parser for the named profile.
func (ps Profiles) Parser(name string) (*Parser, error) {
	p, err := ps.Get(name)
	if err != nil {
		return nil, err
	}
	return NewParser(p), nil
}
