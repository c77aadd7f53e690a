package importer

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rule assigns a category, and optionally a merchant, to rows whose
// description contains one of its keywords.
type Rule struct {
	Name     string   `yaml:"name"`
	Merchant string   `yaml:"merchant"`
	Keywords []string `yaml:"keywords"`
}

// Rules is an ordered list of keyword rules; the first match wins.
type Rules struct {
	Categories []Rule `yaml:"categories"`
}

// LoadRules reads a YAML rules file.
func LoadRules(path string) (*Rules, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rules file: %w", err)
	}
	defer f.Close()
	return ParseRules(f)
}

// ParseRules decodes rules and lower-cases their keywords.
func ParseRules(r io.Reader) (*Rules, error) {
	var rules Rules
	if err := yaml.NewDecoder(r).Decode(&rules); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	for i, rule := range rules.Categories {
		if strings.TrimSpace(rule.Name) == "" {
			return nil, fmt.Errorf("rule %d has no name", i+1)
		}
		for j, kw := range rule.Keywords {
			rules.Categories[i].Keywords[j] = strings.ToLower(strings.TrimSpace(kw))
		}
	}
	return &rules, nil
}

// Match returns the first rule with a keyword contained in description,
// ignoring case.
func (r *Rules) Match(description string) (Rule, bool) {
	desc := strings.ToLower(description)
	if desc == "" {
		return Rule{}, false
	}
	for _, rule := range r.Categories {
		for _, kw := range rule.Keywords {
			if kw != "" && strings.Contains(desc, kw) {
				return rule, true
			}
		}
	}
	return Rule{}, false
}
