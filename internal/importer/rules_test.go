package importer

import (
	"strings"
	"testing"
)

const rulesYAML = `
categories:
  - name: Groceries
    merchant: Whole Foods
    keywords: ["WHOLE FOODS", "wfm"]
  - name: Transport
    keywords: [uber, lyft]
`

func TestRulesMatch(t *testing.T) {
	rules, err := ParseRules(strings.NewReader(rulesYAML))
	if err != nil {
		t.Fatalf("ParseRules: %v", err)
	}

	tests := []struct {
		desc     string
		want     string
		merchant string
		ok       bool
	}{
		{"POS WHOLE FOODS #123", "Groceries", "Whole Foods", true},
		{"Uber *trip", "Transport", "", true},
		{"Coffee", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		rule, ok := rules.Match(tt.desc)
		if ok != tt.ok || rule.Name != tt.want || rule.Merchant != tt.merchant {
			t.Errorf("Match(%q) = %+v, %v", tt.desc, rule, ok)
		}
	}
}

func TestParseRulesRejectsNamelessRule(t *testing.T) {
	if _, err := ParseRules(strings.NewReader("categories:\n  - keywords: [x]\n")); err == nil {
		t.Error("expected error for rule without name")
	}
}
