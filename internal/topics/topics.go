// Package topics classifies publications into research areas by keyword.
package topics

import (
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Other is the label assigned when no rule matches.
const Other = "Other"

// Rule maps one topic label to the keywords that select it.
type Rule struct {
	Label    string   `yaml:"label"`
	Keywords []string `yaml:"keywords"`
}

// Table is an ordered, immutable list of rules. Rule order is the order of
// the labels Classify returns.
type Table struct {
	rules []Rule
}

// NewTable copies rules into a Table. Labels must be unique and non-empty,
// every rule needs at least one keyword, and "Other" is reserved.
func NewTable(rules []Rule) (*Table, error) {
	seen := make(map[string]bool, len(rules))
	copied := make([]Rule, 0, len(rules))
	for i, r := range rules {
		label := strings.TrimSpace(r.Label)
		if label == "" {
			return nil, fmt.Errorf("rule %d: empty label", i)
		}
		if label == Other {
			return nil, fmt.Errorf("rule %d: %q is reserved for the fallback", i, Other)
		}
		if seen[label] {
			return nil, fmt.Errorf("rule %d: duplicate label %q", i, label)
		}
		seen[label] = true

		var kws []string
		for _, kw := range r.Keywords {
			// Keywords are matched verbatim apart from case; "ct " keeps its space.
			if kw = strings.ToLower(kw); strings.TrimSpace(kw) != "" {
				kws = append(kws, kw)
			}
		}
		if len(kws) == 0 {
			return nil, fmt.Errorf("rule %q: no keywords", label)
		}
		copied = append(copied, Rule{Label: label, Keywords: kws})
	}
	return &Table{rules: copied}, nil
}

// MustTable is NewTable for package-level tables known to be valid.
func MustTable(rules []Rule) *Table {
	t, err := NewTable(rules)
	if err != nil {
		panic(err)
	}
	return t
}

// Rules returns a copy of the table's rules.
func (t *Table) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	for i, r := range t.rules {
		out[i] = Rule{Label: r.Label, Keywords: append([]string(nil), r.Keywords...)}
	}
	return out
}

// Labels returns the rule labels in order, followed by Other.
func (t *Table) Labels() []string {
	labels := make([]string, 0, len(t.rules)+1)
	for _, r := range t.rules {
		labels = append(labels, r.Label)
	}
	return append(labels, Other)
}

// Classify returns every label with a keyword occurring, case-insensitively,
// in title + " " + abstract. It returns exactly [Other] when nothing matches.
func (t *Table) Classify(title, abstract string) []string {
	text := strings.ToLower(title + " " + abstract)
	var labels []string
	for _, r := range t.rules {
		for _, kw := range r.Keywords {
			if strings.Contains(text, kw) {
				labels = append(labels, r.Label)
				break
			}
		}
	}
	if len(labels) == 0 {
		return []string{Other}
	}
	return labels
}

// LoadFile reads a YAML list of {label, keywords} rules.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading topic table: %w", err)
	}
	var rules []Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parsing topic table %s: %w", path, err)
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("topic table %s has no rules", path)
	}
	return NewTable(rules)
}
