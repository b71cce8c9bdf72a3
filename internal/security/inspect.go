package security

import (
	"fmt"
	"slices"
	"strings"
)

// NestedFieldsKey names the single nested object whose fields are also inspected
const NestedFieldsKey = "fields"

// Finding describes the first signature match in a request
type Finding struct {
	Field string
	Value string
	Rule  Rule
}

// Inspector applies a rule set to request inputs
type Inspector struct {
	rules []Rule
}

// NewInspector creates an Inspector with the given rules, or DefaultRules if none
func NewInspector(rules ...Rule) *Inspector {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Inspector{rules: rules}
}

// Rules returns the active rule set
func (i *Inspector) Rules() []Rule {
	return i.rules
}

// Check tests a single value and returns the first matching rule
func (i *Inspector) Check(value string) (Rule, bool) {
	if value == "" {
		return Rule{}, false
	}
	for _, r := range i.rules {
		if r.Matches(value) {
			return r, true
		}
	}
	return Rule{}, false
}

// Inspect walks every string value of input and of its nested "fields"
// object. Fields are visited in sorted order so findings are deterministic.
func (i *Inspector) Inspect(input map[string]any) (Finding, bool) {
	return i.inspect("", input, true)
}

func (i *Inspector) inspect(prefix string, input map[string]any, descend bool) (Finding, bool) {
	keys := make([]string, 0, len(input))
	for k := range input {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		field := prefix + k

		// Keys are attacker-controlled too
		if r, ok := i.Check(k); ok {
			return Finding{Field: field, Value: k, Rule: r}, true
		}

		switch v := input[k].(type) {
		case string:
			if r, ok := i.Check(v); ok {
				return Finding{Field: field, Value: v, Rule: r}, true
			}
		case []any:
			for idx, elem := range v {
				s, ok := elem.(string)
				if !ok {
					continue
				}
				if r, ok := i.Check(s); ok {
					return Finding{Field: fmt.Sprintf("%s[%d]", field, idx), Value: s, Rule: r}, true
				}
			}
		case []string:
			for idx, s := range v {
				if r, ok := i.Check(s); ok {
					return Finding{Field: fmt.Sprintf("%s[%d]", field, idx), Value: s, Rule: r}, true
				}
			}
		case map[string]any:
			if descend && strings.EqualFold(k, NestedFieldsKey) {
				if f, ok := i.inspect(field+".", v, false); ok {
					return f, true
				}
			}
		}
	}
	return Finding{}, false
}
