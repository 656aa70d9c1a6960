// Package policydoc loads an odrl.Policy from a YAML document, the input
// format a planner.Planner's Plan is actually run against.
package policydoc

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/odrlplan/odrlplan/internal/domain/odrl"
)

type constraintDoc struct {
	Left     string          `yaml:"left"`
	Operator string          `yaml:"operator"`
	Right    string          `yaml:"right"`
	And      []constraintDoc `yaml:"and"`
	Or       []constraintDoc `yaml:"or"`
	Xone     []constraintDoc `yaml:"xone"`
}

type ruleDoc struct {
	Action      string          `yaml:"action"`
	Constraints []constraintDoc `yaml:"constraints"`
	Duties      []ruleDoc       `yaml:"duties"`
}

type policyDoc struct {
	Permissions  []ruleDoc `yaml:"permissions"`
	Prohibitions []ruleDoc `yaml:"prohibitions"`
	Obligations  []ruleDoc `yaml:"obligations"`
}

// Load parses path into an odrl.Policy.
func Load(path string) (*odrl.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("policydoc: read %s: %w", path, err)
	}
	var doc policyDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("policydoc: parse %s: %w", path, err)
	}
	return &odrl.Policy{
		Permissions:  toRules(doc.Permissions, odrl.Permission),
		Prohibitions: toRules(doc.Prohibitions, odrl.Prohibition),
		Obligations:  toRules(doc.Obligations, odrl.Duty),
	}, nil
}

func toRules(docs []ruleDoc, kind odrl.RuleKind) []odrl.Rule {
	out := make([]odrl.Rule, 0, len(docs))
	for _, d := range docs {
		rule := odrl.Rule{
			Kind:        kind,
			Constraints: toConstraints(d.Constraints),
		}
		if d.Action != "" {
			rule.Action = &odrl.Action{Type: d.Action}
		}
		if kind == odrl.Permission {
			rule.Duties = toRules(d.Duties, odrl.Duty)
		}
		out = append(out, rule)
	}
	return out
}

func toConstraints(docs []constraintDoc) []odrl.Constraint {
	out := make([]odrl.Constraint, 0, len(docs))
	for _, d := range docs {
		out = append(out, toConstraint(d))
	}
	return out
}

func toConstraint(d constraintDoc) odrl.Constraint {
	switch {
	case len(d.And) > 0:
		return odrl.AndConstraint{Children: toConstraints(d.And)}
	case len(d.Or) > 0:
		return odrl.OrConstraint{Children: toConstraints(d.Or)}
	case len(d.Xone) > 0:
		return odrl.XoneConstraint{Children: toConstraints(d.Xone)}
	default:
		return odrl.AtomicConstraint{
			Left:     odrl.Literal(d.Left),
			Operator: odrl.Operator(d.Operator),
			Right:    odrl.Literal(d.Right),
		}
	}
}
