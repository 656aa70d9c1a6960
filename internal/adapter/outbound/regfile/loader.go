// Package regfile loads a YAML registrations file describing the
// static, dynamic, and rule-level functions a planner.Builder should
// carry, along with its pre- and post-policy validators.
package regfile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/odrlplan/odrlplan/internal/adapter/outbound/celfn"
	"github.com/odrlplan/odrlplan/internal/domain/odrl"
	"github.com/odrlplan/odrlplan/internal/domain/planner"
)

// StaticEntry binds a named function to a left-operand key and rule kind.
type StaticEntry struct {
	Key  string `yaml:"key"`
	Kind string `yaml:"kind"`
	Name string `yaml:"name"`
}

// DynamicEntry binds a CEL-predicated function to a rule kind.
type DynamicEntry struct {
	Kind string `yaml:"kind"`
	Name string `yaml:"name"`
	When string `yaml:"when"`
}

// RuleEntry binds a named whole-rule function to a rule kind.
type RuleEntry struct {
	Kind string `yaml:"kind"`
	Name string `yaml:"name"`
}

// ValidatorEntry names a pre- or post-policy validator function.
type ValidatorEntry struct {
	Name string `yaml:"name"`
}

// Document is the top-level shape of a registrations YAML file.
type Document struct {
	Static         []StaticEntry    `yaml:"static"`
	Dynamic        []DynamicEntry   `yaml:"dynamic"`
	Rule           []RuleEntry      `yaml:"rule"`
	PreValidators  []ValidatorEntry `yaml:"pre_validators"`
	PostValidators []ValidatorEntry `yaml:"post_validators"`
}

// Load parses path as a Document.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("regfile: read %s: %w", path, err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("regfile: parse %s: %w", path, err)
	}
	return &doc, nil
}

// Apply registers every entry in doc against b, in file order. It
// returns an error for the first entry with an unknown rule kind, or
// wrapping the first CEL compile failure encountered among the dynamic
// entries.
func Apply(b *planner.Builder, doc *Document) error {
	for _, e := range doc.Static {
		kind, err := parseKind(e.Kind)
		if err != nil {
			return fmt.Errorf("regfile: static %q: %w", e.Key, err)
		}
		b.RegisterStatic(e.Key, kind, named{name: e.Name})
	}
	for _, e := range doc.Dynamic {
		kind, err := parseKind(e.Kind)
		if err != nil {
			return fmt.Errorf("regfile: dynamic %q: %w", e.Name, err)
		}
		fn, err := celfn.NewDynamicFunction(e.Name, e.When)
		if err != nil {
			return fmt.Errorf("regfile: dynamic %q: %w", e.Name, err)
		}
		b.RegisterDynamic(kind, fn)
	}
	for _, e := range doc.Rule {
		kind, err := parseKind(e.Kind)
		if err != nil {
			return fmt.Errorf("regfile: rule %q: %w", e.Name, err)
		}
		b.RegisterRule(kind, named{name: e.Name})
	}
	for _, e := range doc.PreValidators {
		b.WithPreValidator(named{name: e.Name})
	}
	for _, e := range doc.PostValidators {
		b.WithPostValidator(named{name: e.Name})
	}
	return nil
}

func parseKind(s string) (odrl.RuleKind, error) {
	switch s {
	case "permission":
		return odrl.Permission, nil
	case "prohibition":
		return odrl.Prohibition, nil
	case "duty":
		return odrl.Duty, nil
	case "any", "":
		return odrl.Any, nil
	default:
		return 0, fmt.Errorf("unknown rule kind %q", s)
	}
}
