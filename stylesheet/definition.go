package stylesheet

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/multierr"
	yaml "gopkg.in/yaml.v3"

	"cssel/selector"
)

// Definition is the structural description of one stylesheet as read
// from a YAML definition file. Selectors are described field by field
// and assembled through the selector builder, CSS text is never parsed.
type Definition struct {
	ID    string    `yaml:"id"`
	Name  string    `yaml:"name"`
	Rules []RuleDef `yaml:"rules"`
}

// RuleDef describes one rule of a definition.
type RuleDef struct {
	Selectors    []SelectorDef    `yaml:"selectors"`
	Declarations []DeclarationDef `yaml:"declarations"`
}

// DeclarationDef describes one declaration of a rule.
type DeclarationDef struct {
	Property string `yaml:"property"`
	Value    string `yaml:"value"`
}

// SelectorDef describes one selector node: either the simple fragment
// fields or a combine block, never both in the same entry. Empty
// strings count as absent fragments.
type SelectorDef struct {
	Element       string   `yaml:"element"`
	ID            string   `yaml:"id"`
	Classes       []string `yaml:"classes"`
	Attrs         []string `yaml:"attrs"`
	PseudoClasses []string `yaml:"pseudo-classes"`
	PseudoElement string   `yaml:"pseudo-element"`

	Combine *CombineDef `yaml:"combine"`
}

// CombineDef joins two selector definitions with a combinator token.
// Operands recurse, so definitions express trees of any depth.
type CombineDef struct {
	Left       SelectorDef `yaml:"left"`
	Combinator string      `yaml:"combinator"`
	Right      SelectorDef `yaml:"right"`
}

func (d *SelectorDef) hasSimpleFields() bool {
	return d.Element != "" || d.ID != "" || len(d.Classes) > 0 ||
		len(d.Attrs) > 0 || len(d.PseudoClasses) > 0 || d.PseudoElement != ""
}

// Node assembles the selector node the definition describes. Simple
// fragments are applied in canonical kind order, so a well formed
// definition never trips the ordering rules on its own.
func (d *SelectorDef) Node() (selector.Node, error) {
	if d.Combine != nil {
		if d.hasSimpleFields() {
			return nil, errors.New("combine cannot be mixed with simple selector fields")
		}
		if d.Combine.Combinator == "" {
			return nil, errors.New("combine requires a combinator token")
		}
		left, err := d.Combine.Left.Node()
		if err != nil {
			return nil, fmt.Errorf("left: %w", err)
		}
		right, err := d.Combine.Right.Node()
		if err != nil {
			return nil, fmt.Errorf("right: %w", err)
		}
		return selector.Combine(left, d.Combine.Combinator, right), nil
	}

	if !d.hasSimpleFields() {
		return nil, errors.New("selector entry is empty")
	}

	s := &selector.Simple{}
	if d.Element != "" {
		s.Element(d.Element)
	}
	if d.ID != "" {
		s.ID(d.ID)
	}
	for _, c := range d.Classes {
		s.Class(c)
	}
	for _, a := range d.Attrs {
		s.Attr(a)
	}
	for _, p := range d.PseudoClasses {
		s.PseudoClass(p)
	}
	if d.PseudoElement != "" {
		s.PseudoElement(d.PseudoElement)
	}
	return s, s.Err()
}

// LoadDefinition reads one YAML definition. Decoding is strict, unknown
// fields are rejected so typos in definition files fail loudly.
func LoadDefinition(r io.Reader) (*Definition, error) {
	var def Definition
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("unable to decode definition: %w", err)
	}
	if len(def.Rules) == 0 {
		return nil, errors.New("definition has no rules")
	}
	return &def, nil
}

// Stylesheet assembles the stylesheet the definition describes. Errors
// from all broken rules are accumulated so one load reports everything.
func (d *Definition) Stylesheet() (*Stylesheet, error) {
	sheet := &Stylesheet{Name: d.Name}

	var result error
	for i, ruleDef := range d.Rules {
		if len(ruleDef.Selectors) == 0 {
			result = multierr.Append(result, fmt.Errorf("rule %d has no selectors", i))
			continue
		}

		rule := &Rule{}
		for j, selDef := range ruleDef.Selectors {
			node, err := selDef.Node()
			if err != nil {
				result = multierr.Append(result, fmt.Errorf("rule %d selector %d: %w", i, j, err))
				continue
			}
			rule.Selectors = append(rule.Selectors, node)
		}
		for k, decl := range ruleDef.Declarations {
			if decl.Property == "" {
				result = multierr.Append(result, fmt.Errorf("rule %d declaration %d has no property", i, k))
				continue
			}
			rule.Declarations = append(rule.Declarations, Declaration(decl))
		}
		sheet.AddRule(rule)
	}
	if result != nil {
		return nil, result
	}
	return sheet, nil
}
