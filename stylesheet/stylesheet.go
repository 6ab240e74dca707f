// Package stylesheet assembles CSS rules from built selectors and
// serializes them to CSS text.
package stylesheet

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/multierr"

	"cssel/selector"
)

// Declaration is a single "property: value" pair inside a rule block.
type Declaration struct {
	Property string
	Value    string
}

// Rule pairs a selector group with a declaration block. Selector and
// declaration order is preserved as given.
type Rule struct {
	Selectors    []selector.Node
	Declarations []Declaration
}

// Stylesheet is an ordered list of rules.
type Stylesheet struct {
	Name  string
	Rules []*Rule
}

// AddRule appends a rule, keeping source order.
func (s *Stylesheet) AddRule(r *Rule) {
	s.Rules = append(s.Rules, r)
}

// Validate reports every problem the stylesheet carries: rules without
// selectors and construction violations recorded on selector nodes,
// each wrapped with its rule and selector position. All problems are
// accumulated so one pass reports everything.
func (s *Stylesheet) Validate() error {
	var result error
	for i, rule := range s.Rules {
		if len(rule.Selectors) == 0 {
			result = multierr.Append(result, fmt.Errorf("rule %d has no selectors", i))
			continue
		}
		for j, sel := range rule.Selectors {
			if err := sel.Err(); err != nil {
				result = multierr.Append(result, fmt.Errorf("rule %d selector %d: %w", i, j, err))
			}
		}
	}
	return result
}

// WriteTo writes the stylesheet as CSS text in rule order, implementing
// io.WriterTo. A stylesheet whose selectors carry construction
// violations is refused rather than serialized partially.
func (s *Stylesheet) WriteTo(w io.Writer) (int64, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}

	var total int64
	for i, rule := range s.Rules {
		n, err := writeRule(w, rule)
		total += int64(n)
		if err != nil {
			return total, err
		}

		// Blank line between rules (except after last)
		if i < len(s.Rules)-1 {
			n, err := fmt.Fprint(w, "\n")
			total += int64(n)
			if err != nil {
				return total, err
			}
		}
	}
	return total, nil
}

// String returns the CSS text of the stylesheet. An invalid stylesheet
// yields an empty string, use WriteTo when the error matters.
func (s *Stylesheet) String() string {
	var sb strings.Builder
	s.WriteTo(&sb) //nolint:errcheck
	return sb.String()
}

// writeRule writes a single rule: grouped selectors joined by ",\n",
// declarations one per line in source order.
func writeRule(w io.Writer, rule *Rule) (int, error) {
	sels := make([]string, 0, len(rule.Selectors))
	for _, sel := range rule.Selectors {
		sels = append(sels, sel.String())
	}

	var total int
	n, err := fmt.Fprintf(w, "%s {\n", strings.Join(sels, ",\n"))
	total += n
	if err != nil {
		return total, err
	}
	for _, d := range rule.Declarations {
		n, err = fmt.Fprintf(w, "  %s: %s;\n", d.Property, d.Value)
		total += n
		if err != nil {
			return total, err
		}
	}
	n, err = fmt.Fprint(w, "}\n")
	total += n
	return total, err
}
