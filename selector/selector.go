// Package selector builds CSS selectors programmatically. Selectors are
// assembled fragment by fragment through a fluent API, combined into trees
// with relational combinators and serialized to canonical CSS text.
package selector

import (
	"errors"
	"fmt"
	"strings"
)

// Construction violations. Both indicate a mistake in the calling code,
// not a recoverable condition. Use errors.Is to classify wrapped values.
var (
	// ErrDuplicateFragment reports a second element, id or pseudo-element
	// on the same selector. These fragments occur at most once.
	ErrDuplicateFragment = errors.New("duplicate selector fragment")

	// ErrOrderViolation reports a fragment added after a fragment of a
	// later kind. CSS fragment order is fixed: element, id, class,
	// attribute, pseudo-class, pseudo-element.
	ErrOrderViolation = errors.New("selector fragment out of order")
)

// kind enumerates fragment kinds in their required order. The numeric
// order is load-bearing: a fragment may not be added once a fragment of
// a higher kind is present.
type kind int

const (
	kindElement kind = iota
	kindID
	kindClass
	kindAttr
	kindPseudoClass
	kindPseudoElement
)

func (k kind) String() string {
	switch k {
	case kindElement:
		return "element"
	case kindID:
		return "id"
	case kindClass:
		return "class"
	case kindAttr:
		return "attribute"
	case kindPseudoClass:
		return "pseudo-class"
	case kindPseudoElement:
		return "pseudo-element"
	default:
		return "unknown"
	}
}

// Node is a node of a selector tree: either a *Simple leaf or a
// *Combined join. String returns the canonical CSS text of the subtree,
// Err the first construction violation recorded anywhere in it.
type Node interface {
	String() string
	Err() error
}

var (
	_ Node = (*Simple)(nil)
	_ Node = (*Combined)(nil)
)

// Simple is a selector over a single element: one optional element name,
// one optional id, any number of classes, attribute expressions and
// pseudo-classes, one optional pseudo-element. The zero value is an
// empty selector ready for use, the package level constructors start
// one with its first fragment already applied.
//
// Fragment methods return the receiver so calls chain. The first
// violation freezes the selector: the offending fragment is not applied,
// later calls are ignored, Err reports the violation and String renders
// the fragments accepted before it. A Simple is not safe for concurrent
// mutation.
type Simple struct {
	element       string
	id            string
	classes       []string
	attrs         []string
	pseudoClasses []string
	pseudoElement string

	seen uint8 // bitmask of kinds present
	err  error
}

// Element starts a selector with an element name fragment.
func Element(name string) *Simple { return new(Simple).Element(name) }

// ID starts a selector with an id fragment.
func ID(name string) *Simple { return new(Simple).ID(name) }

// Class starts a selector with a class fragment.
func Class(name string) *Simple { return new(Simple).Class(name) }

// Attr starts a selector with a raw attribute expression fragment.
func Attr(expr string) *Simple { return new(Simple).Attr(expr) }

// PseudoClass starts a selector with a pseudo-class fragment.
func PseudoClass(name string) *Simple { return new(Simple).PseudoClass(name) }

// PseudoElement starts a selector with a pseudo-element fragment.
func PseudoElement(name string) *Simple { return new(Simple).PseudoElement(name) }

// accept validates one fragment of kind k against the current state and
// records it in the presence mask. When the fragment is rejected the
// selector keeps the violation and all state unchanged. A duplicate is
// reported before an order violation when both apply. Earlier kinds are
// never required to be present, only later kinds forbid the addition.
func (s *Simple) accept(k kind, single bool) bool {
	if s.err != nil {
		return false
	}
	if single && s.seen&(1<<k) != 0 {
		s.err = fmt.Errorf("%s occurs more than once: %w", k, ErrDuplicateFragment)
		return false
	}
	for later := k + 1; later <= kindPseudoElement; later++ {
		if s.seen&(1<<later) != 0 {
			s.err = fmt.Errorf("%s cannot follow %s: %w", k, later, ErrOrderViolation)
			return false
		}
	}
	s.seen |= 1 << k
	return true
}

// Element sets the element name. At most one element name is allowed and
// it must precede every other fragment kind.
func (s *Simple) Element(name string) *Simple {
	if s.accept(kindElement, true) {
		s.element = name
	}
	return s
}

// ID sets the id. At most one id is allowed and it must precede class,
// attribute and pseudo fragments.
func (s *Simple) ID(name string) *Simple {
	if s.accept(kindID, true) {
		s.id = name
	}
	return s
}

// Class appends a class name. Repeats are kept in call order.
func (s *Simple) Class(name string) *Simple {
	if s.accept(kindClass, false) {
		s.classes = append(s.classes, name)
	}
	return s
}

// Attr appends a raw attribute expression, emitted verbatim inside
// brackets. The expression is not validated here. Compile interprets it
// when the selector is used for matching.
func (s *Simple) Attr(expr string) *Simple {
	if s.accept(kindAttr, false) {
		s.attrs = append(s.attrs, expr)
	}
	return s
}

// PseudoClass appends a pseudo-class name. Repeats are kept in call order.
func (s *Simple) PseudoClass(name string) *Simple {
	if s.accept(kindPseudoClass, false) {
		s.pseudoClasses = append(s.pseudoClasses, name)
	}
	return s
}

// PseudoElement sets the pseudo-element name. At most one is allowed.
func (s *Simple) PseudoElement(name string) *Simple {
	if s.accept(kindPseudoElement, true) {
		s.pseudoElement = name
	}
	return s
}

// String returns the CSS text of the selector: element name verbatim,
// "#" before the id, "." before each class, each attribute expression in
// brackets, ":" before each pseudo-class and "::" before the
// pseudo-element, concatenated without separators. Values are emitted
// exactly as supplied, no escaping or validation is performed.
func (s *Simple) String() string {
	var b strings.Builder
	b.WriteString(s.element)
	if s.seen&(1<<kindID) != 0 {
		b.WriteByte('#')
		b.WriteString(s.id)
	}
	for _, c := range s.classes {
		b.WriteByte('.')
		b.WriteString(c)
	}
	for _, a := range s.attrs {
		b.WriteByte('[')
		b.WriteString(a)
		b.WriteByte(']')
	}
	for _, p := range s.pseudoClasses {
		b.WriteByte(':')
		b.WriteString(p)
	}
	if s.seen&(1<<kindPseudoElement) != 0 {
		b.WriteString("::")
		b.WriteString(s.pseudoElement)
	}
	return b.String()
}

// Err returns the first construction violation, or nil.
func (s *Simple) Err() error { return s.err }

// Combined joins two selector nodes with a combinator token. It is
// immutable once constructed. The children are held by reference, they
// must not be mutated after being combined.
type Combined struct {
	left       Node
	combinator string
	right      Node
}

// Combine joins two already built nodes of either kind, allowing trees
// of arbitrary depth. The combinator token is taken as is and is not
// checked against the CSS set, Compile rejects unknown combinators when
// the tree is used for matching. Combine panics when either node is nil.
func Combine(left Node, combinator string, right Node) *Combined {
	if left == nil || right == nil {
		panic("selector: Combine requires non-nil operands")
	}
	return &Combined{left: left, combinator: combinator, right: right}
}

// String returns the CSS text of both operands joined by the combinator
// with exactly one space on each side. A single space combinator yields
// three consecutive spaces, reproducing the literal descendant form.
func (c *Combined) String() string {
	return c.left.String() + " " + c.combinator + " " + c.right.String()
}

// Err returns the first violation recorded in either subtree, left
// before right.
func (c *Combined) Err() error {
	if err := c.left.Err(); err != nil {
		return err
	}
	return c.right.Err()
}
