package selector

import (
	"fmt"
	"slices"
	"strings"

	"github.com/beevik/etree"
)

// Matcher evaluates a compiled selector tree against elements of an
// etree document. Compile validates everything String does not: raw
// attribute expressions, pseudo-class names and combinator tokens.
// A Matcher is immutable and safe for concurrent use.
type Matcher struct {
	m matcher
}

type matcher interface {
	match(el *etree.Element) bool
}

// Compile prepares a selector tree for matching. It fails when the tree
// carries a construction violation, uses a combinator outside the CSS
// set (" ", ">", "+", "~"), contains a malformed attribute expression,
// names a pseudo-class outside the supported structural set, or has a
// pseudo-element (pseudo-elements have no document node to match).
func Compile(n Node) (*Matcher, error) {
	if err := n.Err(); err != nil {
		return nil, fmt.Errorf("selector %q is invalid: %w", n.String(), err)
	}
	m, err := compileNode(n)
	if err != nil {
		return nil, err
	}
	return &Matcher{m: m}, nil
}

func compileNode(n Node) (matcher, error) {
	switch t := n.(type) {
	case *Simple:
		return compileSimple(t)
	case *Combined:
		return compileCombined(t)
	default:
		return nil, fmt.Errorf("unsupported selector node type %T", n)
	}
}

// Match reports whether el matches the selector. For combined selectors
// the subject is the right side, the left side constrains its context.
func (m *Matcher) Match(el *etree.Element) bool {
	return el != nil && m.m.match(el)
}

// First returns the first matching element in document order within the
// subtree rooted at root (root itself included), or nil.
func (m *Matcher) First(root *etree.Element) *etree.Element {
	if root == nil {
		return nil
	}
	if m.m.match(root) {
		return root
	}
	for _, child := range root.ChildElements() {
		if found := m.First(child); found != nil {
			return found
		}
	}
	return nil
}

// All returns every matching element in document order within the
// subtree rooted at root, root itself included.
func (m *Matcher) All(root *etree.Element) []*etree.Element {
	var out []*etree.Element
	if root == nil {
		return out
	}
	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		if m.m.match(el) {
			out = append(out, el)
		}
		for _, child := range el.ChildElements() {
			walk(child)
		}
	}
	walk(root)
	return out
}

// simpleMatcher is the compiled form of a Simple selector: every
// condition must hold for the element.
type simpleMatcher struct {
	element string // empty or "*" matches any element
	id      string
	hasID   bool
	classes []string
	attrs   []attrMatcher
	pseudos []pseudoClassFn
}

func compileSimple(s *Simple) (matcher, error) {
	if s.seen&(1<<kindPseudoElement) != 0 {
		return nil, fmt.Errorf("pseudo-element %q cannot match document content", s.pseudoElement)
	}

	m := &simpleMatcher{
		element: s.element,
		id:      s.id,
		hasID:   s.seen&(1<<kindID) != 0,
		classes: s.classes,
	}
	for _, expr := range s.attrs {
		am, err := parseAttrExpr(expr)
		if err != nil {
			return nil, fmt.Errorf("attribute expression %q: %w", expr, err)
		}
		m.attrs = append(m.attrs, am)
	}
	for _, name := range s.pseudoClasses {
		fn, ok := pseudoClassFns[name]
		if !ok {
			return nil, fmt.Errorf("unsupported pseudo-class %q", name)
		}
		m.pseudos = append(m.pseudos, fn)
	}
	return m, nil
}

func (m *simpleMatcher) match(el *etree.Element) bool {
	if m.element != "" && m.element != "*" && el.Tag != m.element {
		return false
	}
	if m.hasID && el.SelectAttrValue("id", "") != m.id {
		return false
	}
	if len(m.classes) > 0 {
		have := strings.Fields(el.SelectAttrValue("class", ""))
		for _, want := range m.classes {
			if !slices.Contains(have, want) {
				return false
			}
		}
	}
	for _, am := range m.attrs {
		if !am.match(el) {
			return false
		}
	}
	for _, fn := range m.pseudos {
		if !fn(el) {
			return false
		}
	}
	return true
}

// combinedMatcher is the compiled form of a Combined selector. The
// right side must match the element itself, the left side must match
// the element the combinator relates it to.
type combinedMatcher struct {
	left       matcher
	combinator string
	right      matcher
}

func compileCombined(c *Combined) (matcher, error) {
	switch c.combinator {
	case " ", ">", "+", "~":
	default:
		return nil, fmt.Errorf("unsupported combinator %q", c.combinator)
	}
	left, err := compileNode(c.left)
	if err != nil {
		return nil, err
	}
	right, err := compileNode(c.right)
	if err != nil {
		return nil, err
	}
	return &combinedMatcher{left: left, combinator: c.combinator, right: right}, nil
}

func (m *combinedMatcher) match(el *etree.Element) bool {
	if !m.right.match(el) {
		return false
	}
	switch m.combinator {
	case " ":
		for p := parentElement(el); p != nil; p = parentElement(p) {
			if m.left.match(p) {
				return true
			}
		}
	case ">":
		if p := parentElement(el); p != nil {
			return m.left.match(p)
		}
	case "+":
		if prev := nearestPrecedingSibling(el); prev != nil {
			return m.left.match(prev)
		}
	case "~":
		prev := precedingSiblings(el)
		return slices.ContainsFunc(prev, m.left.match)
	}
	return false
}

// parentElement returns the parent element of el, nil when el is the
// document root. The etree document wrapper element has an empty tag.
func parentElement(el *etree.Element) *etree.Element {
	p := el.Parent()
	if p == nil || p.Tag == "" {
		return nil
	}
	return p
}

// nearestPrecedingSibling returns the closest element sibling before el.
func nearestPrecedingSibling(el *etree.Element) *etree.Element {
	p := el.Parent()
	if p == nil {
		return nil
	}
	for i := el.Index() - 1; i >= 0; i-- {
		if sib, ok := p.Child[i].(*etree.Element); ok {
			return sib
		}
	}
	return nil
}

// precedingSiblings returns all element siblings before el, nearest first.
func precedingSiblings(el *etree.Element) []*etree.Element {
	p := el.Parent()
	if p == nil {
		return nil
	}
	var out []*etree.Element
	for i := el.Index() - 1; i >= 0; i-- {
		if sib, ok := p.Child[i].(*etree.Element); ok {
			out = append(out, sib)
		}
	}
	return out
}

type pseudoClassFn func(el *etree.Element) bool

// pseudoClassFns maps supported structural pseudo-classes to their
// predicates. Pseudo-classes needing arguments (:not, :nth-child) are
// outside the supported set.
var pseudoClassFns = map[string]pseudoClassFn{
	"root":          isRoot,
	"empty":         isEmpty,
	"first-child":   isFirstChild,
	"last-child":    isLastChild,
	"only-child":    func(el *etree.Element) bool { return isFirstChild(el) && isLastChild(el) },
	"first-of-type": isFirstOfType,
	"last-of-type":  isLastOfType,
	"only-of-type":  func(el *etree.Element) bool { return isFirstOfType(el) && isLastOfType(el) },
}

func isRoot(el *etree.Element) bool {
	return parentElement(el) == nil
}

// isEmpty reports whether el has no element children and no text beyond
// whitespace. Indentation-only character data is ignored so that pretty
// printed documents behave the same as compact ones.
func isEmpty(el *etree.Element) bool {
	for _, child := range el.Child {
		switch t := child.(type) {
		case *etree.Element:
			return false
		case *etree.CharData:
			if strings.TrimSpace(t.Data) != "" {
				return false
			}
		}
	}
	return true
}

func isFirstChild(el *etree.Element) bool {
	return nearestPrecedingSibling(el) == nil
}

func isLastChild(el *etree.Element) bool {
	p := el.Parent()
	if p == nil {
		return true
	}
	for i := el.Index() + 1; i < len(p.Child); i++ {
		if _, ok := p.Child[i].(*etree.Element); ok {
			return false
		}
	}
	return true
}

func isFirstOfType(el *etree.Element) bool {
	for _, sib := range precedingSiblings(el) {
		if sib.Tag == el.Tag {
			return false
		}
	}
	return true
}

func isLastOfType(el *etree.Element) bool {
	p := el.Parent()
	if p == nil {
		return true
	}
	for i := el.Index() + 1; i < len(p.Child); i++ {
		if sib, ok := p.Child[i].(*etree.Element); ok && sib.Tag == el.Tag {
			return false
		}
	}
	return true
}
