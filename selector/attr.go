package selector

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/beevik/etree"
	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// attrMatcher is one compiled attribute expression: a presence check
// when op is empty, a value comparison otherwise.
type attrMatcher struct {
	key string
	op  string // "", "=", "~=", "|=", "^=", "$=", "*="
	val string
}

// parseAttrExpr lexes a raw attribute expression such as `href$=".png"`,
// `rel~=nofollow` or a bare `disabled`. The value may be quoted with
// single or double quotes or be a bare identifier, number or hash.
func parseAttrExpr(expr string) (attrMatcher, error) {
	var m attrMatcher

	l := css.NewLexer(parse.NewInputString(expr))
	next := func() (css.TokenType, string) {
		for {
			tt, data := l.Next()
			if tt != css.WhitespaceToken && tt != css.CommentToken {
				return tt, string(data)
			}
		}
	}

	tt, data := next()
	if tt != css.IdentToken {
		return m, fmt.Errorf("expected attribute name, got %q", data)
	}
	m.key = data

	tt, data = next()
	if tt == css.ErrorToken {
		if l.Err() != io.EOF {
			return m, fmt.Errorf("unable to lex expression: %w", l.Err())
		}
		// bare name, presence check
		return m, nil
	}

	switch tt {
	case css.DelimToken:
		if data != "=" {
			return m, fmt.Errorf("unexpected %q after attribute name", data)
		}
		m.op = "="
	case css.IncludeMatchToken:
		m.op = "~="
	case css.DashMatchToken:
		m.op = "|="
	case css.PrefixMatchToken:
		m.op = "^="
	case css.SuffixMatchToken:
		m.op = "$="
	case css.SubstringMatchToken:
		m.op = "*="
	default:
		return m, fmt.Errorf("unexpected %q after attribute name", data)
	}

	switch tt, data = next(); tt {
	case css.StringToken:
		m.val = unquote(data)
	case css.IdentToken, css.NumberToken, css.DimensionToken, css.PercentageToken, css.HashToken:
		m.val = data
	case css.ErrorToken:
		return m, fmt.Errorf("missing value after %q", m.op)
	default:
		return m, fmt.Errorf("unexpected value token %q", data)
	}

	if tt, data = next(); tt != css.ErrorToken {
		return m, fmt.Errorf("trailing %q after value", data)
	}
	if l.Err() != io.EOF {
		return m, fmt.Errorf("unable to lex expression: %w", l.Err())
	}
	return m, nil
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

func (m attrMatcher) match(el *etree.Element) bool {
	attr := el.SelectAttr(m.key)
	if attr == nil {
		return false
	}
	v := attr.Value
	switch m.op {
	case "":
		return true
	case "=":
		return v == m.val
	case "~=":
		return slices.Contains(strings.Fields(v), m.val)
	case "|=":
		return v == m.val || strings.HasPrefix(v, m.val+"-")
	case "^=":
		return m.val != "" && strings.HasPrefix(v, m.val)
	case "$=":
		return m.val != "" && strings.HasSuffix(v, m.val)
	case "*=":
		return m.val != "" && strings.Contains(v, m.val)
	}
	return false
}
