// Package template implements the response substitution engine. Templates
// are parsed once at configuration load into an AST of literal segments and
// {{token|filter:arg}} references, then rendered per request against a
// request.Context plus any extra bindings (stored entities, identity claims,
// self-references for persistence keys).
package template

import (
	"fmt"
	"strings"
)

// Template is a parsed template string. A nil *Template renders as "".
type Template struct {
	raw   string
	nodes []node
}

type node struct {
	// literal text when tok is nil
	text string
	tok  *token
}

type token struct {
	ref     string
	filters []filterCall
}

type filterCall struct {
	name string
	arg  string
}

// Parse compiles a template string. Parsing is lenient about content inside
// the braces (unknown references render empty at evaluation time) but strict
// about filter syntax, so configuration mistakes like {{x|add:y}} surface at
// load time instead of request time.
func Parse(s string) (*Template, error) {
	t := &Template{raw: s}
	rest := s
	for {
		open := strings.Index(rest, "{{")
		if open < 0 {
			break
		}
		closing := strings.Index(rest[open:], "}}")
		if closing < 0 {
			// Unclosed marker, keep as literal text.
			break
		}
		if open > 0 {
			t.nodes = append(t.nodes, node{text: rest[:open]})
		}
		inner := rest[open+2 : open+closing]
		tok, err := parseToken(inner)
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", s, err)
		}
		t.nodes = append(t.nodes, node{tok: tok})
		rest = rest[open+closing+2:]
	}
	if rest != "" {
		t.nodes = append(t.nodes, node{text: rest})
	}
	return t, nil
}

// MustParse is a convenience for tests and built-in defaults.
func MustParse(s string) *Template {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

func parseToken(inner string) (*token, error) {
	parts := splitPipes(inner)
	ref := strings.TrimSpace(parts[0])
	if ref == "" {
		return nil, fmt.Errorf("empty token")
	}
	tok := &token{ref: ref}
	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("empty filter after %q", ref)
		}
		name, arg := part, ""
		if i := strings.IndexByte(part, ':'); i >= 0 {
			name, arg = part[:i], part[i+1:]
		}
		name = strings.TrimSpace(name)
		if err := checkFilter(name, arg); err != nil {
			return nil, err
		}
		tok.filters = append(tok.filters, filterCall{name: name, arg: arg})
	}
	return tok, nil
}

// splitPipes splits on '|' outside of quotes, so a default value may itself
// contain a pipe: {{query.sep|default:'a|b'}}.
func splitPipes(s string) []string {
	var parts []string
	var cur strings.Builder
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			cur.WriteByte(ch)
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
			cur.WriteByte(ch)
		case ch == '|':
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(ch)
		}
	}
	parts = append(parts, cur.String())
	return parts
}

// IsZero reports whether the template has no content at all.
func (t *Template) IsZero() bool {
	return t == nil || len(t.nodes) == 0
}

// Raw returns the original template text.
func (t *Template) Raw() string {
	if t == nil {
		return ""
	}
	return t.raw
}

// singleToken reports whether the template is exactly one token with no
// surrounding literal text. Such templates render to the resolved value's
// natural JSON type instead of a string.
func (t *Template) singleToken() (*token, bool) {
	if t != nil && len(t.nodes) == 1 && t.nodes[0].tok != nil {
		return t.nodes[0].tok, true
	}
	return nil, false
}
