// Package matching compiles endpoint path patterns and matches request
// paths against them. Patterns are segment based: "/users/{id}/posts"
// matches any path with the same segment count where literal segments match
// exactly (case-sensitive) and {name} segments capture any single non-empty
// segment.
package matching

import (
	"fmt"
	"strings"
)

// Pattern is a compiled path pattern.
type Pattern struct {
	raw      string
	segments []segment
}

type segment struct {
	literal string
	param   string // non-empty for {name} segments
}

// Compile parses a path pattern. Patterns must start with "/" and may not
// declare the same parameter name twice.
func Compile(pattern string) (*Pattern, error) {
	if !strings.HasPrefix(pattern, "/") {
		return nil, fmt.Errorf("path pattern %q must start with /", pattern)
	}

	p := &Pattern{raw: pattern}
	seen := map[string]bool{}
	for _, part := range splitPath(pattern) {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			name := part[1 : len(part)-1]
			if name == "" {
				return nil, fmt.Errorf("path pattern %q has an unnamed parameter", pattern)
			}
			if seen[name] {
				return nil, fmt.Errorf("path pattern %q repeats parameter %q", pattern, name)
			}
			seen[name] = true
			p.segments = append(p.segments, segment{param: name})
			continue
		}
		if strings.ContainsAny(part, "{}") {
			return nil, fmt.Errorf("path pattern %q: segment %q mixes literal and parameter", pattern, part)
		}
		p.segments = append(p.segments, segment{literal: part})
	}
	return p, nil
}

// Raw returns the original pattern string.
func (p *Pattern) Raw() string {
	return p.raw
}

// Match checks a request path against the pattern and returns captured
// parameters on success. Matching requires an exact segment count; empty
// segments never match a parameter.
func (p *Pattern) Match(path string) (map[string]string, bool) {
	parts := splitPath(path)
	if len(parts) != len(p.segments) {
		return nil, false
	}

	var params map[string]string
	for i, seg := range p.segments {
		if seg.param != "" {
			if parts[i] == "" {
				return nil, false
			}
			if params == nil {
				params = make(map[string]string)
			}
			params[seg.param] = parts[i]
			continue
		}
		if seg.literal != parts[i] {
			return nil, false
		}
	}
	if params == nil {
		params = map[string]string{}
	}
	return params, true
}

// Equivalent reports whether two patterns would match the same set of
// paths, i.e. the same shape of literal and parameter segments. Parameter
// names do not matter: /users/{id} duplicates /users/{name}.
func (p *Pattern) Equivalent(other *Pattern) bool {
	if len(p.segments) != len(other.segments) {
		return false
	}
	for i, seg := range p.segments {
		o := other.segments[i]
		if (seg.param != "") != (o.param != "") {
			return false
		}
		if seg.param == "" && seg.literal != o.literal {
			return false
		}
	}
	return true
}

// MoreSpecific reports whether p should win over other when both match the
// same path. At the first position where the patterns differ in kind, the
// literal segment takes priority, so /users/new beats /users/{id}.
func (p *Pattern) MoreSpecific(other *Pattern) bool {
	for i := range p.segments {
		if i >= len(other.segments) {
			break
		}
		pLit := p.segments[i].param == ""
		oLit := other.segments[i].param == ""
		if pLit != oLit {
			return pLit
		}
	}
	return false
}

func splitPath(path string) []string {
	return strings.Split(strings.Trim(path, "/"), "/")
}
