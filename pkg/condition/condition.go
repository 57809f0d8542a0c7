// Package condition evaluates response rule conditions against a request
// context. The core grammar is a single comparison per condition:
//
//	{{source.field}} <op> literal
//
// where source is path, query, headers or body. Conditions within a rule are
// AND-ed; OR is expressed by declaring multiple rules, which keeps evaluation
// order deterministic. Conditions are parsed once at configuration load.
package condition

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/apimimic/mimicd/pkg/request"
	"github.com/apimimic/mimicd/pkg/template"
)

// Op is a comparison operator.
type Op string

// Supported operators.
const (
	OpEq       Op = "=="
	OpNe       Op = "!="
	OpGt       Op = ">"
	OpLt       Op = "<"
	OpGe       Op = ">="
	OpLe       Op = "<="
	OpContains Op = "contains"
	OpMatches  Op = "matches"
)

// Condition is one compiled comparison.
type Condition struct {
	Source  string
	Field   string
	Op      Op
	Literal string

	re *regexp.Regexp // compiled pattern for OpMatches
}

var exprPattern = regexp.MustCompile(
	`^\{\{\s*(path|query|headers|body)\.([^\s{}]+)\s*\}\}\s*(==|!=|>=|<=|>|<|contains|matches)\s*(.*)$`)

// Parse compiles a full condition expression like
// "{{query.error}} == 'auth'".
func Parse(expr string) (*Condition, error) {
	m := exprPattern.FindStringSubmatch(strings.TrimSpace(expr))
	if m == nil {
		return nil, fmt.Errorf("invalid condition %q", expr)
	}
	return build(m[1], m[2], Op(m[3]), unquote(m[4]))
}

// ParseField compiles a map-form condition from a condition bucket, e.g.
// queryConditions: {"page": "> 5"}. A bare value means equality; a string
// value may start with an operator.
func ParseField(source, field string, spec any) (*Condition, error) {
	switch v := spec.(type) {
	case string:
		if op, rest, ok := splitOperator(v); ok {
			return build(source, field, op, unquote(rest))
		}
		return build(source, field, OpEq, v)
	case float64:
		return build(source, field, OpEq, strconv.FormatFloat(v, 'f', -1, 64))
	case bool:
		return build(source, field, OpEq, strconv.FormatBool(v))
	default:
		return nil, fmt.Errorf("condition %s.%s: unsupported value %T", source, field, spec)
	}
}

func build(source, field string, op Op, literal string) (*Condition, error) {
	c := &Condition{Source: source, Field: field, Op: op, Literal: literal}
	switch op {
	case OpEq, OpNe, OpGt, OpLt, OpGe, OpLe, OpContains:
	case OpMatches:
		re, err := regexp.Compile(literal)
		if err != nil {
			return nil, fmt.Errorf("condition %s.%s: bad pattern %q: %w", source, field, literal, err)
		}
		c.re = re
	default:
		return nil, fmt.Errorf("condition %s.%s: unknown operator %q", source, field, op)
	}
	return c, nil
}

// splitOperator checks whether a map-form value starts with an explicit
// operator ("> 5", "contains foo"). Longer operators are tried first so
// ">=" is not misread as ">".
func splitOperator(s string) (Op, string, bool) {
	trimmed := strings.TrimSpace(s)
	for _, op := range []Op{OpGe, OpLe, OpEq, OpNe, OpContains, OpMatches, OpGt, OpLt} {
		prefix := string(op) + " "
		if strings.HasPrefix(trimmed, prefix) {
			return op, strings.TrimSpace(trimmed[len(prefix):]), true
		}
	}
	return "", "", false
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// Eval evaluates the condition against a request. Absent fields compare
// false under every operator except two explicit carve-outs: "!=" against a
// non-empty literal holds, and "==" against the empty string holds, so
// configs can test for a parameter's absence.
func (c *Condition) Eval(ctx *request.Context) bool {
	val, found := ctx.Lookup(c.Source, c.Field)
	if !found {
		switch c.Op {
		case OpEq:
			return c.Literal == ""
		case OpNe:
			return c.Literal != ""
		default:
			return false
		}
	}

	str := template.Stringify(val)

	switch c.Op {
	case OpEq:
		return equal(val, str, c.Literal)
	case OpNe:
		return !equal(val, str, c.Literal)
	case OpContains:
		return strings.Contains(str, c.Literal)
	case OpMatches:
		return c.re.MatchString(str)
	case OpGt, OpLt, OpGe, OpLe:
		left, okL := toNumber(val)
		right, okR := toNumber(c.Literal)
		if !okL || !okR {
			// Non-numeric operands make the comparison false, not an error.
			return false
		}
		switch c.Op {
		case OpGt:
			return left > right
		case OpLt:
			return left < right
		case OpGe:
			return left >= right
		default:
			return left <= right
		}
	}
	return false
}

// equal compares numerically when both sides are numbers, otherwise by
// string representation, so {{body.count}} == 10 holds for a JSON number.
func equal(val any, str, literal string) bool {
	if left, ok := toNumber(val); ok {
		if right, ok := toNumber(literal); ok {
			return left == right
		}
	}
	return str == literal
}

func toNumber(val any) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return n, err == nil
	}
	return 0, false
}

// String returns the canonical expression form, used in error messages.
func (c *Condition) String() string {
	return fmt.Sprintf("{{%s.%s}} %s %s", c.Source, c.Field, c.Op, c.Literal)
}
