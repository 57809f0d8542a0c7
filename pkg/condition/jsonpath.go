package condition

import (
	"fmt"
	"reflect"

	"github.com/ohler55/ojg/jp"

	"github.com/apimimic/mimicd/pkg/request"
)

// JSONPath is a compiled JSONPath condition against the parsed request body.
// The expected value is either a literal to compare against, or the marker
// object {"exists": true|false} for presence checks.
type JSONPath struct {
	path     string
	expr     jp.Expr
	expected any
	exists   *bool
}

// CompileJSONPath compiles a bodyJSONPath condition entry.
func CompileJSONPath(path string, expected any) (*JSONPath, error) {
	x, err := jp.ParseString(path)
	if err != nil {
		return nil, fmt.Errorf("jsonpath %q: %w", path, err)
	}
	c := &JSONPath{path: path, expr: x, expected: expected}
	if m, ok := expected.(map[string]any); ok {
		if v, ok := m["exists"].(bool); ok && len(m) == 1 {
			c.exists = &v
		}
	}
	return c, nil
}

// Eval applies the JSONPath to the request body. A request without a parsed
// JSON body fails every condition except an exists:false check.
func (c *JSONPath) Eval(ctx *request.Context) bool {
	var results []any
	if ctx.Body != nil {
		results = c.expr.Get(ctx.Body)
	}

	if c.exists != nil {
		return (len(results) > 0) == *c.exists
	}
	for _, got := range results {
		if looseEqual(got, c.expected) {
			return true
		}
	}
	return false
}

// String returns the JSONPath source.
func (c *JSONPath) String() string {
	return c.path
}

// looseEqual compares values with numeric normalization, so a config integer
// matches a JSON float64.
func looseEqual(a, b any) bool {
	if na, ok := toNumber(a); ok {
		if nb, ok := toNumber(b); ok {
			return na == nb
		}
	}
	return reflect.DeepEqual(a, b)
}
