package template

import (
	"fmt"

	"github.com/apimimic/mimicd/pkg/request"
)

// Value is a compiled JSON-like template tree. Object and array structure is
// preserved; only string leaves carry parsed templates.
type Value struct {
	object   map[string]*Value
	array    []*Value
	str      *Template
	constant any
}

// CompileValue compiles a JSON-like value (the result of unmarshalling a
// response body from configuration) into a template tree.
func CompileValue(v any) (*Value, error) {
	switch t := v.(type) {
	case string:
		tmpl, err := Parse(t)
		if err != nil {
			return nil, err
		}
		return &Value{str: tmpl}, nil
	case map[string]any:
		obj := make(map[string]*Value, len(t))
		for key, val := range t {
			compiled, err := CompileValue(val)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", key, err)
			}
			obj[key] = compiled
		}
		return &Value{object: obj}, nil
	case []any:
		arr := make([]*Value, len(t))
		for i, val := range t {
			compiled, err := CompileValue(val)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			arr[i] = compiled
		}
		return &Value{array: arr}, nil
	default:
		// Numbers, booleans, null pass through untouched.
		return &Value{constant: t}, nil
	}
}

// RenderValue renders a compiled tree to a plain JSON-like value. Rendering
// an already-rendered tree that contains no tokens is a no-op, which keeps
// persistence round-trips stable.
func (r *Renderer) RenderValue(v *Value, ctx *request.Context, extra map[string]any) any {
	if v == nil {
		return nil
	}
	switch {
	case v.object != nil:
		out := make(map[string]any, len(v.object))
		for key, val := range v.object {
			out[key] = r.RenderValue(val, ctx, extra)
		}
		return out
	case v.array != nil:
		out := make([]any, len(v.array))
		for i, val := range v.array {
			out[i] = r.RenderValue(val, ctx, extra)
		}
		return out
	case v.str != nil:
		return r.Render(v.str, ctx, extra)
	default:
		return v.constant
	}
}
