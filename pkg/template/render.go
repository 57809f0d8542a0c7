package template

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"

	"github.com/apimimic/mimicd/pkg/logging"
	"github.com/apimimic/mimicd/pkg/request"
)

// Renderer evaluates parsed templates against a request context. Rendering
// never fails: unresolvable tokens produce an empty string and a warning,
// which is the right trade-off for a mocking tool where a typo in one field
// should not take down the whole response.
type Renderer struct {
	log *slog.Logger
}

// NewRenderer creates a Renderer. A nil logger disables warnings.
func NewRenderer(log *slog.Logger) *Renderer {
	if log == nil {
		log = logging.Nop()
	}
	return &Renderer{log: log}
}

// Render evaluates a template to its natural value. A template consisting of
// exactly one token keeps the resolved value's JSON type (numbers stay
// numbers); tokens embedded in literal text interpolate as strings.
func (r *Renderer) Render(t *Template, ctx *request.Context, extra map[string]any) any {
	if t.IsZero() {
		return ""
	}
	if tok, ok := t.singleToken(); ok {
		val, found := r.resolveToken(tok, ctx, extra)
		if !found {
			return ""
		}
		return val
	}
	return r.RenderString(t, ctx, extra)
}

// RenderString evaluates a template to a string.
func (r *Renderer) RenderString(t *Template, ctx *request.Context, extra map[string]any) string {
	if t.IsZero() {
		return ""
	}
	var b strings.Builder
	for _, n := range t.nodes {
		if n.tok == nil {
			b.WriteString(n.text)
			continue
		}
		val, found := r.resolveToken(n.tok, ctx, extra)
		if found {
			b.WriteString(Stringify(val))
		}
	}
	return b.String()
}

func (r *Renderer) resolveToken(tok *token, ctx *request.Context, extra map[string]any) (any, bool) {
	val, found := resolveRef(tok.ref, ctx, extra)
	for _, f := range tok.filters {
		val, found = applyFilter(f, val, found)
	}
	if !found {
		r.log.Warn("unresolvable template token", "token", tok.ref)
		return "", false
	}
	return val, true
}

// resolveRef resolves a token reference in order: built-in generators,
// request-derived bindings, then extra bindings.
func resolveRef(ref string, ctx *request.Context, extra map[string]any) (any, bool) {
	if gen, ok := generators[ref]; ok {
		return gen(), true
	}
	source, field, hasDot := strings.Cut(ref, ".")
	if hasDot && ctx != nil {
		switch source {
		case "path", "query", "headers", "body":
			return ctx.Lookup(source, field)
		}
	}
	if extra != nil {
		if v, ok := lookupExtra(extra, ref); ok {
			return v, true
		}
	}
	return nil, false
}

// lookupExtra walks a dotted reference through nested maps, trying the
// longest leading key first so flat bindings like "auth.sub" also work.
func lookupExtra(m map[string]any, ref string) (any, bool) {
	if v, ok := m[ref]; ok {
		return v, true
	}
	head, rest, ok := strings.Cut(ref, ".")
	if !ok {
		return nil, false
	}
	nested, ok := m[head].(map[string]any)
	if !ok {
		return nil, false
	}
	return lookupExtra(nested, rest)
}

// Stringify converts a resolved value to its string interpolation form.
func Stringify(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
