package template

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apimimic/mimicd/pkg/request"
)

func testContext() *request.Context {
	return &request.Context{
		Method:     "GET",
		Path:       "/api/users/42",
		PathParams: map[string]string{"id": "42", "name": "widgets"},
		Query:      map[string]string{"page": "3", "sort": "desc"},
		Headers:    map[string]string{"X-Tenant": "acme"},
		Body: map[string]any{
			"user":  map[string]any{"name": "ada", "age": float64(36)},
			"items": []any{"a", "b"},
			"total": float64(99.5),
		},
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		tmpl string
	}{
		{name: "empty token", tmpl: "{{}}"},
		{name: "empty filter", tmpl: "{{query.page|}}"},
		{name: "unknown filter", tmpl: "{{query.page|reverse}}"},
		{name: "add without numeric arg", tmpl: "{{query.page|add:x}}"},
		{name: "multiply without arg", tmpl: "{{query.page|multiply:}}"},
		{name: "upper with arg", tmpl: "{{query.sort|upper:x}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.tmpl)
			assert.Error(t, err)
		})
	}
}

func TestParseUnclosedBraceIsLiteral(t *testing.T) {
	r := NewRenderer(nil)

	tmpl, err := Parse("price: {{body.total")
	require.NoError(t, err)
	assert.Equal(t, "price: {{body.total", r.RenderString(tmpl, testContext(), nil))
}

func TestRenderString(t *testing.T) {
	tests := []struct {
		name string
		tmpl string
		want string
	}{
		{name: "no tokens", tmpl: "plain text", want: "plain text"},
		{name: "path param", tmpl: "user {{path.id}}", want: "user 42"},
		{name: "query param", tmpl: "page={{query.page}}", want: "page=3"},
		{name: "header", tmpl: "tenant {{headers.x-tenant}}", want: "tenant acme"},
		{name: "nested body", tmpl: "hello {{body.user.name}}", want: "hello ada"},
		{name: "body array index", tmpl: "first {{body.items.0}}", want: "first a"},
		{name: "number interpolation", tmpl: "total: {{body.total}}", want: "total: 99.5"},
		{name: "multiple tokens", tmpl: "{{path.name}}/{{path.id}}", want: "widgets/42"},
		{name: "unresolvable renders empty", tmpl: "x{{query.missing}}y", want: "xy"},
		{name: "upper filter", tmpl: "{{query.sort|upper}}", want: "DESC"},
		{name: "lower filter", tmpl: "{{headers.x-tenant|lower}}", want: "acme"},
		{name: "default on missing", tmpl: "{{query.missing|default:'n/a'}}", want: "n/a"},
		{name: "default skipped when present", tmpl: "{{query.sort|default:'asc'}}", want: "desc"},
		{name: "chained filters", tmpl: "{{query.missing|default:'ok'|upper}}", want: "OK"},
		{name: "quoted pipe in default", tmpl: "{{query.missing|default:'a|b'}}", want: "a|b"},
		{name: "add filter", tmpl: "next={{query.page|add:1}}", want: "next=4"},
		{name: "multiply filter", tmpl: "double={{body.total|multiply:2}}", want: "double=199"},
	}

	r := NewRenderer(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := Parse(tt.tmpl)
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.RenderString(tmpl, testContext(), nil))
		})
	}
}

// A template that is exactly one token keeps the resolved value's JSON type;
// anything with surrounding text interpolates to a string.
func TestRenderTyping(t *testing.T) {
	r := NewRenderer(nil)

	tests := []struct {
		name string
		tmpl string
		want any
	}{
		{name: "path params stay strings", tmpl: "{{path.id}}", want: "42"},
		{name: "body number keeps type", tmpl: "{{body.user.age}}", want: float64(36)},
		{name: "add yields number", tmpl: "{{path.id|add:0}}", want: float64(42)},
		{name: "embedded token is string", tmpl: "id-{{path.id}}", want: "id-42"},
		{name: "unresolved is empty string", tmpl: "{{query.missing}}", want: ""},
		{name: "default number keeps type", tmpl: "{{query.missing|default:7}}", want: float64(7)},
		{name: "default bool keeps type", tmpl: "{{query.missing|default:true}}", want: true},
		{name: "whole object reference", tmpl: "{{body.user}}", want: map[string]any{"name": "ada", "age": float64(36)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := Parse(tt.tmpl)
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.Render(tmpl, testContext(), nil))
		})
	}
}

func TestRenderExtraBindings(t *testing.T) {
	r := NewRenderer(nil)
	extra := map[string]any{
		"entity":   map[string]any{"id": "abc", "count": float64(2)},
		"auth.sub": "user-1",
	}

	tests := []struct {
		tmpl string
		want any
	}{
		{tmpl: "{{entity.id}}", want: "abc"},
		{tmpl: "{{entity.count}}", want: float64(2)},
		{tmpl: "{{auth.sub}}", want: "user-1"},
		{tmpl: "entity {{entity.id}}", want: "entity abc"},
	}

	for _, tt := range tests {
		tmpl, err := Parse(tt.tmpl)
		require.NoError(t, err)
		assert.Equal(t, tt.want, r.Render(tmpl, testContext(), extra))
	}

	// Request bindings win over extras with the same shape.
	tmpl := MustParse("{{path.id}}")
	assert.Equal(t, "42", r.Render(tmpl, testContext(), map[string]any{"path": map[string]any{"id": "other"}}))
}

func TestGenerators(t *testing.T) {
	r := NewRenderer(nil)
	ctx := testContext()

	t.Run("uuid", func(t *testing.T) {
		got := r.Render(MustParse("{{uuid}}"), ctx, nil)
		s, ok := got.(string)
		require.True(t, ok)
		assert.Len(t, s, 36)
		assert.NotEqual(t, got, r.Render(MustParse("{{uuid}}"), ctx, nil))
	})

	t.Run("timestamp", func(t *testing.T) {
		got := r.Render(MustParse("{{timestamp}}"), ctx, nil)
		s, ok := got.(string)
		require.True(t, ok)
		n, err := strconv.ParseInt(s, 10, 64)
		require.NoError(t, err)
		assert.Greater(t, n, int64(1_700_000_000))
	})

	t.Run("now is rfc3339", func(t *testing.T) {
		s := r.RenderString(MustParse("{{now}}"), ctx, nil)
		assert.Regexp(t, `^\d{4}-\d{2}-\d{2}T`, s)
	})

	t.Run("random int range", func(t *testing.T) {
		for i := 0; i < 20; i++ {
			got := r.Render(MustParse("{{random.int}}"), ctx, nil)
			n, ok := got.(float64)
			require.True(t, ok)
			assert.GreaterOrEqual(t, n, float64(0))
			assert.LessOrEqual(t, n, float64(100))
		}
	})
}

func TestCompileValue(t *testing.T) {
	r := NewRenderer(nil)

	src := map[string]any{
		"id":     "{{path.id}}",
		"name":   "{{body.user.name|upper}}",
		"age":    "{{body.user.age}}",
		"fixed":  float64(7),
		"active": true,
		"tags":   []any{"{{query.sort}}", "static"},
		"nested": map[string]any{"page": "{{query.page|add:0}}"},
	}

	v, err := CompileValue(src)
	require.NoError(t, err)

	got := r.RenderValue(v, testContext(), nil)
	assert.Equal(t, map[string]any{
		"id":     "42",
		"name":   "ADA",
		"age":    float64(36),
		"fixed":  float64(7),
		"active": true,
		"tags":   []any{"desc", "static"},
		"nested": map[string]any{"page": float64(3)},
	}, got)
}

func TestCompileValueError(t *testing.T) {
	_, err := CompileValue(map[string]any{"bad": "{{query.page|nope}}"})
	assert.ErrorContains(t, err, "bad")
}

// Rendering output that has already been rendered must not change it again:
// stored entities are re-rendered when echoed back.
func TestRenderValueIdempotent(t *testing.T) {
	r := NewRenderer(nil)

	v, err := CompileValue(map[string]any{"id": "{{path.id}}", "n": "{{body.user.age}}"})
	require.NoError(t, err)
	first := r.RenderValue(v, testContext(), nil)

	again, err := CompileValue(first)
	require.NoError(t, err)
	assert.Equal(t, first, r.RenderValue(again, testContext(), nil))
}
