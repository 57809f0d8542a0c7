package request

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/users?page=2&page=3&sort=asc", strings.NewReader(`{"name":"ada"}`))
	r.Header.Set("Content-Type", "application/json; charset=utf-8")
	r.Header.Set("x-tenant", "acme")

	body := []byte(`{"name":"ada","address":{"city":"london"}}`)
	ctx := New(r, body)

	assert.Equal(t, "POST", ctx.Method)
	assert.Equal(t, "/api/users", ctx.Path)
	// First value wins on duplicate query parameters.
	assert.Equal(t, "2", ctx.Query["page"])
	assert.Equal(t, "asc", ctx.Query["sort"])
	// Headers are stored under their canonical names.
	assert.Equal(t, "acme", ctx.Headers["X-Tenant"])
	assert.Equal(t, body, ctx.RawBody)

	parsed, ok := ctx.Body.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ada", parsed["name"])
}

func TestNewBodyParsing(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		check       func(t *testing.T, ctx *Context)
	}{
		{
			name:        "json object",
			contentType: "application/json",
			body:        `{"a":1}`,
			check: func(t *testing.T, ctx *Context) {
				m, ok := ctx.Body.(map[string]any)
				require.True(t, ok)
				assert.Equal(t, float64(1), m["a"])
			},
		},
		{
			name:        "json array",
			contentType: "application/json",
			body:        `[1,2]`,
			check: func(t *testing.T, ctx *Context) {
				arr, ok := ctx.Body.([]any)
				require.True(t, ok)
				assert.Len(t, arr, 2)
			},
		},
		{
			name:        "malformed json leaves body nil",
			contentType: "application/json",
			body:        `{"a":`,
			check: func(t *testing.T, ctx *Context) {
				assert.Nil(t, ctx.Body)
			},
		},
		{
			name:        "form encoded",
			contentType: "application/x-www-form-urlencoded",
			body:        "name=ada&role=admin",
			check: func(t *testing.T, ctx *Context) {
				m, ok := ctx.Body.(map[string]any)
				require.True(t, ok)
				assert.Equal(t, "ada", m["name"])
				assert.Equal(t, "admin", m["role"])
			},
		},
		{
			name:        "unknown content type keeps raw only",
			contentType: "text/plain",
			body:        "hello",
			check: func(t *testing.T, ctx *Context) {
				assert.Nil(t, ctx.Body)
				assert.Equal(t, "hello", string(ctx.RawBody))
			},
		},
		{
			name:        "empty body",
			contentType: "application/json",
			body:        "",
			check: func(t *testing.T, ctx *Context) {
				assert.Nil(t, ctx.Body)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/x", strings.NewReader(tt.body))
			r.Header.Set("Content-Type", tt.contentType)
			tt.check(t, New(r, []byte(tt.body)))
		})
	}
}

func TestHeader(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-Request-ID", "abc")
	ctx := New(r, nil)

	for _, name := range []string{"X-Request-ID", "x-request-id", "X-REQUEST-ID"} {
		v, ok := ctx.Header(name)
		assert.True(t, ok, name)
		assert.Equal(t, "abc", v)
	}

	_, ok := ctx.Header("X-Missing")
	assert.False(t, ok)
}

func TestLookup(t *testing.T) {
	ctx := &Context{
		PathParams: map[string]string{"id": "42"},
		Query:      map[string]string{"page": "1"},
		Headers:    map[string]string{"X-Tenant": "acme"},
		Body: map[string]any{
			"user": map[string]any{"name": "ada"},
			"tags": []any{"a", "b"},
		},
	}

	tests := []struct {
		source, field string
		want          any
		found         bool
	}{
		{"path", "id", "42", true},
		{"query", "page", "1", true},
		{"headers", "x-tenant", "acme", true},
		{"body", "user.name", "ada", true},
		{"body", "tags.1", "b", true},
		{"body", "tags.5", nil, false},
		{"body", "tags.x", nil, false},
		{"body", "user.missing", nil, false},
		{"body", "user.name.deeper", nil, false},
		{"path", "missing", nil, false},
		{"cookie", "id", nil, false},
	}

	for _, tt := range tests {
		got, found := ctx.Lookup(tt.source, tt.field)
		assert.Equal(t, tt.found, found, "%s.%s", tt.source, tt.field)
		if tt.found {
			assert.Equal(t, tt.want, got)
		}
	}
}
