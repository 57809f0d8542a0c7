// Package request builds the per-request context that conditions and
// templates evaluate against. A Context is created when a request enters
// the pipeline and discarded once the response is written; it is never
// shared between requests.
package request

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Context holds the parsed view of one incoming HTTP request.
type Context struct {
	Method string
	Path   string

	// PathParams are named segments captured by the matched pattern.
	PathParams map[string]string

	// Query holds query parameters, first value wins on duplicates.
	Query map[string]string

	// Headers holds request headers keyed by canonical name.
	Headers map[string]string

	// Body is the parsed request body: a JSON value for application/json,
	// a flat string map for form-encoded payloads, nil otherwise.
	Body any

	// RawBody is the body exactly as received.
	RawBody []byte

	// Auth carries identity claims injected after a successful auth check.
	Auth map[string]any
}

// New parses an incoming request into a Context. The body is interpreted
// according to Content-Type; payloads that fail to parse leave Body nil
// rather than erroring, since a mock server should not reject traffic the
// operator may still want matched on path or headers alone.
func New(r *http.Request, body []byte) *Context {
	ctx := &Context{
		Method:     r.Method,
		Path:       r.URL.Path,
		PathParams: map[string]string{},
		Query:      flattenQuery(r.URL.Query()),
		Headers:    flattenHeaders(r.Header),
		RawBody:    body,
	}

	if len(body) == 0 {
		return ctx
	}

	mediaType := r.Header.Get("Content-Type")
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	mediaType = strings.TrimSpace(strings.ToLower(mediaType))

	switch mediaType {
	case "application/json":
		var parsed any
		if err := json.Unmarshal(body, &parsed); err == nil {
			ctx.Body = parsed
		}
	case "application/x-www-form-urlencoded":
		if values, err := url.ParseQuery(string(body)); err == nil {
			form := make(map[string]any, len(values))
			for key, vals := range values {
				if len(vals) > 0 {
					form[key] = vals[0]
				}
			}
			ctx.Body = form
		}
	}

	return ctx
}

// Header returns the header value for name, case-insensitively.
func (c *Context) Header(name string) (string, bool) {
	v, ok := c.Headers[http.CanonicalHeaderKey(name)]
	return v, ok
}

// Lookup resolves a dotted reference like "query.page" or "body.user.name"
// against the request. The boolean reports whether the field was present.
func (c *Context) Lookup(source, field string) (any, bool) {
	switch source {
	case "path":
		v, ok := c.PathParams[field]
		return v, ok
	case "query":
		v, ok := c.Query[field]
		return v, ok
	case "headers":
		return c.Header(field)
	case "body":
		return lookupBody(c.Body, field)
	}
	return nil, false
}

// lookupBody walks a dotted path through parsed JSON structures. Numeric
// segments index into arrays.
func lookupBody(body any, path string) (any, bool) {
	if body == nil {
		return nil, false
	}
	current := body
	for _, part := range strings.Split(path, ".") {
		switch v := current.(type) {
		case map[string]any:
			next, ok := v[part]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, false
			}
			current = v[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

func flattenQuery(values url.Values) map[string]string {
	out := make(map[string]string, len(values))
	for key, vals := range values {
		if len(vals) > 0 {
			out[key] = vals[0]
		}
	}
	return out
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for key, vals := range h {
		if len(vals) > 0 {
			out[http.CanonicalHeaderKey(key)] = vals[0]
		}
	}
	return out
}
