// Package endpoint holds the compiled, immutable form of the configuration:
// path patterns, conditions, and templates are all parsed once at load time
// so request processing never compiles anything. A built endpoint set is
// read-only; configuration reload builds a fresh set and swaps it in
// atomically.
package endpoint

import (
	"fmt"
	"strings"
	"time"

	"github.com/apimimic/mimicd/internal/matching"
	"github.com/apimimic/mimicd/pkg/condition"
	"github.com/apimimic/mimicd/pkg/config"
	"github.com/apimimic/mimicd/pkg/request"
	"github.com/apimimic/mimicd/pkg/template"
)

// Endpoint is one compiled (method, path pattern) definition.
type Endpoint struct {
	Method  string
	Pattern *matching.Pattern

	// Rules in declaration order; first match wins.
	Rules []*Rule

	// Default is used when no rule matches. Always non-nil after Build.
	Default *Rule

	RequiredHeaders []string
	AuthMethods     []string
	Persistence     *Persistence
}

// Rule is one compiled conditional response.
type Rule struct {
	Conditions  []*condition.Condition
	JSONPath    []*condition.JSONPath
	Expressions []*condition.Expression
	Response    *Response
}

// Matches reports whether every condition of the rule holds. A rule with no
// conditions matches unconditionally.
func (r *Rule) Matches(ctx *request.Context) bool {
	for _, c := range r.Conditions {
		if !c.Eval(ctx) {
			return false
		}
	}
	for _, c := range r.JSONPath {
		if !c.Eval(ctx) {
			return false
		}
	}
	for _, e := range r.Expressions {
		if !e.Eval(ctx) {
			return false
		}
	}
	return true
}

// Response is a compiled response template.
type Response struct {
	StatusCode int
	Headers    map[string]*template.Template
	Body       *template.Value // nil means empty body
}

// Persistence is the compiled persistence descriptor.
type Persistence struct {
	Key          *template.Template
	RetrieveFrom *template.Template
	TTL          time.Duration
	NotFound     *Response
	Unavailable  *Response
}

// Build compiles a validated configuration document into endpoint
// definitions. Compilation errors (bad patterns, bad condition syntax, bad
// template filters) are fatal at load time.
func Build(doc *config.Document) ([]*Endpoint, error) {
	endpoints := make([]*Endpoint, 0, len(doc.Endpoints))
	for i := range doc.Endpoints {
		ep, err := buildEndpoint(&doc.Endpoints[i])
		if err != nil {
			return nil, fmt.Errorf("endpoint %s %s: %w", doc.Endpoints[i].Method, doc.Endpoints[i].Path, err)
		}
		endpoints = append(endpoints, ep)
	}
	return endpoints, nil
}

func buildEndpoint(cfg *config.Endpoint) (*Endpoint, error) {
	pattern, err := matching.Compile(cfg.Path)
	if err != nil {
		return nil, err
	}

	ep := &Endpoint{
		Method:          strings.ToUpper(cfg.Method),
		Pattern:         pattern,
		RequiredHeaders: cfg.RequiredHeaders,
		AuthMethods:     cfg.AuthMethods,
	}

	for i := range cfg.Responses {
		rule, err := buildRule(&cfg.Responses[i])
		if err != nil {
			return nil, fmt.Errorf("responses[%d]: %w", i, err)
		}
		if len(rule.Conditions) == 0 && len(rule.JSONPath) == 0 && len(rule.Expressions) == 0 && ep.Default == nil {
			// First unconditional rule doubles as the default: rules after
			// it are unreachable anyway since it always matches.
			ep.Default = rule
		}
		ep.Rules = append(ep.Rules, rule)
	}

	if cfg.DefaultResponse != nil {
		resp, err := buildResponse(cfg.DefaultResponse)
		if err != nil {
			return nil, fmt.Errorf("defaultResponse: %w", err)
		}
		ep.Default = &Rule{Response: resp}
	}
	if ep.Default == nil {
		return nil, fmt.Errorf("no default response")
	}

	if cfg.Persistence != nil && cfg.Persistence.Enabled {
		p, err := buildPersistence(cfg.Persistence)
		if err != nil {
			return nil, fmt.Errorf("persistence: %w", err)
		}
		ep.Persistence = p
	}

	return ep, nil
}

func buildRule(cfg *config.ResponseRule) (*Rule, error) {
	rule := &Rule{}

	for _, expr := range cfg.Conditions {
		c, err := condition.Parse(expr)
		if err != nil {
			return nil, err
		}
		rule.Conditions = append(rule.Conditions, c)
	}

	buckets := []struct {
		source string
		fields map[string]any
	}{
		{"path", cfg.PathConditions},
		{"query", cfg.QueryConditions},
		{"headers", cfg.HeaderConditions},
		{"body", cfg.BodyConditions},
	}
	for _, bucket := range buckets {
		for field, spec := range bucket.fields {
			c, err := condition.ParseField(bucket.source, field, spec)
			if err != nil {
				return nil, err
			}
			rule.Conditions = append(rule.Conditions, c)
		}
	}

	for path, expected := range cfg.BodyJSONPath {
		c, err := condition.CompileJSONPath(path, expected)
		if err != nil {
			return nil, err
		}
		rule.JSONPath = append(rule.JSONPath, c)
	}

	for _, src := range cfg.Expressions {
		e, err := condition.CompileExpression(src)
		if err != nil {
			return nil, err
		}
		rule.Expressions = append(rule.Expressions, e)
	}

	resp, err := buildResponse(&cfg.Response)
	if err != nil {
		return nil, err
	}
	rule.Response = resp
	return rule, nil
}

func buildResponse(cfg *config.ResponseSpec) (*Response, error) {
	resp := &Response{StatusCode: cfg.StatusCode}

	if len(cfg.Headers) > 0 {
		resp.Headers = make(map[string]*template.Template, len(cfg.Headers))
		for name, value := range cfg.Headers {
			t, err := template.Parse(value)
			if err != nil {
				return nil, fmt.Errorf("header %q: %w", name, err)
			}
			resp.Headers[name] = t
		}
	}

	if cfg.Body != nil {
		body, err := template.CompileValue(cfg.Body)
		if err != nil {
			return nil, fmt.Errorf("body: %w", err)
		}
		resp.Body = body
	}
	return resp, nil
}

func buildPersistence(cfg *config.Persistence) (*Persistence, error) {
	p := &Persistence{TTL: time.Duration(cfg.TTLSeconds) * time.Second}

	var err error
	if cfg.Key != "" {
		if p.Key, err = template.Parse(cfg.Key); err != nil {
			return nil, fmt.Errorf("key: %w", err)
		}
	}
	if cfg.RetrieveFrom != "" {
		if p.RetrieveFrom, err = template.Parse(cfg.RetrieveFrom); err != nil {
			return nil, fmt.Errorf("retrieveFrom: %w", err)
		}
	}
	if cfg.NotFound != nil {
		if p.NotFound, err = buildResponse(cfg.NotFound); err != nil {
			return nil, fmt.Errorf("notFound: %w", err)
		}
	}
	if cfg.Unavailable != nil {
		if p.Unavailable, err = buildResponse(cfg.Unavailable); err != nil {
			return nil, fmt.Errorf("unavailable: %w", err)
		}
	}
	return p, nil
}
