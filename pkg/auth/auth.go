// Package auth validates requests against the configured auth methods. An
// endpoint declares method names; the request passes if any one of them
// accepts it (OR semantics). A successful check yields identity claims that
// become auth.* template bindings.
package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/apimimic/mimicd/pkg/config"
	"github.com/apimimic/mimicd/pkg/request"
)

// Result is the outcome of an auth check.
type Result struct {
	Allowed bool

	// Claims describe the authenticated identity; nil when denied or when
	// the endpoint requires no auth.
	Claims map[string]any

	// Reason explains a denial, for logs and error bodies.
	Reason string
}

func allow(claims map[string]any) Result {
	return Result{Allowed: true, Claims: claims}
}

func deny(reason string) Result {
	return Result{Reason: reason}
}

// method validates one credential style.
type method interface {
	check(ctx *request.Context) Result
}

// Registry holds the compiled auth methods by name.
type Registry struct {
	methods map[string]method
}

// Build compiles auth method declarations. Unknown types and missing
// credentials were already rejected by config validation; Build trusts the
// document.
func Build(cfgs []config.AuthMethod) (*Registry, error) {
	r := &Registry{methods: make(map[string]method, len(cfgs))}
	for _, cfg := range cfgs {
		m, err := buildMethod(cfg)
		if err != nil {
			return nil, fmt.Errorf("auth method %q: %w", cfg.Name, err)
		}
		r.methods[cfg.Name] = m
	}
	return r, nil
}

func buildMethod(cfg config.AuthMethod) (method, error) {
	switch cfg.Type {
	case "apiKey":
		header := cfg.Header
		if header == "" && cfg.QueryParam == "" {
			header = "X-API-Key"
		}
		return &apiKeyMethod{header: header, queryParam: cfg.QueryParam, keys: toSet(cfg.Keys)}, nil
	case "basic":
		return &basicMethod{users: cfg.Users}, nil
	case "bearer":
		return &bearerMethod{tokens: toSet(cfg.Keys)}, nil
	case "jwt":
		return newJWTMethod(cfg.Secret, cfg.Issuer), nil
	default:
		return nil, fmt.Errorf("unknown type %q", cfg.Type)
	}
}

// Check runs the named methods in order and returns the first success. An
// empty name list means the endpoint requires no authentication.
func (r *Registry) Check(names []string, ctx *request.Context) Result {
	if len(names) == 0 {
		return allow(nil)
	}

	var lastReason string
	for _, name := range names {
		m, ok := r.methods[name]
		if !ok {
			// Undeclared names are rejected at load; this guards reloads
			// racing a stale endpoint set.
			lastReason = fmt.Sprintf("auth method %q not declared", name)
			continue
		}
		result := m.check(ctx)
		if result.Allowed {
			return result
		}
		lastReason = result.Reason
	}
	return deny(lastReason)
}

type apiKeyMethod struct {
	header     string
	queryParam string
	keys       map[string]bool
}

func (m *apiKeyMethod) check(ctx *request.Context) Result {
	var presented string
	if m.header != "" {
		presented, _ = ctx.Header(m.header)
	}
	if presented == "" && m.queryParam != "" {
		presented = ctx.Query[m.queryParam]
	}
	if presented == "" {
		return deny("missing API key")
	}
	if !m.keys[presented] {
		return deny("unknown API key")
	}
	return allow(map[string]any{"method": "apiKey"})
}

type basicMethod struct {
	users map[string]string
}

func (m *basicMethod) check(ctx *request.Context) Result {
	header, _ := ctx.Header("Authorization")
	encoded, ok := strings.CutPrefix(header, "Basic ")
	if !ok {
		return deny("missing basic credentials")
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return deny("malformed basic credentials")
	}
	user, pass, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return deny("malformed basic credentials")
	}
	want, exists := m.users[user]
	if !exists || subtle.ConstantTimeCompare([]byte(want), []byte(pass)) != 1 {
		return deny("invalid username or password")
	}
	return allow(map[string]any{"method": "basic", "username": user})
}

type bearerMethod struct {
	tokens map[string]bool
}

func (m *bearerMethod) check(ctx *request.Context) Result {
	header, _ := ctx.Header("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return deny("missing bearer token")
	}
	if !m.tokens[token] {
		return deny("unknown bearer token")
	}
	return allow(map[string]any{"method": "bearer"})
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
