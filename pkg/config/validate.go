package config

import (
	"fmt"
	"strings"
)

// ValidationError is a single configuration problem.
type ValidationError struct {
	Path    string // location within the document, e.g. "endpoints[2].method"
	Message string
}

func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors aggregates every problem found in one pass, so operators
// fix a broken config in one round trip instead of one error at a time.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return "invalid configuration:\n  " + strings.Join(msgs, "\n  ")
}

var validMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true,
	"DELETE": true, "HEAD": true, "OPTIONS": true,
}

var validAuthTypes = map[string]bool{
	"apiKey": true, "basic": true, "bearer": true, "jwt": true,
}

// Validate checks the structural rules of a configuration document. It does
// not compile patterns, conditions, or templates; pkg/endpoint does that and
// reports its own load-time errors. Returns nil or a ValidationErrors.
func Validate(doc *Document) error {
	var errs ValidationErrors
	add := func(path, format string, args ...any) {
		errs = append(errs, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	declaredAuth := map[string]bool{}
	for i, m := range doc.AuthMethods {
		loc := fmt.Sprintf("authMethods[%d]", i)
		if m.Name == "" {
			add(loc+".name", "auth method name is required")
		} else if declaredAuth[m.Name] {
			add(loc+".name", "duplicate auth method %q", m.Name)
		}
		declaredAuth[m.Name] = true

		if !validAuthTypes[m.Type] {
			add(loc+".type", "unknown auth type %q", m.Type)
			continue
		}
		switch m.Type {
		case "apiKey", "bearer":
			if len(m.Keys) == 0 {
				add(loc+".keys", "%s method %q declares no accepted keys", m.Type, m.Name)
			}
		case "basic":
			if len(m.Users) == 0 {
				add(loc+".users", "basic method %q declares no users", m.Name)
			}
		case "jwt":
			if m.Secret == "" {
				add(loc+".secret", "jwt method %q requires a signing secret", m.Name)
			}
		}
	}

	if len(doc.Endpoints) == 0 {
		add("endpoints", "at least one endpoint is required")
	}

	for i, ep := range doc.Endpoints {
		loc := fmt.Sprintf("endpoints[%d]", i)

		if ep.Path == "" {
			add(loc+".path", "path is required")
		}
		method := strings.ToUpper(ep.Method)
		if ep.Method == "" {
			add(loc+".method", "method is required")
		} else if !validMethods[method] {
			add(loc+".method", "unknown HTTP method %q", ep.Method)
		}

		for _, name := range ep.AuthMethods {
			if !declaredAuth[name] {
				add(loc+".authMethods", "endpoint references undeclared auth method %q", name)
			}
		}

		if len(ep.Responses) == 0 && ep.DefaultResponse == nil {
			add(loc+".responses", "endpoint declares no responses")
		}

		hasUnconditional := ep.DefaultResponse != nil
		for j, rule := range ep.Responses {
			ruleLoc := fmt.Sprintf("%s.responses[%d]", loc, j)
			if rule.Response.StatusCode < 100 || rule.Response.StatusCode > 599 {
				add(ruleLoc+".response.statusCode", "status code %d out of range", rule.Response.StatusCode)
			}
			if !ruleHasConditions(&ep.Responses[j]) {
				hasUnconditional = true
			}
		}
		if ep.DefaultResponse != nil {
			if ep.DefaultResponse.StatusCode < 100 || ep.DefaultResponse.StatusCode > 599 {
				add(loc+".defaultResponse.statusCode", "status code %d out of range", ep.DefaultResponse.StatusCode)
			}
		}
		if !hasUnconditional && len(ep.Responses) > 0 {
			add(loc, "every response is conditional and no defaultResponse is configured")
		}

		if p := ep.Persistence; p != nil && p.Enabled {
			if p.Key == "" && p.RetrieveFrom == "" {
				add(loc+".persistence", "persistence enabled but neither key nor retrieveFrom is set")
			}
			if p.TTLSeconds < 0 {
				add(loc+".persistence.ttlSeconds", "ttl must not be negative")
			}
			for _, spec := range []*ResponseSpec{p.NotFound, p.Unavailable} {
				if spec != nil && (spec.StatusCode < 100 || spec.StatusCode > 599) {
					add(loc+".persistence", "fallback status code %d out of range", spec.StatusCode)
				}
			}
		}
	}

	// Duplicate (method, path) pairs are rejected here on the raw strings;
	// pkg/endpoint additionally rejects structurally equivalent patterns
	// like /users/{id} vs /users/{name}.
	seen := map[string]int{}
	for i, ep := range doc.Endpoints {
		key := strings.ToUpper(ep.Method) + " " + ep.Path
		if prev, ok := seen[key]; ok {
			add(fmt.Sprintf("endpoints[%d]", i), "duplicate of endpoints[%d] (%s)", prev, key)
			continue
		}
		seen[key] = i
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func ruleHasConditions(r *ResponseRule) bool {
	return len(r.Conditions) > 0 ||
		len(r.PathConditions) > 0 ||
		len(r.QueryConditions) > 0 ||
		len(r.HeaderConditions) > 0 ||
		len(r.BodyConditions) > 0 ||
		len(r.BodyJSONPath) > 0 ||
		len(r.Expressions) > 0
}
