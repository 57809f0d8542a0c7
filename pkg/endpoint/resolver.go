package endpoint

import (
	"errors"
	"fmt"
	"strings"
)

// Resolution errors. The pipeline maps ErrNoRoute to 404 and
// ErrMethodNotAllowed to 405.
var (
	ErrNoRoute          = errors.New("no endpoint matches path")
	ErrMethodNotAllowed = errors.New("path matched but method not allowed")
)

// Resolver matches (method, path) pairs against a fixed endpoint set. It is
// built once per configuration load and never mutated afterwards, so it can
// be shared across concurrent requests without locking.
type Resolver struct {
	endpoints []*Endpoint
}

// NewResolver builds a resolver, rejecting endpoint sets where two
// definitions for the same method would match the same paths.
func NewResolver(endpoints []*Endpoint) (*Resolver, error) {
	for i, ep := range endpoints {
		for _, other := range endpoints[:i] {
			if ep.Method == other.Method && ep.Pattern.Equivalent(other.Pattern) {
				return nil, fmt.Errorf("duplicate endpoint %s %s (same shape as %s)",
					ep.Method, ep.Pattern.Raw(), other.Pattern.Raw())
			}
		}
	}
	return &Resolver{endpoints: endpoints}, nil
}

// Resolve finds the endpoint for a request. When several patterns match the
// path, the most specific wins: at the first position where two candidates
// differ in kind, the literal segment beats the parameter segment, so
// /users/new is chosen over /users/{id}. Returns ErrMethodNotAllowed when
// the path is known but not for this method, so the pipeline can answer 405
// instead of 404.
func (r *Resolver) Resolve(method, path string) (*Endpoint, map[string]string, error) {
	method = strings.ToUpper(method)

	var (
		best       *Endpoint
		bestParams map[string]string
		pathKnown  bool
	)

	for _, ep := range r.endpoints {
		params, ok := ep.Pattern.Match(path)
		if !ok {
			continue
		}
		pathKnown = true
		if ep.Method != method {
			continue
		}
		if best == nil || ep.Pattern.MoreSpecific(best.Pattern) {
			best = ep
			bestParams = params
		}
	}

	if best != nil {
		return best, bestParams, nil
	}
	if pathKnown {
		return nil, nil, ErrMethodNotAllowed
	}
	return nil, nil, ErrNoRoute
}

// Endpoints returns the resolver's endpoint set in declaration order.
func (r *Resolver) Endpoints() []*Endpoint {
	return r.endpoints
}
