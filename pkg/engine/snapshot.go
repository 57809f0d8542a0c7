// Package engine drives the request-resolution pipeline: resolve the
// endpoint, check auth, select a response rule, render templates, and talk
// to the entity store. One request, one pass, no retries.
package engine

import (
	"time"

	"github.com/apimimic/mimicd/pkg/auth"
	"github.com/apimimic/mimicd/pkg/config"
	"github.com/apimimic/mimicd/pkg/endpoint"
)

// Snapshot is one fully-compiled configuration generation. Requests read a
// snapshot pointer once on entry and use it throughout, so a reload can swap
// in a new generation without any request observing a half-updated set.
type Snapshot struct {
	API      config.API
	Resolver *endpoint.Resolver
	Auth     *auth.Registry
	LoadedAt time.Time
}

// BuildSnapshot compiles a validated configuration document into a
// Snapshot. Any compile error makes the whole snapshot unusable; callers
// keep serving the previous generation.
func BuildSnapshot(doc *config.Document) (*Snapshot, error) {
	endpoints, err := endpoint.Build(doc)
	if err != nil {
		return nil, err
	}
	resolver, err := endpoint.NewResolver(endpoints)
	if err != nil {
		return nil, err
	}
	registry, err := auth.Build(doc.AuthMethods)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		API:      doc.API,
		Resolver: resolver,
		Auth:     registry,
		LoadedAt: time.Now(),
	}, nil
}
