package engine

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/apimimic/mimicd/pkg/endpoint"
	"github.com/apimimic/mimicd/pkg/logging"
	"github.com/apimimic/mimicd/pkg/persist"
	"github.com/apimimic/mimicd/pkg/request"
	"github.com/apimimic/mimicd/pkg/requestlog"
	"github.com/apimimic/mimicd/pkg/template"
)

// MaxRequestBodySize caps request bodies to keep a single oversized payload
// from exhausting memory.
const MaxRequestBodySize = 10 << 20 // 10MB

// adminPrefix guards the operational endpoints (health, reload, request
// history); it never collides with configured mock paths.
const adminPrefix = "/__mimicd/"

// ReloadFunc re-reads the configuration from its source. Wired by the CLI
// so the reload admin endpoint and SIGHUP share one code path.
type ReloadFunc func() (*Snapshot, error)

// Options configures an Engine.
type Options struct {
	// Store backs persistence-enabled endpoints. Defaults to an in-memory
	// store.
	Store persist.Store

	// Logger receives operational logs. Defaults to a no-op logger.
	Logger *slog.Logger

	// HistorySize is the request log capacity. Defaults to 1000.
	HistorySize int

	// Reload, when set, enables the reload admin endpoint.
	Reload ReloadFunc
}

// Engine is the http.Handler that runs the pipeline.
type Engine struct {
	snapshot atomic.Pointer[Snapshot]
	store    persist.Store
	renderer *template.Renderer
	log      *slog.Logger
	history  *requestlog.Log
	reload   ReloadFunc
}

// New creates an Engine serving the given snapshot.
func New(snap *Snapshot, opts Options) *Engine {
	if opts.Store == nil {
		opts.Store = persist.NewMemoryStore()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = 1000
	}

	e := &Engine{
		store:    opts.Store,
		renderer: template.NewRenderer(opts.Logger),
		log:      opts.Logger,
		history:  requestlog.New(opts.HistorySize),
		reload:   opts.Reload,
	}
	e.snapshot.Store(snap)
	return e
}

// Snapshot returns the currently served configuration generation.
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshot.Load()
}

// Swap atomically replaces the served configuration. In-flight requests
// keep the generation they started with.
func (e *Engine) Swap(snap *Snapshot) {
	old := e.snapshot.Swap(snap)
	e.log.Info("configuration swapped",
		"endpoints", len(snap.Resolver.Endpoints()),
		"previous_loaded_at", old.LoadedAt,
	)
}

// ServeHTTP implements the request pipeline. Every exit is terminal and maps
// to a deterministic status; nothing is retried here.
func (e *Engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if strings.HasPrefix(r.URL.Path, adminPrefix) {
		e.serveAdmin(w, r)
		return
	}

	snap := e.snapshot.Load()

	status, matched := e.handle(w, r, snap)

	e.history.Record(requestlog.Entry{
		Timestamp:  start,
		Method:     r.Method,
		Path:       r.URL.Path,
		Query:      r.URL.RawQuery,
		Endpoint:   matched,
		Status:     status,
		DurationMs: time.Since(start).Milliseconds(),
		RemoteAddr: r.RemoteAddr,
	})
	e.log.Debug("request handled",
		"method", r.Method,
		"path", r.URL.Path,
		"endpoint", matched,
		"status", status,
		"duration", time.Since(start),
	)
}

// handle runs the pipeline states and returns the response status plus the
// matched pattern (empty when unresolved).
func (e *Engine) handle(w http.ResponseWriter, r *http.Request, snap *Snapshot) (int, string) {
	// Received -> Resolved
	body, ok := e.readBody(w, r)
	if !ok {
		return http.StatusRequestEntityTooLarge, ""
	}

	ep, params, err := snap.Resolver.Resolve(r.Method, r.URL.Path)
	if err != nil {
		if errors.Is(err, endpoint.ErrMethodNotAllowed) {
			return writeError(w, http.StatusMethodNotAllowed, "method_not_allowed",
				"path is configured but not for "+r.Method), ""
		}
		return writeError(w, http.StatusNotFound, "no_route",
			"no endpoint matches "+r.Method+" "+r.URL.Path), ""
	}
	pattern := ep.Method + " " + ep.Pattern.Raw()

	ctx := request.New(r, body)
	ctx.PathParams = params

	// Resolved -> Authenticated. Required headers and auth both run before
	// any rendering, so a rejected request never reaches the renderer.
	for _, name := range ep.RequiredHeaders {
		if _, present := ctx.Header(name); !present {
			return writeError(w, http.StatusBadRequest, "missing_required_header",
				"required header "+name+" is missing"), pattern
		}
	}
	result := snap.Auth.Check(ep.AuthMethods, ctx)
	if !result.Allowed {
		return writeError(w, http.StatusUnauthorized, "unauthorized", result.Reason), pattern
	}
	ctx.Auth = result.Claims

	// Authenticated -> Selected
	rule := selectRule(ep, ctx)

	extra := map[string]any{}
	if ctx.Auth != nil {
		extra["auth"] = ctx.Auth
	}

	// Persistence read happens before rendering so stored entity fields can
	// be injected into the response template.
	var entityRaw []byte
	if p := ep.Persistence; p != nil && p.RetrieveFrom != nil {
		var status int
		entityRaw, status = e.loadEntity(w, r, ctx, p, extra)
		if status != 0 {
			return status, pattern
		}
	}

	// Selected -> Rendered
	return e.respond(w, r, ctx, ep, rule, extra, entityRaw), pattern
}

// readBody drains the request body under the global size cap. Returns false
// after writing the 413 itself.
func (e *Engine) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if r.Body == nil {
		return nil, true
	}
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			e.log.Warn("request body too large", "path", r.URL.Path, "limit", MaxRequestBodySize)
			writeError(w, http.StatusRequestEntityTooLarge, "body_too_large",
				"request body exceeds the maximum allowed size")
			return nil, false
		}
		e.log.Warn("failed to read request body", "path", r.URL.Path, "error", err)
	}
	return body, true
}

// loadEntity renders the retrieveFrom key and performs the read (or, for
// DELETE, the delete). A zero status means the pipeline continues; non-zero
// means a fallback response was already written.
func (e *Engine) loadEntity(w http.ResponseWriter, r *http.Request, ctx *request.Context, p *endpoint.Persistence, extra map[string]any) ([]byte, int) {
	key := e.renderer.RenderString(p.RetrieveFrom, ctx, extra)

	if r.Method == http.MethodDelete {
		err := e.store.Delete(r.Context(), key)
		switch {
		case errors.Is(err, persist.ErrNotFound):
			return nil, e.writeFallback(w, ctx, extra, p.NotFound, http.StatusNotFound, "entity_not_found",
				"no entity stored under the requested key")
		case err != nil:
			e.log.Error("entity store delete failed", "key", key, "error", err)
			return nil, e.writeFallback(w, ctx, extra, p.Unavailable, http.StatusServiceUnavailable, "store_unavailable",
				"entity store is unavailable")
		}
		return nil, 0
	}

	entity, err := e.store.Get(r.Context(), key)
	switch {
	case errors.Is(err, persist.ErrNotFound):
		return nil, e.writeFallback(w, ctx, extra, p.NotFound, http.StatusNotFound, "entity_not_found",
			"no entity stored under the requested key")
	case err != nil:
		e.log.Error("entity store get failed", "key", key, "error", err)
		return nil, e.writeFallback(w, ctx, extra, p.Unavailable, http.StatusServiceUnavailable, "store_unavailable",
			"entity store is unavailable")
	}

	var parsed any
	if err := json.Unmarshal(entity, &parsed); err == nil {
		if fields, ok := parsed.(map[string]any); ok {
			extra["entity"] = fields
		}
	}
	return entity, 0
}

// respond renders the selected rule and writes it out, persisting the
// rendered body afterwards when the endpoint stores on this method.
func (e *Engine) respond(w http.ResponseWriter, r *http.Request, ctx *request.Context, ep *endpoint.Endpoint, rule *endpoint.Rule, extra map[string]any, entityRaw []byte) int {
	resp := rule.Response

	var bodyBytes []byte
	var rendered any
	isJSON := false

	switch {
	case resp.Body != nil:
		rendered = e.renderer.RenderValue(resp.Body, ctx, extra)
		if s, ok := rendered.(string); ok {
			bodyBytes = []byte(s)
			isJSON = looksLikeJSON(s)
		} else {
			data, err := json.Marshal(rendered)
			if err != nil {
				e.log.Error("failed to encode rendered body", "error", err)
				return writeError(w, http.StatusInternalServerError, "render_failed",
					"could not encode the rendered response body")
			}
			bodyBytes = data
			isJSON = true
		}
	case entityRaw != nil:
		// A retrieve endpoint without a body template echoes the stored
		// entity verbatim.
		bodyBytes = entityRaw
		isJSON = true
	}

	// Persistence writes happen after a successful render, using the
	// rendered body as the stored entity and exposing it as response.* for
	// the key template.
	if p := ep.Persistence; p != nil && p.Key != nil && isWriteMethod(r.Method) {
		keyExtra := extra
		if fields, ok := rendered.(map[string]any); ok {
			keyExtra = make(map[string]any, len(extra)+1)
			for k, v := range extra {
				keyExtra[k] = v
			}
			keyExtra["response"] = fields
		}
		key := e.renderer.RenderString(p.Key, ctx, keyExtra)
		if err := e.store.Put(r.Context(), key, bodyBytes, p.TTL); err != nil {
			e.log.Error("entity store put failed", "key", key, "error", err)
			return e.writeFallback(w, ctx, extra, p.Unavailable, http.StatusServiceUnavailable, "store_unavailable",
				"entity store is unavailable")
		}
	}

	// Rendered -> Sent
	for name, tmpl := range resp.Headers {
		w.Header().Set(name, e.renderer.RenderString(tmpl, ctx, extra))
	}
	if w.Header().Get("Content-Type") == "" && len(bodyBytes) > 0 {
		if isJSON {
			w.Header().Set("Content-Type", "application/json")
		} else {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		}
	}
	w.WriteHeader(resp.StatusCode)
	if len(bodyBytes) > 0 {
		_, _ = w.Write(bodyBytes)
	}
	return resp.StatusCode
}

// writeFallback writes a configured fallback response, or the generic error
// when the endpoint configured none.
func (e *Engine) writeFallback(w http.ResponseWriter, ctx *request.Context, extra map[string]any, fallback *endpoint.Response, status int, code, message string) int {
	if fallback == nil {
		return writeError(w, status, code, message)
	}
	for name, tmpl := range fallback.Headers {
		w.Header().Set(name, e.renderer.RenderString(tmpl, ctx, extra))
	}
	var bodyBytes []byte
	isJSON := false
	if fallback.Body != nil {
		rendered := e.renderer.RenderValue(fallback.Body, ctx, extra)
		if s, ok := rendered.(string); ok {
			bodyBytes = []byte(s)
			isJSON = looksLikeJSON(s)
		} else if data, err := json.Marshal(rendered); err == nil {
			bodyBytes = data
			isJSON = true
		}
	}
	if w.Header().Get("Content-Type") == "" && len(bodyBytes) > 0 {
		if isJSON {
			w.Header().Set("Content-Type", "application/json")
		} else {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		}
	}
	w.WriteHeader(fallback.StatusCode)
	if len(bodyBytes) > 0 {
		_, _ = w.Write(bodyBytes)
	}
	return fallback.StatusCode
}

func isWriteMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

func looksLikeJSON(s string) bool {
	s = strings.TrimSpace(s)
	return (strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}")) ||
		(strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]"))
}

// Close releases the entity store connection.
func (e *Engine) Close() error {
	return e.store.Close()
}
