// Package config defines the configuration documents that drive the mock
// server and loads them from disk. A full configuration is three documents:
// API metadata, auth-method declarations, and the endpoint list. They can
// live in one combined file or in separate files.
//
// Everything here is the raw, unmarshalled shape. Compilation into the
// immutable runtime form (parsed patterns, conditions, templates) happens in
// pkg/endpoint and fails fast at load time.
package config

// Document is the combined configuration file shape.
type Document struct {
	API         API          `json:"api" yaml:"api"`
	AuthMethods []AuthMethod `json:"authMethods" yaml:"authMethods"`
	Endpoints   []Endpoint   `json:"endpoints" yaml:"endpoints"`
}

// API is descriptive metadata about the mocked API.
type API struct {
	Name        string `json:"name" yaml:"name"`
	Version     string `json:"version,omitempty" yaml:"version,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// AuthMethod declares one way a request can authenticate. Endpoints
// reference methods by name; a request passes if any referenced method
// accepts it.
type AuthMethod struct {
	Name string `json:"name" yaml:"name"`

	// Type is one of "apiKey", "basic", "bearer", "jwt".
	Type string `json:"type" yaml:"type"`

	// Header is the header carrying the credential for apiKey methods.
	// Defaults to X-API-Key.
	Header string `json:"header,omitempty" yaml:"header,omitempty"`

	// QueryParam lets apiKey methods accept the key as a query parameter
	// instead of a header.
	QueryParam string `json:"queryParam,omitempty" yaml:"queryParam,omitempty"`

	// Keys are the accepted values for apiKey and bearer methods.
	Keys []string `json:"keys,omitempty" yaml:"keys,omitempty"`

	// Users maps username to password for basic methods.
	Users map[string]string `json:"users,omitempty" yaml:"users,omitempty"`

	// Secret is the HMAC signing secret for jwt methods.
	Secret string `json:"secret,omitempty" yaml:"secret,omitempty"`

	// Issuer, when set, must match the token's iss claim.
	Issuer string `json:"issuer,omitempty" yaml:"issuer,omitempty"`
}

// Endpoint configures one (method, path pattern) and its ordered responses.
type Endpoint struct {
	Path   string `json:"path" yaml:"path"`
	Method string `json:"method" yaml:"method"`

	// RequiredHeaders must all be present on the request, checked before
	// auth and before any rendering.
	RequiredHeaders []string `json:"requiredHeaders,omitempty" yaml:"requiredHeaders,omitempty"`

	// AuthMethods names declared auth methods; empty means no auth.
	AuthMethods []string `json:"authMethods,omitempty" yaml:"authMethods,omitempty"`

	// Responses are evaluated in declaration order; the first whose
	// conditions all hold wins.
	Responses []ResponseRule `json:"responses" yaml:"responses"`

	// DefaultResponse is used when no rule matches. An unconditional entry
	// in Responses serves the same purpose.
	DefaultResponse *ResponseSpec `json:"defaultResponse,omitempty" yaml:"defaultResponse,omitempty"`

	// Persistence opts the endpoint into the entity store.
	Persistence *Persistence `json:"persistence,omitempty" yaml:"persistence,omitempty"`
}

// ResponseRule is one conditional response. All condition buckets are
// AND-ed together; OR is expressed as multiple rules.
type ResponseRule struct {
	// Conditions are full expressions: "{{query.error}} == 'auth'".
	Conditions []string `json:"conditions,omitempty" yaml:"conditions,omitempty"`

	// Field buckets: key is the field name, value is either a literal
	// (equality) or an operator-prefixed string like "> 5".
	PathConditions   map[string]any `json:"pathConditions,omitempty" yaml:"pathConditions,omitempty"`
	QueryConditions  map[string]any `json:"queryConditions,omitempty" yaml:"queryConditions,omitempty"`
	HeaderConditions map[string]any `json:"headerConditions,omitempty" yaml:"headerConditions,omitempty"`
	BodyConditions   map[string]any `json:"bodyConditions,omitempty" yaml:"bodyConditions,omitempty"`

	// BodyJSONPath matches JSONPath expressions against the parsed body.
	BodyJSONPath map[string]any `json:"bodyJsonPath,omitempty" yaml:"bodyJsonPath,omitempty"`

	// Expressions are free-form boolean expressions for cases the fixed
	// grammar cannot express.
	Expressions []string `json:"expressions,omitempty" yaml:"expressions,omitempty"`

	Response ResponseSpec `json:"response" yaml:"response"`
}

// ResponseSpec is the response template: status, header templates, and a
// JSON-like body whose string leaves may contain {{tokens}}.
type ResponseSpec struct {
	StatusCode int               `json:"statusCode" yaml:"statusCode"`
	Headers    map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body       any               `json:"body,omitempty" yaml:"body,omitempty"`
}

// Persistence describes an endpoint's use of the entity store.
type Persistence struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Key is the storage key template for writes, rendered against the
	// request and the freshly rendered response (response.* bindings).
	Key string `json:"key,omitempty" yaml:"key,omitempty"`

	// RetrieveFrom is the key template for reads (and deletes), rendered
	// against the request only.
	RetrieveFrom string `json:"retrieveFrom,omitempty" yaml:"retrieveFrom,omitempty"`

	// TTLSeconds bounds stored entity lifetime; zero means no expiry.
	TTLSeconds int `json:"ttlSeconds,omitempty" yaml:"ttlSeconds,omitempty"`

	// NotFound is returned when RetrieveFrom misses. Without it the
	// pipeline surfaces a generic 404.
	NotFound *ResponseSpec `json:"notFound,omitempty" yaml:"notFound,omitempty"`

	// Unavailable is returned when the store itself fails. Without it the
	// pipeline surfaces a generic 503.
	Unavailable *ResponseSpec `json:"unavailable,omitempty" yaml:"unavailable,omitempty"`
}
