package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Common loading errors.
var (
	ErrFileNotFound = errors.New("configuration file not found")
	ErrEmptyFile    = errors.New("configuration file is empty")
	ErrInvalidJSON  = errors.New("invalid JSON syntax")
	ErrInvalidYAML  = errors.New("invalid YAML syntax")
)

// Load reads a combined configuration document from a single file. The
// format is chosen by extension: .yaml/.yml parse as YAML, everything else
// as JSON. The document is validated before being returned; any validation
// error is fatal here, never deferred to request time.
func Load(path string) (*Document, error) {
	var doc Document
	if err := readInto(path, &doc); err != nil {
		return nil, err
	}
	if err := Validate(&doc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &doc, nil
}

// LoadFiles reads a configuration split across three documents: API
// metadata, auth-method declarations, and the endpoint list. apiPath and
// authPath may be empty; endpointsPath is required.
func LoadFiles(apiPath, authPath, endpointsPath string) (*Document, error) {
	var doc Document

	if apiPath != "" {
		if err := readInto(apiPath, &doc.API); err != nil {
			return nil, err
		}
	}
	if authPath != "" {
		var auth struct {
			AuthMethods []AuthMethod `json:"authMethods" yaml:"authMethods"`
		}
		if err := readInto(authPath, &auth); err != nil {
			return nil, err
		}
		doc.AuthMethods = auth.AuthMethods
	}
	var endpoints struct {
		Endpoints []Endpoint `json:"endpoints" yaml:"endpoints"`
	}
	if err := readInto(endpointsPath, &endpoints); err != nil {
		return nil, err
	}
	doc.Endpoints = endpoints.Endpoints

	if err := Validate(&doc); err != nil {
		return nil, fmt.Errorf("%s: %w", endpointsPath, err)
	}
	return &doc, nil
}

func readInto(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		if err := yaml.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%w in %s: %v", ErrInvalidYAML, path, err)
		}
		normalize(out)
		return nil
	}

	if !json.Valid(data) {
		return fmt.Errorf("%w in %s", ErrInvalidJSON, path)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w in %s: %v", ErrInvalidJSON, path, err)
	}
	return nil
}

// normalize rewrites YAML's map[string]any-with-any-keys values into the
// JSON-shaped form the rest of the system expects. yaml.v3 already decodes
// mappings with string keys as map[string]any, so only nested condition and
// body values need a pass.
func normalize(out any) {
	switch doc := out.(type) {
	case *Document:
		for i := range doc.Endpoints {
			normalizeEndpoint(&doc.Endpoints[i])
		}
	case *struct {
		Endpoints []Endpoint `json:"endpoints" yaml:"endpoints"`
	}:
		for i := range doc.Endpoints {
			normalizeEndpoint(&doc.Endpoints[i])
		}
	}
}

func normalizeEndpoint(ep *Endpoint) {
	for i := range ep.Responses {
		rule := &ep.Responses[i]
		rule.Response.Body = normalizeValue(rule.Response.Body)
		rule.PathConditions = normalizeMap(rule.PathConditions)
		rule.QueryConditions = normalizeMap(rule.QueryConditions)
		rule.HeaderConditions = normalizeMap(rule.HeaderConditions)
		rule.BodyConditions = normalizeMap(rule.BodyConditions)
		rule.BodyJSONPath = normalizeMap(rule.BodyJSONPath)
	}
	if ep.DefaultResponse != nil {
		ep.DefaultResponse.Body = normalizeValue(ep.DefaultResponse.Body)
	}
	if ep.Persistence != nil {
		if ep.Persistence.NotFound != nil {
			ep.Persistence.NotFound.Body = normalizeValue(ep.Persistence.NotFound.Body)
		}
		if ep.Persistence.Unavailable != nil {
			ep.Persistence.Unavailable.Body = normalizeValue(ep.Persistence.Unavailable.Body)
		}
	}
}

func normalizeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

// normalizeValue converts yaml-decoded values (map[any]any keys, int
// scalars) into the encoding/json shapes: map[string]any and float64.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalizeValue(val)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprintf("%v", k)] = normalizeValue(val)
		}
		return out
	case []any:
		for i, val := range t {
			t[i] = normalizeValue(val)
		}
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	default:
		return v
	}
}
