package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalJSON = `{
  "api": {"name": "petstore", "version": "1.0"},
  "endpoints": [
    {
      "path": "/pets/{id}",
      "method": "GET",
      "responses": [
        {"response": {"statusCode": 200, "body": {"id": "{{path.id}}", "count": 3}}}
      ]
    }
  ]
}`

const minimalYAML = `
api:
  name: petstore
endpoints:
  - path: /pets/{id}
    method: GET
    responses:
      - queryConditions:
          page: 2
        response:
          statusCode: 200
          body:
            id: "{{path.id}}"
            count: 3
      - response:
          statusCode: 200
          body:
            status: ok
`

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "config.json", minimalJSON)

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "petstore", doc.API.Name)
	require.Len(t, doc.Endpoints, 1)
	assert.Equal(t, "/pets/{id}", doc.Endpoints[0].Path)

	body, ok := doc.Endpoints[0].Responses[0].Response.Body.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(3), body["count"])
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", minimalYAML)

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "petstore", doc.API.Name)
	require.Len(t, doc.Endpoints, 1)

	// YAML integers normalize to float64, matching the JSON decoding shape.
	rule := doc.Endpoints[0].Responses[0]
	assert.Equal(t, float64(2), rule.QueryConditions["page"])
	body, ok := rule.Response.Body.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(3), body["count"])
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
		assert.ErrorIs(t, err, ErrFileNotFound)
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := Load(writeFile(t, "empty.json", ""))
		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := Load(writeFile(t, "bad.json", `{"endpoints": [`))
		assert.ErrorIs(t, err, ErrInvalidJSON)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := Load(writeFile(t, "bad.yaml", "endpoints:\n  - path: [unclosed"))
		assert.ErrorIs(t, err, ErrInvalidYAML)
	})

	t.Run("validation failure", func(t *testing.T) {
		_, err := Load(writeFile(t, "invalid.json", `{"endpoints": []}`))
		var verrs ValidationErrors
		assert.ErrorAs(t, err, &verrs)
	})
}

func TestLoadFiles(t *testing.T) {
	api := writeFile(t, "api.yaml", "name: split\nversion: \"2.0\"\n")
	auth := writeFile(t, "auth.yaml", `
authMethods:
  - name: admin-key
    type: apiKey
    keys: [secret-1]
`)
	endpoints := writeFile(t, "endpoints.yaml", `
endpoints:
  - path: /admin
    method: GET
    authMethods: [admin-key]
    responses:
      - response:
          statusCode: 200
          body: {status: ok}
`)

	doc, err := LoadFiles(api, auth, endpoints)
	require.NoError(t, err)
	assert.Equal(t, "split", doc.API.Name)
	assert.Equal(t, "2.0", doc.API.Version)
	require.Len(t, doc.AuthMethods, 1)
	assert.Equal(t, "admin-key", doc.AuthMethods[0].Name)
	require.Len(t, doc.Endpoints, 1)
}

func TestLoadFilesEndpointsOnly(t *testing.T) {
	endpoints := writeFile(t, "endpoints.json",
		`{"endpoints": [{"path": "/ping", "method": "GET", "responses": [{"response": {"statusCode": 204}}]}]}`)

	doc, err := LoadFiles("", "", endpoints)
	require.NoError(t, err)
	assert.Empty(t, doc.API.Name)
	require.Len(t, doc.Endpoints, 1)
}
