package auth

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apimimic/mimicd/pkg/config"
	"github.com/apimimic/mimicd/pkg/request"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := Build([]config.AuthMethod{
		{Name: "header-key", Type: "apiKey", Keys: []string{"k1", "k2"}},
		{Name: "query-key", Type: "apiKey", QueryParam: "api_key", Keys: []string{"qk"}},
		{Name: "basic", Type: "basic", Users: map[string]string{"ada": "pass123"}},
		{Name: "bearer", Type: "bearer", Keys: []string{"tok-1"}},
		{Name: "jwt", Type: "jwt", Secret: "hmac-secret", Issuer: "mimicd-test"},
	})
	require.NoError(t, err)
	return r
}

func ctxWithHeaders(h map[string]string) *request.Context {
	return &request.Context{Headers: h, Query: map[string]string{}}
}

func basicHeader(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestCheckNoMethodsAllows(t *testing.T) {
	r := testRegistry(t)
	result := r.Check(nil, ctxWithHeaders(nil))
	assert.True(t, result.Allowed)
	assert.Nil(t, result.Claims)
}

func TestAPIKey(t *testing.T) {
	r := testRegistry(t)

	tests := []struct {
		name    string
		methods []string
		ctx     *request.Context
		want    bool
	}{
		{
			name:    "valid header key",
			methods: []string{"header-key"},
			ctx:     ctxWithHeaders(map[string]string{"X-Api-Key": "k1"}),
			want:    true,
		},
		{
			name:    "second accepted key",
			methods: []string{"header-key"},
			ctx:     ctxWithHeaders(map[string]string{"X-Api-Key": "k2"}),
			want:    true,
		},
		{
			name:    "unknown key",
			methods: []string{"header-key"},
			ctx:     ctxWithHeaders(map[string]string{"X-Api-Key": "nope"}),
		},
		{
			name:    "missing key",
			methods: []string{"header-key"},
			ctx:     ctxWithHeaders(nil),
		},
		{
			name:    "query parameter key",
			methods: []string{"query-key"},
			ctx:     &request.Context{Headers: map[string]string{}, Query: map[string]string{"api_key": "qk"}},
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := r.Check(tt.methods, tt.ctx)
			assert.Equal(t, tt.want, result.Allowed)
			if tt.want {
				assert.Equal(t, "apiKey", result.Claims["method"])
			} else {
				assert.NotEmpty(t, result.Reason)
			}
		})
	}
}

func TestBasic(t *testing.T) {
	r := testRegistry(t)

	tests := []struct {
		name   string
		header string
		want   bool
	}{
		{name: "valid credentials", header: basicHeader("ada", "pass123"), want: true},
		{name: "wrong password", header: basicHeader("ada", "wrong")},
		{name: "unknown user", header: basicHeader("bob", "pass123")},
		{name: "not base64", header: "Basic ???"},
		{name: "no colon", header: "Basic " + base64.StdEncoding.EncodeToString([]byte("adapass"))},
		{name: "wrong scheme", header: "Bearer tok-1"},
		{name: "missing header", header: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.header != "" {
				headers["Authorization"] = tt.header
			}
			result := r.Check([]string{"basic"}, ctxWithHeaders(headers))
			assert.Equal(t, tt.want, result.Allowed)
			if tt.want {
				assert.Equal(t, "ada", result.Claims["username"])
			}
		})
	}
}

func TestBearer(t *testing.T) {
	r := testRegistry(t)

	result := r.Check([]string{"bearer"}, ctxWithHeaders(map[string]string{"Authorization": "Bearer tok-1"}))
	assert.True(t, result.Allowed)

	result = r.Check([]string{"bearer"}, ctxWithHeaders(map[string]string{"Authorization": "Bearer other"}))
	assert.False(t, result.Allowed)
}

func TestJWT(t *testing.T) {
	r := testRegistry(t)

	baseClaims := func() jwt.MapClaims {
		return jwt.MapClaims{
			"iss": "mimicd-test",
			"sub": "user-42",
			"exp": time.Now().Add(time.Hour).Unix(),
		}
	}

	t.Run("valid token exposes claims", func(t *testing.T) {
		token := signToken(t, "hmac-secret", baseClaims())
		result := r.Check([]string{"jwt"}, ctxWithHeaders(map[string]string{"Authorization": "Bearer " + token}))
		require.True(t, result.Allowed)
		assert.Equal(t, "jwt", result.Claims["method"])
		assert.Equal(t, "user-42", result.Claims["sub"])
	})

	t.Run("wrong secret", func(t *testing.T) {
		token := signToken(t, "other-secret", baseClaims())
		result := r.Check([]string{"jwt"}, ctxWithHeaders(map[string]string{"Authorization": "Bearer " + token}))
		assert.False(t, result.Allowed)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		claims := baseClaims()
		claims["iss"] = "someone-else"
		token := signToken(t, "hmac-secret", claims)
		result := r.Check([]string{"jwt"}, ctxWithHeaders(map[string]string{"Authorization": "Bearer " + token}))
		assert.False(t, result.Allowed)
	})

	t.Run("expired token", func(t *testing.T) {
		claims := baseClaims()
		claims["exp"] = time.Now().Add(-time.Hour).Unix()
		token := signToken(t, "hmac-secret", claims)
		result := r.Check([]string{"jwt"}, ctxWithHeaders(map[string]string{"Authorization": "Bearer " + token}))
		assert.False(t, result.Allowed)
	})

	t.Run("garbage token", func(t *testing.T) {
		result := r.Check([]string{"jwt"}, ctxWithHeaders(map[string]string{"Authorization": "Bearer not.a.jwt"}))
		assert.False(t, result.Allowed)
	})
}

// Endpoints listing several methods accept a request passing any one of them.
func TestCheckOrSemantics(t *testing.T) {
	r := testRegistry(t)
	methods := []string{"header-key", "bearer"}

	result := r.Check(methods, ctxWithHeaders(map[string]string{"Authorization": "Bearer tok-1"}))
	assert.True(t, result.Allowed)
	assert.Equal(t, "bearer", result.Claims["method"])

	result = r.Check(methods, ctxWithHeaders(map[string]string{"X-Api-Key": "k1"}))
	assert.True(t, result.Allowed)
	assert.Equal(t, "apiKey", result.Claims["method"])

	result = r.Check(methods, ctxWithHeaders(nil))
	assert.False(t, result.Allowed)
	assert.NotEmpty(t, result.Reason)
}
