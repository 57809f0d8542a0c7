package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/apimimic/mimicd/pkg/request"
)

// jwtMethod validates HMAC-signed bearer tokens. All token claims become
// identity claims, so templates can reference {{auth.sub}}, {{auth.email}}
// and so on.
type jwtMethod struct {
	secret []byte
	issuer string
}

func newJWTMethod(secret, issuer string) *jwtMethod {
	return &jwtMethod{secret: []byte(secret), issuer: issuer}
}

func (m *jwtMethod) check(ctx *request.Context) Result {
	header, _ := ctx.Header("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return deny("missing bearer token")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return deny("invalid token")
	}

	claims := map[string]any{"method": "jwt"}
	if mapClaims, ok := token.Claims.(jwt.MapClaims); ok {
		for key, value := range mapClaims {
			claims[key] = value
		}
	}
	return allow(claims)
}
