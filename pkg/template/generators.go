package template

import (
	cryptorand "crypto/rand"
	"encoding/hex"
	mathrand "math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// generators are the built-in value producers. They resolve before any
// request binding, so an operator cannot shadow {{uuid}} with a query
// parameter named "uuid".
var generators = map[string]func() any{
	"now": func() any {
		return time.Now().UTC().Format(time.RFC3339)
	},
	"now.date": func() any {
		return time.Now().UTC().Format("2006-01-02")
	},
	"now.time": func() any {
		return time.Now().UTC().Format("15:04:05")
	},
	// now.recent yields a jittered timestamp up to ten minutes in the past,
	// useful for "createdAt" fields that should not all be identical.
	"now.recent": func() any {
		jitter := time.Duration(mathrand.Int64N(int64(10 * time.Minute)))
		return time.Now().UTC().Add(-jitter).Format(time.RFC3339)
	},
	"now.soon": func() any {
		jitter := time.Duration(mathrand.Int64N(int64(10 * time.Minute)))
		return time.Now().UTC().Add(jitter).Format(time.RFC3339)
	},
	"timestamp": func() any {
		return strconv.FormatInt(time.Now().Unix(), 10)
	},
	"timestamp.ms": func() any {
		return strconv.FormatInt(time.Now().UnixMilli(), 10)
	},
	"uuid": func() any {
		return uuid.New().String()
	},
	"random": func() any {
		b := make([]byte, 4)
		if _, err := cryptorand.Read(b); err != nil {
			return ""
		}
		return hex.EncodeToString(b)
	},
	"random.int": func() any {
		return float64(mathrand.IntN(101))
	},
	"random.float": func() any {
		return mathrand.Float64() * 100
	},
}
