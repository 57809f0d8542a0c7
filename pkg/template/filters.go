package template

import (
	"fmt"
	"strconv"
	"strings"
)

// checkFilter validates a filter at parse time so malformed configuration
// fails on load rather than per request.
func checkFilter(name, arg string) error {
	switch name {
	case "default":
		return nil
	case "upper", "lower":
		if arg != "" {
			return fmt.Errorf("filter %q takes no argument", name)
		}
		return nil
	case "add", "multiply":
		if _, err := strconv.ParseFloat(arg, 64); err != nil {
			return fmt.Errorf("filter %q requires a numeric argument, got %q", name, arg)
		}
		return nil
	}
	return fmt.Errorf("unknown filter %q", name)
}

// applyFilter applies one filter to a resolved value. Filters run
// left-to-right after binding resolution; "default" is the only filter that
// can turn an unresolved token into a resolved one.
func applyFilter(f filterCall, val any, found bool) (any, bool) {
	switch f.name {
	case "default":
		if !found || val == "" || val == nil {
			return parseLiteral(f.arg), true
		}
		return val, true
	case "upper":
		return strings.ToUpper(Stringify(val)), found
	case "lower":
		return strings.ToLower(Stringify(val)), found
	case "add", "multiply":
		n, ok := toNumber(val)
		if !ok {
			return val, found
		}
		arg, _ := strconv.ParseFloat(f.arg, 64)
		if f.name == "add" {
			return n + arg, found
		}
		return n * arg, found
	}
	return val, found
}

// parseLiteral interprets a filter argument: quoted strings are literals,
// otherwise numbers and booleans keep their JSON type.
func parseLiteral(s string) any {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}

func toNumber(val any) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return n, err == nil
	}
	return 0, false
}
