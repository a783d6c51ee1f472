// Package adapters holds the helpers shared by the sql dialects.
// Values reaching a dialect are already storable: time.Time is a formatted
// string, numbers are int, int64 or float64.
package adapters

import (
	"fmt"
	"strings"
)

// Kind the json kind of a value
type Kind uint8

// kinds
const (
	KindOther Kind = iota
	KindString
	KindNumber
	KindBool
)

// KindOf classify a storable value
func KindOf(v any) Kind {
	switch v.(type) {
	case string:
		return KindString
	case int, int32, int64, float32, float64, uint, uint32, uint64:
		return KindNumber
	case bool:
		return KindBool
	}
	return KindOther
}

// CheckPath validate path segments before they are embedded in sql literals.
func CheckPath(path []string) error {
	for _, seg := range path {
		if seg == "" {
			return fmt.Errorf("empty path segment in %q", strings.Join(path, "."))
		}
		for _, r := range seg {
			if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
				return fmt.Errorf("invalid character %q in path %q", r, strings.Join(path, "."))
			}
		}
	}
	return nil
}

// JSONPath the $.a.b form used by mysql and sqlite.
func JSONPath(path []string) string {
	return "'$." + strings.Join(path, ".") + "'"
}

// Nest wrap value in objects following path, {"a":{"b":value}}
func Nest(path []string, value any) any {
	for i := len(path) - 1; i >= 0; i-- {
		value = map[string]any{path[i]: value}
	}
	return value
}
