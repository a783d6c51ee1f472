package mock

import (
	"reflect"
	"strings"
	"time"

	"github.com/saba2003/devcamper-api/dependencies/database"
)

func toSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []string:
		out := make([]any, len(s))
		for i, item := range s {
			out[i] = item
		}
		return out, true
	case []database.M, []map[string]any:
		rv := reflect.ValueOf(s)
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, true
	}
	return nil, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// compareValues order two values of the same kind, numbers of any width
// compare with each other. ok is false for incomparable values.
func compareValues(a, b any) (c int, ok bool) {
	if fa, isNum := toFloat(a); isNum {
		fb, isNum := toFloat(b)
		if !isNum {
			return 0, false
		}
		switch {
		case fa > fb:
			return 1, true
		case fa < fb:
			return -1, true
		}
		return 0, true
	}
	switch v1 := a.(type) {
	case string:
		v2, isStr := b.(string)
		if !isStr {
			return 0, false
		}
		return strings.Compare(v1, v2), true
	case time.Time:
		v2, isTime := b.(time.Time)
		if !isTime {
			return 0, false
		}
		return v1.Compare(v2), true
	case bool:
		v2, isBool := b.(bool)
		if !isBool {
			return 0, false
		}
		switch {
		case v1 == v2:
			return 0, true
		case v2:
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

func equalValues(a, b any) bool {
	if c, ok := compareValues(a, b); ok {
		return c == 0
	}
	as, aok := toSlice(a)
	bs, bok := toSlice(b)
	if aok && bok {
		if len(as) != len(bs) {
			return false
		}
		for i := range as {
			if !equalValues(as[i], bs[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

// sortKey compare for sorting, missing values come first like mongodb.
func sortKey(a, b any, aok, bok bool) int {
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return -1
	case !bok:
		return 1
	}
	c, _ := compareValues(a, b)
	return c
}

// deepCopy copy documents so callers never share state with the store.
func deepCopy(v any) any {
	switch n := v.(type) {
	case database.M:
		out := make(database.M, len(n))
		for k, item := range n {
			out[k] = deepCopy(item)
		}
		return out
	case map[string]any:
		out := make(database.M, len(n))
		for k, item := range n {
			out[k] = deepCopy(item)
		}
		return out
	case []any:
		out := make([]any, len(n))
		for i, item := range n {
			out[i] = deepCopy(item)
		}
		return out
	case []string:
		return append([]string(nil), n...)
	case []database.M:
		out := make([]any, len(n))
		for i, item := range n {
			out[i] = deepCopy(item)
		}
		return out
	}
	return v
}

func copyDoc(doc database.M) database.M {
	return deepCopy(doc).(database.M)
}
