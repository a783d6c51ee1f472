package sql

import (
	"time"

	"github.com/saba2003/devcamper-api/dependencies/database"
)

// TimeLayout the fixed width layout of stored times, it sorts lexically.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// toStorable turn values into json friendly values, times become TimeLayout strings.
func toStorable(v any) any {
	switch n := v.(type) {
	case time.Time:
		return n.UTC().Format(TimeLayout)
	case *time.Time:
		if n == nil {
			return nil
		}
		return n.UTC().Format(TimeLayout)
	case database.M:
		out := make(map[string]any, len(n))
		for k, item := range n {
			out[k] = toStorable(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(n))
		for k, item := range n {
			out[k] = toStorable(item)
		}
		return out
	case []any:
		out := make([]any, len(n))
		for i, item := range n {
			out[i] = toStorable(item)
		}
		return out
	case []database.M:
		out := make([]any, len(n))
		for i, item := range n {
			out[i] = toStorable(item)
		}
		return out
	}
	return v
}

func encodeDocument(doc database.M) ([]byte, error) {
	stored := toStorable(doc).(map[string]any)
	delete(stored, database.IDKey)
	return json.Marshal(stored)
}

func decodeDocument(raw []byte) (database.M, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return fromStored(doc).(database.M), nil
}

func fromStored(v any) any {
	switch n := v.(type) {
	case map[string]any:
		out := make(database.M, len(n))
		for k, item := range n {
			out[k] = fromStored(item)
		}
		return out
	case []any:
		for i, item := range n {
			n[i] = fromStored(item)
		}
		return n
	case string:
		if len(n) == len(TimeLayout) {
			if t, err := time.Parse(TimeLayout, n); err == nil {
				return t
			}
		}
	}
	return v
}
