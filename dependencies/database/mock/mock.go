// Package mock provides an in-memory mock database implementation for testing
package mock

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/saba2003/devcamper-api/dependencies/database"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func init() {
	database.RegisterImplements("mock", func(ctx context.Context, u *url.URL) (database.Database, error) {
		m := &Mock{}
		return m, m.Init(ctx, u)
	})
}

// Mock is an in-memory database implementation for testing
type Mock struct {
	mu              sync.RWMutex
	tables          map[string]*table
	defaultDatabase string
}

type table struct {
	data    []database.M
	indexes []*database.Index
}

// New creates a new mock database instance
func New(ctx context.Context, uri string) (*Mock, error) {
	m := &Mock{}
	u, err := url.Parse(uri)
	if err != nil {
		return nil, err
	}
	return m, m.Init(ctx, u)
}

// Init initializes the mock database from URL
// URL format: mock://host/database
func (m *Mock) Init(_ context.Context, u *url.URL) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.Path == "" || u.Path == "/" {
		return status.Error(codes.InvalidArgument, "database name not specified in mock URI")
	}
	m.tables = make(map[string]*table)
	m.defaultDatabase = strings.TrimPrefix(u.Path, "/")
	return nil
}

// Close clear all data
func (m *Mock) Close(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables = make(map[string]*table)
	return nil
}

// getOrCreateTable gets or creates a table
func (m *Mock) getOrCreateTable(tableName string) *table {
	if m.tables[tableName] == nil {
		m.tables[tableName] = &table{}
	}
	return m.tables[tableName]
}

// EnsureIndex register unique indexes, existing rows are checked.
func (m *Mock) EnsureIndex(_ context.Context, tableName string, indexes ...*database.Index) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.getOrCreateTable(tableName)
	for _, idx := range indexes {
		if len(idx.Keys) == 0 {
			return status.Error(codes.InvalidArgument, "index keys can not be empty")
		}
		replaced := false
		for i, v := range t.indexes {
			if v.IndexName() == idx.IndexName() {
				t.indexes[i] = idx
				replaced = true
			}
		}
		if !replaced {
			t.indexes = append(t.indexes, idx)
		}
	}
	for i, row := range t.data {
		if err := t.checkUnique(tableName, row, i); err != nil {
			return err
		}
	}
	return nil
}

// checkUnique verify row against the unique indexes, skip is the position of
// the row itself, -1 for new rows.
func (t *table) checkUnique(tableName string, row database.M, skip int) error {
	for _, idx := range t.indexes {
		if !idx.Unique {
			continue
		}
		key, ok := indexKey(row, idx.Keys)
		if !ok {
			continue
		}
		for i, other := range t.data {
			if i == skip {
				continue
			}
			if otherKey, ok := indexKey(other, idx.Keys); ok && equalValues(key, otherKey) {
				return status.Errorf(codes.AlreadyExists, "%s duplicate key %s for %v", tableName, idx.IndexName(), key)
			}
		}
	}
	return nil
}

func indexKey(row database.M, keys []string) ([]any, bool) {
	out := make([]any, len(keys))
	for i, k := range keys {
		v, ok := row.Lookup(k)
		if !ok || v == nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

// matchConditions checks if a row matches all conditions
func matchConditions(row database.M, conditions database.C) bool {
	for _, cond := range conditions {
		if !matchCondition(row, cond) {
			return false
		}
	}
	return true
}

// matchCondition checks if a row matches the given condition, array fields
// match Eq and In when any element matches.
func matchCondition(row database.M, cond database.CE) bool {
	value, ok := row.Lookup(cond.Key)
	switch cond.C {
	case database.Ne:
		return !ok || !valueMatches(value, cond.Value)
	case database.Nin:
		return !ok || !containsAny(value, cond.Value)
	}
	if !ok {
		return false
	}
	switch cond.C {
	case database.Eq:
		return valueMatches(value, cond.Value)
	case database.In:
		return containsAny(value, cond.Value)
	case database.Gt:
		c, ok := compareValues(value, cond.Value)
		return ok && c > 0
	case database.Gte:
		c, ok := compareValues(value, cond.Value)
		return ok && c >= 0
	case database.Lt:
		c, ok := compareValues(value, cond.Value)
		return ok && c < 0
	case database.Lte:
		c, ok := compareValues(value, cond.Value)
		return ok && c <= 0
	default:
		return false
	}
}

func valueMatches(value, want any) bool {
	if items, ok := toSlice(value); ok {
		if _, wantSlice := toSlice(want); !wantSlice {
			for _, item := range items {
				if equalValues(item, want) {
					return true
				}
			}
			return false
		}
	}
	return equalValues(value, want)
}

func containsAny(value, list any) bool {
	items, ok := toSlice(list)
	if !ok {
		return valueMatches(value, list)
	}
	for _, want := range items {
		if valueMatches(value, want) {
			return true
		}
	}
	return false
}
