package mock

import (
	"context"
	"sort"
	"strings"

	"github.com/saba2003/devcamper-api/dependencies/database"
	"github.com/saba2003/devcamper-api/tools/snowflake"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Insert inserts documents, a duplicate stops the insert at that document
func (m *Mock) Insert(ctx context.Context, tableName string, docs []database.M) (count int, err error) {
	for _, doc := range docs {
		if err = m.InsertOne(ctx, tableName, doc); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// InsertOne inserts a single document, _id is generated when missing
func (m *Mock) InsertOne(ctx context.Context, tableName string, doc database.M) error {
	if err := ctx.Err(); err != nil {
		return status.Error(codes.Canceled, err.Error())
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.getOrCreateTable(tableName)
	row := copyDoc(doc)
	if row.ID() == "" {
		row[database.IDKey] = snowflake.NewID()
		doc[database.IDKey] = row[database.IDKey]
	}
	for _, other := range t.data {
		if other.ID() == row.ID() {
			return status.Errorf(codes.AlreadyExists, "%s duplicate key _id %s", tableName, row.ID())
		}
	}
	if err := t.checkUnique(tableName, row, -1); err != nil {
		return err
	}
	t.data = append(t.data, row)
	return nil
}

// UpdateOne updates a single document matching the condition
func (m *Mock) UpdateOne(ctx context.Context, tableName string, condition database.C, doc database.M) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, status.Error(codes.Canceled, err.Error())
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.getOrCreateTable(tableName)
	for i := range t.data {
		if !matchConditions(t.data[i], condition) {
			continue
		}
		updated := copyDoc(t.data[i])
		for key, value := range doc {
			if key == database.IDKey {
				continue
			}
			if value == nil {
				delete(updated, key)
				continue
			}
			updated[key] = deepCopy(value)
		}
		if err := t.checkUnique(tableName, updated, i); err != nil {
			return 0, err
		}
		t.data[i] = updated
		return 1, nil
	}
	return 0, status.Errorf(codes.NotFound, "condition %s not found", condition)
}

// Delete deletes documents matching the condition
func (m *Mock) Delete(_ context.Context, tableName string, condition database.C) (count int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.getOrCreateTable(tableName)
	kept := make([]database.M, 0, len(t.data))
	for _, row := range t.data {
		if matchConditions(row, condition) {
			count++
			continue
		}
		kept = append(kept, row)
	}
	t.data = kept
	return count, nil
}

// DeleteOne deletes a single document matching the condition
func (m *Mock) DeleteOne(_ context.Context, tableName string, condition database.C) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.getOrCreateTable(tableName)
	for i, row := range t.data {
		if matchConditions(row, condition) {
			t.data = append(t.data[:i], t.data[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

// Find finds documents matching the query
func (m *Mock) Find(ctx context.Context, tableName string, q *database.Query) ([]database.M, error) {
	if err := ctx.Err(); err != nil {
		return nil, status.Error(codes.Canceled, err.Error())
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	t := m.getOrCreateTable(tableName)
	filter := q.Filter()
	matches := make([]database.M, 0)
	for _, row := range t.data {
		if matchConditions(row, filter) {
			matches = append(matches, row)
		}
	}
	if sortBy := q.SortBy(); len(sortBy) > 0 {
		sortRows(matches, sortBy)
	}
	if skip := q.Offset(); skip > 0 {
		if skip >= len(matches) {
			matches = matches[:0]
		} else {
			matches = matches[skip:]
		}
	}
	if limit := q.Size(); limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	fields := q.Fields()
	out := make([]database.M, len(matches))
	for i, row := range matches {
		out[i] = database.Project(copyDoc(row), fields)
	}
	return out, nil
}

// FindOne finds a single document matching the condition
func (m *Mock) FindOne(ctx context.Context, tableName string, condition database.C) (database.M, error) {
	if err := ctx.Err(); err != nil {
		return nil, status.Error(codes.Canceled, err.Error())
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	t := m.getOrCreateTable(tableName)
	for _, row := range t.data {
		if matchConditions(row, condition) {
			return copyDoc(row), nil
		}
	}
	return nil, status.Errorf(codes.NotFound, "%s not found", tableName)
}

// Count counts documents matching the condition
func (m *Mock) Count(ctx context.Context, tableName string, condition database.C) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, status.Error(codes.Canceled, err.Error())
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	t := m.getOrCreateTable(tableName)
	count := int64(0)
	for _, row := range t.data {
		if matchConditions(row, condition) {
			count++
		}
	}
	return count, nil
}

// sortRows sorts rows by the given sort fields, equal rows keep insertion order
func sortRows(rows []database.M, sortBy []string) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, field := range sortBy {
			desc := false
			if strings.HasPrefix(field, "-") {
				desc = true
				field = field[1:]
			}
			vi, iok := rows[i].Lookup(field)
			vj, jok := rows[j].Lookup(field)
			cmp := sortKey(vi, vj, iok, jok)
			if cmp != 0 {
				if desc {
					return cmp > 0
				}
				return cmp < 0
			}
		}
		return false
	})
}
