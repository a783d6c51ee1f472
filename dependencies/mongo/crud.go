package mongo

import (
	"context"
	"strings"

	"github.com/saba2003/devcamper-api/dependencies/database"
	"github.com/saba2003/devcamper-api/tools/snowflake"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Insert insert many docs, the insert is ordered and stops at the first error
func (m *Mongo) Insert(ctx context.Context, table string, docs []database.M) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	mgoDocs := make([]any, len(docs))
	for i, doc := range docs {
		ensureID(doc)
		mgoDocs[i] = doc
	}
	ret, err := m.Collection(table).InsertMany(ctx, mgoDocs)
	if err != nil {
		count := 0
		if ret != nil {
			count = len(ret.InsertedIDs)
		}
		return count, statusError(table, err)
	}
	return len(ret.InsertedIDs), nil
}

func ensureID(doc database.M) {
	if doc.ID() == "" {
		doc[database.IDKey] = snowflake.NewID()
	}
}

// InsertOne insert one doc
func (m *Mongo) InsertOne(ctx context.Context, table string, doc database.M) error {
	ensureID(doc)
	_, err := m.Collection(table).InsertOne(ctx, doc)
	return statusError(table, err)
}

// UpdateOne set the fields of doc, nil values are unset
func (m *Mongo) UpdateOne(ctx context.Context, table string, conds database.C, doc database.M) (int, error) {
	set, unset := bson.D{}, bson.D{}
	for k, v := range doc {
		if k == database.IDKey {
			continue
		}
		if v == nil {
			unset = append(unset, bson.E{Key: k, Value: ""})
			continue
		}
		set = append(set, bson.E{Key: k, Value: v})
	}
	update := bson.D{}
	if len(set) > 0 {
		update = append(update, bson.E{Key: "$set", Value: set})
	}
	if len(unset) > 0 {
		update = append(update, bson.E{Key: "$unset", Value: unset})
	}
	col := m.Collection(table)
	filter := getCondition(conds)
	if len(update) == 0 {
		n, err := col.CountDocuments(ctx, filter, options.Count().SetLimit(1))
		if err != nil {
			return 0, statusError(table, err)
		}
		if n == 0 {
			return 0, status.Errorf(codes.NotFound, "condition %s not found", conds)
		}
		return 1, nil
	}
	ret, err := col.UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, statusError(table, err)
	}
	if ret.MatchedCount == 0 {
		return 0, status.Errorf(codes.NotFound, "condition %s not found", conds)
	}
	return int(ret.MatchedCount), nil
}

// Delete delete data
func (m *Mongo) Delete(ctx context.Context, table string, conds database.C) (int, error) {
	ret, err := m.Collection(table).DeleteMany(ctx, getCondition(conds))
	if err != nil {
		return 0, statusError(table, err)
	}
	return int(ret.DeletedCount), nil
}

// DeleteOne delete one
func (m *Mongo) DeleteOne(ctx context.Context, table string, conds database.C) (int, error) {
	ret, err := m.Collection(table).DeleteOne(ctx, getCondition(conds))
	if err != nil {
		return 0, statusError(table, err)
	}
	return int(ret.DeletedCount), nil
}

// Find data.
func (m *Mongo) Find(ctx context.Context, table string, q *database.Query) ([]database.M, error) {
	opts := options.Find()
	if sortBy := q.SortBy(); len(sortBy) > 0 {
		opts.SetSort(sortFields(sortBy))
	}
	if skip := q.Offset(); skip > 0 {
		opts.SetSkip(int64(skip))
	}
	if limit := q.Size(); limit > 0 {
		opts.SetLimit(int64(limit))
	}
	if projection := projectionFields(q.Fields()); len(projection) > 0 {
		opts.SetProjection(projection)
	}
	cur, err := m.Collection(table).Find(ctx, getCondition(q.Filter()), opts)
	if err != nil {
		return nil, statusError(table, err)
	}
	var rows []bson.M
	if err = cur.All(ctx, &rows); err != nil {
		return nil, statusError(table, err)
	}
	out := make([]database.M, len(rows))
	for i, row := range rows {
		out[i] = normalizeDocument(row)
	}
	return out, nil
}

// FindOne find one
func (m *Mongo) FindOne(ctx context.Context, table string, conds database.C) (database.M, error) {
	var row bson.M
	err := m.Collection(table).FindOne(ctx, getCondition(conds)).Decode(&row)
	if err != nil {
		if isNotFound(err) {
			return nil, status.Errorf(codes.NotFound, "%s not found", table)
		}
		return nil, statusError(table, err)
	}
	return normalizeDocument(row), nil
}

// Count data.
func (m *Mongo) Count(ctx context.Context, table string, conds database.C) (int64, error) {
	ret, err := m.Collection(table).CountDocuments(ctx, getCondition(conds))
	if err != nil {
		return 0, statusError(table, err)
	}
	return ret, nil
}

// EnsureIndex creates the indexes on the collection
func (m *Mongo) EnsureIndex(ctx context.Context, table string, indexes ...*database.Index) error {
	converted := make([]*Index, len(indexes))
	for i, v := range indexes {
		converted[i] = &Index{Name: v.IndexName(), Field: strings.Join(v.Keys, ","), Unique: v.Unique}
	}
	return EnsureIndex(ctx, m.Collection(table), converted...)
}

func sortFields(sortBy []string) bson.D {
	fields := make(bson.D, len(sortBy))
	for i, v := range sortBy {
		orderValue := 1
		if strings.HasPrefix(v, "-") {
			orderValue = -1
			v = v[1:]
		}
		fields[i] = bson.E{Key: v, Value: orderValue}
	}
	return fields
}

// projectionFields, inclusion wins when both kinds are present because mongodb
// rejects mixed projections.
func projectionFields(fields []string) bson.D {
	include, exclude := database.Projection(fields)
	var projection bson.D
	if len(include) > 0 {
		for _, v := range include {
			projection = append(projection, bson.E{Key: v, Value: 1})
		}
		return projection
	}
	for _, v := range exclude {
		projection = append(projection, bson.E{Key: v, Value: 0})
	}
	return projection
}

var operators = map[database.Condition]string{
	database.Eq:  "$eq",
	database.Ne:  "$ne",
	database.Lt:  "$lt",
	database.Lte: "$lte",
	database.Gt:  "$gt",
	database.Gte: "$gte",
	database.In:  "$in",
	database.Nin: "$nin",
}

// getCondition build the filter, predicates on the same key are merged so
// price[gte] and price[lte] become one range document.
func getCondition(conds database.C) bson.D {
	cond := bson.D{}
	index := make(map[string]int, len(conds))
	for _, v := range conds {
		op := bson.E{Key: operators[v.C], Value: v.Value}
		if i, ok := index[v.Key]; ok {
			cond[i].Value = append(cond[i].Value.(bson.D), op)
			continue
		}
		index[v.Key] = len(cond)
		cond = append(cond, bson.E{Key: v.Key, Value: bson.D{op}})
	}
	return cond
}
