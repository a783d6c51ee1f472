package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/saba2003/devcamper-api/dependencies/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Index the index instance
type Index struct {
	Name         string
	Field        string
	ReverseOrder bool
	Unique       bool
	Expires      time.Duration
}

// EnsureIndex creates an index
// Feature: Empty fields automatically ignore indexes
func EnsureIndex(ctx context.Context, col *mongo.Collection, indexs ...*Index) (err error) {
	indexKeys := make([]mongo.IndexModel, len(indexs))
	for i, v := range indexs {
		if v.Field == "" {
			return errors.New("filed can not be empty")
		}
		value := 1
		if v.ReverseOrder {
			value = -1
		}
		opts := options.Index()
		fields := strings.Split(v.Field, ",")
		partialFilter := make(bson.D, len(fields))
		indexName := v.Name
		for i, f := range fields {
			partialFilter[i] = bson.E{Key: f, Value: bson.D{{Key: "$exists", Value: true}}}
			if v.Name == "" {
				indexName += "_" + f
			}
		}
		opts.SetName(indexName)
		if v.Unique {
			opts.SetUnique(v.Unique)
			opts.SetPartialFilterExpression(partialFilter)
		}
		if v.Expires > 1 {
			opts.SetExpireAfterSeconds(int32(v.Expires / time.Second))
		}
		var keys bson.D
		for _, f := range fields {
			keys = append(keys, bson.E{Key: f, Value: value})
		}
		indexKeys[i] = mongo.IndexModel{Keys: keys, Options: opts}
	}
	_, err = col.Indexes().CreateMany(ctx, indexKeys)
	if err != nil {
		return fmt.Errorf("create index for %s error for %w", col.Name(), err)
	}
	return nil
}

// normalizeDocument turn decoded bson values into the plain values used by
// the rest of the service.
func normalizeDocument(doc bson.M) database.M {
	out := make(database.M, len(doc))
	for k, v := range doc {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch n := v.(type) {
	case bson.M:
		return normalizeDocument(n)
	case map[string]any:
		return normalizeDocument(n)
	case bson.D:
		return normalizeDocument(n.Map())
	case bson.A:
		out := make([]any, len(n))
		for i, item := range n {
			out[i] = normalizeValue(item)
		}
		return out
	case primitive.DateTime:
		return n.Time().UTC()
	case primitive.ObjectID:
		return n.Hex()
	case int32:
		return int64(n)
	}
	return v
}
