package database

import (
	"context"
	"fmt"
	"net/url"
)

// Database the document store interface implemented by mongodb, postgres, sqlite and mock.
// Errors are grpc status errors: codes.NotFound, codes.AlreadyExists for unique
// violations, codes.Internal or codes.Unavailable for everything else.
// nolint: interfacebloat // more method in database.
type Database interface {
	Close(ctx context.Context) error
	InsertOne(ctx context.Context, table string, doc M) error
	Insert(ctx context.Context, table string, docs []M) (count int, err error)
	// UpdateOne set the fields of doc on the first match, a nil value removes the field.
	UpdateOne(ctx context.Context, table string, condition C, doc M) (count int, err error)
	// Delete with condition
	Delete(ctx context.Context, table string, condition C) (count int, err error)
	DeleteOne(ctx context.Context, table string, condition C) (count int, err error)
	// Find apply filter, projection, sort, skip and limit of q. Populate is not
	// handled here, use Execute.
	Find(ctx context.Context, table string, q *Query) ([]M, error)
	FindOne(ctx context.Context, table string, condition C) (M, error)
	Count(ctx context.Context, table string, condition C) (int64, error)
	EnsureIndex(ctx context.Context, table string, indexes ...*Index) error
}

// New database client.
func New(ctx context.Context, uri string) (Database, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, err
	}
	d := &DB{}
	err = d.Init(ctx, u)
	if err != nil {
		return nil, err
	}
	return d.Database, nil
}

var implements = make(map[string]func(context.Context, *url.URL) (Database, error))

// RegisterImplements register implements.
func RegisterImplements(scheme string, newFN func(context.Context, *url.URL) (Database, error)) {
	implements[scheme] = newFN
}

// DB the db instance
type DB struct {
	Database
}

// Init by uri
func (d *DB) Init(ctx context.Context, u *url.URL) (err error) {
	newFn, ok := implements[u.Scheme]
	if !ok {
		return fmt.Errorf("%s not implement", u.Scheme)
	}
	d.Database, err = newFn(ctx, u)
	return err
}

// Close the db.
func (d *DB) Close(ctx context.Context) error {
	if d.Database == nil {
		return nil
	}
	return d.Database.Close(ctx)
}
