// Package mongo provide the mongodb implementation of database.Database
package mongo

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/saba2003/devcamper-api/dependencies/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo the mongo client
type Mongo struct {
	*mongo.Client
	defaultDatabase string
}

func init() {
	database.RegisterImplements("mongodb", func(ctx context.Context, u *url.URL) (database.Database, error) {
		m := &Mongo{}
		return m, m.Init(ctx, u)
	})
	database.RegisterImplements("mongodb+srv", func(ctx context.Context, u *url.URL) (database.Database, error) {
		m := &Mongo{}
		return m, m.Init(ctx, u)
	})
}

// New client
func New(ctx context.Context, uri string) (*Mongo, error) {
	m := &Mongo{}
	u, err := url.Parse(uri)
	if err != nil {
		return nil, err
	}
	return m, m.Init(ctx, u)
}

// Init the mongo client, the uri path is the default database
func (m *Mongo) Init(ctx context.Context, u *url.URL) error {
	uri := u.String()
	if len(u.Path) < 2 {
		return errors.New("default database not set in mongo uri")
	}
	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(5 * time.Second).
		SetBSONOptions(&options.BSONOptions{
			UseJSONStructTags:   true,
			DefaultDocumentM:    true,
			NilSliceAsEmpty:     true,
			NilByteSliceAsEmpty: true,
		})
	mongoClient, err := mongo.Connect(ctx, opts)
	if err != nil {
		return errors.New("can not dial mongo " + u.Redacted() + " - " + err.Error())
	}
	defaultDatabase := u.Path[1:]
	err = mongoClient.Database(defaultDatabase).RunCommand(ctx, bson.M{"ping": 1}).Err()
	if err != nil {
		_ = mongoClient.Disconnect(ctx)
		return errors.New("can not ping mongo " + u.Redacted() + " - " + err.Error())
	}
	m.defaultDatabase = defaultDatabase
	m.Client = mongoClient
	return nil
}

// Collection get Collection
func (m *Mongo) Collection(colName string) *mongo.Collection {
	return m.Database(m.defaultDatabase).Collection(colName)
}

// DefaultDatabase gets the default database
func (m *Mongo) DefaultDatabase() *mongo.Database {
	return m.Database(m.defaultDatabase)
}

// Close database.
func (m *Mongo) Close(ctx context.Context) error {
	if m.Client == nil {
		return nil
	}
	err := m.Client.Disconnect(ctx)
	m.Client = nil
	return err
}
