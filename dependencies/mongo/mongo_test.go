package mongo

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/saba2003/devcamper-api/dependencies/database"
	"go.mongodb.org/mongo-driver/bson"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestGetCondition(t *testing.T) {
	cond := getCondition(database.C{
		{Key: "averageCost", Value: 100.0, C: database.Gte},
		{Key: "averageCost", Value: 200.0, C: database.Lte},
		{Key: "careers", Value: []any{"Business"}, C: database.In},
	})
	if len(cond) != 2 {
		t.Fatalf("expected the range merged into one key, got %v", cond)
	}
	rng := cond[0].Value.(bson.D)
	if cond[0].Key != "averageCost" || len(rng) != 2 || rng[0].Key != "$gte" || rng[1].Key != "$lte" {
		t.Fatalf("unexpected range %v", cond[0])
	}
	if in := cond[1].Value.(bson.D); in[0].Key != "$in" {
		t.Fatalf("unexpected in %v", cond[1])
	}
}

func TestProjectionFields(t *testing.T) {
	if p := projectionFields([]string{"name", "-password"}); len(p) != 1 || p[0].Value != 1 {
		t.Fatalf("inclusion should win, got %v", p)
	}
	if p := projectionFields([]string{"-password"}); len(p) != 1 || p[0].Value != 0 {
		t.Fatalf("unexpected exclusion %v", p)
	}
}

// TestMongo run the store against a local mongodb, skipped when it is absent
func TestMongo(t *testing.T) {
	u, _ := url.Parse("mongodb://127.0.0.1:27017/devcamper_test")
	mgo := &Mongo{}
	ctx, cc := context.WithTimeout(context.Background(), 3*time.Second)
	defer cc()
	if err := mgo.Init(ctx, u); err != nil {
		t.Skip("mongodb is not available")
	}
	defer mgo.Close(context.Background())
	table := "bootcamps"
	_ = mgo.Collection(table).Drop(ctx)
	defer mgo.Collection(table).Drop(context.Background())
	if err := mgo.EnsureIndex(ctx, table, &database.Index{Keys: []string{"name"}, Unique: true}); err != nil {
		t.Fatal(err)
	}
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := mgo.Insert(ctx, table, []database.M{
		{"_id": "1", "name": "Devworks", "averageCost": 10000, "createdAt": created, "location": database.M{"city": "Boston"}},
		{"_id": "2", "name": "ModernTech", "averageCost": 5000, "createdAt": created.Add(time.Hour)},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err = mgo.InsertOne(ctx, table, database.M{"name": "Devworks"}); status.Code(err) != codes.AlreadyExists {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}
	docs, err := mgo.Find(ctx, table, database.NewQuery(database.C{
		{Key: "averageCost", Value: 6000, C: database.Gte},
	}).Select("name", "location.city", "createdAt").Sort("-createdAt"))
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].String("name") != "Devworks" || docs[0]["averageCost"] != nil {
		t.Fatalf("unexpected docs %v", docs)
	}
	if _, ok := docs[0]["createdAt"].(time.Time); !ok {
		t.Fatalf("dates should decode to time.Time, got %T", docs[0]["createdAt"])
	}
	if city, _ := docs[0].Lookup("location.city"); city != "Boston" {
		t.Fatalf("nested documents should decode to database.M, got %v", docs[0]["location"])
	}
	if _, err = mgo.UpdateOne(ctx, table, database.ByID("2"), database.M{"averageCost": nil, "phone": "1"}); err != nil {
		t.Fatal(err)
	}
	doc, err := mgo.FindOne(ctx, table, database.ByID("2"))
	if err != nil || doc["averageCost"] != nil || doc.String("phone") != "1" {
		t.Fatalf("unexpected update result %v %v", doc, err)
	}
	if _, err = mgo.FindOne(ctx, table, database.ByID("404")); status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}
