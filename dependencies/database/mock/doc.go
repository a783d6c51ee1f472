// Package mock provides an in-memory mock database implementation for testing.
//
// Mock database implements the database.Database interface and stores all data in memory.
// It is the test double of every service package.
//
// URL Format:
//
//	mock://host/database_name
//
// Basic Usage:
//
//	import (
//	    "context"
//	    "github.com/saba2003/devcamper-api/dependencies/database"
//	    _ "github.com/saba2003/devcamper-api/dependencies/database/mock"
//	)
//
//	db, err := database.New(ctx, "mock://local/devcamper")
//	if err != nil {
//	    panic(err)
//	}
//	defer db.Close(ctx)
//
//	_ = db.InsertOne(ctx, "bootcamps", database.M{"name": "Devworks"})
//	docs, _ := db.Find(ctx, "bootcamps", database.NewQuery(nil).Sort("-createdAt"))
//
// Keys are stored as given, dotted paths in conditions and sort fields reach
// into nested documents. Numbers of any type compare with each other, and
// conditions on array fields match when any element matches.
package mock
