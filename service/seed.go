package service

import (
	"context"
	"fmt"

	"github.com/saba2003/devcamper-api/auth"
	"github.com/saba2003/devcamper-api/dependencies/database"
	"github.com/saba2003/devcamper-api/log"
)

// SeedOrder the collections in insert order, references point backwards
var SeedOrder = []string{Users, Bootcamps, Courses, Reviews}

// Seed insert the documents of every collection as they are, except for the
// plain text user passwords which are hashed. The bootcamp aggregates are
// recomputed once everything is written.
func (s *Server) Seed(ctx context.Context, data map[string][]database.M) (map[string]int, error) {
	inserted := make(map[string]int, len(SeedOrder))
	for _, table := range SeedOrder {
		docs := data[table]
		if len(docs) == 0 {
			continue
		}
		for _, doc := range docs {
			if err := s.prepareSeed(table, doc); err != nil {
				return inserted, err
			}
		}
		n, err := s.dep.DB.Insert(ctx, table, docs)
		if err != nil {
			return inserted, fmt.Errorf("seed %s: %w", table, err)
		}
		inserted[table] = n
	}
	for _, bc := range data[Bootcamps] {
		id := bc.ID()
		if err := s.RecomputeAverageCost(ctx, id); err != nil {
			return inserted, err
		}
		if err := s.RecomputeAverageRating(ctx, id); err != nil {
			return inserted, err
		}
	}
	log.Extract(ctx).With(map[string]any{"action": "service.Seed", "inserted": inserted}).Info("data imported")
	return inserted, nil
}

func (s *Server) prepareSeed(table string, doc database.M) error {
	if doc.ID() == "" {
		stamp(doc)
	} else if _, ok := doc["createdAt"]; !ok {
		doc["createdAt"] = now()
	}
	switch table {
	case Users:
		if pw := doc.String("password"); pw != "" {
			hash, err := auth.HashPassword(pw)
			if err != nil {
				return err
			}
			doc["password"] = hash
		}
		if doc.String("role") == "" {
			doc["role"] = auth.RoleUser
		}
	case Bootcamps:
		if name := doc.String("name"); name != "" && doc.String("slug") == "" {
			doc["slug"] = slugify(name)
		}
	}
	return nil
}

// Destroy delete every document of the seeded collections
func (s *Server) Destroy(ctx context.Context) (map[string]int, error) {
	deleted := make(map[string]int, len(SeedOrder))
	for i := len(SeedOrder) - 1; i >= 0; i-- {
		table := SeedOrder[i]
		n, err := s.dep.DB.Delete(ctx, table, database.C{})
		if err != nil {
			return deleted, fmt.Errorf("destroy %s: %w", table, err)
		}
		deleted[table] = n
	}
	return deleted, nil
}

// Counts the number of documents per seeded collection
func (s *Server) Counts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, len(SeedOrder))
	for _, table := range SeedOrder {
		n, err := s.dep.DB.Count(ctx, table, nil)
		if err != nil {
			return nil, err
		}
		counts[table] = n
	}
	return counts, nil
}
