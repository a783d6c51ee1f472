package service

import (
	"context"
	"math"

	"github.com/saba2003/devcamper-api/dependencies/database"
	"github.com/saba2003/devcamper-api/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// RecomputeAverageRating set the mean review rating of the bootcamp, the
// field is removed when the bootcamp has no review.
func (s *Server) RecomputeAverageRating(ctx context.Context, bootcampID string) error {
	mean, ok, err := s.mean(ctx, Reviews, "rating", bootcampID)
	if err != nil {
		return err
	}
	var v any
	if ok {
		v = mean
	}
	return s.setAggregate(ctx, bootcampID, "averageRating", v)
}

// RecomputeAverageCost set the mean course tuition of the bootcamp rounded up
// to the next multiple of ten.
func (s *Server) RecomputeAverageCost(ctx context.Context, bootcampID string) error {
	mean, ok, err := s.mean(ctx, Courses, "tuition", bootcampID)
	if err != nil {
		return err
	}
	var v any
	if ok {
		v = math.Ceil(mean/10) * 10
	}
	return s.setAggregate(ctx, bootcampID, "averageCost", v)
}

func (s *Server) mean(ctx context.Context, table, field, bootcampID string) (mean float64, ok bool, err error) {
	q := database.NewQuery(database.C{{Key: "bootcamp", Value: bootcampID}}).Select(field)
	docs, err := s.dep.DB.Find(ctx, table, q)
	if err != nil {
		return 0, false, err
	}
	var sum float64
	var n int
	for _, doc := range docs {
		if f, isNum := number(doc[field]); isNum {
			sum += f
			n++
		}
	}
	if n == 0 {
		return 0, false, nil
	}
	return sum / float64(n), true, nil
}

// setAggregate a bootcamp deleted meanwhile is not an error
func (s *Server) setAggregate(ctx context.Context, bootcampID, field string, v any) error {
	_, err := s.dep.DB.UpdateOne(ctx, Bootcamps, database.ByID(bootcampID), database.M{field: v})
	if status.Code(err) == codes.NotFound {
		return nil
	}
	return err
}

// recompute run fn after a write, a failure is logged and never fails the write
func (s *Server) recompute(ctx context.Context, field string, fn func(context.Context, string) error, bootcampID string) {
	if bootcampID == "" {
		return
	}
	if err := fn(ctx, bootcampID); err != nil {
		log.Extract(ctx).With(map[string]any{
			"action":   "service.recompute",
			"field":    field,
			"bootcamp": bootcampID,
		}).Error(err.Error())
	}
}

// number the numeric value of a field as stored by any of the databases
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
