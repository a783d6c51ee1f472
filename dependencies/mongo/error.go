package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func isNotFound(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments) || errors.Is(err, mongo.ErrNilDocument) || errors.Is(err, mongo.ErrNilCursor)
}

// statusError map a driver error to the status code the api reports.
// A unique index violation is AlreadyExists, which the api answers with
// "Duplicate field value entered".
func statusError(table string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		return status.Errorf(codes.Canceled, "%s canceled: %v", table, err)
	case errors.Is(err, context.DeadlineExceeded) || mongo.IsTimeout(err):
		return status.Errorf(codes.DeadlineExceeded, "%s timeout: %v", table, err)
	case mongo.IsDuplicateKeyError(err):
		return status.Errorf(codes.AlreadyExists, "%s duplicate key: %v", table, err)
	case isNotFound(err):
		return status.Errorf(codes.NotFound, "%s not found", table)
	case mongo.IsNetworkError(err):
		return status.Errorf(codes.Unavailable, "%s unavailable: %v", table, err)
	}
	return status.Errorf(codes.Internal, "%s: %v", table, err)
}
