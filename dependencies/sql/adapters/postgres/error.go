package postgres

import (
	"errors"

	"github.com/lib/pq"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ConvertError convert the pq error to status error
func ConvertError(err error) error {
	var pgError *pq.Error
	if errors.As(err, &pgError) {
		var code codes.Code
		switch pgError.Code {
		// unique_violation
		case "23505":
			code = codes.AlreadyExists
		// not_null_violation
		case "23502":
			code = codes.InvalidArgument
		// undefined_table
		case "42P01":
			code = codes.NotFound
		// query_canceled
		case "57014":
			code = codes.DeadlineExceeded
		// connection_exception class
		case "08000", "08003", "08006", "08001", "08004":
			code = codes.Unavailable
		default:
			code = codes.Internal
		}
		err = status.Errorf(code, "error for code %s, message %s",
			pgError.Code, pgError.Message)
	}
	return err
}
