package mysql

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const errDupKeyName = 1061

// ConvertError convert the mysql error to status error
// nolint: gomnd
func ConvertError(err error) error {
	var mySQLError *mysql.MySQLError
	if errors.As(err, &mySQLError) {
		var code codes.Code
		switch mySQLError.Number {
		case 1049, 1146:
			code = codes.NotFound
		case 1062:
			code = codes.AlreadyExists
		case 1690:
			code = codes.OutOfRange
		case 3024:
			code = codes.DeadlineExceeded
		case 2002, 2003, 2006, 2013:
			code = codes.Unavailable
		default:
			code = codes.Internal
		}
		err = status.Errorf(code, "error for code %d, message %s",
			mySQLError.Number, mySQLError.Message)
	}
	return err
}

// IsDupKeyName check if the index already exists
func IsDupKeyName(err error) bool {
	var mySQLError *mysql.MySQLError
	return errors.As(err, &mySQLError) && mySQLError.Number == errDupKeyName
}
