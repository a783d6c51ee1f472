// Package sqlite the sqlite dialect on the pure go modernc driver
package sqlite

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/saba2003/devcamper-api/dependencies/sql/adapters"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect sqlite, documents are json text handled by the json1 functions
type Dialect struct{}

// Quote an identifier
func (Dialect) Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// CreateTable the document table
func (d Dialect) CreateTable(table string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id TEXT PRIMARY KEY, doc TEXT NOT NULL)", d.Quote(table))
}

// CreateIndex an expression index, json_extract is deterministic
func (d Dialect) CreateIndex(table, name string, paths [][]string, unique bool) string {
	exprs := make([]string, len(paths))
	for i, p := range paths {
		exprs[i] = "json_extract(doc, " + adapters.JSONPath(p) + ")"
	}
	kind := "INDEX"
	if unique {
		kind = "UNIQUE INDEX"
	}
	return fmt.Sprintf("CREATE %s IF NOT EXISTS %s ON %s (%s)", kind, d.Quote(name), d.Quote(table), strings.Join(exprs, ", "))
}

// booleans are extracted as 0 and 1
func bindValue(v any) any {
	if b, ok := v.(bool); ok {
		if b {
			return 1
		}
		return 0
	}
	return v
}

// Equal match a scalar value or an element of an array
func (Dialect) Equal(path []string, value any) (string, []any, error) {
	if adapters.KindOf(value) == adapters.KindOther {
		return "", nil, fmt.Errorf("can not compare %T", value)
	}
	p := adapters.JSONPath(path)
	expr := fmt.Sprintf("(json_extract(doc, %[1]s) = ? OR (json_type(doc, %[1]s) = 'array' AND "+
		"EXISTS (SELECT 1 FROM json_each(doc, %[1]s) WHERE json_each.value = ?)))", p)
	v := bindValue(value)
	return expr, []any{v, v}, nil
}

// Compare an ordered comparison, only values of the same json type match.
func (Dialect) Compare(path []string, op string, value any) (string, []any, error) {
	var types string
	switch adapters.KindOf(value) {
	case adapters.KindNumber:
		types = "'integer','real'"
	case adapters.KindString:
		types = "'text'"
	case adapters.KindBool:
		types = "'true','false'"
	default:
		return "", nil, fmt.Errorf("can not compare %T", value)
	}
	p := adapters.JSONPath(path)
	expr := fmt.Sprintf("(json_type(doc, %[1]s) IN (%[2]s) AND json_extract(doc, %[1]s) %[3]s ?)", p, types, op)
	return expr, []any{bindValue(value)}, nil
}

// Order by the extracted value, null sorts first ascending
func (Dialect) Order(path []string, desc bool) string {
	expr := "json_extract(doc, " + adapters.JSONPath(path) + ")"
	if desc {
		return expr + " DESC"
	}
	return expr + " ASC"
}

// LimitOffset sqlite needs a limit when an offset is set
func (Dialect) LimitOffset(limit, offset int) string {
	if limit <= 0 && offset <= 0 {
		return ""
	}
	clause := " LIMIT -1"
	if limit > 0 {
		clause = " LIMIT " + strconv.Itoa(limit)
	}
	if offset > 0 {
		clause += " OFFSET " + strconv.Itoa(offset)
	}
	return clause
}

// ForUpdate sqlite locks the database for writes
func (Dialect) ForUpdate() string { return "" }

// Rebind sqlite uses ? placeholders
func (Dialect) Rebind(query string) string { return query }

// IgnoreIndexError sqlite supports IF NOT EXISTS
func (Dialect) IgnoreIndexError(error) bool { return false }

// ConvertError to status error
func (Dialect) ConvertError(err error) error { return ConvertError(err) }

// ConvertError convert the sqlite error to status error
func ConvertError(err error) error {
	var liteErr *sqlite.Error
	if !errors.As(err, &liteErr) {
		return err
	}
	var code codes.Code
	switch liteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		code = codes.AlreadyExists
	case sqlite3.SQLITE_CONSTRAINT_NOTNULL:
		code = codes.InvalidArgument
	default:
		// the primary result code is the low byte
		switch liteErr.Code() & 0xff {
		case sqlite3.SQLITE_CONSTRAINT:
			code = codes.InvalidArgument
			if strings.Contains(liteErr.Error(), "UNIQUE") {
				code = codes.AlreadyExists
			}
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			code = codes.Unavailable
		default:
			code = codes.Internal
		}
	}
	return status.Errorf(code, "error for code %d, message %s", liteErr.Code(), liteErr.Error())
}
