package mysql

import (
	"fmt"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/saba2003/devcamper-api/dependencies/sql/adapters"
)

// Dialect mysql 8, documents live in a JSON column
type Dialect struct{}

// Quote an identifier
func (Dialect) Quote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

// CreateTable the document table
func (d Dialect) CreateTable(table string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id VARCHAR(64) NOT NULL PRIMARY KEY, doc JSON NOT NULL)", d.Quote(table))
}

// CreateIndex a functional index on the unquoted value of each path
func (d Dialect) CreateIndex(table, name string, paths [][]string, unique bool) string {
	exprs := make([]string, len(paths))
	for i, p := range paths {
		exprs[i] = fmt.Sprintf("(CAST(doc->>%s AS CHAR(191)) COLLATE utf8mb4_bin)", adapters.JSONPath(p))
	}
	kind := "INDEX"
	if unique {
		kind = "UNIQUE INDEX"
	}
	return fmt.Sprintf("CREATE %s %s ON %s (%s)", kind, d.Quote(name), d.Quote(table), strings.Join(exprs, ", "))
}

// Equal JSON_CONTAINS matches the scalar itself or an array element
func (Dialect) Equal(path []string, value any) (string, []any, error) {
	raw, err := jsoniter.MarshalToString(value)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("COALESCE(JSON_CONTAINS(doc, ?, %s), FALSE)", adapters.JSONPath(path)), []any{raw}, nil
}

// Compare an ordered comparison, only values of the same json type match.
func (Dialect) Compare(path []string, op string, value any) (string, []any, error) {
	var types string
	switch adapters.KindOf(value) {
	case adapters.KindNumber:
		types = "'INTEGER','DOUBLE','DECIMAL','UNSIGNED INTEGER'"
	case adapters.KindString:
		types = "'STRING'"
	case adapters.KindBool:
		types = "'BOOLEAN'"
	default:
		return "", nil, fmt.Errorf("can not compare %T", value)
	}
	raw, err := jsoniter.MarshalToString(value)
	if err != nil {
		return "", nil, err
	}
	field := "JSON_EXTRACT(doc, " + adapters.JSONPath(path) + ")"
	expr := fmt.Sprintf("(JSON_TYPE(%[1]s) IN (%[2]s) AND %[1]s %[3]s CAST(? AS JSON))", field, types, op)
	return expr, []any{raw}, nil
}

// Order by the json value, null sorts first ascending
func (Dialect) Order(path []string, desc bool) string {
	expr := "JSON_EXTRACT(doc, " + adapters.JSONPath(path) + ")"
	if desc {
		return expr + " DESC"
	}
	return expr + " ASC"
}

// LimitOffset mysql needs a limit when an offset is set
func (Dialect) LimitOffset(limit, offset int) string {
	if limit <= 0 && offset <= 0 {
		return ""
	}
	clause := " LIMIT 18446744073709551615"
	if limit > 0 {
		clause = " LIMIT " + strconv.Itoa(limit)
	}
	if offset > 0 {
		clause += " OFFSET " + strconv.Itoa(offset)
	}
	return clause
}

// ForUpdate lock the selected row inside a transaction
func (Dialect) ForUpdate() string { return " FOR UPDATE" }

// Rebind mysql uses ? placeholders
func (Dialect) Rebind(query string) string { return query }

// IgnoreIndexError mysql has no CREATE INDEX IF NOT EXISTS
func (Dialect) IgnoreIndexError(err error) bool { return IsDupKeyName(err) }

// ConvertError to status error
func (Dialect) ConvertError(err error) error { return ConvertError(err) }
