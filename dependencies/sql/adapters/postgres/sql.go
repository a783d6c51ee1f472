package postgres

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/saba2003/devcamper-api/dependencies/sql/adapters"
)

// Dialect postgres, documents live in a jsonb column
type Dialect struct{}

// Quote an identifier
func (Dialect) Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// CreateTable the document table
func (d Dialect) CreateTable(table string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id TEXT PRIMARY KEY, doc JSONB NOT NULL)", d.Quote(table))
}

// CreateIndex an expression index on the text value of each path, null values
// are distinct so documents without the fields never conflict.
func (d Dialect) CreateIndex(table, name string, paths [][]string, unique bool) string {
	exprs := make([]string, len(paths))
	for i, p := range paths {
		exprs[i] = "(doc #>> " + textPath(p) + ")"
	}
	kind := "INDEX"
	if unique {
		kind = "UNIQUE INDEX"
	}
	return fmt.Sprintf("CREATE %s IF NOT EXISTS %s ON %s (%s)", kind, d.Quote(name), d.Quote(table), strings.Join(exprs, ", "))
}

func textPath(path []string) string {
	return "'{" + strings.Join(path, ",") + "}'"
}

// Equal match a scalar value or an array holding the value, jsonb containment
// compares numbers by value.
func (Dialect) Equal(path []string, value any) (string, []any, error) {
	scalar, err := jsoniter.MarshalToString(adapters.Nest(path, value))
	if err != nil {
		return "", nil, err
	}
	array, err := jsoniter.MarshalToString(adapters.Nest(path, []any{value}))
	if err != nil {
		return "", nil, err
	}
	return "(doc @> ?::jsonb OR doc @> ?::jsonb)", []any{scalar, array}, nil
}

// Compare an ordered comparison, only values of the same json type match.
func (Dialect) Compare(path []string, op string, value any) (string, []any, error) {
	var typ string
	switch adapters.KindOf(value) {
	case adapters.KindNumber:
		typ = "number"
	case adapters.KindString:
		typ = "string"
	case adapters.KindBool:
		typ = "boolean"
	default:
		return "", nil, fmt.Errorf("can not compare %T", value)
	}
	raw, err := jsoniter.MarshalToString(value)
	if err != nil {
		return "", nil, err
	}
	expr := fmt.Sprintf("(jsonb_typeof(doc #> %[1]s) = '%[2]s' AND doc #> %[1]s %[3]s ?::jsonb)", textPath(path), typ, op)
	return expr, []any{raw}, nil
}

// Order by the jsonb value, missing fields first like mongodb.
func (Dialect) Order(path []string, desc bool) string {
	if desc {
		return "doc #> " + textPath(path) + " DESC NULLS LAST"
	}
	return "doc #> " + textPath(path) + " ASC NULLS FIRST"
}

// LimitOffset the paging clause
func (Dialect) LimitOffset(limit, offset int) string {
	var clause string
	if limit > 0 {
		clause += " LIMIT " + strconv.Itoa(limit)
	}
	if offset > 0 {
		clause += " OFFSET " + strconv.Itoa(offset)
	}
	return clause
}

// ForUpdate lock the selected row inside a transaction
func (Dialect) ForUpdate() string { return " FOR UPDATE" }

// Rebind convert ? placeholders to $n
func (Dialect) Rebind(query string) string {
	return ConvertSQL(query)
}

// IgnoreIndexError postgres supports IF NOT EXISTS
func (Dialect) IgnoreIndexError(error) bool { return false }

// ConvertError to status error
func (Dialect) ConvertError(err error) error { return ConvertError(err) }

// ConvertSQL convert sql to pgsql
func ConvertSQL(query string) string {
	query = strings.ReplaceAll(query, "`", `"`)
	query = replaceQuestionMarks(query)
	return query
}

var questionMark = regexp.MustCompile(`\?`)

func replaceQuestionMarks(sql string) string {
	count := 0
	// replace ? with $n, n increases from 1
	return questionMark.ReplaceAllStringFunc(sql, func(string) string {
		count++
		return "$" + strconv.Itoa(count)
	})
}
