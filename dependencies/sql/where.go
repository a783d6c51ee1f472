package sql

import (
	"strings"

	"github.com/saba2003/devcamper-api/dependencies/database"
	"github.com/saba2003/devcamper-api/dependencies/sql/adapters"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var compareOperators = map[database.Condition]string{
	database.Gt:  ">",
	database.Gte: ">=",
	database.Lt:  "<",
	database.Lte: "<=",
}

func splitPath(key string) ([]string, error) {
	path := strings.Split(key, ".")
	if err := adapters.CheckPath(path); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return path, nil
}

// where build the WHERE clause, every predicate is parameterized and field
// paths are validated before they reach the statement.
func (s *SQL) where(conds database.C) (string, []any, error) {
	if len(conds) == 0 {
		return "", nil, nil
	}
	parts := make([]string, 0, len(conds))
	var args []any
	for _, ce := range conds {
		expr, exprArgs, err := s.predicate(ce)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, expr)
		args = append(args, exprArgs...)
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func (s *SQL) predicate(ce database.CE) (string, []any, error) {
	switch ce.C {
	case database.Ne:
		expr, args, err := s.predicate(database.CE{Key: ce.Key, Value: ce.Value, C: database.Eq})
		return "NOT COALESCE(" + expr + ", FALSE)", args, err
	case database.Nin:
		expr, args, err := s.predicate(database.CE{Key: ce.Key, Value: ce.Value, C: database.In})
		return "NOT COALESCE(" + expr + ", FALSE)", args, err
	case database.In:
		values := toValues(ce.Value)
		if len(values) == 0 {
			return "1 = 0", nil, nil
		}
		parts := make([]string, len(values))
		var args []any
		for i, v := range values {
			expr, exprArgs, err := s.predicate(database.CE{Key: ce.Key, Value: v, C: database.Eq})
			if err != nil {
				return "", nil, err
			}
			parts[i] = expr
			args = append(args, exprArgs...)
		}
		return "(" + strings.Join(parts, " OR ") + ")", args, nil
	}
	if ce.Key == database.IDKey {
		op := "="
		if ce.C != database.Eq {
			op = compareOperators[ce.C]
		}
		return "id " + op + " ?", []any{toStorable(ce.Value)}, nil
	}
	path, err := splitPath(ce.Key)
	if err != nil {
		return "", nil, err
	}
	value := toStorable(ce.Value)
	var expr string
	var args []any
	if ce.C == database.Eq {
		expr, args, err = s.dialect.Equal(path, value)
	} else if op, ok := compareOperators[ce.C]; ok {
		expr, args, err = s.dialect.Compare(path, op, value)
	} else {
		return "", nil, status.Errorf(codes.InvalidArgument, "unsupported condition %s", ce.C)
	}
	if err != nil {
		return "", nil, status.Errorf(codes.InvalidArgument, "condition %s on %s: %s", ce.C, ce.Key, err)
	}
	return expr, args, nil
}

func toValues(v any) []any {
	switch n := v.(type) {
	case []any:
		return n
	case []string:
		out := make([]any, len(n))
		for i, item := range n {
			out[i] = item
		}
		return out
	}
	return []any{v}
}
