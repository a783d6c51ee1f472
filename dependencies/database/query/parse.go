package query

import (
	"math"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/saba2003/devcamper-api/dependencies/database"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// reserved keys never reach the filter
const (
	keySelect = "select"
	keySort   = "sort"
	keyPage   = "page"
	keyLimit  = "limit"
)

var reservedKeys = map[string]bool{keySelect: true, keySort: true, keyPage: true, keyLimit: true}

// operators reachable from a query string, the key is the bracket token
var operators = map[string]database.Condition{
	"gt":  database.Gt,
	"gte": database.Gte,
	"lt":  database.Lt,
	"lte": database.Lte,
	"in":  database.In,
}

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// Request the parsed query string
type Request struct {
	Filter database.C
	Select []string
	Sort   []string
	Page   int
	Limit  int
}

// Window the start and end index of the page
func (r *Request) Window() (start, end int) {
	return (r.Page - 1) * r.Limit, r.Page * r.Limit
}

func invalid(format string, args ...any) error {
	return status.Errorf(codes.InvalidArgument, format, args...)
}

// Parse the raw query of a list request. A malformed page or limit falls back
// to the default, a malformed filter, select or sort key fails with InvalidArgument.
func (p *Processor) Parse(c Collection, values url.Values) (*Request, error) {
	hidden := make(map[string]bool, len(c.Hidden))
	for _, h := range c.Hidden {
		hidden[h] = true
	}
	r := &Request{
		Page:  positiveOr(values.Get(keyPage), 1),
		Limit: positiveOr(values.Get(keyLimit), p.opts.defaultLimit),
	}
	if p.opts.maxLimit > 0 && r.Limit > p.opts.maxLimit {
		r.Limit = p.opts.maxLimit
	}
	var err error
	if r.Select, err = parseFields(values.Get(keySelect), hidden, false); err != nil {
		return nil, err
	}
	include, exclude := database.Projection(r.Select)
	if len(include) == 0 {
		for _, h := range c.Hidden {
			if !contains(exclude, h) {
				r.Select = append(r.Select, "-"+h)
			}
		}
	}
	if r.Sort, err = parseFields(values.Get(keySort), hidden, true); err != nil {
		return nil, err
	}
	if len(r.Sort) == 0 {
		r.Sort = append([]string(nil), p.opts.defaultSort...)
	}
	if r.Filter, err = parseFilter(values, hidden); err != nil {
		return nil, err
	}
	return r, nil
}

func positiveOr(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func isHidden(hidden map[string]bool, field string) bool {
	root, _, _ := strings.Cut(field, ".")
	return hidden[root]
}

// parseFields split a comma separated field list, a leading - is kept.
// Hidden fields are dropped from select and rejected from sort.
func parseFields(raw string, hidden map[string]bool, rejectHidden bool) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var fields []string
	for _, f := range strings.Split(raw, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		name := strings.TrimPrefix(f, "-")
		if !fieldPattern.MatchString(name) && name != database.IDKey {
			return nil, invalid("Invalid field %s", f)
		}
		if isHidden(hidden, name) {
			if rejectHidden {
				return nil, invalid("Invalid field %s", f)
			}
			continue
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// parseKey split field[a][b][op] into the field path and the operator
func parseKey(key string) (field string, op database.Condition, err error) {
	open := strings.IndexByte(key, '[')
	if open < 0 {
		field = key
	} else {
		field = key[:open]
		rest := key[open:]
		var segs []string
		for rest != "" {
			if rest[0] != '[' {
				return "", 0, invalid("Invalid query key %s", key)
			}
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return "", 0, invalid("Invalid query key %s", key)
			}
			segs = append(segs, rest[1:end])
			rest = rest[end+1:]
		}
		if last := segs[len(segs)-1]; last != "" {
			if c, ok := operators[last]; ok {
				op = c
				segs = segs[:len(segs)-1]
			}
		}
		for _, s := range segs {
			field += "." + s
		}
	}
	if !fieldPattern.MatchString(field) && field != database.IDKey {
		return "", 0, invalid("Invalid query key %s", key)
	}
	return field, op, nil
}

func parseFilter(values url.Values, hidden map[string]bool) (database.C, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		if !reservedKeys[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	filter := database.C{}
	for _, key := range keys {
		field, op, err := parseKey(key)
		if err != nil {
			return nil, err
		}
		if isHidden(hidden, field) {
			return nil, invalid("Invalid query key %s", key)
		}
		raw := values[key]
		switch op {
		case database.In:
			var list []any
			for _, v := range raw {
				for _, item := range strings.Split(v, ",") {
					if item = strings.TrimSpace(item); item != "" {
						list = append(list, coerce(item))
					}
				}
			}
			if len(list) == 0 {
				return nil, invalid("Invalid value for %s", key)
			}
			filter = append(filter, database.CE{Key: field, Value: list, C: database.In})
		case database.Eq:
			if len(raw) > 1 {
				list := make([]any, len(raw))
				for i, v := range raw {
					list[i] = coerce(v)
				}
				filter = append(filter, database.CE{Key: field, Value: list, C: database.In})
				continue
			}
			filter = append(filter, database.CE{Key: field, Value: coerce(raw[0])})
		default:
			for _, v := range raw {
				if strings.TrimSpace(v) == "" {
					return nil, invalid("Invalid value for %s", key)
				}
				filter = append(filter, database.CE{Key: field, Value: coerce(strings.TrimSpace(v)), C: op})
			}
		}
	}
	return filter, nil
}

// maxExactFloat the largest integer a float64 holds exactly, longer numbers
// such as snowflake ids stay strings
const maxExactFloat = 1 << 53

// coerce the string form of a value: numbers that print back unchanged,
// booleans and dates, anything else stays a string.
func coerce(v string) any {
	switch v {
	case "true":
		return true
	case "false":
		return false
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && math.Abs(f) <= maxExactFloat &&
		strconv.FormatFloat(f, 'f', -1, 64) == v {
		return f
	}
	if len(v) >= 10 && v[4] == '-' && v[7] == '-' {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t.UTC()
		}
		if t, err := time.Parse(time.DateOnly, v); err == nil {
			return t
		}
	}
	return v
}
