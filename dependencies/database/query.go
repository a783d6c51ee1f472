package database

import (
	"context"
	"fmt"
	"strings"
)

// Query an immutable query descriptor. Every builder method returns a new
// Query, the receiver is never changed, so a base query can be shared.
type Query struct {
	filter   C
	fields   []string
	sort     []string
	skip     int
	limit    int
	populate []Populate
}

// Populate inline related documents into Path.
// Without ForeignField, Path holds the id of a document in Collection and is
// replaced by that document. With ForeignField, Path is filled with every
// document of Collection whose ForeignField equals this document's _id.
type Populate struct {
	Path         string
	Collection   string
	Select       []string
	ForeignField string
}

// NewQuery create a query with the filter
func NewQuery(filter C) *Query {
	return &Query{filter: append(C(nil), filter...)}
}

func (q *Query) clone() *Query {
	if q == nil {
		return &Query{}
	}
	return &Query{
		filter:   append(C(nil), q.filter...),
		fields:   append([]string(nil), q.fields...),
		sort:     append([]string(nil), q.sort...),
		skip:     q.skip,
		limit:    q.limit,
		populate: append([]Populate(nil), q.populate...),
	}
}

// Where add conditions
func (q *Query) Where(conds ...CE) *Query {
	n := q.clone()
	n.filter = append(n.filter, conds...)
	return n
}

// Select set the projection, "-field" excludes a field. _id is always returned.
func (q *Query) Select(fields ...string) *Query {
	n := q.clone()
	n.fields = append([]string(nil), fields...)
	return n
}

// Sort by fields, ["age"] means age ASC, ["-age"] means age DESC
func (q *Query) Sort(fields ...string) *Query {
	n := q.clone()
	n.sort = append([]string(nil), fields...)
	return n
}

// Skip the first n documents
func (q *Query) Skip(n int) *Query {
	c := q.clone()
	c.skip = n
	return c
}

// Limit the result size, 0 means no limit
func (q *Query) Limit(n int) *Query {
	c := q.clone()
	c.limit = n
	return c
}

// Populate add relation expansions executed by Execute
func (q *Query) Populate(p ...Populate) *Query {
	n := q.clone()
	n.populate = append(n.populate, p...)
	return n
}

// Filter the conditions of the query
func (q *Query) Filter() C { return append(C(nil), q.filter...) }

// Fields the projection
func (q *Query) Fields() []string { return append([]string(nil), q.fields...) }

// SortBy the sort fields
func (q *Query) SortBy() []string { return append([]string(nil), q.sort...) }

// Offset the skip value
func (q *Query) Offset() int { return q.skip }

// Size the limit value
func (q *Query) Size() int { return q.limit }

// Populates the relation expansions
func (q *Query) Populates() []Populate { return append([]Populate(nil), q.populate...) }

// String print the query
func (q *Query) String() string {
	return fmt.Sprintf("filter=%s select=%v sort=%v skip=%d limit=%d", q.filter, q.fields, q.sort, q.skip, q.limit)
}

// Projection split the select fields into include and exclude lists.
func Projection(fields []string) (include, exclude []string) {
	for _, f := range fields {
		if f == "" {
			continue
		}
		if strings.HasPrefix(f, "-") {
			exclude = append(exclude, f[1:])
			continue
		}
		include = append(include, f)
	}
	return
}

// Project apply a select list to a document, used by stores that can not
// project natively. Include wins when both kinds are present.
func Project(doc M, fields []string) M {
	include, exclude := Projection(fields)
	if len(include) == 0 && len(exclude) == 0 {
		return doc
	}
	if len(include) > 0 {
		out := M{}
		if id, ok := doc[IDKey]; ok {
			out[IDKey] = id
		}
		for _, path := range include {
			if v, ok := doc.Lookup(path); ok {
				setPath(out, path, v)
			}
		}
		return out
	}
	out := doc.Clone()
	for _, path := range exclude {
		deletePath(out, path)
	}
	return out
}

func setPath(doc M, path string, v any) {
	segs := strings.Split(path, ".")
	cur := doc
	for _, seg := range segs[:len(segs)-1] {
		next, ok := cur[seg].(M)
		if !ok {
			next = M{}
			cur[seg] = next
		}
		cur = next
	}
	cur[segs[len(segs)-1]] = v
}

func deletePath(doc M, path string) {
	segs := strings.Split(path, ".")
	if len(segs) == 1 {
		delete(doc, path)
		return
	}
	var child M
	switch v := doc[segs[0]].(type) {
	case M:
		child = v.Clone()
	case map[string]any:
		child = M(v).Clone()
	default:
		return
	}
	deletePath(child, strings.Join(segs[1:], "."))
	doc[segs[0]] = child
}

// Execute run the query once and expand its Populate directives. Each
// directive issues one extra Find with an In condition, a directive whose
// path the include projection leaves out is skipped.
func Execute(ctx context.Context, db Database, table string, q *Query) ([]M, error) {
	docs, err := db.Find(ctx, table, q)
	if err != nil {
		return nil, err
	}
	include, _ := Projection(q.fields)
	for _, p := range q.populate {
		if !selected(include, p.Path) {
			continue
		}
		if err = populate(ctx, db, docs, p); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

// selected report whether an include list asks for path, an empty list
// selects everything
func selected(include []string, path string) bool {
	if len(include) == 0 {
		return true
	}
	for _, f := range include {
		if f == path || strings.HasPrefix(f, path+".") {
			return true
		}
	}
	return false
}

func populate(ctx context.Context, db Database, docs []M, p Populate) error {
	if len(docs) == 0 {
		return nil
	}
	if p.ForeignField != "" {
		return populateReverse(ctx, db, docs, p)
	}
	ids := make([]any, 0, len(docs))
	seen := make(map[string]bool, len(docs))
	for _, d := range docs {
		v, ok := d[p.Path]
		if !ok || v == nil {
			continue
		}
		k := fmt.Sprint(v)
		if !seen[k] {
			seen[k] = true
			ids = append(ids, v)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	related, err := db.Find(ctx, p.Collection, NewQuery(C{{Key: IDKey, Value: ids, C: In}}).Select(p.Select...))
	if err != nil {
		return err
	}
	byID := make(map[string]M, len(related))
	for _, r := range related {
		byID[fmt.Sprint(r[IDKey])] = r
	}
	for _, d := range docs {
		v, ok := d[p.Path]
		if !ok || v == nil {
			continue
		}
		if r, found := byID[fmt.Sprint(v)]; found {
			d[p.Path] = r
		}
	}
	return nil
}

func populateReverse(ctx context.Context, db Database, docs []M, p Populate) error {
	ids := make([]any, 0, len(docs))
	for _, d := range docs {
		if id, ok := d[IDKey]; ok {
			ids = append(ids, id)
		}
	}
	fields := p.Select
	if include, _ := Projection(fields); len(include) > 0 {
		fields = append(append([]string(nil), fields...), p.ForeignField)
	}
	related, err := db.Find(ctx, p.Collection,
		NewQuery(C{{Key: p.ForeignField, Value: ids, C: In}}).Select(fields...).Sort(IDKey))
	if err != nil {
		return err
	}
	grouped := make(map[string][]M, len(docs))
	for _, r := range related {
		k := fmt.Sprint(r[p.ForeignField])
		grouped[k] = append(grouped[k], r)
	}
	for _, d := range docs {
		children := grouped[fmt.Sprint(d[IDKey])]
		if children == nil {
			children = []M{}
		}
		d[p.Path] = children
	}
	return nil
}
