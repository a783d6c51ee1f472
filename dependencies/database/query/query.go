// Package query turn list request query strings into paginated, projected and
// populated result envelopes over any database.Database collection.
//
//	GET /bootcamps?averageCost[lte]=10000&careers[in]=Business&select=name,averageCost&sort=-averageCost&page=2&limit=10
package query

import (
	"context"
	"net/url"
	"time"

	"github.com/saba2003/devcamper-api/async"
	"github.com/saba2003/devcamper-api/dependencies/database"
	"github.com/saba2003/devcamper-api/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Collection the target of a list request
type Collection struct {
	Name string
	// Populate the relation expansions applied to every page
	Populate []database.Populate
	// Hidden fields are never returned and can not be filtered or sorted on
	Hidden []string
	// Scope server side conditions, for example the parent of a nested route
	Scope database.C
}

// PageRef points to a neighbour page
type PageRef struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Pagination the neighbour pages, absent when they do not exist
type Pagination struct {
	Next     *PageRef `json:"next,omitempty"`
	Previous *PageRef `json:"previous,omitempty"`
}

// Envelope the response of list endpoints
type Envelope struct {
	Success    bool         `json:"success"`
	Count      int          `json:"count"`
	Pagination Pagination   `json:"pagination"`
	Data       []database.M `json:"data"`
	Total      int64        `json:"-"`
}

// Processor the generic list pipeline, it holds no per request state.
type Processor struct {
	db   database.Database
	opts *options
}

// New processor on the db
func New(db database.Database, opts ...Option) *Processor {
	return &Processor{db: db, opts: evaluateOptions(opts)}
}

// Run parse values, then issue exactly one count and one data query
// concurrently, populate directives add one query each.
func (p *Processor) Run(ctx context.Context, c Collection, values url.Values) (*Envelope, error) {
	start := time.Now()
	env, err := p.run(ctx, c, values)
	observe(c.Name, start, err)
	if err != nil {
		log.Extract(ctx).With(map[string]any{
			"action":     "query.Run",
			"collection": c.Name,
			"code":       status.Code(err).String(),
		}).Warn(err.Error())
	}
	return env, err
}

func (p *Processor) run(ctx context.Context, c Collection, values url.Values) (*Envelope, error) {
	req, err := p.Parse(c, values)
	if err != nil {
		return nil, err
	}
	if p.opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.timeout)
		defer cancel()
	}
	startIndex, endIndex := req.Window()
	filter := append(append(database.C{}, c.Scope...), req.Filter...)
	q := database.NewQuery(filter).
		Select(req.Select...).
		Sort(req.Sort...).
		Skip(startIndex).
		Limit(req.Limit).
		Populate(c.Populate...)
	countFilter := filter
	if p.opts.countMode == CountCollection {
		countFilter = append(database.C{}, c.Scope...)
	}
	fu := async.New(ctx)
	total := async.Async(fu, func(ctx context.Context, cond database.C) (int64, error) {
		return p.db.Count(ctx, c.Name, cond)
	}, countFilter)
	docs := async.Async(fu, func(ctx context.Context, q *database.Query) ([]database.M, error) {
		return database.Execute(ctx, p.db, c.Name, q)
	}, q)
	if err = fu.Await(); err != nil {
		return nil, upstreamError(err)
	}
	env := &Envelope{
		Success: true,
		Count:   len(*docs),
		Data:    *docs,
		Total:   *total,
	}
	if env.Data == nil {
		env.Data = []database.M{}
	}
	if int64(endIndex) < *total {
		env.Pagination.Next = &PageRef{Page: req.Page + 1, Limit: req.Limit}
	}
	if startIndex > 0 {
		env.Pagination.Previous = &PageRef{Page: req.Page - 1, Limit: req.Limit}
	}
	return env, nil
}

// upstreamError keep status errors of the store, context errors become
// DeadlineExceeded or Canceled, anything else is Unavailable.
func upstreamError(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	if s := status.FromContextError(err); s.Code() != codes.Unknown {
		return s.Err()
	}
	return status.Errorf(codes.Unavailable, "query execution failed: %s", err)
}
