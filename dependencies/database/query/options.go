package query

import "time"

// CountMode how the total of the pagination is computed
type CountMode string

// count modes
const (
	// CountFiltered count the documents matching the filter
	CountFiltered CountMode = "filtered"
	// CountCollection count every document of the collection, ignoring the client filter
	CountCollection CountMode = "collection"
)

type options struct {
	defaultLimit int
	maxLimit     int
	defaultSort  []string
	countMode    CountMode
	timeout      time.Duration
}

// Option the Option of the processor
type Option func(*options)

func evaluateOptions(opts []Option) *options {
	opt := &options{
		defaultLimit: 25,
		defaultSort:  []string{"-createdAt"},
		countMode:    CountFiltered,
	}
	for _, o := range opts {
		o(opt)
	}
	return opt
}

// WithDefaultLimit the page size when limit is absent or malformed
func WithDefaultLimit(limit int) Option {
	return func(o *options) {
		if limit > 0 {
			o.defaultLimit = limit
		}
	}
}

// WithMaxLimit cap the page size, 0 means no cap
func WithMaxLimit(limit int) Option {
	return func(o *options) {
		if limit >= 0 {
			o.maxLimit = limit
		}
	}
}

// WithDefaultSort the sort fields when sort is absent
func WithDefaultSort(fields ...string) Option {
	return func(o *options) {
		if len(fields) > 0 {
			o.defaultSort = fields
		}
	}
}

// WithCountMode choose how the total is computed
func WithCountMode(mode CountMode) Option {
	return func(o *options) {
		if mode == CountCollection || mode == CountFiltered {
			o.countMode = mode
		}
	}
}

// WithTimeout bound the count and data queries, 0 means the request context only
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}
