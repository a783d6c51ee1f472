package http

import (
	"net/http"
)

// options set in code, the uri query carries everything else
type options struct {
	client    *http.Client
	userAgent string
}

// Option the Option of New
type Option func(*options)

func evaluateOptions(opts []Option) *options {
	opt := &options{userAgent: "devcamper-api"}
	for _, o := range opts {
		o(opt)
	}
	return opt
}

// WithHTTPClient send through client instead of a new one, its transport is
// still wrapped when tracing is on
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.client = client
	}
}

// WithUserAgent the User-Agent of every request
func WithUserAgent(ua string) Option {
	return func(o *options) {
		o.userAgent = ua
	}
}
