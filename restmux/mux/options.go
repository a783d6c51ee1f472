package mux

import (
	"net/http"
)

var defaultOptions = &options{
	recovery: true,
}

type options struct {
	middleWares    []func(http.Handler) http.Handler
	allowedOrigins []string
	logBody        bool
	noLog          bool
	recovery       bool
	noCors         bool
	behindProxy    bool
}

// Option the Options for this module
type Option func(*options)

// WithOutLog disable the request log.
func WithOutLog() Option {
	return func(o *options) {
		o.logBody = false
		o.noLog = true
	}
}

// WithOutCORS disable cors
func WithOutCORS() Option {
	return func(o *options) {
		o.noCors = true
	}
}

// WithAllowedOrigins only answer cors for these origins, every cross origin
// request is answered when empty.
func WithAllowedOrigins(origins ...string) Option {
	return func(o *options) {
		o.allowedOrigins = origins
	}
}

// WithLogBody log with the query or the body of writes.
func WithLogBody() Option {
	return func(o *options) {
		o.logBody = true
	}
}

// WithBehindProxy trust X-Forwarded-For for the client ip.
func WithBehindProxy() Option {
	return func(o *options) {
		o.behindProxy = true
	}
}

// WithoutRecovery no recovery panic.
func WithoutRecovery() Option {
	return func(o *options) {
		o.recovery = false
	}
}

// WithMiddleWares pluggable function that performs middle wares, they run
// inside the request log and the recovery.
func WithMiddleWares(middleWares ...func(http.Handler) http.Handler) Option {
	return func(o *options) {
		o.middleWares = append(o.middleWares, middleWares...)
	}
}

func evaluateOptions(opts []Option) *options {
	optCopy := &options{}
	*optCopy = *defaultOptions
	for _, o := range opts {
		o(optCopy)
	}
	return optCopy
}
