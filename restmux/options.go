package restmux

import (
	"net/http"

	"github.com/saba2003/devcamper-api/restmux/mux"
	"github.com/saba2003/devcamper-api/tools/ratelimit"
)

type options struct {
	httpAddr        string
	metricsAddr     string
	logBody         bool
	tracing         bool
	behindProxy     bool
	allowedOrigins  []string
	limiter         *ratelimit.Limiter
	httpMiddleWares []func(http.Handler) http.Handler
}

// Option the option for this module
type Option func(*options)

func evaluateOptions(opts []Option) *options {
	optCopy := &options{
		httpAddr:    ":5000",
		metricsAddr: ":9090",
	}
	for _, o := range opts {
		o(optCopy)
	}
	return optCopy
}

// Config the server section of the config file.
type Config struct {
	HTTPAddr    string `yaml:"httpAddr"`
	MetricsAddr string `yaml:"metricsAddr"`
	LogBody     bool   `yaml:"logBody"`
	Tracing     bool   `yaml:"tracing"`
	BehindProxy bool   `yaml:"behindProxy"`
	// AllowedOrigins of cors, empty for any
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// WithConfig init with config
func WithConfig(c *Config) Option {
	return func(o *options) {
		if c == nil {
			return
		}
		if c.HTTPAddr != "" {
			o.httpAddr = c.HTTPAddr
		}
		if c.MetricsAddr != "" {
			o.metricsAddr = c.MetricsAddr
		}
		o.logBody = c.LogBody
		o.tracing = c.Tracing
		o.behindProxy = c.BehindProxy
		o.allowedOrigins = c.AllowedOrigins
	}
}

// WithLimiter limit the requests before they reach the handlers.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(o *options) {
		o.limiter = l
	}
}

// WithHTTPAddr set http addr.
func WithHTTPAddr(s string) Option {
	return func(o *options) {
		o.httpAddr = s
	}
}

// WithMetricsAddr set metrics addr, empty to disable the metrics server.
func WithMetricsAddr(s string) Option {
	return func(o *options) {
		o.metricsAddr = s
	}
}

// WithHTTPMiddleWares add http middle wares after the limiter
func WithHTTPMiddleWares(middleWares ...func(http.Handler) http.Handler) Option {
	return func(o *options) {
		o.httpMiddleWares = append(o.httpMiddleWares, middleWares...)
	}
}

func (o *options) muxOptions() []mux.Option {
	muxOpts := []mux.Option{
		mux.WithAllowedOrigins(o.allowedOrigins...),
	}
	if o.logBody {
		muxOpts = append(muxOpts, mux.WithLogBody())
	}
	if o.behindProxy {
		muxOpts = append(muxOpts, mux.WithBehindProxy())
	}
	if noRecovery {
		muxOpts = append(muxOpts, mux.WithoutRecovery())
	}
	if o.limiter != nil {
		o.limiter.BehindProxy = o.behindProxy
		muxOpts = append(muxOpts, mux.WithMiddleWares(ratelimit.NewHandler(o.limiter)))
	}
	return append(muxOpts, mux.WithMiddleWares(o.httpMiddleWares...))
}
