// Package restmux serve the restful api, the metrics and the health check.
package restmux

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/saba2003/devcamper-api/graceful"
	"github.com/saba2003/devcamper-api/log"
	"github.com/saba2003/devcamper-api/restmux/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// NewServer new http server with all common middleware.
func NewServer(opts ...Option) *Server {
	o := evaluateOptions(opts)
	s := &Server{
		opts: o,
		mux:  mux.NewServeMux(o.muxOptions()...),
		ctx: log.NewContext(context.Background(), map[string]any{
			"action": "restmux",
		}),
	}
	s.mux.HandleRaw(http.MethodGet, "/healthz", func(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
		_, _ = w.Write([]byte("SERVING"))
	})
	s.mux.HandleRaw(http.MethodGet, "/favicon.ico", func(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
		w.Header().Set("Cache-Control", "public, max-age=31536000")
		w.Header().Set("Expires", time.Now().AddDate(1, 0, 0).Format(time.RFC1123))
	})
	return s
}

var noRecovery = false

func init() {
	panicRecovery := os.Getenv("PANIC_RECOVERY")
	if panicRecovery == "false" {
		noRecovery = true
	}
}

// Server the http server
type Server struct {
	mux        *mux.ServeMux
	opts       *options
	HTTPServer *http.Server
	metrics    *http.Server
	ctx        context.Context
}

// Start the servers, it blocks until a signal or a server failure.
func (s *Server) Start() error {
	graceful.AddCloser(s.Close)
	fns := []graceful.Fn{s.startHTTP}
	if s.opts.metricsAddr != "" {
		fns = append(fns, s.startMetrics)
	}
	return graceful.Start(s.ctx, fns...)
}

// Handle registers a route of the api
func (s *Server) Handle(method, path string, h mux.HandlerFunc) {
	s.mux.Handle(method, path, h)
}

// ServeMux the api mux
func (s *Server) ServeMux() *mux.ServeMux {
	return s.mux
}

// Handler the full http handler, the same one served by Start.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.mux
	if s.opts.tracing {
		handler = otelhttp.NewHandler(handler, "devcamper-api")
	}
	return h2c.NewHandler(handler, &http2.Server{
		IdleTimeout:          time.Minute,
		MaxConcurrentStreams: 1000,
	})
}

// startMetrics start metrics
func (s *Server) startMetrics(ctx context.Context) error {
	httpMux := http.NewServeMux()
	httpMux.Handle("/metrics", promhttp.HandlerFor(
		prometheus.DefaultGatherer,
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		},
	))
	s.metrics = &http.Server{
		Addr:              s.opts.metricsAddr,
		ReadHeaderTimeout: 3 * time.Second,
		Handler:           httpMux,
	}
	log.Extract(ctx).Action("startMetrics").Info("Start metrics at " + s.opts.metricsAddr)
	err := s.metrics.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return errors.New("Start metrics failed for " + err.Error())
	}
	return nil
}

// startHTTP start http
func (s *Server) startHTTP(ctx context.Context) error {
	s.HTTPServer = &http.Server{
		Addr:              s.opts.httpAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       5 * time.Minute,
		WriteTimeout:      90 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	log.Extract(ctx).Action("startHTTP").Info("Start http at " + s.opts.httpAddr)
	err := s.HTTPServer.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return errors.New("Start http failed for " + err.Error())
	}
	return nil
}

// Close service
func (s *Server) Close(ctx context.Context) error {
	if s.HTTPServer != nil {
		s.HTTPServer.SetKeepAlivesEnabled(false)
	}
	// The default timeout is 1 minute before closing, K8S service closing strategy.
	// refer: https://kubernetes.io/docs/concepts/containers/container-lifecycle-hooks/
	if preStop := os.Getenv("PRE_STOP"); preStop != "" {
		preStopDuration, _ := time.ParseDuration(preStop)
		if preStopDuration == 0 || preStopDuration > 5*time.Minute {
			preStopDuration = time.Minute
		}
		log.Action("Close").Debug("wait %s to stop the service", preStopDuration)
		time.Sleep(preStopDuration)
	}
	var errs []error
	if s.HTTPServer != nil {
		if err := s.HTTPServer.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if s.metrics != nil {
		if err := s.metrics.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
