// Package mux provide the http mux of the api, it routes restful paths and
// turns every status error into the {success:false,error} body.
package mux

import (
	"context"
	"net/http"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	requestIDHeader = "X-Request-Id"
	requestIDTag    = "request_id"
	requestTag      = "request"
)

// HandlerFunc a route handler, a returned error is written by the mux.
type HandlerFunc func(w http.ResponseWriter, r *http.Request, params map[string]string) error

// ServeMux the custom serve mux on the grpc gateway runtime mux, only path
// patterns are used, there is no grpc behind it.
type ServeMux struct {
	serveMux *runtime.ServeMux
	opts     *options
	handler  http.Handler
}

// NewServeMux allocates and returns a new ServeMux.
func NewServeMux(opts ...Option) *ServeMux {
	o := evaluateOptions(opts)
	mux := &ServeMux{
		opts: o,
	}
	mux.serveMux = runtime.NewServeMux(
		runtime.WithErrorHandler(httpErrorHandler),
		runtime.WithRoutingErrorHandler(routingErrorHandler),
	)
	middleWares := append([]func(http.Handler) http.Handler{defaultInterceptor(o)}, o.middleWares...)
	mux.handler = handlerWithMiddleWares(mux.serveMux, middleWares...)
	return mux
}

// Handle the path of method, the path is a pattern like /api/v1/bootcamps/{id}
func (srv *ServeMux) Handle(method, path string, h HandlerFunc) {
	err := srv.serveMux.HandlePath(method, path, func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		if err := h(w, r, params); err != nil {
			WriteHTTPErrorResponse(w, r, err)
		}
	})
	if err != nil {
		panic(err)
	}
}

// HandleRaw register a handler which writes everything itself.
func (srv *ServeMux) HandleRaw(method, path string, h runtime.HandlerFunc) {
	if err := srv.serveMux.HandlePath(method, path, h); err != nil {
		panic(err)
	}
}

// ServeHTTP handle http path
func (srv *ServeMux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	srv.handler.ServeHTTP(w, r)
}

// ServeMux return grpc gateway server mux
func (srv *ServeMux) ServeMux() *runtime.ServeMux {
	return srv.serveMux
}

// handlerWithMiddleWares handler with middle wares, the first is the outermost.
func handlerWithMiddleWares(h http.Handler, middleWares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middleWares) - 1; i >= 0; i-- {
		h = middleWares[i](h)
	}
	return h
}

func httpErrorHandler(_ context.Context, _ *runtime.ServeMux, _ runtime.Marshaler,
	w http.ResponseWriter, r *http.Request, err error,
) {
	WriteHTTPErrorResponse(w, r, err)
}

func routingErrorHandler(_ context.Context, _ *runtime.ServeMux, _ runtime.Marshaler,
	w http.ResponseWriter, r *http.Request, httpStatus int,
) {
	switch httpStatus {
	case http.StatusMethodNotAllowed:
		writeError(w, r, httpStatus, "Method "+r.Method+" not allowed")
	case http.StatusBadRequest:
		WriteHTTPErrorResponse(w, r, status.Error(codes.InvalidArgument, "Bad request"))
	default:
		WriteHTTPErrorResponse(w, r, status.Errorf(codes.NotFound, "Route %s not found", r.URL.Path))
	}
}
