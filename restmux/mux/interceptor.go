package mux

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/saba2003/devcamper-api/log"
	"github.com/saba2003/devcamper-api/tools/ip"
	"github.com/saba2003/devcamper-api/tools/stacktrace"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var noLogMethod = map[string]bool{
	http.MethodConnect: true,
	http.MethodOptions: true,
	http.MethodTrace:   true,
	http.MethodHead:    true,
}

var noLogPath = map[string]bool{
	"/healthz":     true,
	"/favicon.ico": true,
}

// maxLogBody the bytes of a request body kept in the log
const maxLogBody = 2048

func defaultInterceptor(opts *options) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !opts.noCors {
				if enableCORS(w, r, opts.allowedOrigins) {
					return
				}
			}
			if overrideMethod := r.Header.Get("X-HTTP-Method-Override"); overrideMethod != "" {
				r.Method = overrideMethod
			}
			requestID := r.Header.Get(requestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
				r.Header.Set(requestIDHeader, requestID)
			}
			w.Header().Set(requestIDHeader, requestID)
			quiet := opts.noLog || noLogMethod[r.Method] || noLogPath[r.URL.Path]
			logger := log.New(map[string]any{
				requestIDTag: requestID,
				"action":     r.URL.Path,
				"method":     r.Method,
				"ip":         ip.ClientIP(r, opts.behindProxy),
				"protocol":   r.Proto,
				"peer":       r.RemoteAddr,
			})
			if !quiet && opts.logBody {
				injectRequest(logger, r)
			}
			writer := &responseWriter{W: w}
			start := time.Now()
			defer func() {
				if opts.recovery {
					if rec := recover(); rec != nil {
						recoverRequest(logger, rec, stacktrace.PanicLocation())
						if writer.status == 0 {
							WriteHTTPErrorResponse(writer, r, status.Errorf(codes.Internal, "panic %v", rec))
						}
					}
				}
				if writer.status == 0 {
					writer.status = http.StatusOK
				}
				observeRequest(r.Method, writer.status, start)
				if !quiet {
					logRequest(logger, writer.status, time.Since(start), r.Method)
				}
			}()
			ctx := log.WithLogger(r.Context(), logger)
			h.ServeHTTP(writer, r.WithContext(ctx))
		})
	}
}

// enableCORS answers the preflight, it returns true when the request is done.
func enableCORS(w http.ResponseWriter, r *http.Request, allowed []string) bool {
	if filepath.Ext(r.URL.Path) == "" {
		w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	}
	origin := r.Header.Get("Origin")
	if origin != "" && (len(allowed) == 0 || slices.Contains(allowed, origin)) {
		if uri, err := url.Parse(origin); err == nil && uri.Host != r.Host {
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, PUT, DELETE, PATCH, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Accept, X-Request-Id")
			w.Header().Set("Access-Control-Expose-Headers", "X-Request-Id, X-RateLimit-Limit, "+
				"X-RateLimit-Remaining, X-RateLimit-Reset")
			w.Header().Set("Vary", "Origin, Accept-Encoding")
			w.Header().Set("Access-Control-Max-Age", "86400")
		}
	}
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return true
	}
	return false
}

// injectRequest put the query, or the json body of a write, in the log.
func injectRequest(logger log.Logger, r *http.Request) {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		if ct := r.Header.Get("Content-Type"); r.Body == nil || !strings.Contains(ct, "json") {
			return
		}
		buf, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil || len(buf) == 0 {
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(buf))
		if len(buf) > maxLogBody {
			buf = buf[:maxLogBody]
		}
		logger.Inject(map[string]any{requestTag: string(redactPassword(buf))})
	default:
		if r.URL.RawQuery != "" {
			logger.Inject(map[string]any{requestTag: r.URL.RawQuery})
		}
	}
}

// redactPassword hide the password fields of a json body.
func redactPassword(buf []byte) []byte {
	var body map[string]any
	if err := json.Unmarshal(buf, &body); err != nil {
		return buf
	}
	changed := false
	for _, k := range []string{"password", "currentPassword", "newPassword"} {
		if _, ok := body[k]; ok {
			body[k] = "***"
			changed = true
		}
	}
	if !changed {
		return buf
	}
	out, err := json.Marshal(body)
	if err != nil {
		return buf
	}
	return out
}

func recoverRequest(l log.Logger, rec any, location string) {
	panicsTotal.Inc()
	l.With(map[string]any{
		"stack": location,
		"code":  codes.Internal.String(),
		"error": rec,
	}).Error("panic recovered")
}

func logRequest(l log.Logger, statusCode int, took time.Duration, msg string) {
	logger := l.With(map[string]any{
		"status":  statusCode,
		"latency": took.String(),
	})
	switch {
	case statusCode >= http.StatusInternalServerError && statusCode != http.StatusNotImplemented:
		logger.Error(msg)
	case statusCode >= http.StatusBadRequest:
		logger.Warn(msg)
	default:
		logger.Info(msg)
	}
}
