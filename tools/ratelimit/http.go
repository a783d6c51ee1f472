package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/saba2003/devcamper-api/log"
	"github.com/saba2003/devcamper-api/restmux/mux"
	"github.com/saba2003/devcamper-api/tools/ip"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Limiter the limiter struct for hold fn and config
type Limiter struct {
	// PersistenceFn keep the counters, the memory limiter when nil
	PersistenceFn PersistenceFn
	Rules         *Rules
	// BehindProxy resolve the ip key from X-Forwarded-For
	BehindProxy bool
}

// NewHandler new router limit middleware.
func NewHandler(limiter *Limiter) func(h http.Handler) http.Handler {
	if limiter.PersistenceFn == nil {
		limiter.PersistenceFn = NewMemory(0).AllowN
	}
	if limiter.Rules == nil {
		limiter.Rules = &Rules{Disabled: true}
	}
	return func(h http.Handler) http.Handler {
		return &LimitHandler{handler: h, limiter: limiter}
	}
}

// LimitHandler the ratelimit handler.
type LimitHandler struct {
	handler http.Handler
	limiter *Limiter
}

// requestGetter resolve the keys of the rules on the request
type requestGetter struct {
	r           *http.Request
	behindProxy bool
}

// Get the client ip for KeyIP, the header otherwise
func (g requestGetter) Get(key string) string {
	if key == KeyIP {
		return ip.ClientIP(g.r, g.behindProxy)
	}
	return g.r.Header.Get(key)
}

// ServeHTTP the http handler
func (h *LimitHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		h.handler.ServeHTTP(w, r)
		return
	}
	lv := h.limiter.Rules.Match(r.URL.Path, requestGetter{r: r, behindProxy: h.limiter.BehindProxy})
	if lv.Quota == NoLimit {
		h.handler.ServeHTTP(w, r)
		return
	}
	if lv.Quota == Blocked {
		log.Inject(r.Context(), map[string]any{"limit": lv.Message})
		mux.WriteHTTPErrorResponse(w, r, status.Error(codes.PermissionDenied, "Access denied"))
		return
	}
	remaining, reset, allowed := h.limiter.PersistenceFn(r.Context(), lv.Key, lv.Quota, lv.Duration, 1)
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(lv.Quota))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.Itoa(int((reset+time.Second-1)/time.Second)))
	w.Header().Set("X-RateLimit-Resource", resourceKey(lv.Key))
	if !allowed {
		log.Inject(r.Context(), map[string]any{"limit": lv.Message})
		mux.WriteHTTPErrorResponse(w, r,
			status.Error(codes.ResourceExhausted, "Too many requests, please try again later"))
		return
	}
	h.handler.ServeHTTP(w, r)
}

func resourceKey(src string) string {
	src, _, _ = strings.Cut(src, ":")
	src = strings.ReplaceAll(src, "/", "")
	src = strings.ReplaceAll(src, ".", "")
	src = strings.ReplaceAll(src, "-", "")
	if src == "" {
		return "default"
	}
	return src
}
