// Package http provide the outbound json http client, used by the mail relay.
//
//	http://127.0.0.1:8025/api/send?timeout=5s&try=2&log=true&tracing=true
package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/saba2003/devcamper-api/dependencies/uri"
	"github.com/saba2003/devcamper-api/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// HTTP the http dep.
type HTTP struct {
	client     *http.Client
	metrics    *clientMetrics
	otelTracer trace.Tracer
	uri        *url.URL
	base       string
	userAgent  string
	opts       httpOpts
}

// httpOpts the query of the uri
type httpOpts struct {
	Timeout time.Duration
	// Try the retries after the first attempt, for transport errors only
	Try     int
	Tracing bool
	Log     bool
	LogBody bool
	// Metrics false disable the client metrics
	Metrics string
	// Token sent as the bearer authorization
	Token string
}

// New http client with uri, exp: New(ctx, "http://demo.test.com?try=2")
func New(ctx context.Context, uri string, opts ...Option) (client *HTTP, err error) {
	o := evaluateOptions(opts)
	var u *url.URL
	u, err = url.Parse(uri)
	if err != nil {
		return nil, err
	}
	h := &HTTP{
		client:    o.client,
		userAgent: o.userAgent,
	}
	err = h.Init(ctx, u)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// Init the http client with url params
func (h *HTTP) Init(_ context.Context, u *url.URL) error {
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported http scheme %s", u.Scheme)
	}
	if err := uri.DecodeQuery(u.Query(), &h.opts); err != nil {
		return err
	}
	if h.opts.LogBody {
		h.opts.Log = true
	}
	if h.client == nil {
		h.client = &http.Client{
			Timeout: 10 * time.Second,
		}
		h.SetTransport(http.DefaultTransport)
	} else if h.opts.Tracing {
		h.SetTransport(h.client.Transport)
	}
	if h.opts.Timeout > 0 {
		h.client.Timeout = h.opts.Timeout
	}
	if h.opts.Metrics != "false" {
		h.metrics = defaultClientMetrics
	}
	if h.opts.Tracing {
		h.otelTracer = otel.Tracer("client/" + u.Host)
	}
	h.uri = u
	h.base = u.Scheme + "://" + u.Host
	return nil
}

// Request send reqData as json and decode the json response into
// respDataPtr. The path is joined to the uri path unless it starts with /.
// A []byte or string is sent as is, *[]byte and *string receive the raw
// response. A non 2xx response is a status error.
func (h *HTTP) Request(ctx context.Context, method,
	path string, header http.Header, reqData any,
	respDataPtr any,
) (err error) {
	if header == nil {
		header = http.Header{}
	}
	start := time.Now()
	reqBody, err := h.buildRequestBody(header, reqData)
	if err != nil {
		return err
	}
	requestURL := h.requestURL(path)
	var tryTimes, statusCode int
	var respBody []byte
	defer func() {
		h.onRequestClose(ctx, method, path, tryTimes, start, reqBody, respBody, statusCode, err)
	}()
	if h.otelTracer != nil {
		var span trace.Span
		ctx, span = h.otelTracer.Start(ctx, method+" "+path)
		defer span.End()
	}
	var resp *http.Response
	for i := 0; i <= h.opts.Try; i++ {
		resp, err = h.request(ctx, method, requestURL, header, reqBody)
		tryTimes++
		if err == nil || ctx.Err() != nil {
			break
		}
	}
	if err != nil {
		return status.Errorf(codes.Unavailable, "%s %s: %v", method, h.base, err)
	}
	defer resp.Body.Close()
	statusCode = resp.StatusCode
	respBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return status.Errorf(codes.Unavailable, "read response: %v", err)
	}
	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return status.Errorf(codeOf(statusCode), "http status code is %d", statusCode)
	}
	if respDataPtr == nil || len(respBody) == 0 {
		return nil
	}
	switch v := respDataPtr.(type) {
	case *string:
		*v = string(respBody)
	case *[]byte:
		*v = respBody
	default:
		if err = json.Unmarshal(respBody, respDataPtr); err != nil {
			return status.Errorf(codes.Internal, "can not unmarshal %T: %v", respDataPtr, err)
		}
	}
	return nil
}

func (h *HTTP) requestURL(path string) string {
	if strings.HasPrefix(path, "/") {
		return h.base + path
	}
	base := h.base + h.uri.Path
	if path == "" {
		return base
	}
	return strings.TrimSuffix(base, "/") + "/" + path
}

// codeOf the status code of a failed response
func codeOf(httpStatus int) codes.Code {
	switch httpStatus {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return codes.InvalidArgument
	case http.StatusUnauthorized:
		return codes.Unauthenticated
	case http.StatusForbidden:
		return codes.PermissionDenied
	case http.StatusNotFound:
		return codes.NotFound
	case http.StatusTooManyRequests:
		return codes.ResourceExhausted
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return codes.DeadlineExceeded
	}
	if httpStatus >= http.StatusInternalServerError {
		return codes.Unavailable
	}
	return codes.Unknown
}

func (h *HTTP) buildRequestBody(header http.Header, reqData any) (reqBody []byte, err error) {
	if h.userAgent != "" && header.Get("User-Agent") == "" {
		header.Set("User-Agent", h.userAgent)
	}
	if h.opts.Token != "" && header.Get("Authorization") == "" {
		header.Set("Authorization", "Bearer "+h.opts.Token)
	}
	switch v := reqData.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	}
	reqBody, err = json.Marshal(reqData)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "marshal request: %v", err)
	}
	header.Set("Content-Type", "application/json")
	return reqBody, nil
}

func (h *HTTP) onRequestClose(ctx context.Context,
	method, path string, tryTimes int, start time.Time,
	reqBody, respBody []byte, statusCode int, err error,
) {
	used := time.Since(start)
	if h.opts.Log {
		logData := map[string]any{
			"status":   statusCode,
			"try":      tryTimes,
			"protocol": "http/client",
			"host":     h.uri.Host,
			"duration": durationToMilliseconds(used),
			"action":   method + ":" + path,
		}
		if h.opts.LogBody {
			if len(reqBody) > 2048 {
				reqBody = reqBody[0:2048]
			}
			if len(respBody) > 2048 {
				respBody = respBody[0:2048]
			}
			logData["request"] = string(reqBody)
			logData["response"] = string(respBody)
		}
		logger := log.Extract(ctx).With(logData)
		if err != nil {
			logger.Warn(err.Error())
		} else {
			logger.Info(method)
		}
	}
	if h.metrics != nil {
		h.metrics.observe(h.uri.Scheme, h.uri.Host, path, statusCode, used)
	}
}

func (h *HTTP) request(ctx context.Context, method, uri string,
	header http.Header, reqBody []byte,
) (*http.Response, error) {
	var body io.Reader
	if len(reqBody) > 0 {
		body = bytes.NewReader(reqBody)
	}
	request, err := http.NewRequestWithContext(ctx, method, uri, body)
	if err != nil {
		return nil, err
	}
	request.Header = header.Clone()
	if host := header.Get("host"); host != "" {
		request.Host = host
	}
	return h.client.Do(request)
}

// Close the http client
func (h *HTTP) Close(_ context.Context) error {
	h.client.CloseIdleConnections()
	return nil
}

// SetTransport set the http transport
func (h *HTTP) SetTransport(transport http.RoundTripper) {
	if transport == nil {
		transport = http.DefaultTransport
	}
	if h.opts.Tracing {
		h.client.Transport = otelhttp.NewTransport(transport)
	} else {
		h.client.Transport = transport
	}
}

// Client the http client
func (h *HTTP) Client() *http.Client {
	return h.client
}

// String the http uri, the password is redacted
func (h *HTTP) String() string {
	return h.uri.Redacted()
}

func durationToMilliseconds(duration time.Duration) float32 {
	milliseconds := float32(duration.Nanoseconds()/1000) / 1000
	return milliseconds
}
