package mux

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/saba2003/devcamper-api/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const fallback = `{"success":false,"error":"Server Error"}`

// ErrorBody the body of every failed response
type ErrorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// publicError a failure whose message is meant for the client whatever its code
type publicError struct {
	s *status.Status
}

func (e *publicError) Error() string { return e.s.Message() }

// GRPCStatus the status of the error
func (e *publicError) GRPCStatus() *status.Status { return e.s }

// PublicError an error answered with msg even for server side codes, which
// otherwise hide their message behind "Server Error".
func PublicError(code codes.Code, msg string) error {
	return &publicError{s: status.New(code, msg)}
}

func convertErrorToStatus(err error) *status.Status {
	if err == nil {
		return status.New(codes.OK, "")
	}
	if errors.Is(err, context.Canceled) {
		return status.New(codes.Canceled, err.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return status.New(codes.DeadlineExceeded, err.Error())
	}
	var se interface{ GRPCStatus() *status.Status }
	if errors.As(err, &se) {
		return se.GRPCStatus()
	}
	return status.Convert(err)
}

// HTTPStatus the http status of the code. Duplicates are reported as
// a bad request like every other input error.
func HTTPStatus(code codes.Code) int {
	switch code {
	case codes.AlreadyExists:
		return http.StatusBadRequest
	case codes.Unknown:
		return http.StatusInternalServerError
	}
	return runtime.HTTPStatusFromCode(code)
}

// Message the text shown to the client, server side failures never leak
// the store error.
func Message(s *status.Status) string {
	switch s.Code() {
	case codes.AlreadyExists:
		return "Duplicate field value entered"
	case codes.Internal, codes.Unknown, codes.DataLoss:
		return "Server Error"
	case codes.Unavailable:
		return "Service Unavailable"
	case codes.DeadlineExceeded:
		return "Request Timeout"
	}
	if s.Message() == "" {
		return http.StatusText(HTTPStatus(s.Code()))
	}
	return s.Message()
}

// WriteHTTPErrorResponse set HTTP status code and write error description to the body.
func WriteHTTPErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	s := convertErrorToStatus(err)
	log.Inject(r.Context(), map[string]any{
		"code":  s.Code().String(),
		"error": s.Message(),
	})
	msg := Message(s)
	var pe *publicError
	if errors.As(err, &pe) {
		msg = pe.s.Message()
	}
	writeError(w, r, HTTPStatus(s.Code()), msg)
}

func writeError(w http.ResponseWriter, r *http.Request, httpStatus int, msg string) {
	w.Header().Del("Trailer")
	w.Header().Del("Transfer-Encoding")
	buf, err := json.Marshal(&ErrorBody{Error: msg})
	if err != nil {
		log.Extract(r.Context()).Action("mux.writeError").Error("marshal error body: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, fallback)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_, _ = w.Write(buf)
}
