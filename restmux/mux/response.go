package mux

import (
	"errors"
	"io"
	"net/http"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxBodyBytes bound the json body of a request
const maxBodyBytes = 1 << 20

// WriteJSON write v as the json body with the status.
func WriteJSON(w http.ResponseWriter, httpStatus int, v any) error {
	buf, err := json.Marshal(v)
	if err != nil {
		return status.Errorf(codes.Internal, "marshal response: %v", err)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(httpStatus)
	_, err = w.Write(buf)
	return err
}

// Decode the json body of r into ptr, a malformed body is an InvalidArgument.
// An empty body leaves ptr untouched.
func Decode(r *http.Request, ptr any) error {
	if r.Body == nil {
		return nil
	}
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "json") {
		return status.Errorf(codes.InvalidArgument, "Unsupported content type %s", ct)
	}
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(ptr)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return status.Error(codes.InvalidArgument, "Invalid JSON body")
}
