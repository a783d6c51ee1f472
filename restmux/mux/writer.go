package mux

import (
	"net/http"
)

// responseWriter keep the status for the request log
type responseWriter struct {
	W      http.ResponseWriter
	status int
}

// Header implement responseWriter
func (l *responseWriter) Header() http.Header {
	return l.W.Header()
}

// Write implement responseWrite
func (l *responseWriter) Write(b []byte) (int, error) {
	if l.status == 0 {
		l.status = http.StatusOK
	}
	return l.W.Write(b)
}

// WriteHeader write header
func (l *responseWriter) WriteHeader(s int) {
	if l.status == 0 {
		l.status = s
	}
	l.W.WriteHeader(s)
}

// Flush sends any buffered data to the client.
func (l *responseWriter) Flush() {
	flusher, ok := l.W.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

// Unwrap for http.ResponseController
func (l *responseWriter) Unwrap() http.ResponseWriter {
	return l.W
}
