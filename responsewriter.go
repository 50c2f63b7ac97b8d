package crap

import (
	"bytes"
	"net/http"
)

// ResponseWriter implements http.ResponseWriter for an Exchange.
// The response is buffered and sent when the handler returns.
type ResponseWriter struct {
	Code        int          // the HTTP response code from WriteHeader
	HeaderMap   http.Header  // the HTTP response headers
	Body        bytes.Buffer // the response body
	wroteHeader bool
}

// NewResponseWriter returns an initialized ResponseWriter.
func NewResponseWriter() *ResponseWriter {
	return &ResponseWriter{
		HeaderMap: make(http.Header),
		Code:      http.StatusOK,
	}
}

// Header returns the response headers.
func (rw *ResponseWriter) Header() http.Header {
	m := rw.HeaderMap
	if m == nil {
		m = make(http.Header)
		rw.HeaderMap = m
	}
	return m
}

// Write appends buf to the response body.
func (rw *ResponseWriter) Write(buf []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.Body.Write(buf)
}

// WriteHeader sets rw.Code. Only the first call has any effect.
func (rw *ResponseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.Code = code
		rw.wroteHeader = true
	}
}

// Reset sets the ResponseWriter to the initial state.
func (rw *ResponseWriter) Reset() {
	rw.Code = http.StatusOK
	rw.HeaderMap = nil
	rw.Body.Reset()
	rw.wroteHeader = false
}

// Flush does nothing, the response is sent when the handler returns.
func (rw *ResponseWriter) Flush() {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
}
