// Package gzippedhttp transparently decompresses gzip request bodies
// and compresses response bodies for clients that accept gzip.
package gzippedhttp

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

var gzipWriterPool = sync.Pool{
	New: func() interface{} {
		w, _ := gzip.NewWriterLevel(nil, gzip.BestSpeed)
		return w
	},
}

type gzippedBody struct {
	body io.ReadCloser
	zr   *gzip.Reader
}

func newGzippedBody(body io.ReadCloser) (*gzippedBody, error) {
	zr, err := gzip.NewReader(body)
	if err != nil {
		return nil, err
	}

	return &gzippedBody{body: body, zr: zr}, nil
}

// Read yields the decompressed request payload.
func (b *gzippedBody) Read(p []byte) (int, error) {
	return b.zr.Read(p)
}

// Close closes the gzip stream and the wrapped body.
func (b *gzippedBody) Close() error {
	if err := b.body.Close(); err != nil {
		return err
	}

	return b.zr.Close()
}

type gzippedResponseWriter struct {
	w  http.ResponseWriter
	zw *gzip.Writer
}

func newGzippedResponseWriter(w http.ResponseWriter) *gzippedResponseWriter {
	zw := gzipWriterPool.Get().(*gzip.Writer)
	zw.Reset(w)

	return &gzippedResponseWriter{w: w, zw: zw}
}

// Header returns the headers of the wrapped writer.
func (c *gzippedResponseWriter) Header() http.Header {
	return c.w.Header()
}

// WriteHeader marks successful responses as gzip-encoded.
func (c *gzippedResponseWriter) WriteHeader(statusCode int) {
	if statusCode < 300 {
		c.w.Header().Set("Content-Encoding", "gzip")
	}
	c.w.WriteHeader(statusCode)
}

// Write compresses the payload into the wrapped writer.
func (c *gzippedResponseWriter) Write(p []byte) (int, error) {
	return c.zw.Write(p)
}

func (c *gzippedResponseWriter) close() error {
	if err := c.zw.Close(); err != nil {
		return err
	}
	gzipWriterPool.Put(c.zw)

	return nil
}

// GzipResponse compresses the response body when the client announces
// gzip support in Accept-Encoding.
func GzipResponse(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		finalResponse := response

		if strings.Contains(request.Header.Get("Accept-Encoding"), "gzip") {
			compressed := newGzippedResponseWriter(response)
			finalResponse = compressed
			defer compressed.close()
		}

		h.ServeHTTP(finalResponse, request)
	}

	return http.HandlerFunc(middleware)
}

// UngzipRequest replaces a gzip-encoded request body with a
// decompressing reader before the request reaches the handlers.
func UngzipRequest(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if strings.Contains(request.Header.Get("Content-Encoding"), "gzip") {
			decompressed, err := newGzippedBody(request.Body)
			if err != nil {
				response.WriteHeader(http.StatusInternalServerError)
				return
			}
			request.Body = decompressed
			defer decompressed.Close()
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}
