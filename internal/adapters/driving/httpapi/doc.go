// Package httpapi exposes the recall facade over an HTTP/JSON API for
// programmatic clients. Routes are registered on a net/http ServeMux;
// all responses are JSON, errors use the {error, hint?} envelope, and
// CORS is enabled for browser clients.
package httpapi
