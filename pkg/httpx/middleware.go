// Package httpx carries the small HTTP plumbing shared by all handlers:
// middleware chaining, response helpers, HTTP Basic parsing and rate limits.
package httpx

import "net/http"

// Middleware wraps a handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares to a handler so the first argument runs outermost.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
