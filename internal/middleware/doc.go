// Package middleware provides the gin middleware chain for the
// GraphQL server: request identification, panic recovery, request
// logging, trace propagation, rate limiting and request deadlines.
package middleware
