// Package ratelimit provides rate limiting for the GraphQL endpoint.
//
// Two implementations are available: a local token bucket keyed by
// client, and a Redis fixed window for deployments with more than one
// replica. Both report through the same Limiter interface, so the
// middleware does not care which one is wired.
package ratelimit
