// Package server carries the HTTP surface of the service: the gin
// engine serving the GraphQL endpoint with its middleware chain, the
// GraphiQL page, and a separate operational listener for Prometheus
// metrics and health probes.
package server
