// Package health provides the liveness and readiness endpoints served
// on the metrics listener. Readiness covers the two dependencies the
// API cannot answer without: the ISPyB database and the policy
// decision endpoint, plus Redis when distributed rate limiting is
// configured.
package health
