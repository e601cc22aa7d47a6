// Package secrets resolves secret references found in configuration.
//
// A reference names where a value lives instead of holding the value:
//
//	env://DATABASE_URL
//	file:///run/secrets/redis-password
//	vault://secret/ispyb#dsn
//
// Values without a scheme pass through unchanged. Resolution happens
// once at startup, before any listener is up.
package secrets
