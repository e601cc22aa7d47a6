package graph

import (
	"context"

	"github.com/lightsource/sessions-api/internal/observability"
	"github.com/lightsource/sessions-api/internal/policy"
)

// Error codes surfaced to clients through GraphQL error extensions.
const (
	// CodeAccessDenied means the policy endpoint denied the operation.
	CodeAccessDenied = "ACCESS_DENIED"

	// CodePolicyUnavailable means no policy decision could be obtained.
	CodePolicyUnavailable = "POLICY_UNAVAILABLE"

	// CodeInternal means the operation failed for a reason the client
	// must not learn more about.
	CodeInternal = "INTERNAL"

	// CodeParseError means a stored value could not be converted to
	// its schema type.
	CodeParseError = "PARSE_ERROR"
)

// resolverError is an error carrying a stable machine readable code in
// its GraphQL extensions.
type resolverError struct {
	message string
	code    string
}

// Error returns the client facing message.
func (e *resolverError) Error() string {
	return e.message
}

// Extensions returns the GraphQL error extensions.
func (e *resolverError) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.code}
}

func errAccessDenied() error {
	return &resolverError{message: "Access denied", code: CodeAccessDenied}
}

func errPolicyUnavailable() error {
	return &resolverError{message: "authorization service unavailable", code: CodePolicyUnavailable}
}

func errInternal() error {
	return &resolverError{message: "internal error", code: CodeInternal}
}

func errParse(message string) error {
	return &resolverError{message: message, code: CodeParseError}
}

// mapPolicyError converts a policy decision failure into its client
// facing error. Denied and unavailable must stay distinguishable.
func mapPolicyError(err error) error {
	switch {
	case policy.IsDenied(err):
		return errAccessDenied()
	case policy.IsUnavailable(err):
		return errPolicyUnavailable()
	default:
		return errInternal()
	}
}

// internalError logs the cause and returns the opaque internal error.
// The detail stays in the logs, never in the response.
func internalError(ctx context.Context, logger observability.Logger, msg string, err error) error {
	logger.WithContext(ctx).Error(msg, observability.Error(err))
	return errInternal()
}
