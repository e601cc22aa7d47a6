// Package policy implements the client for the external policy
// decision endpoint that gates every GraphQL operation.
//
// The wire contract is a single POST of
//
//	{"token": <string|null>, "parameters": {...}}
//
// answered by
//
//	{"allow": <bool>}
//
// Anything other than a well formed 200 response counts as no
// decision, and no decision means no data: Decide fails closed with
// ErrUnavailable. A deny is not an error condition of the endpoint and
// is reported as ErrDenied.
//
// # Usage
//
//	client, err := policy.New("http://policy:8181/v1/data/sessions",
//	    policy.WithTimeout(10*time.Second),
//	    policy.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//
//	input := policy.NewInput(ctx, visitParams{Proposal: 12345, Visit: 2})
//	if err := policy.Decide(ctx, client, "session", input); err != nil {
//	    return err // denied or unavailable, never proceed
//	}
package policy
