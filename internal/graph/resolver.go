package graph

import (
	"context"

	"github.com/lightsource/sessions-api/internal/ispyb"
	"github.com/lightsource/sessions-api/internal/observability"
	"github.com/lightsource/sessions-api/internal/policy"
)

// Policy operation names, also used as metric labels.
const (
	opSessions = "sessions"
	opSession  = "session"
	opEntities = "entities"
)

// visitParameters is the policy input for the session operation.
type visitParameters struct {
	Proposal int32 `json:"proposal"`
	Visit    int32 `json:"visit"`
}

// sessionParameters is the policy input for entity resolution.
type sessionParameters struct {
	SessionID int32 `json:"sessionId"`
}

// RootResolver resolves the Query type. Every operation obtains an
// affirmative policy decision before the repository is touched.
type RootResolver struct {
	repo    ispyb.SessionRepository
	policy  *policy.Client
	logger  observability.Logger
	metrics *Metrics
}

// ResolverOption is a functional option for the root resolver.
type ResolverOption func(*RootResolver)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) ResolverOption {
	return func(r *RootResolver) {
		r.logger = logger
	}
}

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) ResolverOption {
	return func(r *RootResolver) {
		r.metrics = metrics
	}
}

// NewRootResolver creates the root resolver.
func NewRootResolver(repo ispyb.SessionRepository, policyClient *policy.Client, opts ...ResolverOption) *RootResolver {
	r := &RootResolver{
		repo:   repo,
		policy: policyClient,
		logger: observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.metrics == nil {
		r.metrics = NewMetrics("sessions")
	}

	return r
}

// Sessions resolves the sessions query.
func (r *RootResolver) Sessions(ctx context.Context) ([]*SessionResolver, error) {
	if err := policy.Decide(ctx, r.policy, opSessions, policy.NewInput(ctx, struct{}{})); err != nil {
		r.metrics.RecordOperation(opSessions, outcomeOf(err))
		return nil, mapPolicyError(err)
	}

	sessions, err := r.repo.ListSessions(ctx)
	if err != nil {
		r.metrics.RecordOperation(opSessions, "error")
		return nil, internalError(ctx, r.logger, "listing sessions failed", err)
	}

	resolvers := make([]*SessionResolver, 0, len(sessions))
	for _, s := range sessions {
		resolvers = append(resolvers, newSessionResolver(r, s, nil))
	}

	r.metrics.RecordOperation(opSessions, "ok")
	return resolvers, nil
}

// Session resolves the session query. A session that does not exist
// is null, not an error.
func (r *RootResolver) Session(ctx context.Context, args struct {
	Proposal int32
	Visit    int32
}) (*SessionResolver, error) {
	input := policy.NewInput(ctx, visitParameters{Proposal: args.Proposal, Visit: args.Visit})
	if err := policy.Decide(ctx, r.policy, opSession, input); err != nil {
		r.metrics.RecordOperation(opSession, outcomeOf(err))
		return nil, mapPolicyError(err)
	}

	sv, err := r.repo.GetSessionForVisit(ctx, args.Proposal, args.Visit)
	if err != nil {
		r.metrics.RecordOperation(opSession, "error")
		return nil, internalError(ctx, r.logger, "resolving session failed", err)
	}
	if sv == nil {
		r.metrics.RecordOperation(opSession, "ok")
		return nil, nil
	}

	r.metrics.RecordOperation(opSession, "ok")
	return newSessionResolver(r, sv.Session, &sv.Proposal), nil
}

// outcomeOf maps a policy error onto the operation metric outcome.
func outcomeOf(err error) string {
	switch {
	case policy.IsDenied(err):
		return "denied"
	case policy.IsUnavailable(err):
		return "unavailable"
	default:
		return "error"
	}
}
