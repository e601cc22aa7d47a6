package ispyb

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lightsource/sessions-api/internal/observability"
)

// SessionVisit pairs a session with the proposal it was resolved
// through.
type SessionVisit struct {
	Session  BLSession
	Proposal Proposal
}

// SessionRepository reads Beamline Session records from ISPyB.
//
// Lookups that match no row return a nil entity and a nil error;
// every non-nil error wraps ErrStorage.
type SessionRepository interface {
	// ListSessions returns all sessions.
	ListSessions(ctx context.Context) ([]BLSession, error)

	// GetSession returns the session with the given ID, or nil when
	// no such session exists.
	GetSession(ctx context.Context, sessionID uint32) (*BLSession, error)

	// GetSessionForVisit returns the session identified by proposal
	// number and visit number, or nil when no such session exists.
	// When several sessions match, the most recently started wins.
	GetSessionForVisit(ctx context.Context, proposal int32, visit int32) (*SessionVisit, error)

	// GetProposal returns the proposal with the given ID, or nil when
	// no such proposal exists.
	GetProposal(ctx context.Context, proposalID uint32) (*Proposal, error)
}

const (
	listSessionsQuery = `SELECT sessionId, proposalId, visit_number, startDate, endDate FROM BLSession`

	getSessionQuery = `SELECT sessionId, proposalId, visit_number, startDate, endDate FROM BLSession WHERE sessionId = ?`

	// Ties on identical start dates break toward the highest session
	// ID so repeated lookups always return the same row.
	getSessionForVisitQuery = `SELECT s.sessionId, s.proposalId, s.visit_number, s.startDate, s.endDate,
	p.proposalId, p.proposalCode, p.proposalNumber
FROM BLSession s
JOIN Proposal p ON p.proposalId = s.proposalId
WHERE p.proposalNumber = ? AND s.visit_number = ?
ORDER BY s.startDate DESC, s.sessionId DESC
LIMIT 1`

	getProposalQuery = `SELECT proposalId, proposalCode, proposalNumber FROM Proposal WHERE proposalId = ?`
)

// mysqlRepository implements SessionRepository over a MySQL pool.
type mysqlRepository struct {
	db      *sql.DB
	logger  observability.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

// RepositoryOption is a functional option for the repository.
type RepositoryOption func(*mysqlRepository)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) RepositoryOption {
	return func(r *mysqlRepository) {
		r.logger = logger
	}
}

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) RepositoryOption {
	return func(r *mysqlRepository) {
		r.metrics = metrics
	}
}

// NewRepository creates a SessionRepository over the given pool.
func NewRepository(db *sql.DB, opts ...RepositoryOption) SessionRepository {
	r := &mysqlRepository{
		db:     db,
		logger: observability.NopLogger(),
		tracer: otel.Tracer("sessions-api/ispyb"),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.metrics == nil {
		r.metrics = NewMetrics("sessions")
	}

	return r
}

// ListSessions returns all sessions.
func (r *mysqlRepository) ListSessions(ctx context.Context) ([]BLSession, error) {
	ctx, span := r.startSpan(ctx, "ispyb.list_sessions")
	defer span.End()
	start := time.Now()

	rows, err := r.db.QueryContext(ctx, listSessionsQuery)
	if err != nil {
		return nil, r.fail(ctx, span, "list_sessions", start, err)
	}
	defer rows.Close()

	sessions := make([]BLSession, 0)
	for rows.Next() {
		var s BLSession
		if err := rows.Scan(&s.SessionID, &s.ProposalID, &s.VisitNumber, &s.StartDate, &s.EndDate); err != nil {
			return nil, r.fail(ctx, span, "list_sessions", start, err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, r.fail(ctx, span, "list_sessions", start, err)
	}

	span.SetAttributes(attribute.Int("ispyb.rows", len(sessions)))
	r.metrics.RecordQuery("list_sessions", "ok", time.Since(start))
	return sessions, nil
}

// GetSession returns the session with the given ID.
func (r *mysqlRepository) GetSession(ctx context.Context, sessionID uint32) (*BLSession, error) {
	ctx, span := r.startSpan(ctx, "ispyb.get_session")
	defer span.End()
	span.SetAttributes(attribute.Int64("ispyb.session_id", int64(sessionID)))
	start := time.Now()

	var s BLSession
	err := r.db.QueryRowContext(ctx, getSessionQuery, sessionID).
		Scan(&s.SessionID, &s.ProposalID, &s.VisitNumber, &s.StartDate, &s.EndDate)
	if errors.Is(err, sql.ErrNoRows) {
		r.metrics.RecordQuery("get_session", "ok", time.Since(start))
		return nil, nil
	}
	if err != nil {
		return nil, r.fail(ctx, span, "get_session", start, err)
	}

	r.metrics.RecordQuery("get_session", "ok", time.Since(start))
	return &s, nil
}

// GetSessionForVisit returns the session for a proposal and visit
// number pair.
func (r *mysqlRepository) GetSessionForVisit(ctx context.Context, proposal int32, visit int32) (*SessionVisit, error) {
	ctx, span := r.startSpan(ctx, "ispyb.get_session_for_visit")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("ispyb.proposal", int64(proposal)),
		attribute.Int64("ispyb.visit", int64(visit)),
	)
	start := time.Now()

	// proposalNumber is a varchar column holding plain digits; binding
	// the argument as a string keeps the comparison on the index.
	var sv SessionVisit
	err := r.db.QueryRowContext(ctx, getSessionForVisitQuery, strconv.Itoa(int(proposal)), visit).
		Scan(
			&sv.Session.SessionID, &sv.Session.ProposalID, &sv.Session.VisitNumber,
			&sv.Session.StartDate, &sv.Session.EndDate,
			&sv.Proposal.ProposalID, &sv.Proposal.ProposalCode, &sv.Proposal.ProposalNumber,
		)
	if errors.Is(err, sql.ErrNoRows) {
		r.metrics.RecordQuery("get_session_for_visit", "ok", time.Since(start))
		return nil, nil
	}
	if err != nil {
		return nil, r.fail(ctx, span, "get_session_for_visit", start, err)
	}

	r.metrics.RecordQuery("get_session_for_visit", "ok", time.Since(start))
	return &sv, nil
}

// GetProposal returns the proposal with the given ID.
func (r *mysqlRepository) GetProposal(ctx context.Context, proposalID uint32) (*Proposal, error) {
	ctx, span := r.startSpan(ctx, "ispyb.get_proposal")
	defer span.End()
	span.SetAttributes(attribute.Int64("ispyb.proposal_id", int64(proposalID)))
	start := time.Now()

	var p Proposal
	err := r.db.QueryRowContext(ctx, getProposalQuery, proposalID).
		Scan(&p.ProposalID, &p.ProposalCode, &p.ProposalNumber)
	if errors.Is(err, sql.ErrNoRows) {
		r.metrics.RecordQuery("get_proposal", "ok", time.Since(start))
		return nil, nil
	}
	if err != nil {
		return nil, r.fail(ctx, span, "get_proposal", start, err)
	}

	r.metrics.RecordQuery("get_proposal", "ok", time.Since(start))
	return &p, nil
}

// startSpan starts a client span for one repository operation.
func (r *mysqlRepository) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return r.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("db.system", "mysql")),
	)
}

// fail records one failed query and returns the wrapped storage error.
func (r *mysqlRepository) fail(ctx context.Context, span trace.Span, op string, start time.Time, err error) error {
	span.RecordError(err)
	r.metrics.RecordQuery(op, "error", time.Since(start))
	r.logger.WithContext(ctx).Error("repository query failed",
		observability.String("operation", op),
		observability.Error(err),
	)
	return NewStorageError(op, err)
}

// Ensure mysqlRepository implements SessionRepository.
var _ SessionRepository = (*mysqlRepository)(nil)
