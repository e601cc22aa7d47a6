package graph

import (
	"context"
	"strconv"

	"github.com/lightsource/sessions-api/internal/ispyb"
)

// SessionResolver resolves the Session type.
type SessionResolver struct {
	root     *RootResolver
	session  ispyb.BLSession
	proposal *ispyb.Proposal
}

// newSessionResolver wraps a session row. proposal may carry the
// already joined proposal row to save the lookup; nil means resolve
// lazily through the foreign key.
func newSessionResolver(root *RootResolver, session ispyb.BLSession, proposal *ispyb.Proposal) *SessionResolver {
	return &SessionResolver{
		root:     root,
		session:  session,
		proposal: proposal,
	}
}

// SessionID resolves the sessionId field.
func (r *SessionResolver) SessionID() int32 {
	return int32(r.session.SessionID)
}

// VisitNumber resolves the visitNumber field. Sessions recorded
// before visit numbering are null.
func (r *SessionResolver) VisitNumber() *int32 {
	if !r.session.VisitNumber.Valid {
		return nil
	}
	v := int32(r.session.VisitNumber.Int64)
	return &v
}

// Start resolves the start field.
func (r *SessionResolver) Start() *DateTime {
	if !r.session.StartDate.Valid {
		return nil
	}
	return &DateTime{Time: r.session.StartDate.Time}
}

// End resolves the end field.
func (r *SessionResolver) End() *DateTime {
	if !r.session.EndDate.Valid {
		return nil
	}
	return &DateTime{Time: r.session.EndDate.Time}
}

// Proposal resolves the proposal field. The operation that produced
// this session already passed its policy decision, so the nested
// lookup rides on that decision.
func (r *SessionResolver) Proposal(ctx context.Context) (*ProposalResolver, error) {
	if r.proposal != nil {
		return &ProposalResolver{proposal: *r.proposal}, nil
	}

	if !r.session.ProposalID.Valid {
		return nil, nil
	}

	p, err := r.root.repo.GetProposal(ctx, uint32(r.session.ProposalID.Int64))
	if err != nil {
		return nil, internalError(ctx, r.root.logger, "resolving proposal failed", err)
	}
	if p == nil {
		return nil, nil
	}

	return &ProposalResolver{proposal: *p}, nil
}

// ProposalResolver resolves the Proposal type.
type ProposalResolver struct {
	proposal ispyb.Proposal
}

// Code resolves the code field.
func (r *ProposalResolver) Code() *string {
	if !r.proposal.ProposalCode.Valid {
		return nil
	}
	code := r.proposal.ProposalCode.String
	return &code
}

// Number resolves the number field. ISPyB stores the proposal number
// as a varchar; a value that does not parse as an unsigned integer is
// a field error, not a silent null.
func (r *ProposalResolver) Number() (*int32, error) {
	if !r.proposal.ProposalNumber.Valid {
		return nil, nil
	}

	n, err := strconv.ParseUint(r.proposal.ProposalNumber.String, 10, 31)
	if err != nil {
		return nil, errParse("proposal number is not a number")
	}

	v := int32(n)
	return &v, nil
}
