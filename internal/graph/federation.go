package graph

import (
	"context"
	"fmt"

	"github.com/lightsource/sessions-api/internal/policy"
)

// ServiceResolver resolves the _Service type.
type ServiceResolver struct{}

// SDL returns the domain schema for composition by the router.
func (*ServiceResolver) SDL() string {
	return Schema
}

// Service resolves the _service field.
func (r *RootResolver) Service() *ServiceResolver {
	return &ServiceResolver{}
}

// EntityResolver resolves the _Entity union.
type EntityResolver struct {
	session *SessionResolver
}

// ToSession narrows the union to a Session.
func (r *EntityResolver) ToSession() (*SessionResolver, bool) {
	return r.session, r.session != nil
}

// Entities resolves the _entities field. Each representation needs its
// own affirmative policy decision before its session is read; a
// representation that matches no session resolves to null.
func (r *RootResolver) Entities(ctx context.Context, args struct {
	Representations []Any
}) ([]*EntityResolver, error) {
	entities := make([]*EntityResolver, 0, len(args.Representations))

	for _, rep := range args.Representations {
		typename, _ := rep["__typename"].(string)
		if typename != "Session" {
			return nil, errParse(fmt.Sprintf("cannot resolve entity type %q", typename))
		}

		sessionID, err := representationSessionID(rep)
		if err != nil {
			return nil, err
		}

		input := policy.NewInput(ctx, sessionParameters{SessionID: sessionID})
		if err := policy.Decide(ctx, r.policy, opEntities, input); err != nil {
			r.metrics.RecordOperation(opEntities, outcomeOf(err))
			return nil, mapPolicyError(err)
		}

		session, err := r.repo.GetSession(ctx, uint32(sessionID))
		if err != nil {
			r.metrics.RecordOperation(opEntities, "error")
			return nil, internalError(ctx, r.logger, "resolving session entity failed", err)
		}

		if session == nil {
			entities = append(entities, nil)
			continue
		}
		entities = append(entities, &EntityResolver{session: newSessionResolver(r, *session, nil)})
	}

	r.metrics.RecordOperation(opEntities, "ok")
	return entities, nil
}

// representationSessionID extracts the sessionId key from an entity
// representation. Inline literals arrive as int32, JSON variables as
// float64.
func representationSessionID(rep Any) (int32, error) {
	raw, ok := rep["sessionId"]
	if !ok {
		return 0, errParse("representation is missing sessionId")
	}

	switch v := raw.(type) {
	case int32:
		return v, nil
	case int:
		return int32(v), nil
	case float64:
		if v != float64(int32(v)) {
			return 0, errParse("sessionId must be an Int")
		}
		return int32(v), nil
	default:
		return 0, errParse("sessionId must be an Int")
	}
}
