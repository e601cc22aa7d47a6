// Package graph defines the GraphQL schema and resolvers of the
// sessions API.
//
// The schema exposes Beamline Sessions read-only:
//
//	type Query {
//	  sessions: [Session!]!
//	  session(proposal: Int!, visit: Int!): Session
//	}
//
// plus the Apollo Federation subgraph machinery (_entities, _service)
// so a router can resolve Session entities by sessionId.
//
// Every operation is gated by the external policy endpoint: resolvers
// call policy.Decide with the operation parameters and only touch the
// repository after an affirmative decision. Denials surface as
// "Access denied" with the ACCESS_DENIED extension code; an
// unreachable policy endpoint fails closed with POLICY_UNAVAILABLE.
//
// Repository failures never leak driver detail: clients see an opaque
// INTERNAL error and the cause goes to the logs. A session or
// proposal that does not exist is null, not an error.
package graph
