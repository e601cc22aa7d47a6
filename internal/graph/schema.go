package graph

import (
	"github.com/graph-gophers/graphql-go"
	otelgraphql "github.com/graph-gophers/graphql-go/trace/otel"
	"go.opentelemetry.io/otel"
)

// schemaTypes holds the type definitions shared by both schema
// renderings.
const schemaTypes = `"""
The date and time, serialized as an RFC 3339 string in UTC
"""
scalar DateTime

"""
A Beamline Session
"""
type Session @key(fields: "sessionId") {
  """
  An opaque unique identifier for the session
  """
  sessionId: Int!

  """
  The number of session within the Proposal
  """
  visitNumber: Int

  """
  The date and time at which the Session began
  """
  start: DateTime

  """
  The date and time at which the Session ended
  """
  end: DateTime

  """
  The Proposal the Session belongs to
  """
  proposal: Proposal
}

"""
A Proposal
"""
type Proposal {
  """
  The proposal code
  """
  code: String

  """
  The proposal number
  """
  number: Int
}`

// queryFields holds the domain operations of the Query type.
const queryFields = `  """
  Retrieves all Beamline Sessions
  """
  sessions: [Session!]!

  """
  Retrieves a Beamline Session
  """
  session(proposal: Int!, visit: Int!): Session`

// Schema is the domain schema. It is what _service.sdl exports for
// schema composition and what the schema CLI command prints.
const Schema = `directive @key(fields: String!) on OBJECT | INTERFACE

` + schemaTypes + `

type Query {
` + queryFields + `
}
`

// federationSchema is the schema the server actually executes. It adds
// the subgraph machinery a federated router queries: the _Any scalar,
// the _Entity union and the _entities and _service fields.
const federationSchema = `directive @key(fields: String!) on OBJECT | INTERFACE

` + schemaTypes + `

scalar _Any

union _Entity = Session

type _Service {
  sdl: String!
}

type Query {
` + queryFields + `

  _entities(representations: [_Any!]!): [_Entity]!

  _service: _Service!
}
`

// NewSchema parses the executable schema bound to the given resolver.
// Descriptions come from the SDL doc strings and every execution is
// traced through the global OpenTelemetry provider.
func NewSchema(resolver *RootResolver, opts ...graphql.SchemaOpt) (*graphql.Schema, error) {
	base := []graphql.SchemaOpt{
		graphql.UseStringDescriptions(),
		graphql.Tracer(&otelgraphql.Tracer{Tracer: otel.Tracer("sessions-api/graph")}),
	}
	return graphql.ParseSchema(federationSchema, resolver, append(base, opts...)...)
}

// MustNewSchema is like NewSchema but panics on error. The schema is
// a compile time constant, so a parse failure is a programming error.
func MustNewSchema(resolver *RootResolver, opts ...graphql.SchemaOpt) *graphql.Schema {
	schema, err := NewSchema(resolver, opts...)
	if err != nil {
		panic(err)
	}
	return schema
}
