package graph

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateTime is the DateTime scalar. It serializes as an RFC 3339
// string in UTC.
type DateTime struct {
	time.Time
}

// ImplementsGraphQLType maps DateTime onto the schema scalar.
func (DateTime) ImplementsGraphQLType(name string) bool {
	return name == "DateTime"
}

// UnmarshalGraphQL parses a DateTime from a query input value.
func (d *DateTime) UnmarshalGraphQL(input interface{}) error {
	switch input := input.(type) {
	case DateTime:
		*d = input
		return nil
	case time.Time:
		d.Time = input
		return nil
	case string:
		t, err := time.Parse(time.RFC3339, input)
		if err != nil {
			return fmt.Errorf("invalid DateTime %q: %w", input, err)
		}
		d.Time = t
		return nil
	default:
		return fmt.Errorf("wrong type for DateTime: %T", input)
	}
}

// MarshalJSON implements json.Marshaler.
func (d DateTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Time.UTC().Format(time.RFC3339))
}

// Any is the federation _Any scalar. It carries an entity
// representation as submitted by the router.
type Any map[string]interface{}

// ImplementsGraphQLType maps Any onto the schema scalar.
func (Any) ImplementsGraphQLType(name string) bool {
	return name == "_Any"
}

// UnmarshalGraphQL accepts any object value.
func (a *Any) UnmarshalGraphQL(input interface{}) error {
	m, ok := input.(map[string]interface{})
	if !ok {
		return fmt.Errorf("wrong type for _Any: %T", input)
	}
	*a = m
	return nil
}
