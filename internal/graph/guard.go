package graph

import (
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/lightsource/sessions-api/internal/observability"
)

// GuardConfig configures the pre-execution query checks.
type GuardConfig struct {
	// MaxDepth is the maximum selection depth. Zero disables the
	// check.
	MaxDepth int

	// MaxComplexity is the maximum field count, nested selections
	// additive. Zero disables the check.
	MaxComplexity int

	// AllowIntrospection permits __schema and __type queries. The
	// GraphiQL editor needs introspection, so it is usually on.
	AllowIntrospection bool
}

// Guard analyzes a query before execution and rejects those that are
// too deep, too complex, or introspect a schema that is not public.
type Guard struct {
	config  GuardConfig
	logger  observability.Logger
	metrics *Metrics
}

// GuardOption is a functional option for the guard.
type GuardOption func(*Guard)

// WithGuardLogger sets the logger.
func WithGuardLogger(logger observability.Logger) GuardOption {
	return func(g *Guard) {
		g.logger = logger
	}
}

// WithGuardMetrics sets the metrics.
func WithGuardMetrics(metrics *Metrics) GuardOption {
	return func(g *Guard) {
		g.metrics = metrics
	}
}

// NewGuard creates a query guard.
func NewGuard(config GuardConfig, opts ...GuardOption) *Guard {
	g := &Guard{
		config: config,
		logger: observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(g)
	}

	if g.metrics == nil {
		g.metrics = NewMetrics("sessions")
	}

	return g
}

// Check analyzes one query. A query that does not parse passes the
// guard: execution will parse it again and report the syntax error
// with position information the guard cannot match.
func (g *Guard) Check(query string) error {
	doc, err := parser.ParseQuery(&ast.Source{Input: query})
	if err != nil {
		return nil
	}

	depth := documentDepth(doc)
	complexity := documentComplexity(doc)
	g.metrics.RecordQueryShape(depth, complexity)

	if g.config.MaxDepth > 0 && depth > g.config.MaxDepth {
		g.metrics.RecordGuardRejected("depth")
		g.logger.Warn("query depth limit exceeded",
			observability.Int("depth", depth),
			observability.Int("max_depth", g.config.MaxDepth),
		)
		return fmt.Errorf("query depth %d exceeds maximum allowed depth of %d", depth, g.config.MaxDepth)
	}

	if g.config.MaxComplexity > 0 && complexity > g.config.MaxComplexity {
		g.metrics.RecordGuardRejected("complexity")
		g.logger.Warn("query complexity limit exceeded",
			observability.Int("complexity", complexity),
			observability.Int("max_complexity", g.config.MaxComplexity),
		)
		return fmt.Errorf("query complexity %d exceeds maximum allowed complexity of %d", complexity, g.config.MaxComplexity)
	}

	if !g.config.AllowIntrospection {
		for _, op := range doc.Operations {
			if containsIntrospection(op.SelectionSet) {
				g.metrics.RecordGuardRejected("introspection")
				g.logger.Warn("introspection query blocked",
					observability.String("operation", string(op.Operation)),
				)
				return fmt.Errorf("introspection queries are not allowed")
			}
		}
	}

	return nil
}

// documentDepth returns the maximum selection depth across the
// operations and fragment definitions of a document.
func documentDepth(doc *ast.QueryDocument) int {
	maxDepth := 0
	for _, op := range doc.Operations {
		if d := selectionSetDepth(op.SelectionSet); d > maxDepth {
			maxDepth = d
		}
	}
	for _, frag := range doc.Fragments {
		if d := selectionSetDepth(frag.SelectionSet); d > maxDepth {
			maxDepth = d
		}
	}
	return maxDepth
}

// selectionSetDepth calculates the maximum depth of a selection set.
func selectionSetDepth(selectionSet ast.SelectionSet) int {
	if len(selectionSet) == 0 {
		return 0
	}

	maxDepth := 0
	for _, selection := range selectionSet {
		var childDepth int
		switch sel := selection.(type) {
		case *ast.Field:
			childDepth = selectionSetDepth(sel.SelectionSet)
		case *ast.InlineFragment:
			childDepth = selectionSetDepth(sel.SelectionSet)
		case *ast.FragmentSpread:
			// Spreads reference named fragments whose depth is counted
			// when the fragment definition itself is analyzed.
			childDepth = 0
		}
		if childDepth > maxDepth {
			maxDepth = childDepth
		}
	}

	return maxDepth + 1
}

// documentComplexity sums the complexity of all operations in a
// document.
func documentComplexity(doc *ast.QueryDocument) int {
	total := 0
	for _, op := range doc.Operations {
		total += selectionSetComplexity(op.SelectionSet)
	}
	return total
}

// selectionSetComplexity counts fields, nested selections additive.
func selectionSetComplexity(selectionSet ast.SelectionSet) int {
	complexity := 0
	for _, selection := range selectionSet {
		switch sel := selection.(type) {
		case *ast.Field:
			complexity += 1 + selectionSetComplexity(sel.SelectionSet)
		case *ast.InlineFragment:
			complexity += selectionSetComplexity(sel.SelectionSet)
		case *ast.FragmentSpread:
			complexity++
		}
	}
	return complexity
}

// containsIntrospection checks if a selection set contains
// introspection fields.
func containsIntrospection(selectionSet ast.SelectionSet) bool {
	for _, selection := range selectionSet {
		switch sel := selection.(type) {
		case *ast.Field:
			if isIntrospectionField(sel.Name) {
				return true
			}
			if containsIntrospection(sel.SelectionSet) {
				return true
			}
		case *ast.InlineFragment:
			if containsIntrospection(sel.SelectionSet) {
				return true
			}
		}
	}
	return false
}

// isIntrospectionField returns true if the field name is a GraphQL
// introspection field. __typename is exempt: the federation router
// sends it with ordinary queries.
func isIntrospectionField(name string) bool {
	return strings.HasPrefix(name, "__") && name != "__typename"
}
