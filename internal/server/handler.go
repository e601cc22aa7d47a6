package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	graphql "github.com/graph-gophers/graphql-go"

	"github.com/lightsource/sessions-api/internal/auth"
	"github.com/lightsource/sessions-api/internal/graph"
	"github.com/lightsource/sessions-api/internal/observability"
)

// codeValidationFailed marks queries the guard rejected before
// execution.
const codeValidationFailed = "GRAPHQL_VALIDATION_FAILED"

// GraphQLRequest is the request envelope of the GraphQL endpoint.
type GraphQLRequest struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

// Handler serves GraphQL requests against a parsed schema.
type Handler struct {
	schema   *graphql.Schema
	guard    *graph.Guard
	logger   observability.Logger
	metrics  *Metrics
	graphiql bool
}

// HandlerOption is a functional option for the handler.
type HandlerOption func(*Handler)

// WithGuard sets the pre-execution query guard.
func WithGuard(guard *graph.Guard) HandlerOption {
	return func(h *Handler) {
		h.guard = guard
	}
}

// WithHandlerLogger sets the logger.
func WithHandlerLogger(logger observability.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithHandlerMetrics sets the metrics.
func WithHandlerMetrics(metrics *Metrics) HandlerOption {
	return func(h *Handler) {
		h.metrics = metrics
	}
}

// WithGraphiQL enables the GraphiQL page on GET.
func WithGraphiQL(enabled bool) HandlerOption {
	return func(h *Handler) {
		h.graphiql = enabled
	}
}

// NewHandler creates a GraphQL handler.
func NewHandler(schema *graphql.Schema, opts ...HandlerOption) *Handler {
	h := &Handler{
		schema: schema,
		logger: observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(h)
	}

	if h.metrics == nil {
		h.metrics = NewMetrics("sessions")
	}

	return h
}

// Register attaches the GraphQL routes at path.
func (h *Handler) Register(engine *gin.Engine, path string) {
	engine.POST(path, h.ServeGraphQL())
	engine.GET(path, h.ServeGraphiQL())
}

// ServeGraphQL handles a GraphQL POST request. The bearer credential,
// when present, rides the request context into the resolvers; the
// policy client decides what it is worth.
func (h *Handler) ServeGraphQL() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		var req GraphQLRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			h.metrics.RecordRequest(OutcomeBadRequest, time.Since(start))
			c.JSON(http.StatusBadRequest, gin.H{
				"errors": []gin.H{{"message": "invalid request body"}},
			})
			return
		}

		if req.Query == "" {
			h.metrics.RecordRequest(OutcomeBadRequest, time.Since(start))
			c.JSON(http.StatusBadRequest, gin.H{
				"errors": []gin.H{{"message": "query is required"}},
			})
			return
		}

		ctx := c.Request.Context()
		if token, ok := auth.BearerToken(c.Request); ok {
			ctx = auth.ContextWithToken(ctx, token)
		}

		if h.guard != nil {
			if err := h.guard.Check(req.Query); err != nil {
				h.metrics.RecordRequest(OutcomeRejected, time.Since(start))
				c.JSON(http.StatusOK, gin.H{
					"errors": []gin.H{{
						"message":    err.Error(),
						"extensions": gin.H{"code": codeValidationFailed},
					}},
				})
				return
			}
		}

		response := h.schema.Exec(ctx, req.Query, req.OperationName, req.Variables)

		outcome := OutcomeOK
		if len(response.Errors) > 0 {
			outcome = OutcomeError
		}
		h.metrics.RecordRequest(outcome, time.Since(start))

		c.JSON(http.StatusOK, response)
	}
}
