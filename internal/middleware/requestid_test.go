package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightsource/sessions-api/internal/observability"
)

func TestRequestIDGenerated(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var seenID string
	var ctxID string

	router := gin.New()
	router.Use(RequestID())
	router.POST("/", func(c *gin.Context) {
		seenID = GetRequestID(c)
		ctxID = observability.RequestIDFromContext(c.Request.Context())
		c.String(http.StatusOK, "OK")
	})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	headerID := w.Header().Get(RequestIDHeader)
	require.NotEmpty(t, headerID)
	_, err := uuid.Parse(headerID)
	assert.NoError(t, err, "generated IDs are UUIDs")

	assert.Equal(t, headerID, seenID)
	assert.Equal(t, headerID, ctxID, "the ID propagates through the request context")
}

func TestRequestIDEchoed(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RequestID())
	router.POST("/", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(RequestIDHeader, "caller-supplied")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "caller-supplied", w.Header().Get(RequestIDHeader))
}

func TestGetRequestIDMissing(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, "", GetRequestID(c))
}
