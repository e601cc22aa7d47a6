package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServerDefaults(t *testing.T) {
	server := New(nil)

	require.NotNil(t, server)
	assert.NotNil(t, server.Engine())
	assert.False(t, server.IsRunning())
	assert.Equal(t, 80, server.config.Port)
}

func TestServerStartAlreadyRunning(t *testing.T) {
	server := New(DefaultConfig())

	server.mu.Lock()
	server.running = true
	server.mu.Unlock()

	err := server.Start(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "server already running")
}

func TestServerStopWhenNotRunning(t *testing.T) {
	server := New(DefaultConfig())

	assert.NoError(t, server.Stop(context.Background()))
}

func TestServerStartAndStop(t *testing.T) {
	config := DefaultConfig()
	config.Port = 0
	config.Address = "127.0.0.1"

	server := New(config)

	go func() {
		_ = server.Start(context.Background())
	}()

	require.Eventually(t, server.IsRunning, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Stop(ctx))
	assert.False(t, server.IsRunning())
}

func TestServerUse(t *testing.T) {
	server := New(DefaultConfig())

	server.Use(func(c *gin.Context) {
		c.Header("X-Test", "applied")
		c.Next()
	})
	server.Engine().GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	server.Engine().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "applied", w.Header().Get("X-Test"))
}

func TestServerBodyLimit(t *testing.T) {
	config := DefaultConfig()
	config.MaxRequestBodySize = 16

	server := New(config)
	server.Engine().POST("/echo", func(c *gin.Context) {
		var payload map[string]interface{}
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "body rejected"})
			return
		}
		c.JSON(http.StatusOK, payload)
	})

	small := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"a":1}`))
	w := httptest.NewRecorder()
	server.Engine().ServeHTTP(w, small)
	assert.Equal(t, http.StatusOK, w.Code)

	big := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"a":"`+strings.Repeat("x", 64)+`"}`))
	w = httptest.NewRecorder()
	server.Engine().ServeHTTP(w, big)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
