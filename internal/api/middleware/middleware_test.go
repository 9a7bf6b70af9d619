package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rack-service/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (s *stubLimiter) CheckRateLimit(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	s.keys = append(s.keys, key)
	return s.allowed, s.err
}

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	handlers = append(handlers, func(c *gin.Context) { c.Status(http.StatusNoContent) })
	engine.GET("/ws", handlers...)
	engine.OPTIONS("/ws", handlers...)
	return engine
}

func serve(engine *gin.Engine, method string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/ws", nil)
	req.RemoteAddr = "10.0.0.7:5555"
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestWebSocketRateLimit(t *testing.T) {
	limiter := &stubLimiter{allowed: true}
	rm := NewRateLimitMiddleware(limiter)

	w := serve(newEngine(rm.WebSocketRateLimit(5, time.Minute)), http.MethodGet, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"rate_limit:websocket:10.0.0.7"}, limiter.keys)

	limiter.allowed = false
	w = serve(newEngine(rm.WebSocketRateLimit(5, time.Minute)), http.MethodGet, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "WebSocket connection rate limit exceeded")
}

func TestWebSocketRateLimitFailsOpen(t *testing.T) {
	rm := NewRateLimitMiddleware(&stubLimiter{err: errors.New("redis: connection refused")})

	w := serve(newEngine(rm.WebSocketRateLimit(5, time.Minute)), http.MethodGet, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = serve(newEngine(NewRateLimitMiddleware(nil).WebSocketRateLimit(5, time.Minute)), http.MethodGet, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestCORS(t *testing.T) {
	engine := newEngine(CORS([]string{"https://racks.example.com/"}))

	w := serve(engine, http.MethodGet, http.Header{"Origin": {"https://racks.example.com"}})
	assert.Equal(t, "https://racks.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(engine, http.MethodGet, http.Header{"Origin": {"https://evil.example.com"}})
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(engine, http.MethodOptions, http.Header{"Origin": {"https://racks.example.com"}})
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequireOperator(t *testing.T) {
	withIdentity := func(externalID string) gin.HandlerFunc {
		return func(c *gin.Context) {
			c.Set(IdentityKey, &auth.Identity{UserID: 4, ExternalAuthID: externalID})
		}
	}

	w := serve(newEngine(withIdentity("auth0|ops"), RequireOperator([]string{"auth0|ops"})), http.MethodGet, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = serve(newEngine(withIdentity("auth0|bob"), RequireOperator([]string{"auth0|ops"})), http.MethodGet, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = serve(newEngine(withIdentity("auth0|ops"), RequireOperator(nil)), http.MethodGet, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = serve(newEngine(RequireOperator([]string{"auth0|ops"})), http.MethodGet, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIdentityFromWithoutAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, ok := IdentityFrom(c)
	assert.False(t, ok)
}
