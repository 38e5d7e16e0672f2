package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubHealthChecker struct {
	name string
	err  error
}

func (s *stubHealthChecker) Ping(_ context.Context) error { return s.err }
func (s *stubHealthChecker) Name() string                 { return s.name }

func TestHealthCheck_AllHealthy(t *testing.T) {
	h := HealthCheck(&stubHealthChecker{name: "postgres"}, &stubHealthChecker{name: "redis"})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	h(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthCheck_Degraded(t *testing.T) {
	h := HealthCheck(&stubHealthChecker{name: "postgres"}, &stubHealthChecker{name: "redis", err: errors.New("unreachable")})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	h(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
