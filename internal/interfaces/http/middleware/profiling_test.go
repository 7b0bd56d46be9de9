package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"runtime/pprof"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func labelsOf(ctx context.Context) map[string]string {
	labels := map[string]string{}
	pprof.ForLabels(ctx, func(k, v string) bool {
		labels[k] = v
		return true
	})
	return labels
}

func TestProfiling(t *testing.T) {
	var seen map[string]string
	r := gin.New()
	r.Use(Profiling("/health"))
	handler := func(c *gin.Context) {
		seen = labelsOf(c.Request.Context())
		c.Status(http.StatusOK)
	}
	r.GET("/jobs/:id", handler)
	r.GET("/health", handler)

	tests := []struct {
		name string
		path string
		want map[string]string
	}{
		{"labels route", "/jobs/7", map[string]string{"method": "GET", "route": "/jobs/:id"}},
		{"skipped path", "/health", map[string]string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			w := serve(r, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, seen)
		})
	}
}

func TestProfiling_Unmatched(t *testing.T) {
	r := gin.New()
	r.Use(Profiling())

	w := serve(r, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}
