package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func ok(name string) gin.HandlerFunc {
	return func(c *gin.Context) { c.String(http.StatusOK, name) }
}

func TestRouter_Setup(t *testing.T) {
	var order []string
	mark := func(tag string) gin.HandlerFunc {
		return func(c *gin.Context) {
			order = append(order, tag)
			c.Next()
		}
	}

	jobs := NewDomainGroup("print", "/print").Use(mark("group"))
	jobs.GET("/jobs", ok("list")).POST("/jobs", ok("submit"))
	jobs.Group("admin", "/admin").POST("/jobs/:id/cancel", ok("cancel"))

	engine := gin.New()
	NewRouter(engine, WithAPIVersion("v2")).Use(mark("api")).Register(jobs).Setup()

	tests := []struct {
		method string
		path   string
		status int
		body   string
	}{
		{http.MethodGet, "/api/v2/print/jobs", http.StatusOK, "list"},
		{http.MethodPost, "/api/v2/print/jobs", http.StatusOK, "submit"},
		{http.MethodPost, "/api/v2/print/admin/jobs/1/cancel", http.StatusOK, "cancel"},
		{http.MethodGet, "/api/v1/print/jobs", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			order = nil
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, tt.body, w.Body.String())
				assert.Equal(t, []string{"api", "group"}, order)
			}
		})
	}
}

func TestDomainGroup_Routes(t *testing.T) {
	g := NewDomainGroup("print", "/print")
	g.GET("/devices", ok("d"))
	g.Group("admin", "/admin").POST("/jobs/:id/cancel", ok("c"))

	routes := g.Routes()

	assert.Equal(t, "print", g.Name())
	assert.Equal(t, "/print", g.Prefix())
	assert.Equal(t, []Route{
		{Method: http.MethodGet, Path: "/print/devices"},
		{Method: http.MethodPost, Path: "/print/admin/jobs/:id/cancel"},
	}, routes)
}

func TestRouter_DefaultVersion(t *testing.T) {
	engine := gin.New()
	NewRouter(engine).Register(NewDomainGroup("system", "/system").GET("/ping", ok("pong"))).Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/system/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestRouter_Swagger(t *testing.T) {
	deny := func(c *gin.Context) { c.AbortWithStatus(http.StatusForbidden) }

	tests := []struct {
		name   string
		opts   []RouterOption
		status int
	}{
		{"not mounted by default", nil, http.StatusNotFound},
		{"serves the ui", []RouterOption{WithSwagger()}, http.StatusOK},
		{"guarded by middleware", []RouterOption{WithSwagger(deny)}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := gin.New()
			NewRouter(engine, tt.opts...).Setup()

			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
			assert.Equal(t, tt.status, w.Code)
		})
	}
}
