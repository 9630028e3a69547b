package server_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/daveharmswebdev/property-manager-sub002/internal/config"
	"github.com/daveharmswebdev/property-manager-sub002/internal/server"
)

type stubRoutes struct{}

func (stubRoutes) Register(router *gin.RouterGroup) {
	router.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	router.GET("/panic", func(c *gin.Context) { panic("boom") })
}

func TestHTTPServer_Routing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := server.NewHTTPServer(&config.AppConfig{Environment: "test"}, zerolog.Nop(), stubRoutes{})

	cases := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/api/ping", http.StatusOK},
		{http.MethodGet, "/api/missing", http.StatusNotFound},
		{http.MethodPost, "/api/ping", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/panic", http.StatusInternalServerError},
		{http.MethodOptions, "/api/ping", http.StatusNoContent},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		if w.Code != tc.status {
			t.Fatalf("%s %s: expected %d, got %d", tc.method, tc.path, tc.status, w.Code)
		}
		if w.Header().Get("X-Request-Id") == "" {
			t.Fatalf("%s %s: missing request id", tc.method, tc.path)
		}
	}
}
