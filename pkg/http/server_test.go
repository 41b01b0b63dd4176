package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestNewServerMountsHandlers(t *testing.T) {
	ping := RouteFunc(func(e *echo.Echo) {
		e.GET("/api/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })
	})
	srv := NewServer([]Handler{ping}, WithCORS(true, "https://charts.example.com"))

	for _, path := range []string{"/health", "/api/ping"} {
		rec := httptest.NewRecorder()
		srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d", path, rec.Code)
		}
	}
}
