package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name        string
		allowed     []string
		method      string
		origin      string
		wantStatus  int
		wantAllowed string
	}{
		{name: "listed origin", allowed: []string{"https://lms.example.edu"}, method: http.MethodGet, origin: "https://lms.example.edu", wantStatus: http.StatusOK, wantAllowed: "https://lms.example.edu"},
		{name: "unlisted origin", allowed: []string{"https://lms.example.edu"}, method: http.MethodGet, origin: "https://evil.example", wantStatus: http.StatusOK},
		{name: "no origin", allowed: []string{"*"}, method: http.MethodGet, wantStatus: http.StatusOK},
		{name: "wildcard echoes origin", allowed: []string{"*"}, method: http.MethodGet, origin: "http://localhost:3000", wantStatus: http.StatusOK, wantAllowed: "http://localhost:3000"},
		{name: "preflight", allowed: []string{"https://lms.example.edu"}, method: http.MethodOptions, origin: "https://lms.example.edu", wantStatus: http.StatusNoContent, wantAllowed: "https://lms.example.edu"},
		{name: "refused preflight", allowed: []string{"https://lms.example.edu"}, method: http.MethodOptions, origin: "https://evil.example", wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(CORSMiddleware(tt.allowed))
			router.Any("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(tt.method, "/ping", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantAllowed, w.Header().Get("Access-Control-Allow-Origin"))
			if tt.wantAllowed != "" {
				assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
			}
		})
	}
}
