package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/timmy/prodcat/internal/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestCatalogToken(t *testing.T) {
	tests := []struct {
		header    string
		wantCode  int
		wantToken string
	}{
		{"Bearer abc", http.StatusOK, "abc"},
		{"bearer  xyz ", http.StatusOK, "xyz"},
		{"", http.StatusUnauthorized, ""},
		{"Basic abc", http.StatusUnauthorized, ""},
		{"Bearer ", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			r := gin.New()
			var got string
			r.GET("/x", CatalogToken(), func(c *gin.Context) {
				got = Token(c)
				c.Status(http.StatusOK)
			})
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantCode || got != tt.wantToken {
				t.Errorf("code=%d token=%q, want %d %q", w.Code, got, tt.wantCode, tt.wantToken)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		cfg        CORSConfig
		origin     string
		method     string
		wantOrigin string
		wantCode   int
	}{
		{"allow all", CORSConfig{AllowAllOrigins: true}, "https://a.test", http.MethodGet, "*", http.StatusOK},
		{"listed origin", CORSConfig{AllowedOrigins: []string{"https://a.test"}}, "https://A.test", http.MethodGet, "https://A.test", http.StatusOK},
		{"unlisted origin", CORSConfig{AllowedOrigins: []string{"https://a.test"}}, "https://b.test", http.MethodGet, "", http.StatusOK},
		{"empty list echoes", CORSConfig{}, "https://c.test", http.MethodGet, "https://c.test", http.StatusOK},
		{"preflight", CORSConfig{AllowAllOrigins: true}, "https://a.test", http.MethodOptions, "*", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(CORS(tt.cfg))
			r.Any("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(tt.method, "/x", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", w.Code, tt.wantCode)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
		})
	}
}

func TestLoggerMiddleware_RequestID(t *testing.T) {
	r := gin.New()
	r.Use(LoggerMiddleware(logger.New(nil)))
	var seen string
	r.GET("/x", func(c *gin.Context) {
		seen = logger.GetRequestID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if seen != "req-1" || w.Header().Get(RequestIDHeader) != "req-1" {
		t.Errorf("request id = %q, header %q", seen, w.Header().Get(RequestIDHeader))
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if generated := w.Header().Get(RequestIDHeader); len(generated) != 36 || seen != generated {
		t.Errorf("generated id = %q, seen %q", generated, seen)
	}
}
