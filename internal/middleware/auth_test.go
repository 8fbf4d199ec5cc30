package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTokenMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name     string
		token    string
		target   string
		header   string
		expected int
	}{
		{"disabled", "", "/api/media", "", http.StatusOK},
		{"bearer header", "secret", "/api/media", "Bearer secret", http.StatusOK},
		{"query token", "secret", "/api/progress?token=secret", "", http.StatusOK},
		{"missing", "secret", "/api/media", "", http.StatusUnauthorized},
		{"wrong header", "secret", "/api/media", "Bearer nope", http.StatusUnauthorized},
		{"header beats query", "secret", "/api/media?token=secret", "Bearer nope", http.StatusUnauthorized},
		{"not bearer", "secret", "/api/media", "Basic secret", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			TokenMiddleware(tt.token)(ok).ServeHTTP(rec, req)

			if rec.Code != tt.expected {
				t.Errorf("status = %d, expected %d", rec.Code, tt.expected)
			}
		})
	}
}
