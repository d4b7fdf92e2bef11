package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"feedqa/internal/logger"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		allowed    []string
		origin     string
		method     string
		wantOrigin string
		wantStatus int
	}{
		{"wildcard echoes origin", []string{"*"}, "https://app.test", http.MethodGet, "https://app.test", http.StatusOK},
		{"listed origin", []string{"https://app.test"}, "https://app.test", http.MethodGet, "https://app.test", http.StatusOK},
		{"unlisted origin", []string{"https://app.test"}, "https://evil.test", http.MethodGet, "", http.StatusOK},
		{"no origin header", []string{"*"}, "", http.MethodGet, "", http.StatusOK},
		{"preflight", []string{"*"}, "https://app.test", http.MethodOptions, "https://app.test", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/feeds", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}

			w := httptest.NewRecorder()
			CORS(tt.allowed)(okHandler).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}

			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
		})
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer

	l := logger.New("info", logger.FormatText, &buf)
	h := RequestLogger(l)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/model/status", nil))

	out := buf.String()
	for _, want := range []string{"http request", "status=418", "path=/api/model/status", "method=GET"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}
