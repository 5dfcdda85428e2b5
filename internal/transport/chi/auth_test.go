package chi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestBearerAuth_Disabled(t *testing.T) {
	for name, keys := range map[string][]string{
		"nil":   nil,
		"blank": {"", "  "},
	} {
		t.Run(name, func(t *testing.T) {
			handler := BearerAuthMiddleware(keys)(okHandler())
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/collections/1/cluster", http.NoBody))
			if rr.Code != http.StatusOK {
				t.Errorf("got %d, want 200", rr.Code)
			}
		})
	}
}

func TestBearerAuth(t *testing.T) {
	handler := BearerAuthMiddleware([]string{"key1", " key2 "})(okHandler())

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"first key", "/collections", "Bearer key1", http.StatusOK},
		{"trimmed key", "/collections/3/divide", "Bearer key2", http.StatusOK},
		{"missing header", "/collections", "", http.StatusUnauthorized},
		{"basic scheme", "/collections", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"wrong key", "/collections", "Bearer key3", http.StatusUnauthorized},
		{"key prefix", "/collections", "Bearer key", http.StatusUnauthorized},
		{"health is public", "/health", "", http.StatusOK},
		{"metrics is public", "/metrics", "", http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, http.NoBody)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tc.want {
				t.Fatalf("got %d, want %d", rr.Code, tc.want)
			}
			if tc.want != http.StatusUnauthorized {
				return
			}
			if got := rr.Header().Get("WWW-Authenticate"); got != `Bearer realm="spectradex"` {
				t.Errorf("WWW-Authenticate = %q", got)
			}
			var errResp ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if errResp.Code != CodeUnauthorized {
				t.Errorf("error code: got %s, want %s", errResp.Code, CodeUnauthorized)
			}
		})
	}
}
