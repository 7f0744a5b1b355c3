package httptransport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"tutor-voice-server/internal/platform/config"
	"tutor-voice-server/internal/platform/logging"
)

func newTestRouter(t *testing.T, origins ...string) *Router {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Server.AllowOrigins = origins
	r, err := Build(Options{Config: cfg, Logger: logging.NewNop()})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	r.API.GET("/ping", func(c *gin.Context) {
		RespondSuccess(c, http.StatusOK, gin.H{"id": RequestID(c)}, "")
	})
	return r
}

func TestBuildRequiresConfig(t *testing.T) {
	if _, err := Build(Options{}); err == nil {
		t.Fatalf("expected error without config")
	}
}

func TestRequestIDEchoedOrGenerated(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"generated", "", false},
		{"kept", "lesson-42.abc", true},
		{"too long", strings.Repeat("x", maxRequestIDBytes+1), false},
		{"control chars", "bad\x01id", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rec := httptest.NewRecorder()
			r.Engine.ServeHTTP(rec, req)

			got := rec.Header().Get(RequestIDHeader)
			if got == "" {
				t.Fatalf("no request id in response")
			}
			if tt.keep && got != tt.incoming {
				t.Fatalf("request id = %q, want %q", got, tt.incoming)
			}
			if !tt.keep && got == tt.incoming {
				t.Fatalf("invalid id %q echoed back", tt.incoming)
			}
			if !strings.Contains(rec.Body.String(), got) {
				t.Fatalf("handler did not see id %q: %s", got, rec.Body.String())
			}
		})
	}
}

func TestCORSOrigins(t *testing.T) {
	tests := []struct {
		name        string
		origins     []string
		origin      string
		wantAllow   string
		wantCredent bool
	}{
		{"wildcard", []string{"*"}, "https://tutor.example", "*", false},
		{"listed", []string{"https://tutor.example"}, "https://tutor.example", "https://tutor.example", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(t, tt.origins...)
			req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			r.Engine.ServeHTTP(rec, req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
				t.Fatalf("Allow-Origin = %q, want %q", got, tt.wantAllow)
			}
			if got := rec.Header().Get("Access-Control-Allow-Credentials") == "true"; got != tt.wantCredent {
				t.Fatalf("Allow-Credentials = %v, want %v", got, tt.wantCredent)
			}
		})
	}
}
