package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"avatar-gateway/internal/config"
	"avatar-gateway/internal/metrics"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			BodyMaxBytes: 1024,
		},
		Upstream: config.UpstreamConfig{TimeoutSeconds: 30},
	}
}

// newTestServer builds the configured server with stand-in routes.
func newTestServer(t *testing.T, cfg *config.Config) *echo.Echo {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := New(cfg, logger, metrics.New(cfg))
	e.POST("/api/heygen", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"ok": "yes"})
	})
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/panic", func(echo.Context) error {
		panic("boom")
	})
	return e
}

func post(e *echo.Echo, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/heygen", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func errorField(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal %q: %v", rec.Body.String(), err)
	}
	return body["error"]
}

func TestNew_RateLimit(t *testing.T) {
	tests := []struct {
		name     string
		limit    config.RateLimitConfig
		want429  bool
		requests int
	}{
		{"enabled", config.RateLimitConfig{Enabled: true, RequestsPerSecond: 1}, true, 10},
		{"disabled", config.RateLimitConfig{}, false, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Server.RateLimit = tt.limit
			e := newTestServer(t, cfg)

			if rec := post(e, `{"action":"new"}`); rec.Code != http.StatusOK {
				t.Fatalf("first request: status = %d, want %d", rec.Code, http.StatusOK)
			}

			got429 := false
			for i := 0; i < tt.requests; i++ {
				rec := post(e, `{"action":"new"}`)
				if rec.Code == http.StatusTooManyRequests {
					got429 = true
					if errorField(t, rec) == "" {
						t.Error("429 response missing error field")
					}
					break
				}
			}
			if got429 != tt.want429 {
				t.Errorf("got 429 = %v, want %v", got429, tt.want429)
			}
		})
	}
}

func TestNew_BodyLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.BodyMaxBytes = 16
	e := newTestServer(t, cfg)

	rec := post(e, `{"action":"speak","text":"far too long for the limit"}`)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusRequestEntityTooLarge)
	}
	if errorField(t, rec) == "" {
		t.Error("413 response missing error field")
	}

	if rec := post(e, `{"action":"new"}`); rec.Code != http.StatusOK {
		t.Errorf("body within limit: status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestNew_ResponseHeaders(t *testing.T) {
	e := newTestServer(t, testConfig())

	rec := post(e, `{"action":"new"}`)
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Error("missing X-Request-Id")
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}
}

func TestNew_CORS(t *testing.T) {
	const origin = "https://presenter.example.com"
	tests := []struct {
		name    string
		origins []string
		want    string
	}{
		{"configured", []string{origin}, origin},
		{"not configured", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Server.AllowedOrigins = tt.origins
			e := newTestServer(t, cfg)

			req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
			req.Header.Set(echo.HeaderOrigin, origin)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != tt.want {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNew_RecoversPanics(t *testing.T) {
	e := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/panic", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	if got := errorField(t, rec); got != http.StatusText(http.StatusInternalServerError) {
		t.Errorf("error = %q", got)
	}
}

func TestNew_WriteTimeoutCoversUpstream(t *testing.T) {
	cfg := testConfig()
	cfg.Upstream.TimeoutSeconds = 45
	e := newTestServer(t, cfg)

	if e.Server.WriteTimeout <= 45*time.Second {
		t.Errorf("WriteTimeout = %v, want more than the upstream timeout", e.Server.WriteTimeout)
	}
}
