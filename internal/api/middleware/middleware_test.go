package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"resumate/internal/auth"
)

type stubAuthenticator map[string]uint

func (s stubAuthenticator) Authenticate(token string) (auth.Session, error) {
	if id, ok := s[token]; ok {
		return auth.Session{UserID: id}, nil
	}
	return auth.Session{}, errors.New("bad token")
}

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", handlers...)
	return r
}

func TestAuthMiddleware(t *testing.T) {
	var seen auth.Session
	r := newEngine(AuthMiddleware(stubAuthenticator{"good": 7}), func(c *gin.Context) {
		seen, _ = SessionFromContext(c)
		c.Status(http.StatusNoContent)
	})

	cases := []struct {
		header string
		status int
	}{
		{"", http.StatusUnauthorized},
		{"Bearer", http.StatusUnauthorized},
		{"Basic good", http.StatusUnauthorized},
		{"Bearer bad", http.StatusUnauthorized},
		{"Bearer good", http.StatusNoContent},
		{"bearer good", http.StatusNoContent},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tc.status {
			t.Errorf("header %q: expected %d, got %d", tc.header, tc.status, w.Code)
		}
	}
	if seen.UserID != 7 {
		t.Fatalf("expected session for user 7, got %+v", seen)
	}
}

func TestRequestID(t *testing.T) {
	var fromGin, fromCtx string
	r := newEngine(RequestID(), func(c *gin.Context) {
		fromGin = GetCorrelationID(c)
		fromCtx = CorrelationID(c.Request.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if fromGin != "abc-123" || fromCtx != "abc-123" || w.Header().Get(CorrelationHeader) != "abc-123" {
		t.Fatalf("expected propagated id, got %q / %q / %q", fromGin, fromCtx, w.Header().Get(CorrelationHeader))
	}

	for _, bad := range []string{"", "has space", strings.Repeat("x", 129)} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if bad != "" {
			req.Header.Set(CorrelationHeader, bad)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		got := w.Header().Get(CorrelationHeader)
		if got == "" || got == bad || got != fromCtx {
			t.Fatalf("header %q: expected a minted id, got %q", bad, got)
		}
	}
}

func TestAccessLogSetsRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	var scoped *slog.Logger
	r := newEngine(RequestID(), AccessLog(base), func(c *gin.Context) {
		scoped = LoggerFromContext(c)
		c.Status(http.StatusTeapot)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationHeader, "log-1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	if scoped == nil || scoped == slog.Default() {
		t.Fatal("expected a request scoped logger")
	}
	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if record["correlation_id"] != "log-1" || record["level"] != "WARN" || record["status"] != float64(http.StatusTeapot) {
		t.Fatalf("unexpected access record %v", record)
	}
}

func TestSharedSecret(t *testing.T) {
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r := newEngine(SharedSecret("s3cret"), ok)

	cases := []struct {
		header, value string
		status        int
	}{
		{"X-Internal-Secret", "s3cret", http.StatusOK},
		{"Authorization", "Bearer s3cret", http.StatusOK},
		{"Authorization", "Basic s3cret", http.StatusUnauthorized},
		{"X-Internal-Secret", "wrong", http.StatusUnauthorized},
		{"", "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set(tc.header, tc.value)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tc.status {
			t.Errorf("%s %q: expected %d, got %d", tc.header, tc.value, tc.status, w.Code)
		}
	}

	w := httptest.NewRecorder()
	newEngine(SharedSecret(""), ok).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected an open route without a secret, got %d", w.Code)
	}
}
