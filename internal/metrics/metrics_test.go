package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestTaskResult(t *testing.T) {
	ctx := context.Background()
	if got := taskResult(ctx, nil); got != "ok" {
		t.Fatalf("nil error: got %q", got)
	}
	if got := taskResult(ctx, errors.New("boom")); got != "retry" {
		t.Fatalf("plain error: got %q", got)
	}
	if got := taskResult(ctx, fmt.Errorf("bad payload: %w", asynq.SkipRetry)); got != "dead" {
		t.Fatalf("skip retry: got %q", got)
	}
}

func TestGinMiddlewareLabelsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/api/resumes/:id", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	before := testutil.CollectAndCount(httpLatency)
	for _, path := range []string{"/api/resumes/1", "/api/resumes/2", "/nowhere"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	// Two distinct series at most: the route template and the unmatched bucket.
	if added := testutil.CollectAndCount(httpLatency) - before; added > 2 {
		t.Fatalf("expected route templates to collapse ids, got %d new series", added)
	}
	if v := testutil.ToFloat64(httpInFlight); v != 0 {
		t.Fatalf("in flight should settle at 0, got %v", v)
	}
}
