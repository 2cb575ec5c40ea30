package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tasksRunning = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "worker",
		Name:      "tasks_running",
		Help:      "Tasks currently held by a handler.",
	}, []string{"task_type"})

	taskRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "worker",
		Name:      "task_runs_total",
		Help:      "Handler invocations by result: ok, retry (will be attempted again) or dead (no attempts left).",
	}, []string{"task_type", "result"})

	taskSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "worker",
		Name:      "task_duration_seconds",
		Help:      "Wall time of one handler invocation.",
		Buckets:   []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"task_type"})
)

// taskResult classifies a handler error against the task's remaining retries.
func taskResult(ctx context.Context, err error) string {
	if err == nil {
		return "ok"
	}
	if errors.Is(err, asynq.SkipRetry) {
		return "dead"
	}
	retried, okRetried := asynq.GetRetryCount(ctx)
	limit, okLimit := asynq.GetMaxRetry(ctx)
	if okRetried && okLimit && retried >= limit {
		return "dead"
	}
	return "retry"
}

// AsynqMetricsMiddleware wraps every worker handler with run counts, latency and concurrency.
func AsynqMetricsMiddleware() asynq.MiddlewareFunc {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
			running := tasksRunning.WithLabelValues(task.Type())
			running.Inc()
			defer running.Dec()

			started := time.Now()
			err := next.ProcessTask(ctx, task)
			taskSeconds.WithLabelValues(task.Type()).Observe(time.Since(started).Seconds())
			taskRuns.WithLabelValues(task.Type(), taskResult(ctx, err)).Inc()
			return err
		})
	}
}
