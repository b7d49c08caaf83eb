package ragbox

import (
	"context"
	"time"

	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"

	"github.com/flarexio/ragbox/vector"
)

// NewPrometheusMetrics registers the request counter and latency histogram
// with the default prometheus registry.
func NewPrometheusMetrics(namespace string) (metrics.Counter, metrics.Histogram) {
	fieldKeys := []string{"method", "error"}

	requestCount := prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "service",
		Name:      "requests_total",
		Help:      "Number of requests received.",
	}, fieldKeys)

	requestLatency := prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "service",
		Name:      "request_duration_seconds",
		Help:      "Total duration of requests in seconds.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, fieldKeys)

	return requestCount, requestLatency
}

func InstrumentingMiddleware(requestCount metrics.Counter, requestLatency metrics.Histogram) ServiceMiddleware {
	return func(next Service) Service {
		return &instrumentingMiddleware{
			requestCount:   requestCount,
			requestLatency: requestLatency,
			next:           next,
		}
	}
}

type instrumentingMiddleware struct {
	requestCount   metrics.Counter
	requestLatency metrics.Histogram
	next           Service
}

func (mw *instrumentingMiddleware) observe(method string, begin time.Time, err error) {
	failed := "false"
	if err != nil {
		failed = "true"
	}

	lvs := []string{"method", method, "error", failed}
	mw.requestCount.With(lvs...).Add(1)
	mw.requestLatency.With(lvs...).Observe(time.Since(begin).Seconds())
}

func (mw *instrumentingMiddleware) Close() error {
	return mw.next.Close()
}

func (mw *instrumentingMiddleware) Upload(ctx context.Context, sessionID string, filename string, data []byte) (err error) {
	defer func(begin time.Time) {
		mw.observe("upload", begin, err)
	}(time.Now())

	return mw.next.Upload(ctx, sessionID, filename, data)
}

func (mw *instrumentingMiddleware) ListFiles(ctx context.Context, sessionID string) (files []string, err error) {
	defer func(begin time.Time) {
		mw.observe("list_files", begin, err)
	}(time.Now())

	return mw.next.ListFiles(ctx, sessionID)
}

func (mw *instrumentingMiddleware) ReadFile(ctx context.Context, sessionID string, filename string) (content string, err error) {
	defer func(begin time.Time) {
		mw.observe("read_file", begin, err)
	}(time.Now())

	return mw.next.ReadFile(ctx, sessionID, filename)
}

func (mw *instrumentingMiddleware) Search(ctx context.Context, sessionID string, query string, k ...int) (matches []vector.Match, err error) {
	defer func(begin time.Time) {
		mw.observe("search", begin, err)
	}(time.Now())

	return mw.next.Search(ctx, sessionID, query, k...)
}

func (mw *instrumentingMiddleware) Ask(ctx context.Context, sessionID string, message string) (answer string, err error) {
	defer func(begin time.Time) {
		mw.observe("ask", begin, err)
	}(time.Now())

	return mw.next.Ask(ctx, sessionID, message)
}

func (mw *instrumentingMiddleware) AskWithHistory(ctx context.Context, message string, history []HistoryEntry) (answer string, err error) {
	defer func(begin time.Time) {
		mw.observe("ask_with_history", begin, err)
	}(time.Now())

	return mw.next.AskWithHistory(ctx, message, history)
}

func (mw *instrumentingMiddleware) DeleteSession(ctx context.Context, sessionID string) (err error) {
	defer func(begin time.Time) {
		mw.observe("delete_session", begin, err)
	}(time.Now())

	return mw.next.DeleteSession(ctx, sessionID)
}
