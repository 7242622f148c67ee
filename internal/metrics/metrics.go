// Package metrics wires OpenTelemetry instruments to a Prometheus exporter.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/global"
	export "go.opentelemetry.io/otel/sdk/export/metric"
	"go.opentelemetry.io/otel/sdk/metric/aggregator/histogram"
	controller "go.opentelemetry.io/otel/sdk/metric/controller/basic"
	processor "go.opentelemetry.io/otel/sdk/metric/processor/basic"
	selector "go.opentelemetry.io/otel/sdk/metric/selector/simple"
)

var (
	shapeKey   = attribute.Key("cache.shape")
	outcomeKey = attribute.Key("cache.outcome")
	opKey      = attribute.Key("store.op")
	statusKey  = attribute.Key("http.status")
	methodKey  = attribute.Key("http.method")
)

// Cache lookup outcomes.
const (
	OutcomeHit   = "hit"
	OutcomeMiss  = "miss"
	OutcomeError = "error"
)

// NewExporter installs a Prometheus-backed global meter provider and returns
// the exporter, which doubles as the /metrics handler.
func NewExporter() (*prometheus.Exporter, error) {
	config := prometheus.Config{}
	c := controller.New(
		processor.New(
			selector.NewWithHistogramDistribution(
				histogram.WithExplicitBoundaries(config.DefaultHistogramBoundaries),
			),
			export.CumulativeExportKindSelector(),
			processor.WithMemory(true),
		),
	)
	exporter, err := prometheus.New(config, c)
	if err != nil {
		return nil, err
	}
	global.SetMeterProvider(exporter.MeterProvider())

	return exporter, nil
}

type Metrics struct {
	completed    metric.Int64Counter
	cacheLookups metric.Int64Counter
	storeLatency metric.Float64ValueRecorder
}

// New creates the service instruments on meter. A nil *Metrics is valid and
// records nothing.
func New(meter metric.Meter) *Metrics {
	must := metric.Must(meter)

	return &Metrics{
		completed: must.NewInt64Counter(
			"http/server/completed_count",
			metric.WithDescription("Count of completed requests, by HTTP method and response status"),
		),
		cacheLookups: must.NewInt64Counter(
			"cache/lookups",
			metric.WithDescription("Cache lookups by query shape and outcome"),
		),
		storeLatency: must.NewFloat64ValueRecorder(
			"store/query_latency_ms",
			metric.WithDescription("Store operation latency in milliseconds"),
		),
	}
}

// Global is New on the global meter provider.
func Global(name string) *Metrics {
	return New(global.Meter(name))
}

func (m *Metrics) CacheLookup(ctx context.Context, shape, outcome string) {
	if m == nil {
		return
	}
	m.cacheLookups.Add(ctx, 1, shapeKey.String(shape), outcomeKey.String(outcome))
}

// ObserveQuery satisfies store.Observer.
func (m *Metrics) ObserveQuery(ctx context.Context, op string, d time.Duration) {
	if m == nil {
		return
	}
	m.storeLatency.Record(ctx, float64(d)/float64(time.Millisecond), opKey.String(op))
}

// Middleware counts completed requests.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		if m == nil {
			return
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.completed.Add(r.Context(), 1, methodKey.String(r.Method), statusKey.String(strconv.Itoa(status)))
	})
}
