package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// PrometheusExporter pairs an OTel metric reader with the scrape handler
// that serves what the reader collects.
type PrometheusExporter struct {
	Reader  sdkmetric.Reader
	Handler http.Handler
}

// NewPrometheusExporter creates a Prometheus exporter on a private registry.
// Pass Reader to [Init] via [Options.MetricReader] so that every instrument
// created from the global meter shows up on Handler.
func NewPrometheusExporter() (*PrometheusExporter, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(
		promexporter.WithRegisterer(registry),
	)
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	return &PrometheusExporter{
		Reader:  exporter,
		Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}, nil
}
