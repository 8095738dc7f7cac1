package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "focustodo"

// Metrics holds the generation gateway instruments.
type Metrics struct {
	Generations        metric.Int64Counter
	GenerationFailures metric.Int64Counter
	ProviderFallbacks  metric.Int64Counter
	TokensUsed         metric.Int64Counter
	GenerationDuration metric.Float64Histogram
}

// NewMetrics creates the instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Generations, err = meter.Int64Counter("focustodo.ai.generations",
		metric.WithDescription("Generation requests that returned a result"))
	if err != nil {
		return nil, err
	}

	m.GenerationFailures, err = meter.Int64Counter("focustodo.ai.generation_failures",
		metric.WithDescription("Generation requests that failed, by error kind"))
	if err != nil {
		return nil, err
	}

	m.ProviderFallbacks, err = meter.Int64Counter("focustodo.ai.provider_fallbacks",
		metric.WithDescription("Local provider probes that failed and fell back to the cloud"))
	if err != nil {
		return nil, err
	}

	m.TokensUsed, err = meter.Int64Counter("focustodo.ai.tokens",
		metric.WithDescription("Prompt and completion tokens reported by providers"))
	if err != nil {
		return nil, err
	}

	m.GenerationDuration, err = meter.Float64Histogram("focustodo.ai.generation.duration_seconds",
		metric.WithDescription("Generation latency in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
