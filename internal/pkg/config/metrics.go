package config

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ConfigMetrics exposes how a component's environment was loaded:
//
//	{component}_config_load_timestamp
//	{component}_config_fallbacks_total{field,reason}
//	{component}_config_fallback_active
//
// Collectors go to the default registry, so a component name can be
// registered once per process.
type ConfigMetrics struct {
	LoadTimestamp  prometheus.Gauge
	FallbacksTotal *prometheus.CounterVec
	FallbackActive prometheus.Gauge
}

// NewConfigMetrics registers the collectors of component.
func NewConfigMetrics(component string) *ConfigMetrics {
	prefix := component + "_config_"
	return &ConfigMetrics{
		LoadTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "load_timestamp",
			Help: "Unix time of the last " + component + " configuration load",
		}),
		FallbacksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "fallbacks_total",
			Help: "Environment values of " + component + " replaced by their default",
		}, []string{"field", "reason"}),
		FallbackActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "fallback_active",
			Help: "1 while the loaded " + component + " configuration contains a fallback",
		}),
	}
}

// RecordFallback counts one field that kept its default. reason is
// FallbackUnparsable or FallbackInvalid.
func (m *ConfigMetrics) RecordFallback(field, reason string) {
	m.FallbacksTotal.WithLabelValues(field, reason).Inc()
}

// RecordLoaded stamps the load time and whether any fallback is in effect.
func (m *ConfigMetrics) RecordLoaded(fallbackActive bool) {
	m.LoadTimestamp.SetToCurrentTime()
	if fallbackActive {
		m.FallbackActive.Set(1)
		return
	}
	m.FallbackActive.Set(0)
}
