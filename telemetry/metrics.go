package telemetry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricInstruments caches metric instruments by name
type MetricInstruments struct {
	meter      metric.Meter
	counters   map[string]metric.Float64Counter
	histograms map[string]metric.Float64Histogram
	mu         sync.RWMutex
}

// NewMetricInstruments creates an instrument cache on meter
func NewMetricInstruments(meter metric.Meter) *MetricInstruments {
	return &MetricInstruments{
		meter:      meter,
		counters:   make(map[string]metric.Float64Counter),
		histograms: make(map[string]metric.Float64Histogram),
	}
}

// IsHistogram reports whether name is recorded as a distribution
func IsHistogram(name string) bool {
	return strings.HasSuffix(name, "_ms") || strings.HasSuffix(name, ".duration")
}

// Record adds value to the counter or histogram called name
func (m *MetricInstruments) Record(ctx context.Context, name string, value float64, labels map[string]string) error {
	attrs := metric.WithAttributes(labelAttributes(labels)...)

	if IsHistogram(name) {
		h, err := m.histogram(name)
		if err != nil {
			return err
		}
		h.Record(ctx, value, attrs)
		return nil
	}

	c, err := m.counter(name)
	if err != nil {
		return err
	}
	c.Add(ctx, value, attrs)
	return nil
}

func (m *MetricInstruments) counter(name string) (metric.Float64Counter, error) {
	m.mu.RLock()
	c, ok := m.counters[name]
	m.mu.RUnlock()
	if ok {
		return c, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok = m.counters[name]; ok {
		return c, nil
	}
	c, err := m.meter.Float64Counter(name)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter %s: %w", name, err)
	}
	m.counters[name] = c
	return c, nil
}

func (m *MetricInstruments) histogram(name string) (metric.Float64Histogram, error) {
	m.mu.RLock()
	h, ok := m.histograms[name]
	m.mu.RUnlock()
	if ok {
		return h, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok = m.histograms[name]; ok {
		return h, nil
	}
	h, err := m.meter.Float64Histogram(name, metric.WithUnit("ms"))
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram %s: %w", name, err)
	}
	m.histograms[name] = h
	return h, nil
}

// labelAttributes converts labels in key order so identical label sets map to the same series
func labelAttributes(labels map[string]string) []attribute.KeyValue {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]attribute.KeyValue, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, attribute.String(k, labels[k]))
	}
	return attrs
}
