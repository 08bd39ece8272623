package service

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveExtractionMovesCounter(t *testing.T) {
	svc := NewMetricsService()

	svc.ObserveExtraction("ok")
	svc.ObserveExtraction("ok")
	svc.ObserveExtraction("malformed")

	assert.Equal(t, 2.0, testutil.ToFloat64(svc.extractionTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(svc.extractionTotal.WithLabelValues("malformed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(svc.extractionTotal.WithLabelValues("unavailable")))
}

func TestNilMetricsServiceIsInert(t *testing.T) {
	var svc *MetricsService

	// Must not panic; the /metrics endpoint degrades instead.
	svc.ObserveExtraction("ok")
	assert.NotNil(t, svc.Handler())
}
