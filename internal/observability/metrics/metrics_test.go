package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
)

func gather(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	assert.NoError(t, err)

	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, family := range families {
		byName[family.GetName()] = family
	}
	return byName
}

func counterValue(family *dto.MetricFamily, labels map[string]string) float64 {
	if family == nil {
		return 0
	}
	for _, metric := range family.GetMetric() {
		matched := true
		for key, want := range labels {
			found := false
			for _, pair := range metric.GetLabel() {
				if pair.GetName() == key && pair.GetValue() == want {
					found = true
					break
				}
			}
			if !found {
				matched = false
				break
			}
		}
		if matched {
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func TestMetrics_CountersCarryServiceLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newMetrics(reg, Config{ServiceName: "pumpline-test", Environment: "test"})

	m.IncPriceComputed("ok")
	m.IncPriceComputed("ok")
	m.IncClaimTransition("draft", "ready_to_submit")
	m.IncAnomaly("VOLUME_VARIANCE", "high")
	m.IncSettlement("ok")
	m.AddOutboxPublished(3)
	m.IncJobRun("outbox_drain")
	m.IncJobError("outbox_drain")
	m.ObserveJobDuration("outbox_drain", 120*time.Millisecond)

	families := gather(t, reg)

	assert.Equal(t, 2.0, counterValue(families["pumpline_prices_computed_total"], map[string]string{
		"outcome": "ok",
		"service": "pumpline-test",
	}))
	assert.Equal(t, 1.0, counterValue(families["pumpline_claim_transitions_total"], map[string]string{
		"from": "draft",
		"to":   "ready_to_submit",
	}))
	assert.Equal(t, 1.0, counterValue(families["pumpline_claim_anomalies_total"], map[string]string{
		"type":     "VOLUME_VARIANCE",
		"severity": "high",
	}))
	assert.Equal(t, 3.0, counterValue(families["pumpline_outbox_published_total"], nil))

	duration := families["pumpline_scheduler_job_duration_seconds"]
	assert.NotNil(t, duration)
	assert.Equal(t, uint64(1), duration.GetMetric()[0].GetHistogram().GetSampleCount())
}
