package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/caseload-engine/workload"
)

// sample returns the counter value (or histogram sample count) of the
// series matching name and labels.
func sample(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue next
				}
			}
			if h := m.GetHistogram(); h != nil {
				return float64(h.GetSampleCount())
			}
			return m.GetCounter().GetValue()
		}
	}
	t.Fatalf("no series %s%v", name, labels)
	return 0
}

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheus(reg, "test")

	c.RecordOperation(workload.TriggerRebalance, nil, 20*time.Millisecond)
	c.RecordOperation(workload.TriggerRebalance, errors.New("boom"), time.Millisecond)
	c.RecordItemsMoved(workload.TriggerRebalance, 4)
	c.RecordItemsMoved(workload.TriggerRebalance, 0)
	c.RecordHistoryFailure(workload.ActionManualRebalance)

	assert.Equal(t, 1.0, sample(t, reg, "test_engine_operations_total", map[string]string{"trigger": "rebalance", "result": "success"}))
	assert.Equal(t, 1.0, sample(t, reg, "test_engine_operations_total", map[string]string{"trigger": "rebalance", "result": "failure"}))
	assert.Equal(t, 2.0, sample(t, reg, "test_engine_operation_duration_seconds", map[string]string{"trigger": "rebalance"}))
	assert.Equal(t, 4.0, sample(t, reg, "test_engine_items_moved_total", map[string]string{"trigger": "rebalance"}))
	assert.Equal(t, 1.0, sample(t, reg, "test_engine_history_write_failures_total", map[string]string{"action": "manual_rebalance"}))
}

func TestNewPrometheus_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPrometheus(reg, "dup")
	assert.Panics(t, func() { NewPrometheus(reg, "dup") })
}
