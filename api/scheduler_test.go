package api

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/caseload-engine/logging"
	"github.com/warp/caseload-engine/workload"
	"github.com/warp/caseload-engine/workload/store"
)

func unevenMemory(t *testing.T) *store.Memory {
	t.Helper()
	m := store.NewMemory()
	for _, id := range []workload.WorkerID{"U1", "U2"} {
		m.PutWorker(workload.Worker{ID: id, Status: workload.WorkerActive})
	}
	base := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		m.PutAssignment(workload.Assignment{
			ID:         workload.AssignmentID(fmt.Sprintf("a%d", i)),
			CaseID:     workload.CaseID(fmt.Sprintf("c%d", i)),
			WorkerID:   "U1",
			Status:     workload.AssignmentActive,
			AssignedAt: base.Add(time.Duration(i) * time.Minute),
			Type:       workload.TypeManual,
		})
	}
	return m
}

func openItems(t *testing.T, e *workload.Engine) map[workload.WorkerID]int {
	t.Helper()
	stats, err := e.Workload(context.Background())
	require.NoError(t, err)
	out := make(map[workload.WorkerID]int)
	for _, s := range stats {
		out[s.WorkerID] = s.OpenItems
	}
	return out
}

func TestRebalanceScheduler_RunOnce(t *testing.T) {
	// GIVEN: U1 holds 4 items, U2 none
	engine, err := workload.New(unevenMemory(t))
	require.NoError(t, err)
	rs := NewRebalanceScheduler(engine, logging.NewWriter(io.Discard, "debug", "text"))

	// WHEN
	rs.RunOnce(context.Background())

	// THEN
	assert.Equal(t, map[workload.WorkerID]int{"U1": 2, "U2": 2}, openItems(t, engine))
	runs, failures, last := rs.Stats()
	assert.Equal(t, 1, runs)
	assert.Zero(t, failures)
	assert.False(t, last.IsZero())
}

func TestRebalanceScheduler_Ticks(t *testing.T) {
	engine, err := workload.New(unevenMemory(t))
	require.NoError(t, err)
	rs := NewRebalanceScheduler(engine, logging.NewWriter(io.Discard, "info", "text"))
	rs.Enabled = true
	rs.Interval = 10 * time.Millisecond

	rs.Start()
	rs.Start() // second call is a no-op

	assert.Eventually(t, func() bool {
		runs, _, _ := rs.Stats()
		return runs >= 2
	}, 2*time.Second, 5*time.Millisecond)

	rs.Stop()
	rs.Stop()

	runs, failures, _ := rs.Stats()
	assert.Zero(t, failures)
	assert.Equal(t, map[workload.WorkerID]int{"U1": 2, "U2": 2}, openItems(t, engine))

	// No further runs after Stop.
	time.Sleep(30 * time.Millisecond)
	after, _, _ := rs.Stats()
	assert.Equal(t, runs, after)
}

func TestRebalanceScheduler_Disabled(t *testing.T) {
	engine, err := workload.New(store.NewMemory())
	require.NoError(t, err)
	rs := NewRebalanceScheduler(engine, logging.NewWriter(io.Discard, "info", "text"))

	rs.Start()
	rs.Stop()

	runs, _, _ := rs.Stats()
	assert.Zero(t, runs)
}

func TestRebalanceScheduler_CountsFailures(t *testing.T) {
	// An empty roster cannot be rebalanced.
	engine, err := workload.New(store.NewMemory())
	require.NoError(t, err)
	rs := NewRebalanceScheduler(engine, logging.NewWriter(io.Discard, "info", "text"))

	rs.RunOnce(context.Background())

	runs, failures, _ := rs.Stats()
	assert.Equal(t, 1, runs)
	assert.Equal(t, 1, failures)
}
