package workload_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/caseload-engine/workload"
	"github.com/warp/caseload-engine/workload/store"
)

func TestSkimCount(t *testing.T) {
	cases := []struct {
		count    int
		fraction string
		want     int
	}{
		{10, "0.2", 2},
		{11, "0.2", 3},
		{1, "0.2", 1},
		{0, "0.2", 0},
		{10, "1", 10},
		{3, "0.1", 1},
		{100, "0.07", 7},
	}
	for _, tc := range cases {
		got := workload.SkimCount(tc.count, decimal.RequireFromString(tc.fraction))
		assert.Equal(t, tc.want, got, "ceil(%d × %s)", tc.count, tc.fraction)
	}
}

func TestValidateFraction(t *testing.T) {
	for _, f := range []string{"0.2", "1", "0.0001"} {
		assert.NoError(t, workload.ValidateFraction(decimal.RequireFromString(f)), f)
	}
	for _, f := range []string{"0", "-0.1", "1.01"} {
		assert.ErrorIs(t, workload.ValidateFraction(decimal.RequireFromString(f)), workload.ErrInvalidFraction, f)
	}
}

func TestSelectSkim_ScenarioB(t *testing.T) {
	// GIVEN: U1 holds 10 items, priorities 1..5 (two each), ascending age
	var rows []workload.Assignment
	for i := 0; i < 10; i++ {
		rows = append(rows, workload.Assignment{
			ID:         workload.AssignmentID(string(rune('a' + i))),
			WorkerID:   "U1",
			Status:     workload.AssignmentActive,
			Priority:   i/2 + 1,
			AssignedAt: t0.Add(-time.Duration(i) * time.Hour),
		})
	}

	// WHEN: skimming 20%
	picked := workload.SelectSkim(rows, workload.DefaultSkimFraction)

	// THEN: the two priority-5 items, oldest first
	require.Len(t, picked, 2)
	assert.Equal(t, workload.AssignmentID("j"), picked[0].AssignmentID)
	assert.Equal(t, workload.AssignmentID("i"), picked[1].AssignmentID)
}

func TestSelectSkim_TieBrokenByOldestAssignment(t *testing.T) {
	rows := []workload.Assignment{
		{ID: "new", Priority: 3, AssignedAt: t0},
		{ID: "old", Priority: 3, AssignedAt: t0.Add(-24 * time.Hour)},
		{ID: "low", Priority: 1, AssignedAt: t0.Add(-48 * time.Hour)},
	}

	picked := workload.SelectSkim(rows, decimal.RequireFromString("0.5"))

	require.Len(t, picked, 2)
	assert.Equal(t, workload.AssignmentID("old"), picked[0].AssignmentID)
	assert.Equal(t, workload.AssignmentID("new"), picked[1].AssignmentID)
}

func TestDailyReview(t *testing.T) {
	now := time.Date(2026, time.March, 10, 15, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	thisMorning := time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC)

	s := store.NewMemory()
	s.PutWorker(workload.Worker{ID: "U9", Status: workload.WorkerActive})
	for i, id := range []workload.CaseID{"c1", "c2", "c3", "c4", "c5", "c6"} {
		s.PutAssignment(workload.Assignment{
			ID:         workload.AssignmentID("a-" + string(id)),
			CaseID:     id,
			WorkerID:   "U9",
			Status:     workload.AssignmentActive,
			AssignedAt: t0.Add(time.Duration(i) * time.Minute),
		})
	}
	s.PutAssignment(workload.Assignment{ID: "a-done", CaseID: "c7", WorkerID: "U9", Status: workload.AssignmentCompleted})

	s.PutFollowUp(workload.FollowUp{ID: "f1", CaseID: "c1", Status: workload.FollowUpPending, Priority: workload.FollowUpHigh})
	s.PutFollowUp(workload.FollowUp{ID: "f1b", CaseID: "c1", Status: workload.FollowUpInProgress, Priority: workload.FollowUpMedium})
	s.PutFollowUp(workload.FollowUp{ID: "f2", CaseID: "c2", Status: workload.FollowUpInProgress, Priority: workload.FollowUpMedium, LastReviewedAt: &yesterday})
	s.PutFollowUp(workload.FollowUp{ID: "f3", CaseID: "c3", Status: workload.FollowUpPending, Priority: workload.FollowUpHigh, LastReviewedAt: &thisMorning})
	s.PutFollowUp(workload.FollowUp{ID: "f4", CaseID: "c4", Status: workload.FollowUpPending, Priority: workload.FollowUpLow})
	s.PutFollowUp(workload.FollowUp{ID: "f5", CaseID: "c5", Status: workload.FollowUpDone, Priority: workload.FollowUpHigh})
	s.PutFollowUp(workload.FollowUp{ID: "f7", CaseID: "c7", Status: workload.FollowUpPending, Priority: workload.FollowUpHigh})

	sel := &workload.Selector{Store: s, Now: func() time.Time { return now }}

	t.Run("selects due high and medium follow-ups once per case", func(t *testing.T) {
		got, err := sel.DailyReview(context.Background(), "U9")
		require.NoError(t, err)

		ids := make([]workload.CaseID, len(got))
		for i, c := range got {
			ids[i] = c.CaseID
		}
		assert.Equal(t, []workload.CaseID{"c1", "c2"}, ids)
		assert.Equal(t, workload.WorkerID("U9"), got[0].Owner)
	})

	t.Run("empty for a worker without assignments", func(t *testing.T) {
		got, err := sel.DailyReview(context.Background(), "nobody")
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestSelector_SkimRejectsBadFraction(t *testing.T) {
	sel := &workload.Selector{Store: store.NewMemory()}
	_, err := sel.Skim(context.Background(), "U1", decimal.Zero)
	require.ErrorIs(t, err, workload.ErrInvalidFraction)
}

func TestActiveBacklog_IncludesInactiveOwners(t *testing.T) {
	s := store.NewMemory()
	s.PutAssignment(workload.Assignment{ID: "a1", CaseID: "c1", WorkerID: "gone", Status: workload.AssignmentActive})
	s.PutAssignment(workload.Assignment{ID: "a2", CaseID: "c2", WorkerID: "U1", Status: workload.AssignmentActive})
	s.PutAssignment(workload.Assignment{ID: "a3", CaseID: "c3", WorkerID: "U1", Status: workload.AssignmentCompleted})

	got, err := (&workload.Selector{Store: s}).ActiveBacklog(context.Background())

	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestImportCandidates_KeepsOrder(t *testing.T) {
	got := workload.ImportCandidates([]workload.ImportItem{{CaseID: "x", Priority: 2}, {CaseID: "y"}})
	require.Len(t, got, 2)
	assert.Equal(t, workload.CaseID("x"), got[0].CaseID)
	assert.Equal(t, 2, got[0].Priority)
	assert.Empty(t, got[1].AssignmentID)
}
