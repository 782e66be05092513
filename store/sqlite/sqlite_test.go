package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/caseload-engine/workload"
)

var t0 = time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedWorkers(t *testing.T, s *Store, ids ...workload.WorkerID) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, s.SaveWorker(context.Background(), workload.Worker{
			ID: id, Email: string(id) + "@example.com", Status: workload.WorkerActive,
		}))
	}
}

// seedItems gives worker n active assignments, each with a due follow-up.
func seedItems(t *testing.T, s *Store, worker workload.WorkerID, n int) []workload.AssignmentID {
	t.Helper()
	ctx := context.Background()
	ids := make([]workload.AssignmentID, n)
	for i := 0; i < n; i++ {
		caseID := workload.CaseID(fmt.Sprintf("case-%s-%02d", worker, i))
		ids[i] = workload.AssignmentID(fmt.Sprintf("asg-%s-%02d", worker, i))
		require.NoError(t, s.SaveCase(ctx, workload.Case{ID: caseID, Title: "Case " + string(caseID)}))
		require.NoError(t, s.SaveAssignment(ctx, workload.Assignment{
			ID:         ids[i],
			CaseID:     caseID,
			WorkerID:   worker,
			Status:     workload.AssignmentActive,
			Priority:   i,
			AssignedAt: t0.Add(time.Duration(i) * time.Minute),
			Type:       workload.TypeManual,
			AssignedBy: "seed",
		}))
		require.NoError(t, s.SaveFollowUp(ctx, workload.FollowUp{
			ID:       "fu-" + string(caseID),
			CaseID:   caseID,
			Status:   workload.FollowUpPending,
			Priority: workload.FollowUpHigh,
		}))
	}
	return ids
}

func owner(t *testing.T, s *Store, id workload.CaseID) workload.WorkerID {
	t.Helper()
	c, err := s.GetCase(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, c)
	require.NotNil(t, c.OwnerID)
	return *c.OwnerID
}

// =============================================================================
// ROSTER
// =============================================================================

func TestWorkers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedWorkers(t, s, "U3", "U1", "U2")

	t.Run("list is ordered by id", func(t *testing.T) {
		ws, err := s.ListWorkers(ctx, workload.WorkerFilter{})
		require.NoError(t, err)
		require.Len(t, ws, 3)
		assert.Equal(t, workload.WorkerID("U1"), ws[0].ID)
		assert.Equal(t, workload.WorkerID("U3"), ws[2].ID)
	})

	t.Run("status filter", func(t *testing.T) {
		require.NoError(t, s.UpdateWorkerStatus(ctx, "U2", workload.WorkerInactive))
		active := workload.WorkerActive
		ws, err := s.ListWorkers(ctx, workload.WorkerFilter{Status: &active})
		require.NoError(t, err)
		assert.Len(t, ws, 2)
	})

	t.Run("missing worker", func(t *testing.T) {
		w, err := s.GetWorker(ctx, "ghost")
		require.NoError(t, err)
		assert.Nil(t, w)
		assert.Error(t, s.UpdateWorkerStatus(ctx, "ghost", workload.WorkerInactive))
	})
}

// =============================================================================
// ASSIGNMENTS
// =============================================================================

func TestAssignments(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedWorkers(t, s, "U1", "U2")
	ids := seedItems(t, s, "U1", 3)

	t.Run("list and count by worker", func(t *testing.T) {
		w := workload.WorkerID("U1")
		rows, err := s.ListAssignments(ctx, workload.AssignmentFilter{WorkerID: &w})
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, ids[0], rows[0].ID, "oldest first")
		assert.True(t, rows[1].AssignedAt.Equal(t0.Add(time.Minute)))

		n, err := s.CountAssignments(ctx, workload.AssignmentFilter{WorkerID: &w})
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("closed rows are not counted as active", func(t *testing.T) {
		require.NoError(t, s.SetAssignmentStatus(ctx, ids[2], workload.AssignmentCompleted))
		active := workload.AssignmentActive
		w := workload.WorkerID("U1")
		n, err := s.CountAssignments(ctx, workload.AssignmentFilter{WorkerID: &w, Status: &active})
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("update rewrites the provenance fields", func(t *testing.T) {
		at := t0.Add(24 * time.Hour)
		require.NoError(t, s.UpdateAssignments(ctx, ids[:1], workload.AssignmentUpdate{
			WorkerID: "U2", Type: workload.TypeManualRebalance, AssignedBy: "system", AssignedAt: at,
		}))
		rows, err := s.ListAssignments(ctx, workload.AssignmentFilter{IDs: ids[:1]})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, workload.WorkerID("U2"), rows[0].WorkerID)
		assert.Equal(t, workload.TypeManualRebalance, rows[0].Type)
		assert.True(t, rows[0].AssignedAt.Equal(at))
	})

	t.Run("duplicate insert", func(t *testing.T) {
		err := s.InsertAssignments(ctx, []workload.Assignment{{ID: ids[0], CaseID: "x", WorkerID: "U1",
			Status: workload.AssignmentActive, AssignedAt: t0, Type: workload.TypeImport}})
		assert.ErrorIs(t, err, ErrDuplicateAssignment)
	})
}

func TestAssignments_MalformedTimestamp(t *testing.T) {
	// GIVEN: A row whose assigned_at was written by something else
	ctx := context.Background()
	s := newTestStore(t)
	seedWorkers(t, s, "U1")
	ids := seedItems(t, s, "U1", 2)
	_, err := s.db.ExecContext(ctx, "UPDATE assignments SET assigned_at = ? WHERE id = ?", "yesterday", ids[1])
	require.NoError(t, err)

	// WHEN
	_, err = s.ListAssignments(ctx, workload.AssignmentFilter{})

	// THEN: The read fails instead of sorting the row as the oldest
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(ids[1]))
}

func TestParseTime(t *testing.T) {
	got, err := parseTime(formatTime(t0.Add(1500 * time.Millisecond)))
	require.NoError(t, err)
	assert.True(t, got.Equal(t0.Add(1500*time.Millisecond)))

	_, err = parseTime("")
	assert.Error(t, err)
}

// =============================================================================
// FOLLOW-UPS
// =============================================================================

func TestListFollowUps(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	today := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	yesterday := today.Add(-time.Hour)
	thisMorning := today.Add(8 * time.Hour)

	for _, f := range []workload.FollowUp{
		{ID: "f1", CaseID: "c1", Status: workload.FollowUpPending, Priority: workload.FollowUpHigh},
		{ID: "f2", CaseID: "c2", Status: workload.FollowUpInProgress, Priority: workload.FollowUpMedium, LastReviewedAt: &yesterday},
		{ID: "f3", CaseID: "c3", Status: workload.FollowUpPending, Priority: workload.FollowUpHigh, LastReviewedAt: &thisMorning},
		{ID: "f4", CaseID: "c4", Status: workload.FollowUpDone, Priority: workload.FollowUpHigh},
		{ID: "f5", CaseID: "c5", Status: workload.FollowUpPending, Priority: workload.FollowUpLow},
	} {
		require.NoError(t, s.SaveFollowUp(ctx, f))
	}

	got, err := s.ListFollowUps(ctx, workload.FollowUpFilter{
		CaseIDs:        []workload.CaseID{"c1", "c2", "c3", "c4", "c5"},
		Statuses:       []workload.FollowUpStatus{workload.FollowUpPending, workload.FollowUpInProgress},
		Priorities:     []workload.FollowUpPriority{workload.FollowUpHigh, workload.FollowUpMedium},
		ReviewedBefore: &today,
	})

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "f1", got[0].ID)
	assert.Equal(t, "f2", got[1].ID)
	require.NotNil(t, got[1].LastReviewedAt)
	assert.True(t, got[1].LastReviewedAt.Equal(yesterday))

	none, err := s.ListFollowUps(ctx, workload.FollowUpFilter{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

// =============================================================================
// REASSIGN
// =============================================================================

func TestReassign(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedWorkers(t, s, "U1", "U2")
	ids := seedItems(t, s, "U1", 2)
	require.NoError(t, s.SaveCase(ctx, workload.Case{ID: "imported"}))

	fields := workload.AssignmentUpdate{WorkerID: "U2", Type: workload.TypeRoundRobinRebalance, AssignedBy: "system", AssignedAt: t0}

	t.Run("updates, inserts and owner pointers land together", func(t *testing.T) {
		err := s.Reassign(ctx, workload.ReassignBatch{
			To:     "U2",
			Update: ids[:1],
			Insert: []workload.Assignment{{
				ID: "new-1", CaseID: "imported", WorkerID: "U2", Status: workload.AssignmentActive,
				AssignedAt: t0, Type: workload.TypeImport, AssignedBy: "system",
			}},
			CaseIDs: []workload.CaseID{"case-U1-00", "imported"},
			Fields:  fields,
		})

		require.NoError(t, err)
		assert.Equal(t, workload.WorkerID("U2"), owner(t, s, "case-U1-00"))
		assert.Equal(t, workload.WorkerID("U2"), owner(t, s, "imported"))
		assert.Equal(t, workload.WorkerID("U1"), owner(t, s, "case-U1-01"))
	})

	t.Run("a failing insert rolls back the whole batch", func(t *testing.T) {
		err := s.Reassign(ctx, workload.ReassignBatch{
			To:     "U2",
			Update: ids[1:],
			Insert: []workload.Assignment{{
				ID: "new-1", CaseID: "imported", WorkerID: "U2", Status: workload.AssignmentActive,
				AssignedAt: t0, Type: workload.TypeImport,
			}},
			CaseIDs: []workload.CaseID{"case-U1-01"},
			Fields:  fields,
		})

		require.ErrorIs(t, err, ErrDuplicateAssignment)
		assert.Equal(t, workload.WorkerID("U1"), owner(t, s, "case-U1-01"))
		rows, err := s.ListAssignments(ctx, workload.AssignmentFilter{IDs: ids[1:]})
		require.NoError(t, err)
		assert.Equal(t, workload.WorkerID("U1"), rows[0].WorkerID)
	})
}

// =============================================================================
// HISTORY
// =============================================================================

func TestHistory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	admin := workload.WorkerID("admin")

	entries := []workload.HistoryEntry{
		{ID: "h1", SubjectID: "U1", Action: workload.ActionDeactivationRedistribution, CreatedAt: t0,
			Details: workload.HistoryDetails{AssignmentIDs: []workload.AssignmentID{"a1"},
				Moves: []workload.Move{{AssignmentID: "a1", CaseID: "c1", From: "U1", To: "U2"}}}},
		{ID: "h2", ActorID: &admin, SubjectID: "U1", Action: workload.ActionReactivationRestore, CreatedAt: t0.Add(time.Hour)},
		{ID: "h3", SubjectID: "U2", Action: workload.ActionDeactivationRedistribution, CreatedAt: t0.Add(2 * time.Hour)},
	}
	for _, e := range entries {
		require.NoError(t, s.AppendHistory(ctx, e))
	}

	t.Run("newest first with limit", func(t *testing.T) {
		u1 := workload.WorkerID("U1")
		got, err := s.QueryHistory(ctx, workload.HistoryFilter{SubjectID: &u1, Limit: 1})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, workload.HistoryID("h2"), got[0].ID)
		require.NotNil(t, got[0].ActorID)
		assert.Equal(t, admin, *got[0].ActorID)
	})

	t.Run("action filter decodes details", func(t *testing.T) {
		u1 := workload.WorkerID("U1")
		got, err := s.QueryHistory(ctx, workload.HistoryFilter{
			SubjectID: &u1,
			Actions:   []workload.HistoryAction{workload.ActionDeactivationRedistribution},
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Nil(t, got[0].ActorID)
		assert.Equal(t, []workload.AssignmentID{"a1"}, got[0].Details.AssignmentIDs)
		assert.Equal(t, workload.WorkerID("U2"), got[0].Details.Moves[0].To)
	})
}

// =============================================================================
// ENGINE ON SQLITE
// =============================================================================

func TestEngine_DeactivateAndReactivate(t *testing.T) {
	// GIVEN: U1 holds 4 due items, U2 and U3 are active
	ctx := context.Background()
	s := newTestStore(t)
	seedWorkers(t, s, "U1", "U2", "U3")
	seedItems(t, s, "U1", 4)

	clock := func() time.Time { return time.Date(2026, time.March, 10, 15, 0, 0, 0, time.UTC) }
	engine, err := workload.New(s, workload.WithClock(clock))
	require.NoError(t, err)

	// WHEN: U1 is deactivated
	res, err := engine.DeactivateWorker(ctx, "U1", nil)

	// THEN: items alternate U2, U3 and the case pointers follow
	require.NoError(t, err)
	assert.Equal(t, 4, res.TasksMoved)
	assert.Equal(t, map[workload.WorkerID]int{"U2": 2, "U3": 2}, res.ToUsers)
	assert.Equal(t, workload.WorkerID("U2"), owner(t, s, "case-U1-00"))
	assert.Equal(t, workload.WorkerID("U3"), owner(t, s, "case-U1-01"))

	w, err := s.GetWorker(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, workload.WorkerInactive, w.Status)

	// WHEN: U1 comes back
	restored, err := engine.ReactivateWorker(ctx, "U1", nil)

	// THEN: every item returns
	require.NoError(t, err)
	assert.Equal(t, 4, restored.TasksRestored)
	for i := 0; i < 4; i++ {
		assert.Equal(t, workload.WorkerID("U1"), owner(t, s, workload.CaseID(fmt.Sprintf("case-U1-%02d", i))))
	}

	u1 := workload.WorkerID("U1")
	hist, err := s.QueryHistory(ctx, workload.HistoryFilter{SubjectID: &u1})
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, workload.ActionReactivationRestore, hist[0].Action)
}

func TestListCases(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedWorkers(t, s, "U1")
	seedItems(t, s, "U1", 1)
	require.NoError(t, s.SaveCase(ctx, workload.Case{ID: "a-unowned", Title: "Unowned"}))

	cases, err := s.ListCases(ctx)

	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, workload.CaseID("a-unowned"), cases[0].ID)
	assert.Nil(t, cases[0].OwnerID)
	require.NotNil(t, cases[1].OwnerID)
	assert.Equal(t, workload.WorkerID("U1"), *cases[1].OwnerID)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedWorkers(t, s, "U1")
	seedItems(t, s, "U1", 2)

	require.NoError(t, s.Reset(ctx))

	ws, err := s.ListWorkers(ctx, workload.WorkerFilter{})
	require.NoError(t, err)
	assert.Empty(t, ws)
	n, err := s.CountAssignments(ctx, workload.AssignmentFilter{})
	require.NoError(t, err)
	assert.Zero(t, n)
}
