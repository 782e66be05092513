// Package store provides Store implementations.
package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/warp/caseload-engine/workload"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements workload.Store. It deliberately does not implement
// workload.Reassigner, so the engine uses the paired two-call path.
type Memory struct {
	mu          sync.RWMutex
	workers     map[workload.WorkerID]workload.Worker
	cases       map[workload.CaseID]workload.Case
	assignments map[workload.AssignmentID]workload.Assignment
	followUps   []workload.FollowUp
	history     []workload.HistoryEntry
}

var _ workload.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		workers:     make(map[workload.WorkerID]workload.Worker),
		cases:       make(map[workload.CaseID]workload.Case),
		assignments: make(map[workload.AssignmentID]workload.Assignment),
	}
}

// =============================================================================
// SEEDING
// =============================================================================

func (m *Memory) PutWorker(w workload.Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workers[w.ID] = w
}

func (m *Memory) PutCase(c workload.Case) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cases[c.ID] = c
}

// PutAssignment stores the row and, when active, points its case at the
// worker.
func (m *Memory) PutAssignment(a workload.Assignment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignments[a.ID] = a
	if a.IsActive() {
		owner := a.WorkerID
		c := m.cases[a.CaseID]
		c.ID = a.CaseID
		c.OwnerID = &owner
		m.cases[a.CaseID] = c
	}
}

func (m *Memory) PutFollowUp(f workload.FollowUp) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.followUps = append(m.followUps, f)
}

// SetAssignmentStatus simulates the external case-management flow.
func (m *Memory) SetAssignmentStatus(id workload.AssignmentID, status workload.AssignmentStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.assignments[id]
	a.Status = status
	m.assignments[id] = a
}

// Case returns a copy of the case, for assertions.
func (m *Memory) Case(id workload.CaseID) (workload.Case, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cases[id]
	return c, ok
}

// Assignment returns a copy of the row, for assertions.
func (m *Memory) Assignment(id workload.AssignmentID) (workload.Assignment, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assignments[id]
	return a, ok
}

// =============================================================================
// ROSTER
// =============================================================================

func (m *Memory) ListWorkers(_ context.Context, filter workload.WorkerFilter) ([]workload.Worker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []workload.Worker
	for _, w := range m.workers {
		if filter.Status != nil && w.Status != *filter.Status {
			continue
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) GetWorker(_ context.Context, id workload.WorkerID) (*workload.Worker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.workers[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (m *Memory) UpdateWorkerStatus(_ context.Context, id workload.WorkerID, status workload.WorkerStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workers[id]
	if !ok {
		return fmt.Errorf("worker %s not found", id)
	}
	w.Status = status
	m.workers[id] = w
	return nil
}

// =============================================================================
// ASSIGNMENTS
// =============================================================================

func (m *Memory) ListAssignments(_ context.Context, filter workload.AssignmentFilter) ([]workload.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.filterLocked(filter), nil
}

func (m *Memory) CountAssignments(_ context.Context, filter workload.AssignmentFilter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.filterLocked(filter)), nil
}

func (m *Memory) filterLocked(filter workload.AssignmentFilter) []workload.Assignment {
	caseSet := make(map[workload.CaseID]bool, len(filter.CaseIDs))
	for _, id := range filter.CaseIDs {
		caseSet[id] = true
	}
	idSet := make(map[workload.AssignmentID]bool, len(filter.IDs))
	for _, id := range filter.IDs {
		idSet[id] = true
	}

	var out []workload.Assignment
	for _, a := range m.assignments {
		if filter.WorkerID != nil && a.WorkerID != *filter.WorkerID {
			continue
		}
		if filter.Status != nil && a.Status != *filter.Status {
			continue
		}
		if len(caseSet) > 0 && !caseSet[a.CaseID] {
			continue
		}
		if len(idSet) > 0 && !idSet[a.ID] {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AssignedAt.Equal(out[j].AssignedAt) {
			return out[i].AssignedAt.Before(out[j].AssignedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *Memory) UpdateAssignments(_ context.Context, ids []workload.AssignmentID, fields workload.AssignmentUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		a, ok := m.assignments[id]
		if !ok {
			continue
		}
		a.WorkerID = fields.WorkerID
		a.Type = fields.Type
		a.AssignedBy = fields.AssignedBy
		a.AssignedAt = fields.AssignedAt
		m.assignments[id] = a
	}
	return nil
}

func (m *Memory) InsertAssignments(_ context.Context, rows []workload.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range rows {
		if _, exists := m.assignments[a.ID]; exists {
			return fmt.Errorf("assignment %s already exists", a.ID)
		}
	}
	for _, a := range rows {
		m.assignments[a.ID] = a
	}
	return nil
}

// =============================================================================
// FOLLOW-UPS AND CASES
// =============================================================================

func (m *Memory) ListFollowUps(_ context.Context, filter workload.FollowUpFilter) ([]workload.FollowUp, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []workload.FollowUp
	for _, f := range m.followUps {
		if !slices.Contains(filter.CaseIDs, f.CaseID) {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, f.Status) {
			continue
		}
		if len(filter.Priorities) > 0 && !slices.Contains(filter.Priorities, f.Priority) {
			continue
		}
		if filter.ReviewedBefore != nil && f.LastReviewedAt != nil && !f.LastReviewedAt.Before(*filter.ReviewedBefore) {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

func (m *Memory) UpdateCaseOwner(_ context.Context, ids []workload.CaseID, worker workload.WorkerID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		c, ok := m.cases[id]
		if !ok {
			c = workload.Case{ID: id}
		}
		owner := worker
		c.OwnerID = &owner
		m.cases[id] = c
	}
	return nil
}

// =============================================================================
// HISTORY
// =============================================================================

func (m *Memory) AppendHistory(_ context.Context, entry workload.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, entry)
	return nil
}

func (m *Memory) QueryHistory(_ context.Context, filter workload.HistoryFilter) ([]workload.HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []workload.HistoryEntry
	// Newest first; append order breaks CreatedAt ties.
	for i := len(m.history) - 1; i >= 0; i-- {
		e := m.history[i]
		if filter.SubjectID != nil && e.SubjectID != *filter.SubjectID {
			continue
		}
		if len(filter.Actions) > 0 && !slices.Contains(filter.Actions, e.Action) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}
