/*
store.go - Persistence capability surface consumed by the engine

PURPOSE:
  The engine does not implement storage. It needs a small set of per-table
  operations and nothing else. In particular there are NO cross-table
  transactions: every call succeeds or fails on its own.

KEY INTERFACES:
  RosterStore:     Workers (list, flip status)
  AssignmentStore: Assignment rows (list, count, update, insert)
  FollowUpStore:   Review obligations (read-only)
  CaseStore:       Case owner pointer
  HistoryStore:    Append-only audit trail
  Store:           All of the above
  Reassigner:      Optional combined write for one destination group

ORDERING:
  ListWorkers returns workers ordered by ID. That order is the roster order
  used for every tie-break in the planner.

IMPLEMENTATIONS:
  - workload/store/memory.go: In-memory for testing
  - store/sqlite/sqlite.go: SQLite, also implements Reassigner

SEE ALSO:
  - applier.go: The only writer of assignments and owner pointers
*/
package workload

import (
	"context"
	"time"
)

// =============================================================================
// FILTERS
// =============================================================================

type WorkerFilter struct {
	Status *WorkerStatus
}

// AssignmentFilter selects assignment rows. Zero fields do not filter.
type AssignmentFilter struct {
	WorkerID *WorkerID
	Status   *AssignmentStatus
	CaseIDs  []CaseID
	IDs      []AssignmentID
}

// FollowUpFilter selects follow-ups whose case is in CaseIDs, whose status
// and priority are in the given sets, and whose last review is either
// missing or strictly before ReviewedBefore.
type FollowUpFilter struct {
	CaseIDs        []CaseID
	Statuses       []FollowUpStatus
	Priorities     []FollowUpPriority
	ReviewedBefore *time.Time
}

// HistoryFilter is always answered newest-first.
type HistoryFilter struct {
	SubjectID *WorkerID
	Actions   []HistoryAction
	Limit     int // 0 = unlimited
}

// AssignmentUpdate is the set of fields written on reassignment.
type AssignmentUpdate struct {
	WorkerID   WorkerID
	Type       AssignmentType
	AssignedBy string
	AssignedAt time.Time
}

// =============================================================================
// STORE INTERFACES
// =============================================================================

type RosterStore interface {
	ListWorkers(ctx context.Context, filter WorkerFilter) ([]Worker, error)
	GetWorker(ctx context.Context, id WorkerID) (*Worker, error) // nil, nil if missing
	UpdateWorkerStatus(ctx context.Context, id WorkerID, status WorkerStatus) error
}

type AssignmentStore interface {
	// ListAssignments returns rows ordered by AssignedAt, then ID.
	ListAssignments(ctx context.Context, filter AssignmentFilter) ([]Assignment, error)
	CountAssignments(ctx context.Context, filter AssignmentFilter) (int, error)
	UpdateAssignments(ctx context.Context, ids []AssignmentID, fields AssignmentUpdate) error
	InsertAssignments(ctx context.Context, rows []Assignment) error
}

type FollowUpStore interface {
	ListFollowUps(ctx context.Context, filter FollowUpFilter) ([]FollowUp, error)
}

type CaseStore interface {
	UpdateCaseOwner(ctx context.Context, ids []CaseID, worker WorkerID) error
}

type HistoryStore interface {
	AppendHistory(ctx context.Context, entry HistoryEntry) error
	QueryHistory(ctx context.Context, filter HistoryFilter) ([]HistoryEntry, error)
}

// Store is the full capability surface.
type Store interface {
	RosterStore
	AssignmentStore
	FollowUpStore
	CaseStore
	HistoryStore
}

// =============================================================================
// REASSIGNER - One logical ownership change, two physical records
// =============================================================================

// ReassignBatch is every write needed to move one group of cases to one
// worker: updates for existing assignment rows, inserts for new ones, and
// the owner pointer of every case in the group.
type ReassignBatch struct {
	To      WorkerID
	Update  []AssignmentID
	Insert  []Assignment
	CaseIDs []CaseID
	Fields  AssignmentUpdate
}

// Reassigner is implemented by stores that can write a whole batch in one
// call. Stores without it get pairedReassigner.
type Reassigner interface {
	Reassign(ctx context.Context, batch ReassignBatch) error
}

// pairedReassigner issues the assignment writes and then the owner pointer
// write. A failure between the two leaves the assignment pointing at the
// new worker and the case pointer stale.
type pairedReassigner struct {
	assignments AssignmentStore
	cases       CaseStore
}

func (p pairedReassigner) Reassign(ctx context.Context, b ReassignBatch) error {
	if len(b.Update) > 0 {
		if err := p.assignments.UpdateAssignments(ctx, b.Update, b.Fields); err != nil {
			return writeErr("update assignments", err)
		}
	}
	if len(b.Insert) > 0 {
		if err := p.assignments.InsertAssignments(ctx, b.Insert); err != nil {
			return writeErr("insert assignments", err)
		}
	}
	if len(b.CaseIDs) > 0 {
		if err := p.cases.UpdateCaseOwner(ctx, b.CaseIDs, b.To); err != nil {
			return writeErr("update case owner", err)
		}
	}
	return nil
}

// reassignerFor returns the store's own Reassigner when it has one.
func reassignerFor(s Store) Reassigner {
	if r, ok := s.(Reassigner); ok {
		return storeReassigner{r}
	}
	return pairedReassigner{assignments: s, cases: s}
}

// storeReassigner tags errors from a native Reassigner as writes.
type storeReassigner struct {
	r Reassigner
}

func (s storeReassigner) Reassign(ctx context.Context, b ReassignBatch) error {
	return writeErr("reassign", s.r.Reassign(ctx, b))
}
