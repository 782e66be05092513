/*
Package workload provides the caseload distribution and rebalancing engine.

PURPOSE:
  Assigns cases (units of review work) to a pool of active workers and
  re-derives a fair distribution whenever the pool or the backlog changes:
  worker deactivation, worker onboarding, bulk import, manual rebalance.

KEY CONCEPTS IN THIS FILE (types.go):
  - Worker: a human operator who can hold active assignments
  - Case: a unit of work, with a denormalized owner pointer
  - Assignment: the record binding a case to a worker
  - FollowUp: a review obligation on a case (read-only input)
  - HistoryEntry: immutable audit record, used to reverse deactivations

TWO RECORDS PER CASE:
  Ownership lives in two places: the active Assignment row and the case's
  OwnerID pointer. They must agree. The store offers no cross-table
  transactions, so every ownership change goes through one Reassigner call
  (see applier.go) that writes the assignment rows first and the owner
  pointer second.

SEE ALSO:
  - store.go: Persistence capability surface
  - planner.go: Distribution policies
  - engine.go: The five public triggers
*/
package workload

import "time"

// =============================================================================
// IDENTIFIERS
// =============================================================================

type WorkerID string
type CaseID string
type AssignmentID string
type HistoryID string

// SystemActor is recorded as AssignedBy for every automated redistribution.
const SystemActor = "system"

// =============================================================================
// WORKER
// =============================================================================

type WorkerStatus string

const (
	WorkerActive   WorkerStatus = "active"
	WorkerInactive WorkerStatus = "inactive"
)

// Worker is provisioned externally. The engine only flips its status.
type Worker struct {
	ID     WorkerID
	Email  string
	Status WorkerStatus
}

// =============================================================================
// CASE
// =============================================================================

// Case is a unit of work. OwnerID must equal the WorkerID of its single
// active Assignment, if one exists.
type Case struct {
	ID      CaseID
	Title   string
	OwnerID *WorkerID
}

// =============================================================================
// ASSIGNMENT
// =============================================================================

type AssignmentStatus string

const (
	AssignmentActive    AssignmentStatus = "active"
	AssignmentCompleted AssignmentStatus = "completed"
	AssignmentCancelled AssignmentStatus = "cancelled"
)

// AssignmentType records the provenance of the latest (re)assignment.
type AssignmentType string

const (
	TypeManual              AssignmentType = "manual"
	TypeRoundRobinRebalance AssignmentType = "round_robin_rebalance"
	TypePercentageSkim      AssignmentType = "percentage_skim"
	TypeImport              AssignmentType = "import"
	TypeManualRebalance     AssignmentType = "manual_rebalance"
	TypeRestoration         AssignmentType = "restoration"
)

type Assignment struct {
	ID         AssignmentID
	CaseID     CaseID
	WorkerID   WorkerID
	Status     AssignmentStatus
	Priority   int // higher moves first
	AssignedAt time.Time
	Type       AssignmentType
	AssignedBy string
}

// IsActive reports whether the assignment is the case's open assignment.
func (a Assignment) IsActive() bool {
	return a.Status == AssignmentActive
}

// =============================================================================
// FOLLOW-UP
// =============================================================================

type FollowUpStatus string

const (
	FollowUpPending    FollowUpStatus = "pending"
	FollowUpInProgress FollowUpStatus = "in_progress"
	FollowUpDone       FollowUpStatus = "done"
)

type FollowUpPriority string

const (
	FollowUpHigh   FollowUpPriority = "high"
	FollowUpMedium FollowUpPriority = "medium"
	FollowUpLow    FollowUpPriority = "low"
)

// FollowUp is never mutated by the engine.
type FollowUp struct {
	ID             string
	CaseID         CaseID
	Status         FollowUpStatus
	Priority       FollowUpPriority
	LastReviewedAt *time.Time
}

// =============================================================================
// HISTORY
// =============================================================================

type HistoryAction string

const (
	ActionDeactivationRedistribution HistoryAction = "deactivation_redistribution"
	ActionReactivationRestore        HistoryAction = "reactivation_restore"
	ActionOnboardingSkim             HistoryAction = "onboarding_skim"
	ActionManualRebalance            HistoryAction = "manual_rebalance"
)

// HistoryEntry is append-only.
type HistoryEntry struct {
	ID HistoryID

	// ActorID is the worker/admin who triggered the operation; nil = system.
	ActorID *WorkerID

	// SubjectID is the worker the operation was about (deactivated,
	// reactivated, onboarded). Empty for roster-wide operations.
	SubjectID WorkerID

	Action    HistoryAction
	Details   HistoryDetails
	CreatedAt time.Time
}

// HistoryDetails is the payload stored with each entry.
type HistoryDetails struct {
	AssignmentIDs []AssignmentID   `json:"assignment_ids"`
	Moves         []Move           `json:"moves,omitempty"`
	Counts        map[WorkerID]int `json:"counts,omitempty"`
}

// Move is one recorded ownership change.
type Move struct {
	AssignmentID AssignmentID `json:"assignment_id"`
	CaseID       CaseID       `json:"case_id"`
	From         WorkerID     `json:"from"`
	To           WorkerID     `json:"to"`
}

// =============================================================================
// WORKLOAD
// =============================================================================

// WorkloadStat is derived and never cached across calls.
type WorkloadStat struct {
	WorkerID  WorkerID
	Email     string
	OpenItems int
}
