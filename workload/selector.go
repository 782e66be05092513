/*
selector.go - Candidate selection per trigger

PURPOSE:
  Given a trigger, produce the ordered sequence of work items subject to
  redistribution. Each candidate carries the identity of its current
  assignment so the applier can update that row in place.

TRIGGERS:
  DailyReview(worker):      worker's active assignments whose case has an
                            open high/medium follow-up not reviewed today
  Skim(worker, fraction):   ceil(count × fraction) of worker's active
                            assignments, priority desc then oldest first
  ImportCandidates(items):  exactly the caller's batch, no store lookup
  ActiveBacklog():          every active assignment, any worker

ORDER:
  Round-robin is order sensitive, so selection order is part of the
  contract: store order (AssignedAt, then ID) unless stated otherwise.

SEE ALSO:
  - planner.go: Consumes candidates
*/
package workload

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultSkimFraction is used when no fraction is configured.
var DefaultSkimFraction = decimal.RequireFromString("0.2")

// Candidate is a work item eligible to move.
type Candidate struct {
	AssignmentID AssignmentID // empty for imported cases without an assignment
	CaseID       CaseID
	Owner        WorkerID // empty for imported cases
	Priority     int
	AssignedAt   time.Time
}

func candidateFrom(a Assignment) Candidate {
	return Candidate{
		AssignmentID: a.ID,
		CaseID:       a.CaseID,
		Owner:        a.WorkerID,
		Priority:     a.Priority,
		AssignedAt:   a.AssignedAt,
	}
}

// ImportItem is one newly created case handed over by the import flow.
type ImportItem struct {
	CaseID   CaseID
	Priority int
}

// Selector reads candidates from the store.
type Selector struct {
	Store Store
	Now   func() time.Time
}

func (s *Selector) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// DailyReview returns the worker's active assignments that have a pending
// or in-progress, high or medium priority follow-up last reviewed before
// today (or never). Returns an empty slice when the worker holds nothing.
func (s *Selector) DailyReview(ctx context.Context, worker WorkerID) ([]Candidate, error) {
	active := AssignmentActive
	assignments, err := s.Store.ListAssignments(ctx, AssignmentFilter{WorkerID: &worker, Status: &active})
	if err != nil {
		return nil, readErr("list assignments", err)
	}
	if len(assignments) == 0 {
		return []Candidate{}, nil
	}

	caseIDs := make([]CaseID, len(assignments))
	for i, a := range assignments {
		caseIDs[i] = a.CaseID
	}

	today := StartOfDay(s.now())
	followUps, err := s.Store.ListFollowUps(ctx, FollowUpFilter{
		CaseIDs:        caseIDs,
		Statuses:       []FollowUpStatus{FollowUpPending, FollowUpInProgress},
		Priorities:     []FollowUpPriority{FollowUpHigh, FollowUpMedium},
		ReviewedBefore: &today,
	})
	if err != nil {
		return nil, readErr("list follow-ups", err)
	}

	due := make(map[CaseID]bool, len(followUps))
	for _, f := range followUps {
		due[f.CaseID] = true
	}

	// A case with several due follow-ups still moves once.
	out := make([]Candidate, 0, len(due))
	for _, a := range assignments {
		if due[a.CaseID] {
			out = append(out, candidateFrom(a))
			delete(due, a.CaseID)
		}
	}
	return out, nil
}

// Skim returns ceil(count × fraction) of the source worker's active
// assignments.
func (s *Selector) Skim(ctx context.Context, source WorkerID, fraction decimal.Decimal) ([]Candidate, error) {
	if err := ValidateFraction(fraction); err != nil {
		return nil, err
	}
	active := AssignmentActive
	assignments, err := s.Store.ListAssignments(ctx, AssignmentFilter{WorkerID: &source, Status: &active})
	if err != nil {
		return nil, readErr("list assignments", err)
	}
	return SelectSkim(assignments, fraction), nil
}

// ActiveBacklog returns every active assignment, including those held by
// workers no longer on the roster.
func (s *Selector) ActiveBacklog(ctx context.Context) ([]Candidate, error) {
	active := AssignmentActive
	assignments, err := s.Store.ListAssignments(ctx, AssignmentFilter{Status: &active})
	if err != nil {
		return nil, readErr("list assignments", err)
	}
	out := make([]Candidate, len(assignments))
	for i, a := range assignments {
		out[i] = candidateFrom(a)
	}
	return out, nil
}

// ImportCandidates turns an import batch into candidates, input order kept.
func ImportCandidates(items []ImportItem) []Candidate {
	out := make([]Candidate, len(items))
	for i, it := range items {
		out[i] = Candidate{CaseID: it.CaseID, Priority: it.Priority}
	}
	return out
}

// =============================================================================
// SKIM HELPERS
// =============================================================================

// ValidateFraction checks 0 < f <= 1.
func ValidateFraction(f decimal.Decimal) error {
	if !f.IsPositive() || f.GreaterThan(decimal.NewFromInt(1)) {
		return ErrInvalidFraction
	}
	return nil
}

// SkimCount returns ceil(count × fraction), computed exactly.
func SkimCount(count int, fraction decimal.Decimal) int {
	return int(decimal.NewFromInt(int64(count)).Mul(fraction).Ceil().IntPart())
}

// SelectSkim orders assignments by priority descending, then AssignedAt
// ascending (then ID for stability), and takes the first SkimCount.
func SelectSkim(assignments []Assignment, fraction decimal.Decimal) []Candidate {
	sorted := make([]Assignment, len(assignments))
	copy(sorted, assignments)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.AssignedAt.Equal(b.AssignedAt) {
			return a.AssignedAt.Before(b.AssignedAt)
		}
		return a.ID < b.ID
	})

	n := SkimCount(len(sorted), fraction)
	out := make([]Candidate, n)
	for i := 0; i < n; i++ {
		out[i] = candidateFrom(sorted[i])
	}
	return out
}

// StartOfDay truncates t to midnight in t's own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
