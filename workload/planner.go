/*
planner.go - Distribution policies

PURPOSE:
  Maps candidates to destination workers. Planning is pure: no store, no
  clock, no hidden state. Mutable counters are explicit maps owned by the
  caller of each policy function.

POLICIES:
  RoundRobin:     candidate i -> roster[i mod n]. Ignores load.
                  Used for deactivation redistribution.

  LeastLoaded:    per-worker counter seeded from the load snapshot; each
                  candidate goes to the minimum counter (ties: roster
                  order), then that counter is incremented.
                  Used for bulk import.

  FullRebalance:  target[w] = floor(total/n) + 1 for the first total mod n
                  workers, floor(total/n) for the rest. Items above target
                  are trimmed from the tail of each worker's list (by
                  AssignedAt, then ID) and, together with items held by
                  workers off the roster, fill deficits in roster order.
                  Simple, not minimum-disruption.

  Skim:           every candidate goes to the single target worker.

EXAMPLE:
  roster [U1 U2 U3], 7 candidates, RoundRobin:
    U1 U2 U3 U1 U2 U3 U1  ->  U1:3 U2:2 U3:2

SEE ALSO:
  - selector.go: Produces candidates
  - applier.go: Executes plans
*/
package workload

import (
	"fmt"
	"sort"
)

// Policy names a distribution algorithm.
type Policy string

const (
	PolicyRoundRobin    Policy = "round_robin"
	PolicyLeastLoaded   Policy = "least_loaded"
	PolicyFullRebalance Policy = "full_rebalance"
	PolicySkim          Policy = "percentage_skim"
)

// PlanEntry is one (work item, destination) pair.
type PlanEntry struct {
	Candidate
	To WorkerID
}

// Plan is the planner's output plus provenance for the applier.
type Plan struct {
	Policy     Policy
	Type       AssignmentType
	AssignedBy string
	Entries    []PlanEntry

	// Counts is the number of entries per destination worker.
	Counts map[WorkerID]int

	// Targets is set by FullRebalance only.
	Targets map[WorkerID]int

	// Roster is the destination order used for grouping.
	Roster []WorkerID
}

// AssignmentIDs returns the IDs of existing assignments the plan moves.
func (p *Plan) AssignmentIDs() []AssignmentID {
	ids := make([]AssignmentID, 0, len(p.Entries))
	for _, e := range p.Entries {
		if e.AssignmentID != "" {
			ids = append(ids, e.AssignmentID)
		}
	}
	return ids
}

// Moves returns the recorded form of every entry with an assignment ID.
func (p *Plan) Moves() []Move {
	moves := make([]Move, 0, len(p.Entries))
	for _, e := range p.Entries {
		if e.AssignmentID == "" {
			continue
		}
		moves = append(moves, Move{AssignmentID: e.AssignmentID, CaseID: e.CaseID, From: e.Owner, To: e.To})
	}
	return moves
}

// PlanRequest is the input to BuildPlan.
type PlanRequest struct {
	Policy     Policy
	Candidates []Candidate
	Roster     []WorkerID
	Load       LoadSnapshot // LeastLoaded only
	Type       AssignmentType
}

// BuildPlan runs the requested policy. Fails with ErrNoEligibleWorkers on an
// empty roster, whatever the candidate count.
func BuildPlan(req PlanRequest) (*Plan, error) {
	if len(req.Roster) == 0 {
		return nil, ErrNoEligibleWorkers
	}

	plan := &Plan{
		Policy:     req.Policy,
		Type:       req.Type,
		AssignedBy: SystemActor,
		Roster:     append([]WorkerID(nil), req.Roster...),
	}

	switch req.Policy {
	case PolicyRoundRobin:
		plan.Entries = RoundRobin(req.Candidates, req.Roster)
	case PolicyLeastLoaded:
		counters := req.Load.Clone()
		plan.Entries = LeastLoaded(req.Candidates, req.Roster, counters)
	case PolicyFullRebalance:
		plan.Entries, plan.Targets = FullRebalance(req.Candidates, req.Roster)
	case PolicySkim:
		if len(req.Roster) != 1 {
			return nil, fmt.Errorf("skim needs exactly one target worker, got %d", len(req.Roster))
		}
		plan.Entries = Skim(req.Candidates, req.Roster[0])
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, req.Policy)
	}

	plan.Counts = make(map[WorkerID]int)
	for _, e := range plan.Entries {
		plan.Counts[e.To]++
	}
	return plan, nil
}

// =============================================================================
// POLICIES
// =============================================================================

// RoundRobin assigns candidate i to roster[i mod n].
func RoundRobin(candidates []Candidate, roster []WorkerID) []PlanEntry {
	entries := make([]PlanEntry, len(candidates))
	for i, c := range candidates {
		entries[i] = PlanEntry{Candidate: c, To: roster[i%len(roster)]}
	}
	return entries
}

// LeastLoaded assigns each candidate, in input order, to the roster worker
// with the lowest counter, and increments it. counters is mutated; workers
// missing from it start at zero.
func LeastLoaded(candidates []Candidate, roster []WorkerID, counters LoadSnapshot) []PlanEntry {
	entries := make([]PlanEntry, len(candidates))
	for i, c := range candidates {
		best := roster[0]
		for _, w := range roster[1:] {
			if counters[w] < counters[best] {
				best = w
			}
		}
		counters[best]++
		entries[i] = PlanEntry{Candidate: c, To: best}
	}
	return entries
}

// FullRebalance returns the moves needed to bring every roster worker to its
// target, and the targets themselves.
func FullRebalance(candidates []Candidate, roster []WorkerID) ([]PlanEntry, map[WorkerID]int) {
	total, n := len(candidates), len(roster)
	targets := make(map[WorkerID]int, n)
	for i, w := range roster {
		targets[w] = total / n
		if i < total%n {
			targets[w]++
		}
	}

	// Store order is not a contract; trim order is made explicit here.
	sorted := make([]Candidate, total)
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].AssignedAt.Equal(sorted[j].AssignedAt) {
			return sorted[i].AssignedAt.Before(sorted[j].AssignedAt)
		}
		return sorted[i].AssignmentID < sorted[j].AssignmentID
	})

	held := make(map[WorkerID][]Candidate, n)
	var surplus []Candidate
	for _, c := range sorted {
		if _, onRoster := targets[c.Owner]; onRoster {
			held[c.Owner] = append(held[c.Owner], c)
		} else {
			surplus = append(surplus, c)
		}
	}

	for _, w := range roster {
		if extra := len(held[w]) - targets[w]; extra > 0 {
			surplus = append(surplus, held[w][targets[w]:]...)
		}
	}

	var entries []PlanEntry
	for _, w := range roster {
		for deficit := targets[w] - len(held[w]); deficit > 0 && len(surplus) > 0; deficit-- {
			entries = append(entries, PlanEntry{Candidate: surplus[0], To: w})
			surplus = surplus[1:]
		}
	}
	return entries, targets
}

// Skim sends every candidate to target.
func Skim(candidates []Candidate, target WorkerID) []PlanEntry {
	entries := make([]PlanEntry, len(candidates))
	for i, c := range candidates {
		entries[i] = PlanEntry{Candidate: c, To: target}
	}
	return entries
}
