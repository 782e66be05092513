/*
applier.go - Executes a plan against the store

PURPOSE:
  Groups plan entries by destination worker and issues one Reassign per
  group: assignment rows first, then the case owner pointer, scoped to that
  group's IDs. Every update is scoped to an explicit ID list computed at
  planning time, never to a live filter.

CONCURRENCY:
  Groups touch disjoint cases, so they may run concurrently (Concurrency,
  default 1). The first failure stops groups that have not started yet;
  groups already written stay written.

NOT ATOMIC, NOT IDEMPOTENT:
  - A failed group is not rolled back, nor are the groups before it.
  - Re-applying a plan re-stamps AssignedAt.

SEE ALSO:
  - store.go: Reassigner and the paired fallback
*/
package workload

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Applier writes plans through a Reassigner.
type Applier struct {
	Reassigner  Reassigner
	Concurrency int
	Now         func() time.Time
	NewID       func() AssignmentID
}

// NewApplier builds an applier for the store, preferring its own Reassigner.
func NewApplier(s Store) *Applier {
	return &Applier{Reassigner: reassignerFor(s), Concurrency: 1}
}

// ApplyResult counts what was written.
type ApplyResult struct {
	Moved    int
	ByWorker map[WorkerID]int
}

type group struct {
	to      WorkerID
	entries []PlanEntry
}

// Apply executes the plan. On error the returned result still reports the
// groups that were written, and the error is an *ApplyError.
func (a *Applier) Apply(ctx context.Context, plan *Plan) (ApplyResult, error) {
	result := ApplyResult{ByWorker: make(map[WorkerID]int)}
	groups := groupByDestination(plan)
	if len(groups) == 0 {
		return result, nil
	}

	now := time.Now().UTC()
	if a.Now != nil {
		now = a.Now()
	}
	fields := AssignmentUpdate{Type: plan.Type, AssignedBy: plan.AssignedBy, AssignedAt: now}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	limit := a.Concurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for _, grp := range groups {
		grp := grp
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return &ApplyError{Worker: grp.to, Err: err}
			}
			batch := a.batchFor(grp, fields)
			if err := a.Reassigner.Reassign(gctx, batch); err != nil {
				return &ApplyError{Worker: grp.to, Err: err}
			}
			mu.Lock()
			result.Moved += len(grp.entries)
			result.ByWorker[grp.to] += len(grp.entries)
			mu.Unlock()
			return nil
		})
	}

	err := g.Wait()
	var applyErr *ApplyError
	if errors.As(err, &applyErr) {
		applyErr.Applied = result.Moved
	}
	return result, err
}

func (a *Applier) batchFor(grp group, fields AssignmentUpdate) ReassignBatch {
	fields.WorkerID = grp.to
	batch := ReassignBatch{To: grp.to, Fields: fields}
	for _, e := range grp.entries {
		batch.CaseIDs = append(batch.CaseIDs, e.CaseID)
		if e.AssignmentID != "" {
			batch.Update = append(batch.Update, e.AssignmentID)
			continue
		}
		batch.Insert = append(batch.Insert, Assignment{
			ID:         a.newID(),
			CaseID:     e.CaseID,
			WorkerID:   grp.to,
			Status:     AssignmentActive,
			Priority:   e.Priority,
			AssignedAt: fields.AssignedAt,
			Type:       fields.Type,
			AssignedBy: fields.AssignedBy,
		})
	}
	return batch
}

func (a *Applier) newID() AssignmentID {
	if a.NewID != nil {
		return a.NewID()
	}
	return AssignmentID(uuid.NewString())
}

// groupByDestination keeps roster order, then first-seen order for any
// destination not on the plan's roster.
func groupByDestination(plan *Plan) []group {
	byWorker := make(map[WorkerID][]PlanEntry)
	var order []WorkerID
	seen := make(map[WorkerID]bool)
	for _, w := range plan.Roster {
		if !seen[w] {
			seen[w] = true
			order = append(order, w)
		}
	}
	for _, e := range plan.Entries {
		if !seen[e.To] {
			seen[e.To] = true
			order = append(order, e.To)
		}
		byWorker[e.To] = append(byWorker[e.To], e)
	}

	groups := make([]group, 0, len(byWorker))
	for _, w := range order {
		if entries := byWorker[w]; len(entries) > 0 {
			groups = append(groups, group{to: w, entries: entries})
		}
	}
	return groups
}
