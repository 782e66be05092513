/*
restore.go - Reverses a deactivation redistribution

PURPOSE:
  When a worker becomes active again, reads the most recent deactivation
  entry for that worker and moves back the recorded assignments that are
  still open.

RULES:
  1. No entry: only flip the worker to active, zero restored.
  2. An assignment no longer active is skipped.
  3. An assignment whose current owner differs from the recorded
     destination was touched by a later redistribution and is skipped.
     Entries without moves only get rule 2.
  4. The worker always ends active on success.

SEE ALSO:
  - audit.go: Writes the entries read here
*/
package workload

import "context"

// Restorer moves a reactivated worker's items back.
type Restorer struct {
	Store   Store
	Applier *Applier
	Audit   *AuditRecorder
	Logger  Logger
}

// Restore returns the number of assignments moved back to worker.
func (r *Restorer) Restore(ctx context.Context, worker WorkerID, actor *WorkerID) (int, error) {
	entries, err := r.Store.QueryHistory(ctx, HistoryFilter{
		SubjectID: &worker,
		Actions:   []HistoryAction{ActionDeactivationRedistribution},
		Limit:     1,
	})
	if err != nil {
		return 0, readErr("query history", err)
	}

	restored := 0
	if len(entries) == 0 || len(entries[0].Details.AssignmentIDs) == 0 {
		r.Logger.Info("no deactivation history, reactivating only", "worker", worker)
	} else {
		candidates, err := r.stillRestorable(ctx, entries[0])
		if err != nil {
			return 0, err
		}

		plan, err := BuildPlan(PlanRequest{
			Policy:     PolicySkim,
			Candidates: candidates,
			Roster:     []WorkerID{worker},
			Type:       TypeRestoration,
		})
		if err != nil {
			return 0, err
		}

		res, err := r.Applier.Apply(ctx, plan)
		if err != nil {
			return res.Moved, err
		}
		restored = res.Moved

		if restored > 0 {
			r.Audit.Record(ctx, ActionReactivationRestore, actor, worker, plan)
		}
		r.Logger.Info("restored assignments",
			"worker", worker,
			"recorded", len(entries[0].Details.AssignmentIDs),
			"restored", restored,
		)
	}

	if err := r.Store.UpdateWorkerStatus(ctx, worker, WorkerActive); err != nil {
		return restored, writeErr("update worker status", err)
	}
	return restored, nil
}

func (r *Restorer) stillRestorable(ctx context.Context, entry HistoryEntry) ([]Candidate, error) {
	rows, err := r.Store.ListAssignments(ctx, AssignmentFilter{IDs: entry.Details.AssignmentIDs})
	if err != nil {
		return nil, readErr("list assignments", err)
	}

	movedTo := make(map[AssignmentID]WorkerID, len(entry.Details.Moves))
	for _, m := range entry.Details.Moves {
		movedTo[m.AssignmentID] = m.To
	}

	var out []Candidate
	for _, a := range rows {
		if !a.IsActive() {
			continue
		}
		if to, ok := movedTo[a.ID]; ok && to != a.WorkerID {
			continue
		}
		out = append(out, candidateFrom(a))
	}
	return out, nil
}
