/*
roster.go - Roster reader and load snapshot

PURPOSE:
  The roster is the ordered list of workers eligible to receive work. Its
  order (by worker ID, as returned by the store) is the tie-break order for
  every policy in planner.go.

  The load snapshot is each roster worker's count of active assignments.
  It is recomputed on every call and never cached.

SEE ALSO:
  - planner.go: Consumes Roster and LoadSnapshot
*/
package workload

import "context"

// Roster is an ordered set of workers.
type Roster []Worker

// IDs returns the worker IDs in roster order.
func (r Roster) IDs() []WorkerID {
	ids := make([]WorkerID, len(r))
	for i, w := range r {
		ids[i] = w.ID
	}
	return ids
}

// Contains reports whether id is on the roster.
func (r Roster) Contains(id WorkerID) bool {
	for _, w := range r {
		if w.ID == id {
			return true
		}
	}
	return false
}

// Without returns the roster minus the given workers, order preserved.
func (r Roster) Without(ids ...WorkerID) Roster {
	out := make(Roster, 0, len(r))
	for _, w := range r {
		excluded := false
		for _, id := range ids {
			if w.ID == id {
				excluded = true
				break
			}
		}
		if !excluded {
			out = append(out, w)
		}
	}
	return out
}

// ReadRoster lists active workers, minus any excluded IDs.
func ReadRoster(ctx context.Context, s RosterStore, exclude ...WorkerID) (Roster, error) {
	status := WorkerActive
	workers, err := s.ListWorkers(ctx, WorkerFilter{Status: &status})
	if err != nil {
		return nil, readErr("list workers", err)
	}
	return Roster(workers).Without(exclude...), nil
}

// LoadSnapshot maps each worker to its open assignment count.
type LoadSnapshot map[WorkerID]int

// Clone returns an independent copy, used to seed mutable counters.
func (l LoadSnapshot) Clone() LoadSnapshot {
	c := make(LoadSnapshot, len(l))
	for k, v := range l {
		c[k] = v
	}
	return c
}

// ReadLoad counts active assignments for every roster worker.
func ReadLoad(ctx context.Context, s AssignmentStore, roster Roster) (LoadSnapshot, error) {
	active := AssignmentActive
	load := make(LoadSnapshot, len(roster))
	for _, w := range roster {
		id := w.ID
		n, err := s.CountAssignments(ctx, AssignmentFilter{WorkerID: &id, Status: &active})
		if err != nil {
			return nil, readErr("count assignments", err)
		}
		load[id] = n
	}
	return load, nil
}
