/*
audit.go - Best-effort history recorder

PURPOSE:
  Appends one immutable HistoryEntry per reversible operation, after its
  plan has been applied. The entry carries the moved assignment IDs and
  each move's source and destination, which is what the restorer needs to
  reverse a deactivation.

BEST EFFORT:
  A failed append is logged and counted, never returned. The plan is
  already written and is not rolled back. Consequently the restorer must
  tolerate a missing entry.

SEE ALSO:
  - restore.go: Reads these entries back
*/
package workload

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuditRecorder appends history entries.
type AuditRecorder struct {
	Store    HistoryStore
	Logger   Logger
	Recorder Recorder
	Now      func() time.Time
}

// Record appends an entry for the applied plan. Failures are logged only.
func (r *AuditRecorder) Record(ctx context.Context, action HistoryAction, actor *WorkerID, subject WorkerID, plan *Plan) {
	entry := HistoryEntry{
		ID:        HistoryID(uuid.NewString()),
		ActorID:   actor,
		SubjectID: subject,
		Action:    action,
		Details: HistoryDetails{
			AssignmentIDs: plan.AssignmentIDs(),
			Moves:         plan.Moves(),
			Counts:        plan.Counts,
		},
		CreatedAt: r.now(),
	}

	if err := r.Store.AppendHistory(ctx, entry); err != nil {
		r.Logger.Error("history append failed",
			"action", action,
			"subject", subject,
			"assignments", len(entry.Details.AssignmentIDs),
			"error", err,
			"kind", ErrHistoryWrite,
		)
		r.Recorder.RecordHistoryFailure(action)
	}
}

func (r *AuditRecorder) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}
