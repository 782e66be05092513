/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
  Provides pre-built rosters and backlogs that make each trigger easy to
  try by hand. Every scenario starts from an empty database.

AVAILABLE SCENARIOS:
  deactivation:  U4 holds 7 due items; deactivating U4 spreads them
                 round-robin over U1, U2, U3
  onboarding:    U1 holds 10 items of mixed priority; onboarding U9
                 skims ceil(10 × fraction) of them
  import:        Loads U1=0, U2=1, U3=0; import a batch of 5 cases
  uneven:        Loads U1=9, U2=2, U3=0 plus one orphaned item; rebalance

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create workers
 3. Create cases with active assignments
 4. Add follow-ups so the daily review has something due

USAGE VIA API:
	POST /api/scenarios/load
	{"scenario_id": "deactivation"}

NOTE:
	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: The triggers each scenario demonstrates
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/caseload-engine/store/sqlite"
	"github.com/warp/caseload-engine/workload"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "deactivation",
		Name:        "Deactivation",
		Description: "U4 has 7 items due for review today; U1-U3 are active",
		Try:         "POST /api/workers/U4/deactivate, then /reactivate",
	},
	{
		ID:          "onboarding",
		Name:        "Onboarding Skim",
		Description: "U1 holds 10 items, U2 holds 3; U9 is new with an empty queue",
		Try:         "POST /api/workers/U9/onboard",
	},
	{
		ID:          "import",
		Name:        "Bulk Import",
		Description: "Loads U1=0, U2=1, U3=0 before a 5-case import",
		Try:         `POST /api/cases/import {"cases":[{"id":"N1"},{"id":"N2"},{"id":"N3"},{"id":"N4"},{"id":"N5"}]}`,
	},
	{
		ID:          "uneven",
		Name:        "Uneven Backlog",
		Description: "Loads U1=9, U2=2, U3=0 plus an item held by inactive U8",
		Try:         "POST /api/admin/rebalance",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the database and seeds the requested scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := LoadScenario(r.Context(), h.Store, req.ScenarioID, time.Now().UTC()); err != nil {
		if errors.Is(err, errUnknownScenario) {
			writeError(w, http.StatusBadRequest, "Unknown scenario", fmt.Errorf("%q", req.ScenarioID))
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = req.ScenarioID
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "loaded",
		"scenario": req.ScenarioID,
	})
}

var errUnknownScenario = errors.New("unknown scenario")

// LoadScenario resets store and seeds scenario id. Assignment times are
// spread over the days before now.
func LoadScenario(ctx context.Context, store *sqlite.Store, id string, now time.Time) error {
	var load func(context.Context, *seeder) error
	switch id {
	case "deactivation":
		load = loadDeactivationScenario
	case "onboarding":
		load = loadOnboardingScenario
	case "import":
		load = loadImportScenario
	case "uneven":
		load = loadUnevenScenario
	default:
		return errUnknownScenario
	}

	if err := store.Reset(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return load(ctx, &seeder{store: store, base: now.AddDate(0, 0, -30)})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func loadDeactivationScenario(ctx context.Context, s *seeder) error {
	if err := s.workers(ctx, workload.WorkerActive, "U1", "U2", "U3", "U4"); err != nil {
		return err
	}
	if err := s.queue(ctx, "U4", 7, true); err != nil {
		return err
	}
	// Not due: low priority follow-ups stay with U4.
	return s.queue(ctx, "U4", 2, false)
}

func loadOnboardingScenario(ctx context.Context, s *seeder) error {
	if err := s.workers(ctx, workload.WorkerActive, "U1", "U2", "U9"); err != nil {
		return err
	}
	if err := s.queue(ctx, "U1", 10, true); err != nil {
		return err
	}
	return s.queue(ctx, "U2", 3, true)
}

func loadImportScenario(ctx context.Context, s *seeder) error {
	if err := s.workers(ctx, workload.WorkerActive, "U1", "U2", "U3"); err != nil {
		return err
	}
	return s.queue(ctx, "U2", 1, true)
}

func loadUnevenScenario(ctx context.Context, s *seeder) error {
	if err := s.workers(ctx, workload.WorkerActive, "U1", "U2", "U3"); err != nil {
		return err
	}
	if err := s.workers(ctx, workload.WorkerInactive, "U8"); err != nil {
		return err
	}
	if err := s.queue(ctx, "U1", 9, true); err != nil {
		return err
	}
	if err := s.queue(ctx, "U2", 2, true); err != nil {
		return err
	}
	return s.queue(ctx, "U8", 1, true)
}

// =============================================================================
// SEEDING HELPERS
// =============================================================================

type seeder struct {
	store *sqlite.Store
	base  time.Time
	seq   int
}

func (s *seeder) workers(ctx context.Context, status workload.WorkerStatus, ids ...workload.WorkerID) error {
	for _, id := range ids {
		w := workload.Worker{ID: id, Email: fmt.Sprintf("%s@example.com", id), Status: status}
		if err := s.store.SaveWorker(ctx, w); err != nil {
			return err
		}
	}
	return nil
}

// queue gives worker n open cases. Due cases get a high-priority pending
// follow-up that was never reviewed; the others a low-priority one.
func (s *seeder) queue(ctx context.Context, worker workload.WorkerID, n int, due bool) error {
	for i := 0; i < n; i++ {
		s.seq++
		caseID := workload.CaseID(fmt.Sprintf("C%03d", s.seq))

		if err := s.store.SaveCase(ctx, workload.Case{ID: caseID, Title: fmt.Sprintf("Case %d", s.seq)}); err != nil {
			return err
		}
		if err := s.store.SaveAssignment(ctx, workload.Assignment{
			ID:         workload.AssignmentID(fmt.Sprintf("A%03d", s.seq)),
			CaseID:     caseID,
			WorkerID:   worker,
			Status:     workload.AssignmentActive,
			Priority:   s.seq % 4,
			AssignedAt: s.base.Add(time.Duration(s.seq) * time.Hour),
			Type:       workload.TypeManual,
			AssignedBy: "seed",
		}); err != nil {
			return err
		}

		priority := workload.FollowUpLow
		if due {
			priority = workload.FollowUpHigh
		}
		if err := s.store.SaveFollowUp(ctx, workload.FollowUp{
			ID:       fmt.Sprintf("F%03d", s.seq),
			CaseID:   caseID,
			Status:   workload.FollowUpPending,
			Priority: priority,
		}); err != nil {
			return err
		}
	}
	return nil
}
