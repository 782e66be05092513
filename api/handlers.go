/*
handlers.go - HTTP API handlers for the caseload engine

PURPOSE:
  Exposes the distribution engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to workload.Engine.

ENDPOINTS:
  Workers:
    GET    /api/workers                    List workers
    POST   /api/workers                    Provision worker (dev/demo)
    POST   /api/workers/{id}/deactivate    Round-robin redistribution
    POST   /api/workers/{id}/reactivate    Restore from last deactivation
    POST   /api/workers/{id}/onboard       Percentage skim into worker
    GET    /api/workers/{id}/history       History entries, newest first

  Cases:
    GET    /api/cases                      List cases with owners
    POST   /api/cases/import               Least-loaded placement

  Admin:
    POST   /api/admin/rebalance            Full rebalance
    GET    /api/workload                   Open items per active worker

ACTOR:
  The triggering user is read from the X-Actor-ID header. Missing means
  the system acted.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid input (bad JSON, empty import, bad fraction)
  - 404: Unknown worker
  - 409: No eligible workers
  - 500: Store failures, partial apply

SECURITY NOTE:
  No authentication. X-Actor-ID is trusted as sent.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/warp/caseload-engine/store/sqlite"
	"github.com/warp/caseload-engine/workload"
)

// ActorHeader names the user who triggered an operation.
const ActorHeader = "X-Actor-ID"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *workload.Engine
	Store  *sqlite.Store

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler.
func NewHandler(engine *workload.Engine, store *sqlite.Store) *Handler {
	return &Handler{Engine: engine, Store: store}
}

// =============================================================================
// WORKER HANDLERS
// =============================================================================

// ListWorkers returns every worker, active or not.
func (h *Handler) ListWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := h.Store.ListWorkers(r.Context(), workload.WorkerFilter{})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list workers", err)
		return
	}

	dtos := make([]WorkerDTO, len(workers))
	for i, wk := range workers {
		dtos[i] = WorkerDTO{ID: string(wk.ID), Email: wk.Email, Status: string(wk.Status)}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateWorker provisions an active worker.
func (h *Handler) CreateWorker(w http.ResponseWriter, r *http.Request) {
	var req CreateWorkerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		writeError(w, http.StatusBadRequest, "Worker id is required", nil)
		return
	}

	wk := workload.Worker{ID: workload.WorkerID(req.ID), Email: req.Email, Status: workload.WorkerActive}
	if err := h.Store.SaveWorker(r.Context(), wk); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save worker", err)
		return
	}
	writeJSON(w, http.StatusCreated, WorkerDTO{ID: req.ID, Email: req.Email, Status: string(wk.Status)})
}

// DeactivateWorker redistributes the worker's due items and marks them inactive.
// POST /api/workers/{id}/deactivate
func (h *Handler) DeactivateWorker(w http.ResponseWriter, r *http.Request) {
	id := workload.WorkerID(chi.URLParam(r, "id"))

	res, err := h.Engine.DeactivateWorker(r.Context(), id, actorFrom(r))
	if err != nil {
		writeEngineError(w, "Failed to deactivate worker", err)
		return
	}
	writeJSON(w, http.StatusOK, DeactivationResponse{TasksMoved: res.TasksMoved, ToUsers: nonNil(res.ToUsers)})
}

// ReactivateWorker restores the worker's items and marks them active.
// POST /api/workers/{id}/reactivate
func (h *Handler) ReactivateWorker(w http.ResponseWriter, r *http.Request) {
	id := workload.WorkerID(chi.URLParam(r, "id"))

	res, err := h.Engine.ReactivateWorker(r.Context(), id, actorFrom(r))
	if err != nil {
		writeEngineError(w, "Failed to reactivate worker", err)
		return
	}
	writeJSON(w, http.StatusOK, RestoreResponse{TasksRestored: res.TasksRestored})
}

// OnboardWorker skims items from every other active worker.
// POST /api/workers/{id}/onboard
func (h *Handler) OnboardWorker(w http.ResponseWriter, r *http.Request) {
	id := workload.WorkerID(chi.URLParam(r, "id"))

	res, err := h.Engine.OnboardWorker(r.Context(), id, actorFrom(r))
	if err != nil {
		writeEngineError(w, "Failed to onboard worker", err)
		return
	}
	writeJSON(w, http.StatusOK, SkimResponse{TasksMoved: res.TasksMoved, FromUsers: nonNil(res.FromUsers)})
}

// GetHistory returns history entries about a worker.
// GET /api/workers/{id}/history?limit=N
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id := workload.WorkerID(chi.URLParam(r, "id"))

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	entries, err := h.Engine.History(r.Context(), id, limit)
	if err != nil {
		writeEngineError(w, "Failed to read history", err)
		return
	}

	dtos := make([]HistoryEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = ToHistoryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// CASE HANDLERS
// =============================================================================

// ListCases returns every case with its owner.
func (h *Handler) ListCases(w http.ResponseWriter, r *http.Request) {
	cases, err := h.Store.ListCases(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list cases", err)
		return
	}

	dtos := make([]CaseDTO, len(cases))
	for i, c := range cases {
		dtos[i] = CaseDTO{ID: string(c.ID), Title: c.Title}
		if c.OwnerID != nil {
			dtos[i].OwnerID = strPtr(string(*c.OwnerID))
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ImportCases records the batch as unowned cases, then places them. The
// batch is checked first so a refused import writes nothing. A case left
// unowned by an earlier failed import may be imported again.
// POST /api/cases/import
func (h *Handler) ImportCases(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	items := make([]workload.ImportItem, 0, len(req.Cases))
	for _, c := range req.Cases {
		if c.ID == "" {
			writeError(w, http.StatusBadRequest, "Every case needs an id", nil)
			return
		}
		items = append(items, workload.ImportItem{CaseID: workload.CaseID(c.ID), Priority: c.Priority})
	}
	if err := h.Engine.ValidateImport(ctx, items); err != nil {
		writeEngineError(w, "Import refused", err)
		return
	}

	for _, c := range req.Cases {
		existing, err := h.Store.GetCase(ctx, workload.CaseID(c.ID))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to check case", err)
			return
		}
		if existing != nil {
			continue
		}
		if err := h.Store.SaveCase(ctx, workload.Case{ID: workload.CaseID(c.ID), Title: c.Title}); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save case", err)
			return
		}
	}

	res, err := h.Engine.DistributeImport(ctx, items, actorFrom(r))
	if err != nil {
		writeEngineError(w, "Failed to distribute import", err)
		return
	}
	writeJSON(w, http.StatusOK, ImportResponse{TasksAssigned: res.TasksAssigned, ByUser: nonNil(res.ByUser)})
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// Rebalance evens out the active backlog.
// POST /api/admin/rebalance
func (h *Handler) Rebalance(w http.ResponseWriter, r *http.Request) {
	res, err := h.Engine.Rebalance(r.Context(), actorFrom(r))
	if err != nil {
		writeEngineError(w, "Failed to rebalance", err)
		return
	}
	writeJSON(w, http.StatusOK, RebalanceResponse{
		TasksMoved: res.TasksMoved,
		ByUser:     nonNil(res.ByUser),
		Targets:    nonNil(res.Targets),
	})
}

// GetWorkload returns the open item count of every active worker.
// GET /api/workload
func (h *Handler) GetWorkload(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Engine.Workload(r.Context())
	if err != nil {
		writeEngineError(w, "Failed to compute workload", err)
		return
	}

	dtos := make([]WorkloadDTO, len(stats))
	for i, s := range stats {
		dtos[i] = WorkloadDTO{WorkerID: string(s.WorkerID), Email: s.Email, OpenItems: s.OpenItems}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ResetDatabase clears all data (dev only).
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// HELPERS
// =============================================================================

func actorFrom(r *http.Request) *workload.WorkerID {
	v := strings.TrimSpace(r.Header.Get(ActorHeader))
	if v == "" {
		return nil
	}
	id := workload.WorkerID(v)
	return &id
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case workload.IsClientError(err):
		return http.StatusBadRequest
	case workload.IsNotFound(err):
		return http.StatusNotFound
	case workload.IsConflict(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeEngineError reports partial application alongside the cause.
func writeEngineError(w http.ResponseWriter, message string, err error) {
	resp := ErrorResponse{Error: message, Details: err.Error()}

	var applyErr *workload.ApplyError
	if errors.As(err, &applyErr) {
		resp.Details = map[string]any{
			"cause":         err.Error(),
			"worker":        applyErr.Worker,
			"applied_items": applyErr.Applied,
		}
	}
	writeJSON(w, statusFor(err), resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func nonNil(m map[workload.WorkerID]int) map[workload.WorkerID]int {
	if m == nil {
		return map[workload.WorkerID]int{}
	}
	return m
}

func strPtr(s string) *string {
	return &s
}
