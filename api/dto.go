/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, keeping the engine's
  Go types out of the wire contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Trigger results

TYPES:
  Roster:     WorkerDTO, CreateWorkerRequest, WorkloadDTO
  Cases:      CaseDTO, ImportRequest, ImportCaseDTO
  Triggers:   DeactivationResponse, RestoreResponse, SkimResponse,
              ImportResponse, RebalanceResponse
  History:    HistoryEntryDTO
  Scenarios:  ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/caseload-engine/workload"
)

// =============================================================================
// ROSTER
// =============================================================================

type WorkerDTO struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Status string `json:"status"`
}

// CreateWorkerRequest provisions a worker (dev/demo only).
type CreateWorkerRequest struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type WorkloadDTO struct {
	WorkerID  string `json:"worker_id"`
	Email     string `json:"email"`
	OpenItems int    `json:"open_items"`
}

// =============================================================================
// CASES
// =============================================================================

type CaseDTO struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	OwnerID *string `json:"owner_id"`
}

// ImportRequest is a batch of new cases to place.
type ImportRequest struct {
	Cases []ImportCaseDTO `json:"cases"`
}

type ImportCaseDTO struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Priority int    `json:"priority"`
}

// =============================================================================
// TRIGGER RESULTS
// =============================================================================

type DeactivationResponse struct {
	TasksMoved int                      `json:"tasks_moved"`
	ToUsers    map[workload.WorkerID]int `json:"to_users"`
}

type RestoreResponse struct {
	TasksRestored int `json:"tasks_restored"`
}

type SkimResponse struct {
	TasksMoved int                      `json:"tasks_moved"`
	FromUsers  map[workload.WorkerID]int `json:"from_users"`
}

type ImportResponse struct {
	TasksAssigned int                      `json:"tasks_assigned"`
	ByUser        map[workload.WorkerID]int `json:"by_user"`
}

type RebalanceResponse struct {
	TasksMoved int                      `json:"tasks_moved"`
	ByUser     map[workload.WorkerID]int `json:"by_user"`
	Targets    map[workload.WorkerID]int `json:"targets"`
}

// =============================================================================
// HISTORY
// =============================================================================

type HistoryEntryDTO struct {
	ID        string                  `json:"id"`
	ActorID   *string                 `json:"actor_id"`
	SubjectID string                  `json:"subject_id,omitempty"`
	Action    string                  `json:"action"`
	Details   workload.HistoryDetails `json:"details"`
	CreatedAt string                  `json:"created_at"`
}

func ToHistoryDTO(e workload.HistoryEntry) HistoryEntryDTO {
	dto := HistoryEntryDTO{
		ID:        string(e.ID),
		SubjectID: string(e.SubjectID),
		Action:    string(e.Action),
		Details:   e.Details,
		CreatedAt: e.CreatedAt.Format(time.RFC3339),
	}
	if e.ActorID != nil {
		dto.ActorID = strPtr(string(*e.ActorID))
	}
	return dto
}

// =============================================================================
// SCENARIOS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Try         string `json:"try"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}
