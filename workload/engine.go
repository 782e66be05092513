/*
engine.go - The five public triggers

OPERATIONS:
  DeactivateWorker   daily-review items -> round-robin over the others,
                     audited, worker flipped inactive
  ReactivateWorker   restore from the latest deactivation entry,
                     worker flipped active
  OnboardWorker      skim a fraction of every other worker's items into
                     the new worker, audited
  DistributeImport   least-loaded placement of a freshly imported batch;
                     a case repeated in the batch or already actively
                     assigned refuses the whole batch (ValidateImport)
  Rebalance          full rebalance of the active backlog, audited
  Workload           read-only load snapshot of the active roster

EXECUTION MODEL:
  Each call is one sequential unit of work: read roster and candidates,
  plan, apply, then audit. Two calls racing over the same workers are not
  serialized by the engine.

ERRORS:
  Any returned error means some or all of the plan may not have been
  applied. History failures are never returned.
*/
package workload

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Engine wires the selector, planner, applier, audit recorder and restorer.
type Engine struct {
	store        Store
	selector     *Selector
	applier      *Applier
	audit        *AuditRecorder
	restorer     *Restorer
	logger       Logger
	recorder     Recorder
	skimFraction decimal.Decimal
	now          func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(l Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithSkimFraction sets the onboarding fraction. Validated by New.
func WithSkimFraction(f decimal.Decimal) Option {
	return func(e *Engine) { e.skimFraction = f }
}

// WithApplyConcurrency bounds concurrent destination groups.
func WithApplyConcurrency(n int) Option {
	return func(e *Engine) { e.applier.Concurrency = n }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an engine over the store.
func New(s Store, opts ...Option) (*Engine, error) {
	e := &Engine{
		store:        s,
		applier:      NewApplier(s),
		logger:       nopLogger{},
		recorder:     nopRecorder{},
		skimFraction: DefaultSkimFraction,
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := ValidateFraction(e.skimFraction); err != nil {
		return nil, err
	}

	e.applier.Now = e.now
	e.selector = &Selector{Store: s, Now: e.now}
	e.audit = &AuditRecorder{Store: s, Logger: e.logger, Recorder: e.recorder, Now: e.now}
	e.restorer = &Restorer{Store: s, Applier: e.applier, Audit: e.audit, Logger: e.logger}
	return e, nil
}

// =============================================================================
// RESULTS
// =============================================================================

type DeactivationResult struct {
	TasksMoved int
	ToUsers    map[WorkerID]int
}

type RestoreResult struct {
	TasksRestored int
}

type SkimResult struct {
	TasksMoved int
	FromUsers  map[WorkerID]int
}

type ImportResult struct {
	TasksAssigned int
	ByUser        map[WorkerID]int
}

type RebalanceResult struct {
	TasksMoved int
	ByUser     map[WorkerID]int
	Targets    map[WorkerID]int
}

// =============================================================================
// TRIGGERS
// =============================================================================

// DeactivateWorker redistributes the worker's due daily-review items over
// the other active workers, round-robin, then marks the worker inactive.
func (e *Engine) DeactivateWorker(ctx context.Context, worker WorkerID, actor *WorkerID) (result DeactivationResult, err error) {
	defer e.observe(TriggerDeactivation, time.Now(), &err)

	if _, err := e.requireWorker(ctx, worker); err != nil {
		return result, err
	}
	roster, err := ReadRoster(ctx, e.store, worker)
	if err != nil {
		return result, err
	}
	if len(roster) == 0 {
		return result, ErrNoEligibleWorkers
	}

	candidates, err := e.selector.DailyReview(ctx, worker)
	if err != nil {
		return result, err
	}
	plan, err := BuildPlan(PlanRequest{
		Policy:     PolicyRoundRobin,
		Candidates: candidates,
		Roster:     roster.IDs(),
		Type:       TypeRoundRobinRebalance,
	})
	if err != nil {
		return result, err
	}

	applied, err := e.applier.Apply(ctx, plan)
	if err != nil {
		return DeactivationResult{TasksMoved: applied.Moved, ToUsers: applied.ByWorker}, err
	}
	e.recorder.RecordItemsMoved(TriggerDeactivation, applied.Moved)
	e.audit.Record(ctx, ActionDeactivationRedistribution, actor, worker, plan)

	if err := e.store.UpdateWorkerStatus(ctx, worker, WorkerInactive); err != nil {
		return DeactivationResult{TasksMoved: applied.Moved, ToUsers: applied.ByWorker},
			writeErr("update worker status", err)
	}

	e.logger.Info("worker deactivated",
		"worker", worker,
		"moved", applied.Moved,
		"destinations", len(applied.ByWorker),
	)
	return DeactivationResult{TasksMoved: applied.Moved, ToUsers: applied.ByWorker}, nil
}

// ReactivateWorker restores the still-open items moved away by the worker's
// latest deactivation and marks the worker active.
func (e *Engine) ReactivateWorker(ctx context.Context, worker WorkerID, actor *WorkerID) (result RestoreResult, err error) {
	defer e.observe(TriggerReactivation, time.Now(), &err)

	if _, err := e.requireWorker(ctx, worker); err != nil {
		return result, err
	}
	n, err := e.restorer.Restore(ctx, worker, actor)
	e.recorder.RecordItemsMoved(TriggerReactivation, n)
	if err != nil {
		return RestoreResult{TasksRestored: n}, err
	}

	e.logger.Info("worker reactivated", "worker", worker, "restored", n)
	return RestoreResult{TasksRestored: n}, nil
}

// OnboardWorker moves ceil(count × fraction) of every other active worker's
// open items to the new worker. With no other workers nothing moves.
func (e *Engine) OnboardWorker(ctx context.Context, worker WorkerID, actor *WorkerID) (result SkimResult, err error) {
	defer e.observe(TriggerOnboarding, time.Now(), &err)

	w, err := e.requireWorker(ctx, worker)
	if err != nil {
		return result, err
	}
	if w.Status != WorkerActive {
		return result, fmt.Errorf("%w: %s is %s", ErrNoEligibleWorkers, worker, w.Status)
	}

	sources, err := ReadRoster(ctx, e.store, worker)
	if err != nil {
		return result, err
	}

	var candidates []Candidate
	for _, src := range sources {
		picked, err := e.selector.Skim(ctx, src.ID, e.skimFraction)
		if err != nil {
			return result, err
		}
		candidates = append(candidates, picked...)
	}

	plan, err := BuildPlan(PlanRequest{
		Policy:     PolicySkim,
		Candidates: candidates,
		Roster:     []WorkerID{worker},
		Type:       TypePercentageSkim,
	})
	if err != nil {
		return result, err
	}

	from := make(map[WorkerID]int)
	for _, c := range candidates {
		from[c.Owner]++
	}

	applied, err := e.applier.Apply(ctx, plan)
	if err != nil {
		return SkimResult{TasksMoved: applied.Moved, FromUsers: from}, err
	}
	e.recorder.RecordItemsMoved(TriggerOnboarding, applied.Moved)
	e.audit.Record(ctx, ActionOnboardingSkim, actor, worker, plan)

	e.logger.Info("worker onboarded",
		"worker", worker,
		"fraction", e.skimFraction.String(),
		"sources", len(sources),
		"moved", applied.Moved,
	)
	return SkimResult{TasksMoved: applied.Moved, FromUsers: from}, nil
}

// DistributeImport assigns a freshly imported batch, least-loaded first.
func (e *Engine) DistributeImport(ctx context.Context, items []ImportItem, actor *WorkerID) (result ImportResult, err error) {
	defer e.observe(TriggerImport, time.Now(), &err)

	roster, err := e.checkImport(ctx, items)
	if err != nil {
		return result, err
	}
	load, err := ReadLoad(ctx, e.store, roster)
	if err != nil {
		return result, err
	}

	plan, err := BuildPlan(PlanRequest{
		Policy:     PolicyLeastLoaded,
		Candidates: ImportCandidates(items),
		Roster:     roster.IDs(),
		Load:       load,
		Type:       TypeImport,
	})
	if err != nil {
		return result, err
	}

	applied, err := e.applier.Apply(ctx, plan)
	if err != nil {
		return ImportResult{TasksAssigned: applied.Moved, ByUser: applied.ByWorker}, err
	}
	e.recorder.RecordItemsMoved(TriggerImport, applied.Moved)

	e.logger.Info("import distributed", "cases", len(items), "workers", len(roster), "actor", actorName(actor))
	return ImportResult{TasksAssigned: applied.Moved, ByUser: applied.ByWorker}, nil
}

// ValidateImport runs the checks DistributeImport makes before planning, so
// callers can refuse a batch before recording its cases.
func (e *Engine) ValidateImport(ctx context.Context, items []ImportItem) error {
	_, err := e.checkImport(ctx, items)
	return err
}

// checkImport rejects an empty batch, a case named twice, a case that is
// already actively assigned and an empty roster. It writes nothing.
func (e *Engine) checkImport(ctx context.Context, items []ImportItem) (Roster, error) {
	if len(items) == 0 {
		return nil, ErrEmptyImport
	}
	ids := make([]CaseID, 0, len(items))
	seen := make(map[CaseID]bool, len(items))
	for _, item := range items {
		if seen[item.CaseID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCase, item.CaseID)
		}
		seen[item.CaseID] = true
		ids = append(ids, item.CaseID)
	}

	active := AssignmentActive
	assigned, err := e.store.ListAssignments(ctx, AssignmentFilter{CaseIDs: ids, Status: &active})
	if err != nil {
		return nil, readErr("list assignments", err)
	}
	if len(assigned) > 0 {
		return nil, fmt.Errorf("%w: %s (held by %s)", ErrCaseAssigned, assigned[0].CaseID, assigned[0].WorkerID)
	}

	roster, err := ReadRoster(ctx, e.store)
	if err != nil {
		return nil, err
	}
	if len(roster) == 0 {
		return nil, ErrNoEligibleWorkers
	}
	return roster, nil
}

// Rebalance recomputes near-equal targets over the active roster and moves
// surplus items to workers below target.
func (e *Engine) Rebalance(ctx context.Context, actor *WorkerID) (result RebalanceResult, err error) {
	defer e.observe(TriggerRebalance, time.Now(), &err)

	roster, err := ReadRoster(ctx, e.store)
	if err != nil {
		return result, err
	}
	if len(roster) == 0 {
		return result, ErrNoEligibleWorkers
	}
	candidates, err := e.selector.ActiveBacklog(ctx)
	if err != nil {
		return result, err
	}

	plan, err := BuildPlan(PlanRequest{
		Policy:     PolicyFullRebalance,
		Candidates: candidates,
		Roster:     roster.IDs(),
		Type:       TypeManualRebalance,
	})
	if err != nil {
		return result, err
	}

	applied, err := e.applier.Apply(ctx, plan)
	if err != nil {
		return RebalanceResult{TasksMoved: applied.Moved, ByUser: applied.ByWorker, Targets: plan.Targets}, err
	}
	e.recorder.RecordItemsMoved(TriggerRebalance, applied.Moved)
	e.audit.Record(ctx, ActionManualRebalance, actor, "", plan)

	e.logger.Info("rebalance complete",
		"backlog", len(candidates),
		"workers", len(roster),
		"moved", applied.Moved,
		"actor", actorName(actor),
	)
	return RebalanceResult{TasksMoved: applied.Moved, ByUser: applied.ByWorker, Targets: plan.Targets}, nil
}

// Workload returns the open item count of every active worker.
func (e *Engine) Workload(ctx context.Context) ([]WorkloadStat, error) {
	roster, err := ReadRoster(ctx, e.store)
	if err != nil {
		return nil, err
	}
	load, err := ReadLoad(ctx, e.store, roster)
	if err != nil {
		return nil, err
	}
	stats := make([]WorkloadStat, len(roster))
	for i, w := range roster {
		stats[i] = WorkloadStat{WorkerID: w.ID, Email: w.Email, OpenItems: load[w.ID]}
	}
	return stats, nil
}

// History returns history entries about a worker, newest first.
func (e *Engine) History(ctx context.Context, worker WorkerID, limit int) ([]HistoryEntry, error) {
	entries, err := e.store.QueryHistory(ctx, HistoryFilter{SubjectID: &worker, Limit: limit})
	if err != nil {
		return nil, readErr("query history", err)
	}
	return entries, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (e *Engine) requireWorker(ctx context.Context, id WorkerID) (*Worker, error) {
	w, err := e.store.GetWorker(ctx, id)
	if err != nil {
		return nil, readErr("get worker", err)
	}
	if w == nil {
		return nil, fmt.Errorf("%w: %s", ErrWorkerNotFound, id)
	}
	return w, nil
}

func (e *Engine) observe(trigger Trigger, start time.Time, err *error) {
	e.recorder.RecordOperation(trigger, *err, time.Since(start))
	if *err != nil {
		e.logger.Warn("trigger failed", "trigger", trigger, "error", *err)
	}
}

func actorName(actor *WorkerID) string {
	if actor == nil {
		return SystemActor
	}
	return string(*actor)
}
