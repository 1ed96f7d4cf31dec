package execution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agentrt/agentrt/internal/event"
	"github.com/agentrt/agentrt/internal/locking"
	"github.com/agentrt/agentrt/internal/logging"
	"github.com/agentrt/agentrt/internal/plan"
)

// approvalWaitPollInterval is how often WaitForApprovalResolution re-checks
// the approval store while no store-level condition variable is wired.
const approvalWaitPollInterval = 500 * time.Millisecond

// engineState is the process-global bookkeeping the engine keeps per plan
// while it is actively advancing it, released once the plan reaches a
// terminal status or is suspended awaiting approval.
type engineState struct {
	status    string // "RUNNING" | "SUSPENDED" | "RESUMED" | "CANCELLED"
	startedAt time.Time
}

// Engine advances an approved ExecutionPlan one subtask at a time. Each call
// to ExecutePlan executes at most one subtask and returns: the caller (an
// HTTP handler re-entering on the next client message) re-invokes it to
// make further progress. There is no in-memory continuation that survives
// across calls; the plan and subtask statuses persisted in the Store are
// the only durable record of progress.
type Engine struct {
	plans    *plan.Store
	executor *SubtaskExecutor
	resolver plan.DependencyResolver
	dedup    *RequestDeduplicator
	locks    *locking.SessionLockManager

	muStates sync.Mutex
	states   map[string]*engineState // keyed by planID
}

// NewEngine wires an Engine to its collaborators.
func NewEngine(plans *plan.Store, executor *SubtaskExecutor) *Engine {
	return &Engine{
		plans:    plans,
		executor: executor,
		resolver: plan.DependencyResolver{},
		dedup:    NewRequestDeduplicator(),
		locks:    locking.NewSessionLockManager(),
		states:   make(map[string]*engineState),
	}
}

// Dedup exposes the engine's request deduplicator so gateway/tool-result
// handlers can consult it before resubmitting a subtask's output.
func (e *Engine) Dedup() *RequestDeduplicator {
	return e.dedup
}

// ExecutePlan implements the one-subtask-per-call algorithm:
//  1. Load the plan; fail if missing or not in {APPROVED, IN_PROGRESS}.
//  2. If APPROVED, transition to IN_PROGRESS.
//  3. Pick the next ready subtask via the dependency resolver.
//  4. If none is ready: complete the plan if every subtask is DONE and none
//     FAILED, otherwise return without transitioning (a RUNNING or FAILED
//     subtask is still outstanding; the caller must retry or intervene).
//  5. Delegate execution of that one subtask to the SubtaskExecutor.
//  6. Release engine state and return; the executor has already recorded
//     the subtask's terminal status.
func (e *Engine) ExecutePlan(ctx context.Context, planID, sessionID string) error {
	var result error
	e.locks.WithLock(sessionID, func() error {
		result = e.executePlanLocked(ctx, planID, sessionID)
		return nil
	})
	return result
}

// executePlanLocked runs under the session's lock so a retried or
// concurrently-dispatched advance call never races a subtask execution for
// the same session.
func (e *Engine) executePlanLocked(ctx context.Context, planID, sessionID string) error {
	p, err := e.plans.Get(ctx, planID)
	if err != nil {
		return fmt.Errorf("execution: plan %s: %w", planID, err)
	}
	if !p.Status.IsApproved() && !p.Status.IsInProgress() {
		return fmt.Errorf("execution: plan %s in status %s, expected APPROVED or IN_PROGRESS", planID, p.Status)
	}

	if p.Status.IsApproved() {
		if err := p.StartExecution(); err != nil {
			return err
		}
		if err := e.plans.Save(ctx, p); err != nil {
			return err
		}
		event.Publish(event.Event{Type: event.PlanExecutionStarted, Data: event.PlanEventData{
			PlanID: planID, SessionID: sessionID, Status: string(p.Status),
		}})
	}

	e.setState(planID, "RUNNING")
	defer e.clearState(planID)

	next := e.resolver.NextSubtask(p)
	if next == nil {
		done, total := p.Progress()
		if done == total && !p.HasFailedSubtask() {
			if err := p.Complete(); err != nil {
				return err
			}
			if err := e.plans.Save(ctx, p); err != nil {
				return err
			}
			event.Publish(event.Event{Type: event.PlanExecutionCompleted, Data: event.ExecutionCompletedData{
				PlanID:   planID,
				Status:   string(p.Status),
				Progress: fmt.Sprintf("%d/%d", done, total),
				Duration: time.Since(valueOr(p.StartedAt, time.Now())),
			}})
			return nil
		}
		// A RUNNING or FAILED subtask is outstanding; nothing to do this call.
		return nil
	}

	done, total := p.Progress()
	logging.Info().Str("planID", planID).Str("subtaskID", next.ID).
		Str("progress", fmt.Sprintf("%d/%d", done, total)).Msg("executing subtask")

	if err := e.executor.Execute(ctx, planID, next.ID, sessionID); err != nil {
		e.setState(planID, "CANCELLED")
		if failErr := e.failPlan(ctx, planID, err.Error()); failErr != nil {
			return failErr
		}
		return err
	}

	return nil
}

func (e *Engine) failPlan(ctx context.Context, planID, reason string) error {
	p, err := e.plans.Get(ctx, planID)
	if err != nil {
		return err
	}
	if p.Status.IsTerminal() {
		return nil
	}
	if err := p.Fail(reason); err != nil {
		return err
	}
	if err := e.plans.Save(ctx, p); err != nil {
		return err
	}
	event.Publish(event.Event{Type: event.PlanExecutionFailed, Data: event.PlanEventData{
		PlanID: planID, Status: string(p.Status), Reason: reason,
	}})
	return nil
}

// CancelExecution transitions a plan to CANCELLED, refusing only on an
// already-COMPLETED plan.
func (e *Engine) CancelExecution(ctx context.Context, planID, reason string) error {
	p, err := e.plans.Get(ctx, planID)
	if err != nil {
		return err
	}
	if err := p.Cancel(reason); err != nil {
		return err
	}
	e.setState(planID, "CANCELLED")
	return e.plans.Save(ctx, p)
}

// WaitForApprovalResolution polls until every id in pendingIDs has left the
// pending state or timeout elapses. approvalResolved is injected so this
// package does not import internal/approval directly; the gateway/server
// layer supplies the Approval Manager's lookup.
func (e *Engine) WaitForApprovalResolution(ctx context.Context, planID string, pendingIDs []string, timeout time.Duration, approvalResolved func(id string) bool) error {
	e.setState(planID, "SUSPENDED")

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(approvalWaitPollInterval)
	defer ticker.Stop()

	for {
		allResolved := true
		for _, id := range pendingIDs {
			if !approvalResolved(id) {
				allResolved = false
				break
			}
		}
		if allResolved {
			e.setState(planID, "RESUMED")
			return nil
		}

		if time.Now().After(deadline) {
			e.setState(planID, "CANCELLED")
			var unresolved []string
			for _, id := range pendingIDs {
				if !approvalResolved(id) {
					unresolved = append(unresolved, id)
				}
			}
			return fmt.Errorf("execution: approval wait timed out for plan %s, unresolved: %v", planID, unresolved)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (e *Engine) setState(planID, status string) {
	e.muStates.Lock()
	defer e.muStates.Unlock()
	e.states[planID] = &engineState{status: status, startedAt: time.Now()}
}

func (e *Engine) clearState(planID string) {
	e.muStates.Lock()
	defer e.muStates.Unlock()
	delete(e.states, planID)
}

// State returns the engine's current bookkeeping status for a plan, for
// diagnostics; "" if the engine is not currently tracking it.
func (e *Engine) State(planID string) string {
	e.muStates.Lock()
	defer e.muStates.Unlock()
	if s, ok := e.states[planID]; ok {
		return s.status
	}
	return ""
}

func valueOr(t *time.Time, fallback time.Time) time.Time {
	if t == nil {
		return fallback
	}
	return *t
}
