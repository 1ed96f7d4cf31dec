package execution

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/agentrt/agentrt/internal/agent"
	"github.com/agentrt/agentrt/internal/conversation"
	"github.com/agentrt/agentrt/internal/event"
	"github.com/agentrt/agentrt/internal/logging"
	"github.com/agentrt/agentrt/internal/plan"
	"github.com/agentrt/agentrt/pkg/types"
)

// maxErrorLen bounds the text captured into Subtask.Error from a
// content-sniffed LLM failure, matching the engine's truncation contract.
const maxErrorLen = 500

// llmErrorMarkers are substrings that, when seen in the final assistant
// text of a subtask run, indicate the run actually failed even though the
// agentic loop itself returned no Go error.
var llmErrorMarkers = []string{
	"LiteLLM proxy unavailable",
	"No tool output found",
	"[Error]",
}

// SubtaskExecutionError reports a failure to even attempt a subtask: a
// missing plan/subtask, a subtask in the wrong initial status, or an
// unknown agent tag. It is distinct from a subtask that ran and failed,
// which is recorded on the Subtask itself, not raised as a Go error.
type SubtaskExecutionError struct {
	PlanID    string
	SubtaskID string
	Reason    string
}

func (e *SubtaskExecutionError) Error() string {
	return fmt.Sprintf("execution: plan %s subtask %s: %s", e.PlanID, e.SubtaskID, e.Reason)
}

// SubtaskExecutor runs a single subtask to completion: snapshot isolation,
// agent dispatch, and snapshot restore, leaving the subtask DONE or FAILED.
type SubtaskExecutor struct {
	plans      *plan.Store
	sessions   *conversation.Service
	agents     *agent.Registry
	resolver   plan.DependencyResolver
}

// NewSubtaskExecutor wires a SubtaskExecutor to its collaborators.
func NewSubtaskExecutor(plans *plan.Store, sessions *conversation.Service, agents *agent.Registry) *SubtaskExecutor {
	return &SubtaskExecutor{plans: plans, sessions: sessions, agents: agents}
}

// Execute runs exactly one subtask: p.Status must already be IN_PROGRESS and
// st.Status must be PENDING. It loads the plan fresh so concurrent callers
// (there should be none per session, enforced by internal/locking) always
// see the latest subtask states.
func (e *SubtaskExecutor) Execute(ctx context.Context, planID, subtaskID, sessionID string) error {
	p, err := e.plans.Get(ctx, planID)
	if err != nil {
		return &SubtaskExecutionError{PlanID: planID, SubtaskID: subtaskID, Reason: "plan not found: " + err.Error()}
	}

	st, ok := p.Subtask(subtaskID)
	if !ok {
		return &SubtaskExecutionError{PlanID: planID, SubtaskID: subtaskID, Reason: "subtask not found"}
	}
	if st.Status != plan.SubtaskPending {
		return &SubtaskExecutionError{PlanID: planID, SubtaskID: subtaskID, Reason: fmt.Sprintf("expected PENDING, got %s", st.Status)}
	}

	tag := agent.Tag(st.AssignedTag)
	ag, err := e.agents.Get(tag)
	if err != nil {
		return &SubtaskExecutionError{PlanID: planID, SubtaskID: subtaskID, Reason: err.Error()}
	}
	if !ag.IsAssignableToSubtask() {
		return &SubtaskExecutionError{PlanID: planID, SubtaskID: subtaskID, Reason: fmt.Sprintf("agent %s cannot be assigned subtasks", tag)}
	}

	dependencyResults := make(map[string]string, len(st.Dependencies))
	for _, depID := range st.Dependencies {
		if dep, ok := p.Subtask(depID); ok {
			dependencyResults[depID] = dep.Result
		}
	}

	snapshotID, err := e.sessions.CreateSubtaskSnapshot(ctx, sessionID, subtaskID, dependencyResults)
	if err != nil {
		return &SubtaskExecutionError{PlanID: planID, SubtaskID: subtaskID, Reason: "snapshot: " + err.Error()}
	}

	if err := st.Start(); err != nil {
		return &SubtaskExecutionError{PlanID: planID, SubtaskID: subtaskID, Reason: err.Error()}
	}
	if err := e.plans.Save(ctx, p); err != nil {
		return &SubtaskExecutionError{PlanID: planID, SubtaskID: subtaskID, Reason: "save: " + err.Error()}
	}
	event.Publish(event.Event{Type: event.SubtaskStarted, Data: event.SubtaskEventData{
		PlanID: planID, SubtaskID: subtaskID, SessionID: sessionID, Status: string(plan.SubtaskRunning),
	}})

	result, runErr := e.runAgent(ctx, sessionID, ag, st.Description)

	// Reload in case a concurrent cancellation already terminated the
	// subtask while the agent was running; don't clobber a terminal state.
	p, reloadErr := e.plans.Get(ctx, planID)
	if reloadErr == nil {
		if fresh, ok := p.Subtask(subtaskID); ok && fresh.Status.IsTerminal() {
			st = fresh
		}
	}

	restoreErr := func() error {
		preserve := runErr == nil
		return e.sessions.RestoreFromSnapshot(ctx, sessionID, snapshotID, preserve)
	}()
	if restoreErr != nil {
		// Snapshot-restore failures are logged and swallowed: the subtask's
		// result is already persisted below, regardless of restore outcome.
		logging.Warn().Err(restoreErr).Str("sessionID", sessionID).Str("subtaskID", subtaskID).
			Msg("subtask snapshot restore failed")
	}

	if st.Status.IsTerminal() {
		return e.plans.Save(ctx, p)
	}

	if runErr != nil {
		return e.fail(ctx, p, st, runErr.Error())
	}
	if sniffed := sniffLLMError(result); sniffed != "" {
		return e.fail(ctx, p, st, sniffed)
	}

	if err := st.Complete(result); err != nil {
		return &SubtaskExecutionError{PlanID: planID, SubtaskID: subtaskID, Reason: err.Error()}
	}
	event.Publish(event.Event{Type: event.SubtaskCompleted, Data: event.SubtaskEventData{
		PlanID: planID, SubtaskID: subtaskID, SessionID: sessionID, Status: string(plan.SubtaskDone),
	}})
	return e.plans.Save(ctx, p)
}

func (e *SubtaskExecutor) fail(ctx context.Context, p *plan.ExecutionPlan, st *plan.Subtask, reason string) error {
	if len(reason) > maxErrorLen {
		reason = reason[:maxErrorLen]
	}
	if err := st.Fail(reason); err != nil {
		return &SubtaskExecutionError{PlanID: p.ID, SubtaskID: st.ID, Reason: err.Error()}
	}
	event.Publish(event.Event{Type: event.SubtaskFailed, Data: event.SubtaskEventData{
		PlanID: p.ID, SubtaskID: st.ID, Status: string(plan.SubtaskFailed), Error: reason,
	}})
	return e.plans.Save(ctx, p)
}

// runAgent drives the assigned agent's conversation loop to completion and
// returns the final assistant message's text content.
func (e *SubtaskExecutor) runAgent(ctx context.Context, sessionID string, ag *agent.Agent, description string) (string, error) {
	userMsg := &types.Message{
		ID:        ulid.Make().String(),
		SessionID: sessionID,
		Role:      "user",
		Time:      types.MessageTime{Created: time.Now().UnixMilli()},
	}
	if err := e.sessions.AddMessage(ctx, sessionID, userMsg); err != nil {
		return "", err
	}

	processor := e.sessions.GetProcessor()
	if processor == nil {
		return "", fmt.Errorf("no processor configured")
	}

	var result string
	err := processor.Process(ctx, sessionID, ag, func(msg *types.Message, parts []types.Part) {
		if msg != nil && msg.Role == "assistant" {
			result = conversation.MarshalResult(parts)
		}
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

// sniffLLMError reports whether result contains a known LLM failure marker,
// truncated to maxErrorLen, or "" if the result looks like a real answer.
func sniffLLMError(result string) string {
	for _, marker := range llmErrorMarkers {
		if strings.Contains(result, marker) {
			if len(result) > maxErrorLen {
				return result[:maxErrorLen]
			}
			return result
		}
	}
	return ""
}
