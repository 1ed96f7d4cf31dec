// Package fsm implements the per-session orchestration state machine that
// governs how a conversation turn moves from an inbound message to a
// completed (or failed) outcome.
package fsm

// State is a node of the orchestration state machine.
type State string

const (
	StateIdle               State = "IDLE"
	StateClassify           State = "CLASSIFY"
	StatePlanRequired       State = "PLAN_REQUIRED"
	StateArchitectPlanning  State = "ARCHITECT_PLANNING"
	StatePlanReview         State = "PLAN_REVIEW"
	StatePlanExecution      State = "PLAN_EXECUTION"
	StateExecution          State = "EXECUTION"
	StateErrorHandling      State = "ERROR_HANDLING"
	StateCompleted          State = "COMPLETED"
)

// Event drives a transition out of a State.
type Event string

const (
	EventReceiveMessage           Event = "RECEIVE_MESSAGE"
	EventIsAtomicTrue             Event = "IS_ATOMIC_TRUE"
	EventIsAtomicFalse            Event = "IS_ATOMIC_FALSE"
	EventClassifyError            Event = "CLASSIFY_ERROR"
	EventRouteToArchitect         Event = "ROUTE_TO_ARCHITECT"
	EventPlanCreated              Event = "PLAN_CREATED"
	EventPlanApproved             Event = "PLAN_APPROVED"
	EventPlanRejected             Event = "PLAN_REJECTED"
	EventPlanModificationRequested Event = "PLAN_MODIFICATION_REQUESTED"
	EventPlanExecutionCompleted   Event = "PLAN_EXECUTION_COMPLETED"
	EventPlanExecutionFailed      Event = "PLAN_EXECUTION_FAILED"
	EventAllSubtasksDone          Event = "ALL_SUBTASKS_DONE"
	EventSubtaskFailed            Event = "SUBTASK_FAILED"
	EventRetrySubtask             Event = "RETRY_SUBTASK"
	EventRequiresReplanning       Event = "REQUIRES_REPLANNING"
	EventPlanCancelled            Event = "PLAN_CANCELLED"
	EventReset                    Event = "RESET"
)

type transitionKey struct {
	from  State
	event Event
}

// transitionTable is the canonical, exhaustive transition set. Anything not
// listed here is invalid; there is no default/fallthrough case.
var transitionTable = map[transitionKey]State{
	{StateIdle, EventReceiveMessage}:                      StateClassify,
	{StateClassify, EventIsAtomicTrue}:                    StateExecution,
	{StateClassify, EventIsAtomicFalse}:                   StatePlanRequired,
	{StateClassify, EventClassifyError}:                   StateErrorHandling,
	{StatePlanRequired, EventRouteToArchitect}:             StateArchitectPlanning,
	{StateArchitectPlanning, EventPlanCreated}:             StatePlanReview,
	{StatePlanReview, EventPlanApproved}:                   StatePlanExecution,
	{StatePlanReview, EventPlanRejected}:                   StateIdle,
	{StatePlanReview, EventPlanModificationRequested}:      StateArchitectPlanning,
	{StatePlanExecution, EventPlanExecutionCompleted}:      StateCompleted,
	{StatePlanExecution, EventPlanExecutionFailed}:         StateErrorHandling,
	{StateExecution, EventAllSubtasksDone}:                 StateCompleted,
	{StateExecution, EventSubtaskFailed}:                   StateErrorHandling,
	{StateErrorHandling, EventRetrySubtask}:                StateExecution,
	{StateErrorHandling, EventRequiresReplanning}:          StateArchitectPlanning,
	{StateErrorHandling, EventPlanCancelled}:                StateCompleted,
	{StateCompleted, EventReset}:                           StateIdle,
}

// ValidTransition reports whether (from, event) has an entry in the
// canonical table, and if so what state it leads to.
func ValidTransition(from State, event Event) (State, bool) {
	to, ok := transitionTable[transitionKey{from, event}]
	return to, ok
}

// AllowedEvents returns the events that are valid from the given state, for
// UI/debugging purposes. The table is a map, so the order is not defined.
func AllowedEvents(from State) []Event {
	var events []Event
	for k := range transitionTable {
		if k.from == from {
			events = append(events, k.event)
		}
	}
	return events
}
