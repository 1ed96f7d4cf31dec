package server

import (
	"github.com/agentrt/agentrt/internal/event"
	"github.com/agentrt/agentrt/internal/fsm"
	"github.com/agentrt/agentrt/internal/logging"
)

// driveFSM applies an FSM event for a session and publishes the resulting
// transition, logging (but not failing the request on) an invalid
// transition: the orchestration state machine observes the REST/SSE surface
// best-effort, it does not gate it. A caller that needs a hard invariant
// (e.g. the classifier-must-route-to-planner rule) checks the returned error
// itself instead of relying on this helper's logging.
func (s *Server) driveFSM(sessionID string, ev fsm.Event, metadata map[string]any) (fsm.State, error) {
	to, err := s.orchestrator.Transition(sessionID, ev, metadata)
	if err != nil {
		logging.Warn().Err(err).Str("sessionID", sessionID).Str("event", string(ev)).Msg("fsm: ignored invalid transition")
		return to, err
	}
	event.Publish(event.Event{Type: event.FSMTransitioned, Data: event.FSMTransitionedData{
		SessionID: sessionID,
		Event:     string(ev),
		To:        string(to),
	}})
	return to, nil
}

// resetIfTerminal drives a completed session back to IDLE so it can accept
// another RECEIVE_MESSAGE event; the orchestration table has no transition
// out of COMPLETED except the explicit RESET event.
func (s *Server) resetIfTerminal(sessionID string) {
	if state, ok := s.orchestrator.CurrentState(sessionID); ok && state == fsm.StateCompleted {
		s.driveFSM(sessionID, fsm.EventReset, nil)
	}
}
