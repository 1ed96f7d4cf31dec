package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agentrt/agentrt/internal/event"
	"github.com/agentrt/agentrt/internal/fsm"
	"github.com/agentrt/agentrt/internal/plan"
)

// CreatePlanRequest is the body of POST /session/{sessionID}/plan.
type CreatePlanRequest struct {
	Goal string `json:"goal"`
}

// AddSubtaskRequest is the body of POST /session/{sessionID}/plan/{planID}/subtask.
type AddSubtaskRequest struct {
	ID           string   `json:"id"`
	Description  string   `json:"description"`
	AssignedTag  string   `json:"assignedTag"`
	Dependencies []string `json:"dependencies,omitempty"`
}

// createPlan handles POST /session/{sessionID}/plan.
func (s *Server) createPlan(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req CreatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}

	p, err := plan.New(generateID(), sessionID, req.Goal)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	if err := s.plans.Save(r.Context(), p); err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	s.resetIfTerminal(sessionID)
	s.driveFSM(sessionID, fsm.EventReceiveMessage, nil)
	s.driveFSM(sessionID, fsm.EventIsAtomicFalse, nil)
	s.driveFSM(sessionID, fsm.EventRouteToArchitect, nil)
	s.driveFSM(sessionID, fsm.EventPlanCreated, map[string]any{"planID": p.ID})

	event.Publish(event.Event{Type: event.PlanCreated, Data: event.PlanEventData{
		PlanID: p.ID, SessionID: sessionID, Status: string(p.Status),
	}})
	writeJSON(w, http.StatusCreated, p)
}

// getPlan handles GET /session/{sessionID}/plan/{planID}.
func (s *Server) getPlan(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "planID")
	p, err := s.plans.Get(r.Context(), planID)
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "Plan not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// listPlans handles GET /session/{sessionID}/plan.
func (s *Server) listPlans(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	plans, err := s.plans.ListByConversation(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

// addSubtask handles POST /session/{sessionID}/plan/{planID}/subtask.
func (s *Server) addSubtask(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "planID")

	var req AddSubtaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}
	if req.ID == "" {
		req.ID = generateID()
	}

	p, err := s.plans.Get(r.Context(), planID)
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "Plan not found")
		return
	}

	st := plan.NewSubtask(req.ID, req.Description, req.AssignedTag, req.Dependencies)
	if err := p.AddSubtask(st); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	if errs := plan.NewDependencyResolver().Validate(p); len(errs) > 0 {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, errs[0].Error())
		return
	}
	if err := s.plans.Save(r.Context(), p); err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// approvePlan handles POST /session/{sessionID}/plan/{planID}/approve.
func (s *Server) approvePlan(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	planID := chi.URLParam(r, "planID")

	p, err := s.plans.Get(r.Context(), planID)
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "Plan not found")
		return
	}
	if err := p.Approve(); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	if err := s.plans.Save(r.Context(), p); err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	s.driveFSM(sessionID, fsm.EventPlanApproved, nil)
	event.Publish(event.Event{Type: event.PlanApproved, Data: event.PlanEventData{
		PlanID: planID, SessionID: sessionID, Status: string(p.Status),
	}})
	writeJSON(w, http.StatusOK, p)
}

// executePlan handles POST /session/{sessionID}/plan/{planID}/execute. Each
// call advances the plan by at most one subtask; the caller drives progress
// by repeating the call (directly, or via the gateway's message loop).
func (s *Server) executePlan(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	planID := chi.URLParam(r, "planID")

	if err := s.engine.ExecutePlan(r.Context(), planID, sessionID); err != nil {
		s.driveFSM(sessionID, fsm.EventPlanExecutionFailed, nil)
		writeError(w, http.StatusConflict, ErrCodeInvalidRequest, err.Error())
		return
	}

	p, err := s.plans.Get(r.Context(), planID)
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "Plan not found")
		return
	}
	if p.Status.IsTerminal() && p.Status == plan.StatusCompleted {
		s.driveFSM(sessionID, fsm.EventPlanExecutionCompleted, nil)
	}
	writeJSON(w, http.StatusOK, p)
}

// cancelPlan handles POST /session/{sessionID}/plan/{planID}/cancel.
func (s *Server) cancelPlan(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "planID")

	var req struct {
		Reason string `json:"reason"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	if err := s.engine.CancelExecution(r.Context(), planID, req.Reason); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	p, err := s.plans.Get(r.Context(), planID)
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "Plan not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}
