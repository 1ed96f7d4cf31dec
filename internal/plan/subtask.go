package plan

import "time"

// Subtask is one atomic unit of work within an ExecutionPlan, assigned to
// a single agent and gated by the completion of its dependencies.
type Subtask struct {
	ID           string         `json:"id"`
	Description  string         `json:"description"`
	AssignedTag  string         `json:"assignedAgentTag"`
	Dependencies []string       `json:"dependencies,omitempty"`
	Status       SubtaskStatus  `json:"status"`
	Result       string         `json:"result,omitempty"`
	Error        string         `json:"error,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	StartedAt    *time.Time     `json:"startedAt,omitempty"`
	FinishedAt   *time.Time     `json:"finishedAt,omitempty"`
}

// NewSubtask creates a PENDING subtask. assignedTag must not be "architect";
// the caller (ExecutionPlan.AddSubtask) enforces that invariant so it is
// checked once, at the point of composition, rather than here.
func NewSubtask(id, description, assignedTag string, dependencies []string) *Subtask {
	now := time.Now()
	return &Subtask{
		ID:           id,
		Description:  description,
		AssignedTag:  assignedTag,
		Dependencies: dependencies,
		Status:       SubtaskPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Start transitions PENDING -> RUNNING.
func (s *Subtask) Start() error {
	if s.Status != SubtaskPending {
		return &TransitionError{Entity: "subtask", From: string(s.Status), To: string(SubtaskRunning)}
	}
	s.Status = SubtaskRunning
	now := time.Now()
	s.StartedAt = &now
	s.UpdatedAt = now
	return nil
}

// Complete transitions RUNNING -> DONE, recording the result.
func (s *Subtask) Complete(result string) error {
	if s.Status != SubtaskRunning {
		return &TransitionError{Entity: "subtask", From: string(s.Status), To: string(SubtaskDone)}
	}
	s.Status = SubtaskDone
	s.Result = result
	now := time.Now()
	s.FinishedAt = &now
	s.UpdatedAt = now
	return nil
}

// Fail transitions RUNNING -> FAILED, recording the error.
func (s *Subtask) Fail(errText string) error {
	if s.Status != SubtaskRunning {
		return &TransitionError{Entity: "subtask", From: string(s.Status), To: string(SubtaskFailed)}
	}
	s.Status = SubtaskFailed
	s.Error = errText
	now := time.Now()
	s.FinishedAt = &now
	s.UpdatedAt = now
	return nil
}

// Retry transitions FAILED -> PENDING, clearing the prior error. This is
// the only transition out of a terminal subtask state.
func (s *Subtask) Retry() error {
	if s.Status != SubtaskFailed {
		return &TransitionError{Entity: "subtask", From: string(s.Status), To: string(SubtaskPending)}
	}
	s.Status = SubtaskPending
	s.Error = ""
	s.StartedAt = nil
	s.FinishedAt = nil
	s.UpdatedAt = time.Now()
	return nil
}

// TransitionError reports an attempt to apply a status change that the
// entity's state machine does not permit.
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return "plan: cannot transition " + e.Entity + " from " + e.From + " to " + e.To
}
