package plan

import (
	"errors"
	"fmt"
	"time"
)

// MaxGoalLength bounds ExecutionPlan.Goal, matching the architect's
// decomposition prompt budget.
const MaxGoalLength = 5000

// ExecutionPlan is a goal decomposed into an ordered, dependency-gated list
// of subtasks. A plan is owned by exactly one conversation and is frozen
// once it reaches a terminal status.
type ExecutionPlan struct {
	ID               string         `json:"id"`
	ConversationID   string         `json:"conversationID"`
	Goal             string         `json:"goal"`
	Subtasks         []*Subtask     `json:"subtasks"`
	Status           Status         `json:"status"`
	CurrentSubtaskID string         `json:"currentSubtaskID,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
	ApprovedAt       *time.Time     `json:"approvedAt,omitempty"`
	StartedAt        *time.Time     `json:"startedAt,omitempty"`
	CompletedAt      *time.Time     `json:"completedAt,omitempty"`
}

// New creates an empty DRAFT plan for goal. Architect validation of length
// happens here since this is the single construction point.
func New(id, conversationID, goal string) (*ExecutionPlan, error) {
	if goal == "" || len(goal) > MaxGoalLength {
		return nil, fmt.Errorf("plan: goal must be 1-%d characters, got %d", MaxGoalLength, len(goal))
	}
	now := time.Now()
	return &ExecutionPlan{
		ID:             id,
		ConversationID: conversationID,
		Goal:           goal,
		Status:         StatusDraft,
		Metadata:       make(map[string]any),
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// AddSubtask appends a subtask while the plan is still in DRAFT. The
// architect can never assign a subtask to itself: it only produces plans.
func (p *ExecutionPlan) AddSubtask(s *Subtask) error {
	if !p.Status.IsDraft() {
		return fmt.Errorf("plan: cannot add subtask to plan in status %s, expected DRAFT", p.Status)
	}
	if s.AssignedTag == "architect" {
		return errors.New("plan: architect cannot be assigned to subtasks")
	}
	p.Subtasks = append(p.Subtasks, s)
	p.UpdatedAt = time.Now()
	return nil
}

// Approve transitions DRAFT -> APPROVED. A plan cannot be approved empty.
func (p *ExecutionPlan) Approve() error {
	if !p.Status.IsDraft() {
		return fmt.Errorf("plan: cannot approve plan in status %s, expected DRAFT", p.Status)
	}
	if len(p.Subtasks) == 0 {
		return errors.New("plan: cannot approve empty plan")
	}
	p.Status = StatusApproved
	now := time.Now()
	p.ApprovedAt = &now
	p.UpdatedAt = now
	return nil
}

// StartExecution transitions APPROVED -> IN_PROGRESS.
func (p *ExecutionPlan) StartExecution() error {
	if !p.Status.IsApproved() {
		return fmt.Errorf("plan: cannot start plan in status %s, expected APPROVED", p.Status)
	}
	p.Status = StatusInProgress
	now := time.Now()
	p.StartedAt = &now
	p.UpdatedAt = now
	return nil
}

// Complete transitions IN_PROGRESS -> COMPLETED. Every subtask must be DONE.
func (p *ExecutionPlan) Complete() error {
	if !p.Status.IsInProgress() {
		return fmt.Errorf("plan: cannot complete plan in status %s, expected IN_PROGRESS", p.Status)
	}
	for _, s := range p.Subtasks {
		if s.Status != SubtaskDone {
			return fmt.Errorf("plan: cannot complete, subtask %s is %s", s.ID, s.Status)
		}
	}
	p.Status = StatusCompleted
	now := time.Now()
	p.CompletedAt = &now
	p.UpdatedAt = now
	return nil
}

// Fail transitions the plan to FAILED and records the reason in metadata.
func (p *ExecutionPlan) Fail(reason string) error {
	if p.Status.IsTerminal() {
		return fmt.Errorf("plan: cannot fail plan already in terminal status %s", p.Status)
	}
	p.Status = StatusFailed
	if p.Metadata == nil {
		p.Metadata = make(map[string]any)
	}
	p.Metadata["failure_reason"] = reason
	now := time.Now()
	p.CompletedAt = &now
	p.UpdatedAt = now
	return nil
}

// Cancel transitions the plan to CANCELLED, unless it is already COMPLETED.
func (p *ExecutionPlan) Cancel(reason string) error {
	if p.Status == StatusCompleted {
		return errors.New("plan: cannot cancel a completed plan")
	}
	p.Status = StatusCancelled
	if p.Metadata == nil {
		p.Metadata = make(map[string]any)
	}
	p.Metadata["cancel_reason"] = reason
	now := time.Now()
	p.CompletedAt = &now
	p.UpdatedAt = now
	return nil
}

// Subtask looks up a subtask by id.
func (p *ExecutionPlan) Subtask(id string) (*Subtask, bool) {
	for _, s := range p.Subtasks {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// Progress returns (done, total) subtask counts.
func (p *ExecutionPlan) Progress() (done, total int) {
	total = len(p.Subtasks)
	for _, s := range p.Subtasks {
		if s.Status == SubtaskDone {
			done++
		}
	}
	return done, total
}

// HasFailedSubtask reports whether any subtask is in FAILED status.
func (p *ExecutionPlan) HasFailedSubtask() bool {
	for _, s := range p.Subtasks {
		if s.Status == SubtaskFailed {
			return true
		}
	}
	return false
}
