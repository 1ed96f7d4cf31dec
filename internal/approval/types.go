// Package approval provides the unified pending-approval store and the
// policy engine that decides which tool calls and plans require human
// sign-off before the execution engine is allowed to proceed.
package approval

import (
	"errors"
	"time"
)

// Kind distinguishes the two things an approval request can gate.
type Kind string

const (
	KindTool Kind = "TOOL"
	KindPlan Kind = "PLAN"
)

// Status is the lifecycle of a single approval request. Mutations are
// monotonic: Pending may move to Approved or Rejected, never back.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Request describes one thing awaiting a human decision.
type Request struct {
	RequestID string         `json:"requestID"`
	Kind      Kind           `json:"kind"`
	Subject   string         `json:"subject"` // tool name, or plan goal
	SessionID string         `json:"sessionID"`
	Details   map[string]any `json:"details,omitempty"` // tool arguments, or plan summary
	Reason    string         `json:"reason,omitempty"`
}

// PendingApproval is the persisted row for a Request plus its outcome.
type PendingApproval struct {
	RequestID      string         `json:"requestID"`
	Kind           Kind           `json:"kind"`
	Subject        string         `json:"subject"`
	SessionID      string         `json:"sessionID"`
	Details        map[string]any `json:"details,omitempty"`
	Reason         string         `json:"reason,omitempty"`
	Status         Status         `json:"status"`
	RejectedReason string         `json:"rejectedReason,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	ResolvedAt     *time.Time     `json:"resolvedAt,omitempty"`
}

// RejectedError is returned by anything that blocks on an approval that
// comes back rejected.
type RejectedError struct {
	RequestID string
	Kind      Kind
	Subject   string
	Reason    string
}

func (e *RejectedError) Error() string {
	if e.Reason != "" {
		return "approval rejected: " + e.Reason
	}
	return "approval rejected"
}

// IsRejectedError reports whether err is (or wraps) a RejectedError.
func IsRejectedError(err error) bool {
	var rejected *RejectedError
	return errors.As(err, &rejected)
}

// ErrAlreadyResolved is returned by Approve/Reject when the request is not
// in Pending status; approval mutations are monotonic.
type ErrAlreadyResolved struct {
	RequestID string
	Status    Status
}

func (e *ErrAlreadyResolved) Error() string {
	return "approval " + e.RequestID + " already resolved as " + string(e.Status)
}

// ErrNotFound is returned when a request_id has no matching row.
type ErrNotFound struct {
	RequestID string
}

func (e *ErrNotFound) Error() string {
	return "approval request not found: " + e.RequestID
}
