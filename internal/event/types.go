package event

import (
	"time"

	"github.com/agentrt/agentrt/pkg/types"
)

// SessionCreatedData is the data for session.created events.
// SDK compatible: uses "info" field for session object.
type SessionCreatedData struct {
	Info *types.Session `json:"info"`
}

// SessionUpdatedData is the data for session.updated events.
// SDK compatible: uses "info" field for session object.
type SessionUpdatedData struct {
	Info *types.Session `json:"info"`
}

// SessionDeletedData is the data for session.deleted events.
// SDK compatible: uses "info" field for session object.
type SessionDeletedData struct {
	Info *types.Session `json:"info"`
}

// SessionIdleData is the data for session.idle events.
type SessionIdleData struct {
	SessionID string `json:"sessionID"`
}

// SessionErrorData is the data for session.error events.
type SessionErrorData struct {
	SessionID string              `json:"sessionID,omitempty"`
	Error     *types.MessageError `json:"error,omitempty"`
}

// MessageCreatedData is the data for message.created events.
// SDK compatible: uses "info" field for message object.
type MessageCreatedData struct {
	Info *types.Message `json:"info"`
}

// MessageUpdatedData is the data for message.updated events.
// SDK compatible: uses "info" field for message object.
type MessageUpdatedData struct {
	Info *types.Message `json:"info"`
}

// MessageRemovedData is the data for message.removed events.
type MessageRemovedData struct {
	SessionID string `json:"sessionID"`
	MessageID string `json:"messageID"`
}

// MessagePartUpdatedData is the data for message.part.updated events.
// SDK compatible: uses "part" and "delta" fields.
type MessagePartUpdatedData struct {
	Part  types.Part `json:"part"`
	Delta string     `json:"delta,omitempty"` // For streaming text
}

// Deprecated: Use MessagePartUpdatedData instead
type PartUpdatedData = MessagePartUpdatedData

// MessagePartRemovedData is the data for message.part.removed events.
type MessagePartRemovedData struct {
	SessionID string `json:"sessionID"`
	MessageID string `json:"messageID"`
	PartID    string `json:"partID"`
}

// FileEditedData is the data for file.edited events.
type FileEditedData struct {
	File string `json:"file"`
}

// ApprovalPendingData is the data for approval.pending events.
type ApprovalPendingData struct {
	RequestID string         `json:"requestID"`
	SessionID string         `json:"sessionID"`
	Kind      string         `json:"kind"` // "TOOL" | "PLAN"
	Subject   string         `json:"subject"`
	Details   map[string]any `json:"details,omitempty"`
	Reason    string         `json:"reason,omitempty"`
}

// ApprovalResolvedData is the data for approval.approved/rejected events.
type ApprovalResolvedData struct {
	RequestID string `json:"requestID"`
	SessionID string `json:"sessionID"`
	Kind      string `json:"kind"`
	Subject   string `json:"subject"`
	Reason    string `json:"reason,omitempty"`
}

// FSMTransitionedData is the data for fsm.transitioned events.
type FSMTransitionedData struct {
	SessionID string `json:"sessionID"`
	From      string `json:"from"`
	Event     string `json:"event"`
	To        string `json:"to"`
}

// PlanEventData is the data shared by plan.* events.
type PlanEventData struct {
	PlanID        string `json:"planID"`
	SessionID     string `json:"sessionID"`
	Status        string `json:"status,omitempty"`
	SubtasksCount int    `json:"subtasksCount,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// ExecutionCompletedData is the data for plan.execution_completed events.
type ExecutionCompletedData struct {
	PlanID   string        `json:"planID"`
	Status   string        `json:"status"`
	Progress string        `json:"progress"`
	Duration time.Duration `json:"duration"`
}

// SubtaskEventData is the data shared by subtask.* events.
type SubtaskEventData struct {
	PlanID     string `json:"planID"`
	SubtaskID  string `json:"subtaskID"`
	SessionID  string `json:"sessionID"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

// ClientToolRequestData is the data for client-tool.request events.
type ClientToolRequestData struct {
	ClientID string `json:"clientID"`
	Request  any    `json:"request"` // ExecutionRequest from clienttool package
}

// ClientToolRegisteredData is the data for client-tool.registered events.
type ClientToolRegisteredData struct {
	ClientID string   `json:"clientID"`
	ToolIDs  []string `json:"toolIDs"`
}

// ClientToolUnregisteredData is the data for client-tool.unregistered events.
type ClientToolUnregisteredData struct {
	ClientID string   `json:"clientID"`
	ToolIDs  []string `json:"toolIDs"`
}

// ClientToolStatusData is the data for client-tool.executing/completed/failed events.
type ClientToolStatusData struct {
	SessionID string `json:"sessionID"`
	MessageID string `json:"messageID"`
	CallID    string `json:"callID"`
	Tool      string `json:"tool"`
	ClientID  string `json:"clientID"`
	Error     string `json:"error,omitempty"`
	Success   bool   `json:"success,omitempty"`
}
