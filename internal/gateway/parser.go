// Package gateway implements the bidirectional WebSocket-to-SSE bridge: a
// thin proxy that lets a WebSocket client drive the runtime's HTTP/SSE
// agent API without speaking HTTP itself. Each WebSocket connection maps to
// exactly one conversation session; inbound frames are validated and
// translated into runtime calls, and the runtime's SSE stream is translated
// back into outbound frames.
package gateway

import (
	"encoding/json"
	"fmt"
)

// Kind discriminates the inbound WebSocket message union.
type Kind string

const (
	KindUserMessage  Kind = "user_message"
	KindToolResult   Kind = "tool_result"
	KindSwitchAgent  Kind = "switch_agent"
	KindHITLDecision Kind = "hitl_decision"
	KindPlanDecision Kind = "plan_decision"
)

// InboundEnvelope is the wire format every inbound frame must match before
// being dispatched to its typed payload.
type InboundEnvelope struct {
	Kind Kind            `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// UserMessage starts or continues a conversation turn.
type UserMessage struct {
	SessionID string `json:"sessionID"`
	Content   string `json:"content"`
	Agent     string `json:"agent,omitempty"`
}

// ToolResult carries a client-executed tool's output back to the runtime,
// identified by the call id the runtime originally issued.
type ToolResult struct {
	SessionID string `json:"sessionID"`
	CallID    string `json:"callID"`
	Output    string `json:"output"`
	Error     string `json:"error,omitempty"`
}

// SwitchAgent changes which agent tag handles the next turn.
type SwitchAgent struct {
	SessionID string `json:"sessionID"`
	Agent     string `json:"agent"`
}

// HITLDecision resolves a pending human-in-the-loop approval request.
type HITLDecision struct {
	SessionID string `json:"sessionID"`
	RequestID string `json:"requestID"`
	Approved  bool   `json:"approved"`
	Reason    string `json:"reason,omitempty"`
}

// PlanDecision approves, rejects, or cancels an execution plan.
type PlanDecision struct {
	SessionID string `json:"sessionID"`
	PlanID    string `json:"planID"`
	Decision  string `json:"decision"` // "approve" | "reject" | "cancel"
	Reason    string `json:"reason,omitempty"`
}

// ParseError reports a malformed or unrecognized inbound frame.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string { return "gateway: " + e.Reason }

// ParseInbound validates and decodes a raw WebSocket text frame into its
// typed payload, returning the discriminant kind alongside it.
func ParseInbound(raw []byte) (Kind, any, error) {
	var env InboundEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", nil, &ParseError{Reason: fmt.Sprintf("invalid envelope: %v", err)}
	}

	switch env.Kind {
	case KindUserMessage:
		var m UserMessage
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return "", nil, &ParseError{Reason: "invalid user_message payload: " + err.Error()}
		}
		if m.SessionID == "" || m.Content == "" {
			return "", nil, &ParseError{Reason: "user_message requires sessionID and content"}
		}
		return env.Kind, m, nil

	case KindToolResult:
		var m ToolResult
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return "", nil, &ParseError{Reason: "invalid tool_result payload: " + err.Error()}
		}
		if m.SessionID == "" || m.CallID == "" {
			return "", nil, &ParseError{Reason: "tool_result requires sessionID and callID"}
		}
		return env.Kind, m, nil

	case KindSwitchAgent:
		var m SwitchAgent
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return "", nil, &ParseError{Reason: "invalid switch_agent payload: " + err.Error()}
		}
		if m.SessionID == "" || m.Agent == "" {
			return "", nil, &ParseError{Reason: "switch_agent requires sessionID and agent"}
		}
		return env.Kind, m, nil

	case KindHITLDecision:
		var m HITLDecision
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return "", nil, &ParseError{Reason: "invalid hitl_decision payload: " + err.Error()}
		}
		if m.SessionID == "" || m.RequestID == "" {
			return "", nil, &ParseError{Reason: "hitl_decision requires sessionID and requestID"}
		}
		return env.Kind, m, nil

	case KindPlanDecision:
		var m PlanDecision
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return "", nil, &ParseError{Reason: "invalid plan_decision payload: " + err.Error()}
		}
		if m.SessionID == "" || m.PlanID == "" || m.Decision == "" {
			return "", nil, &ParseError{Reason: "plan_decision requires sessionID, planID, and decision"}
		}
		return env.Kind, m, nil

	default:
		return "", nil, &ParseError{Reason: fmt.Sprintf("unknown kind %q", env.Kind)}
	}
}

// OutboundEnvelope is the wire format of every frame the gateway writes back
// to its WebSocket client.
type OutboundEnvelope struct {
	Kind Kind `json:"kind"`
	Data any  `json:"data"`
}

const (
	KindSessionInfo Kind = "session_info"
	KindAgentUpdate Kind = "agent_update"
	KindAgentDone   Kind = "agent_done"
	KindError       Kind = "error"
)

// SessionInfo hands the real session id back to a client that opened the
// connection with a "new_*" placeholder, so subsequent frames address the
// session the runtime actually created.
type SessionInfo struct {
	SessionID string `json:"sessionID"`
}
