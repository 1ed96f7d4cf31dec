package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/agentrt/agentrt/internal/agent"
	"github.com/agentrt/agentrt/internal/fsm"
	"github.com/agentrt/agentrt/pkg/types"
)

// AgentStreamRequest is the body of POST /agent/message/stream, the
// endpoint the gateway's SSE client consumes on behalf of a WebSocket
// connection.
type AgentStreamRequest struct {
	SessionID string `json:"sessionID"`
	Content   string `json:"content"`
	Agent     string `json:"agent,omitempty"`
}

// streamAgentMessage handles POST /agent/message/stream. It runs one agentic
// turn and emits every intermediate message/part update as an SSE event,
// terminated by a final "done" event carrying the assistant's result. The
// gateway is the only intended consumer: it translates this stream back into
// WebSocket frames for its own client.
func (s *Server) streamAgentMessage(w http.ResponseWriter, r *http.Request) {
	var req AgentStreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}
	if req.SessionID == "" || req.Content == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "sessionID and content are required")
		return
	}

	tag := agent.Tag(req.Agent)
	if tag == "" {
		tag = agent.TagOrchestrator
	}
	ag, err := s.agents.Get(tag)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	s.resetIfTerminal(req.SessionID)
	s.driveFSM(req.SessionID, fsm.EventReceiveMessage, nil)
	s.driveFSM(req.SessionID, fsm.EventIsAtomicTrue, nil)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
	sse.flusher.Flush()

	userMsg := &types.Message{
		ID:        generateID(),
		SessionID: req.SessionID,
		Role:      "user",
		Time:      types.MessageTime{Created: nowMillis()},
	}
	if err := s.sessionService.AddMessage(r.Context(), req.SessionID, userMsg); err != nil {
		sse.writeEvent("error", map[string]string{"message": err.Error()})
		return
	}
	textPart := &types.TextPart{ID: generateID(), Type: "text", Text: req.Content}
	if err := s.sessionService.SavePart(r.Context(), userMsg.ID, textPart); err != nil {
		sse.writeEvent("error", map[string]string{"message": err.Error()})
		return
	}

	processor := s.sessionService.GetProcessor()
	if processor == nil {
		sse.writeEvent("error", map[string]string{"message": "no processor configured"})
		return
	}

	err = processor.Process(r.Context(), req.SessionID, ag, func(msg *types.Message, parts []types.Part) {
		sse.writeEvent("update", MessageResponse{Info: msg, Parts: parts})
	})
	if err != nil {
		s.driveFSM(req.SessionID, fsm.EventSubtaskFailed, nil)
		sse.writeEvent("error", map[string]string{"message": err.Error()})
		fmt.Fprint(w, "data: [DONE]\n\n")
		sse.flusher.Flush()
		return
	}
	s.driveFSM(req.SessionID, fsm.EventAllSubtasksDone, nil)

	msgs, err := s.sessionService.GetMessages(r.Context(), req.SessionID)
	if err == nil && len(msgs) > 0 {
		last := msgs[len(msgs)-1]
		parts, _ := s.sessionService.GetParts(r.Context(), last.ID)
		sse.writeEvent("done", MessageResponse{Info: last, Parts: parts})
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	sse.flusher.Flush()
}
