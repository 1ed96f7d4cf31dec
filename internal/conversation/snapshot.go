package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/agentrt/agentrt/pkg/types"
)

// ConversationSnapshot is an immutable copy of a session's message list,
// taken before a subtask runs so the subtask's own turns can be isolated
// and then discarded (or partially kept) once it finishes.
type ConversationSnapshot struct {
	ID        string          `json:"id"`
	SessionID string          `json:"sessionID"`
	SubtaskID string          `json:"subtaskID,omitempty"`
	Messages  []*types.Message `json:"messages"`
	CreatedAt time.Time       `json:"createdAt"`
}

// dependencyNote synthesizes a system-role message describing the outputs
// of subtasks this one depends on, in deterministic (sorted-by-id) order,
// so the subtask's agent sees prior results without the architect's own
// planning turns in context.
func dependencyNote(dependencyResults map[string]string) (*types.Message, string) {
	if len(dependencyResults) == 0 {
		return nil, ""
	}

	ids := make([]string, 0, len(dependencyResults))
	for id := range dependencyResults {
		ids = append(ids, id)
	}
	// Deterministic header ordering by dependency id.
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j] < ids[j-1]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}

	text := "Results from dependent subtasks:\n"
	for _, id := range ids {
		text += fmt.Sprintf("\n## %s\n%s\n", id, dependencyResults[id])
	}

	msg := &types.Message{
		ID:   generateID(),
		Role: "system",
		Time: types.MessageTime{Created: time.Now().UnixMilli()},
	}
	return msg, text
}

// CreateSubtaskSnapshot records the session's current message list and
// appends a synthetic note describing the results of subtaskID's
// dependencies, returning the snapshot id so the caller can restore it once
// the subtask finishes.
func (s *Service) CreateSubtaskSnapshot(ctx context.Context, sessionID, subtaskID string, dependencyResults map[string]string) (string, error) {
	messages, err := s.GetMessages(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("snapshot: load history for %s: %w", sessionID, err)
	}

	snap := &ConversationSnapshot{
		ID:        ulid.Make().String(),
		SessionID: sessionID,
		SubtaskID: subtaskID,
		Messages:  append([]*types.Message{}, messages...),
		CreatedAt: time.Now(),
	}

	if err := s.store.Put(ctx, []string{"snapshot", sessionID, snap.ID}, snap); err != nil {
		return "", fmt.Errorf("snapshot: save: %w", err)
	}

	if note, text := dependencyNote(dependencyResults); note != nil {
		if err := s.AddMessage(ctx, sessionID, note); err != nil {
			return "", fmt.Errorf("snapshot: append dependency note: %w", err)
		}
		part := &types.TextPart{ID: generateID(), Type: "text", Text: text}
		if err := s.store.Put(ctx, []string{"part", note.ID, part.ID}, part); err != nil {
			return "", fmt.Errorf("snapshot: append dependency note part: %w", err)
		}
	}

	return snap.ID, nil
}

// GetSnapshot loads a previously created snapshot by id.
func (s *Service) GetSnapshot(ctx context.Context, sessionID, snapshotID string) (*ConversationSnapshot, error) {
	var snap ConversationSnapshot
	if err := s.store.Get(ctx, []string{"snapshot", sessionID, snapshotID}, &snap); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", snapshotID, err)
	}
	return &snap, nil
}

// RestoreFromSnapshot replaces the session's live message list with the
// snapshot's, undoing whatever turns the subtask appended on top of it. If
// preserveLastResult is true, the subtask's final assistant message (the
// last message present before restore but absent from the snapshot) is kept
// on top of the restored history, so later subtasks can still see the
// result even though the subtask's intermediate tool chatter is discarded.
func (s *Service) RestoreFromSnapshot(ctx context.Context, sessionID, snapshotID string, preserveLastResult bool) error {
	snap, err := s.GetSnapshot(ctx, sessionID, snapshotID)
	if err != nil {
		return err
	}

	current, err := s.GetMessages(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("restore: load current history: %w", err)
	}

	var lastResult *types.Message
	if preserveLastResult && len(current) > len(snap.Messages) {
		lastResult = current[len(current)-1]
	}

	// Drop every message added since the snapshot was taken.
	snapshotIDs := make(map[string]bool, len(snap.Messages))
	for _, m := range snap.Messages {
		snapshotIDs[m.ID] = true
	}
	for _, m := range current {
		if !snapshotIDs[m.ID] {
			if err := s.store.Delete(ctx, []string{"message", sessionID, m.ID}); err != nil {
				return fmt.Errorf("restore: drop message %s: %w", m.ID, err)
			}
		}
	}

	if lastResult != nil {
		if err := s.AddMessage(ctx, sessionID, lastResult); err != nil {
			return fmt.Errorf("restore: re-add preserved result: %w", err)
		}
	}

	return s.store.Delete(ctx, []string{"snapshot", sessionID, snapshotID})
}

// MarshalResult renders a message's text parts into a single string, used
// to summarize a subtask's final assistant message for dependency notes.
func MarshalResult(parts []types.Part) string {
	var out string
	for _, part := range parts {
		if tp, ok := part.(*types.TextPart); ok {
			out += tp.Text
		}
	}
	if out == "" {
		b, _ := json.Marshal(parts)
		out = string(b)
	}
	return out
}
