package plan

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agentrt/agentrt/internal/persistence"
)

// Store persists ExecutionPlans under plan/{planID} in the shared
// hierarchical key-value store, mirroring the layout internal/conversation
// uses for sessions and messages.
type Store struct {
	store *persistence.Store
}

// NewStore wraps the shared persistence.Store.
func NewStore(store *persistence.Store) *Store {
	return &Store{store: store}
}

// Save upserts a plan.
func (s *Store) Save(ctx context.Context, p *ExecutionPlan) error {
	return s.store.Put(ctx, []string{"plan", p.ID}, p)
}

// Get loads a plan by id.
func (s *Store) Get(ctx context.Context, planID string) (*ExecutionPlan, error) {
	var p ExecutionPlan
	if err := s.store.Get(ctx, []string{"plan", planID}, &p); err != nil {
		return nil, fmt.Errorf("plan %s: %w", planID, err)
	}
	return &p, nil
}

// ListByConversation returns every plan created against a conversation, most
// recently created first is not guaranteed; callers sort if order matters.
func (s *Store) ListByConversation(ctx context.Context, conversationID string) ([]*ExecutionPlan, error) {
	var plans []*ExecutionPlan
	err := s.store.Scan(ctx, []string{"plan"}, func(key string, data json.RawMessage) error {
		var p ExecutionPlan
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		if p.ConversationID == conversationID {
			plans = append(plans, &p)
		}
		return nil
	})
	return plans, err
}

// Delete removes a plan, e.g. on conversation deletion (cascade).
func (s *Store) Delete(ctx context.Context, planID string) error {
	return s.store.Delete(ctx, []string{"plan", planID})
}
