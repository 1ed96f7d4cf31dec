package approval

import (
	"context"
	"sync"
)

// Manager combines a Policy with a Store: it decides whether a subject
// needs approval and, if so, registers the pending row and blocks the
// caller until a decision arrives.
type Manager struct {
	mu     sync.RWMutex
	policy Policy
	store  *Store
}

// NewManager creates a Manager with the given initial policy.
func NewManager(policy Policy, store *Store) *Manager {
	return &Manager{policy: policy, store: store}
}

// SetPolicy replaces the active policy, e.g. after an fsnotify reload.
func (m *Manager) SetPolicy(policy Policy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policy = policy
}

// Policy returns the active policy.
func (m *Manager) Policy() Policy {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.policy
}

// RequireApproval checks the policy for (kind, subject, arguments). If
// approval is required, it registers a pending request and blocks until
// the request is resolved or ctx is cancelled, returning RejectedError on
// rejection. If approval is not required it returns immediately.
func (m *Manager) RequireApproval(ctx context.Context, sessionID string, kind Kind, subject string, arguments map[string]any) error {
	policy := m.Policy()
	required, reason := policy.ShouldRequireApproval(kind, subject, arguments)
	if !required {
		return nil
	}

	row := m.store.AddPending(Request{
		Kind:      kind,
		Subject:   subject,
		SessionID: sessionID,
		Details:   arguments,
		Reason:    reason,
	})

	status, err := m.store.Await(ctx, row.RequestID)
	if err != nil {
		return err
	}
	if status == StatusRejected {
		resolved, _ := m.store.Get(row.RequestID)
		rejectReason := ""
		if resolved != nil {
			rejectReason = resolved.RejectedReason
		}
		return &RejectedError{RequestID: row.RequestID, Kind: kind, Subject: subject, Reason: rejectReason}
	}
	return nil
}

// Store exposes the underlying store, e.g. for REST handlers listing
// pending approvals for a session.
func (m *Manager) Store() *Store {
	return m.store
}
