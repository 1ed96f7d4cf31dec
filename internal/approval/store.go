package approval

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/agentrt/agentrt/internal/event"
)

// Store is the unified repository of pending approvals, keyed by
// request_id and filterable by session and kind. It also implements the
// synchronous "ask and block until resolved" pattern used by the
// execution engine when it needs an in-process answer rather than polling.
type Store struct {
	mu      sync.RWMutex
	rows    map[string]*PendingApproval
	waiters map[string]chan Status
	bus     *event.Bus
}

// NewStore creates an empty approval store publishing to bus.
func NewStore(bus *event.Bus) *Store {
	if bus == nil {
		bus = event.NewBus()
	}
	return &Store{
		rows:    make(map[string]*PendingApproval),
		waiters: make(map[string]chan Status),
		bus:     bus,
	}
}

// AddPending records a new request in Pending status. If req.RequestID is
// empty one is generated. Returns the stored row.
func (s *Store) AddPending(req Request) *PendingApproval {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.RequestID == "" {
		req.RequestID = ulid.Make().String()
	}

	row := &PendingApproval{
		RequestID: req.RequestID,
		Kind:      req.Kind,
		Subject:   req.Subject,
		SessionID: req.SessionID,
		Details:   req.Details,
		Reason:    req.Reason,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
	s.rows[row.RequestID] = row
	s.waiters[row.RequestID] = make(chan Status, 1)

	s.bus.Publish(event.Event{
		Type: event.ApprovalPending,
		Data: event.ApprovalPendingData{
			RequestID: row.RequestID,
			SessionID: row.SessionID,
			Kind:      string(row.Kind),
			Subject:   row.Subject,
			Details:   row.Details,
			Reason:    row.Reason,
		},
	})

	return row
}

// GetPending returns a row only if it is still Pending.
func (s *Store) GetPending(requestID string) (*PendingApproval, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.rows[requestID]
	if !ok || row.Status != StatusPending {
		return nil, false
	}
	cp := *row
	return &cp, true
}

// Get returns a row regardless of status.
func (s *Store) Get(requestID string) (*PendingApproval, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.rows[requestID]
	if !ok {
		return nil, false
	}
	cp := *row
	return &cp, true
}

// GetAllPending returns pending rows for a session, optionally filtered to
// a set of kinds. An empty kinds filter returns all kinds.
func (s *Store) GetAllPending(sessionID string, kinds ...Kind) []*PendingApproval {
	s.mu.RLock()
	defer s.mu.RUnlock()

	kindSet := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		kindSet[k] = true
	}

	var out []*PendingApproval
	for _, row := range s.rows {
		if row.SessionID != sessionID || row.Status != StatusPending {
			continue
		}
		if len(kindSet) > 0 && !kindSet[row.Kind] {
			continue
		}
		cp := *row
		out = append(out, &cp)
	}
	return out
}

// Approve moves a request from Pending to Approved. It is an error to
// approve a row that is not Pending.
func (s *Store) Approve(requestID string) (*PendingApproval, error) {
	return s.resolve(requestID, StatusApproved, "")
}

// Reject moves a request from Pending to Rejected with an optional reason.
func (s *Store) Reject(requestID string, reason string) (*PendingApproval, error) {
	return s.resolve(requestID, StatusRejected, reason)
}

func (s *Store) resolve(requestID string, status Status, reason string) (*PendingApproval, error) {
	s.mu.Lock()

	row, ok := s.rows[requestID]
	if !ok {
		s.mu.Unlock()
		return nil, &ErrNotFound{RequestID: requestID}
	}
	if row.Status != StatusPending {
		s.mu.Unlock()
		return nil, &ErrAlreadyResolved{RequestID: requestID, Status: row.Status}
	}

	now := time.Now()
	row.Status = status
	row.ResolvedAt = &now
	if status == StatusRejected {
		row.RejectedReason = reason
	}

	waiter, hasWaiter := s.waiters[requestID]
	if hasWaiter {
		delete(s.waiters, requestID)
	}
	cp := *row
	s.mu.Unlock()

	if hasWaiter {
		waiter <- status
		close(waiter)
	}

	eventType := event.ApprovalApproved
	if status == StatusRejected {
		eventType = event.ApprovalRejected
	}
	s.bus.Publish(event.Event{
		Type: eventType,
		Data: event.ApprovalResolvedData{
			RequestID: row.RequestID,
			SessionID: row.SessionID,
			Kind:      string(row.Kind),
			Subject:   row.Subject,
			Reason:    reason,
		},
	})

	return &cp, nil
}

// Await blocks until requestID leaves Pending status or ctx is cancelled.
// It is the in-process complement to the polling-based
// (*execution.Engine).WaitForApprovalResolution used by the plan-level engine.
func (s *Store) Await(ctx context.Context, requestID string) (Status, error) {
	s.mu.RLock()
	row, ok := s.rows[requestID]
	if !ok {
		s.mu.RUnlock()
		return "", &ErrNotFound{RequestID: requestID}
	}
	if row.Status != StatusPending {
		status := row.Status
		s.mu.RUnlock()
		return status, nil
	}
	waiter := s.waiters[requestID]
	s.mu.RUnlock()

	select {
	case <-ctx.Done():
		return StatusPending, ctx.Err()
	case status := <-waiter:
		return status, nil
	}
}

// AllResolved reports whether every id in requestIDs has left Pending
// status, used by the polling-based plan approval waiter.
func (s *Store) AllResolved(requestIDs []string) (bool, []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var unresolved []string
	for _, id := range requestIDs {
		row, ok := s.rows[id]
		if !ok || row.Status == StatusPending {
			unresolved = append(unresolved, id)
		}
	}
	return len(unresolved) == 0, unresolved
}
