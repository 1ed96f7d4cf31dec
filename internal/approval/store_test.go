package approval

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_AddPendingAndApprove(t *testing.T) {
	s := NewStore(nil)

	row := s.AddPending(Request{Kind: KindTool, Subject: "bash", SessionID: "s1"})
	assert.Equal(t, StatusPending, row.Status)

	_, ok := s.GetPending(row.RequestID)
	assert.True(t, ok)

	resolved, err := s.Approve(row.RequestID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, resolved.Status)

	_, ok = s.GetPending(row.RequestID)
	assert.False(t, ok, "an approved row is no longer pending")
}

func TestStore_ReApproveFails(t *testing.T) {
	s := NewStore(nil)
	row := s.AddPending(Request{Kind: KindPlan, Subject: "goal", SessionID: "s1"})

	_, err := s.Approve(row.RequestID)
	require.NoError(t, err)

	_, err = s.Approve(row.RequestID)
	require.Error(t, err)
	var already *ErrAlreadyResolved
	require.ErrorAs(t, err, &already)
}

func TestStore_AwaitUnblocksOnResolve(t *testing.T) {
	s := NewStore(nil)
	row := s.AddPending(Request{Kind: KindTool, Subject: "write_file", SessionID: "s1"})

	done := make(chan Status, 1)
	go func() {
		status, err := s.Await(context.Background(), row.RequestID)
		require.NoError(t, err)
		done <- status
	}()

	time.Sleep(10 * time.Millisecond)
	_, err := s.Reject(row.RequestID, "too risky")
	require.NoError(t, err)

	select {
	case status := <-done:
		assert.Equal(t, StatusRejected, status)
	case <-time.After(time.Second):
		t.Fatal("Await did not unblock")
	}
}

func TestStore_AllResolved(t *testing.T) {
	s := NewStore(nil)
	a := s.AddPending(Request{Kind: KindTool, Subject: "a", SessionID: "s1"})
	b := s.AddPending(Request{Kind: KindTool, Subject: "b", SessionID: "s1"})

	ok, unresolved := s.AllResolved([]string{a.RequestID, b.RequestID})
	assert.False(t, ok)
	assert.ElementsMatch(t, []string{a.RequestID, b.RequestID}, unresolved)

	_, _ = s.Approve(a.RequestID)
	ok, unresolved = s.AllResolved([]string{a.RequestID, b.RequestID})
	assert.False(t, ok)
	assert.Equal(t, []string{b.RequestID}, unresolved)

	_, _ = s.Approve(b.RequestID)
	ok, unresolved = s.AllResolved([]string{a.RequestID, b.RequestID})
	assert.True(t, ok)
	assert.Empty(t, unresolved)
}

func TestPolicy_FirstMatchingRuleWins(t *testing.T) {
	policy := Policy{
		Enabled:                 true,
		DefaultRequiresApproval: false,
		Rules: []Rule{
			{Kind: KindTool, SubjectPattern: "bash", RequiresApproval: true, Reason: "shell access"},
			{Kind: KindTool, SubjectPattern: "*", RequiresApproval: false},
		},
	}

	required, reason := policy.ShouldRequireApproval(KindTool, "bash", nil)
	assert.True(t, required)
	assert.Equal(t, "shell access", reason)

	required, _ = policy.ShouldRequireApproval(KindTool, "read_file", nil)
	assert.False(t, required)
}

func TestPolicy_ConditionGatesRule(t *testing.T) {
	policy := Policy{
		Enabled:                 true,
		DefaultRequiresApproval: false,
		Rules: []Rule{
			{
				Kind:             KindTool,
				SubjectPattern:   "write_file",
				Conditions:       []Condition{{Op: OpPathPrefix, ArgumentKey: "path", Value: "/etc/"}},
				RequiresApproval: true,
				Reason:           "system path",
			},
		},
	}

	required, _ := policy.ShouldRequireApproval(KindTool, "write_file", map[string]any{"path": "/etc/passwd"})
	assert.True(t, required)

	required, _ = policy.ShouldRequireApproval(KindTool, "write_file", map[string]any{"path": "/tmp/foo"})
	assert.False(t, required)
}

func TestManager_RequireApproval_RejectedReturnsError(t *testing.T) {
	store := NewStore(nil)
	mgr := NewManager(Policy{Enabled: true, DefaultRequiresApproval: true}, store)

	done := make(chan error, 1)
	go func() {
		done <- mgr.RequireApproval(context.Background(), "s1", KindTool, "bash", nil)
	}()

	time.Sleep(10 * time.Millisecond)
	pending := store.GetAllPending("s1", KindTool)
	require.Len(t, pending, 1)
	_, err := store.Reject(pending[0].RequestID, "denied")
	require.NoError(t, err)

	err = <-done
	require.Error(t, err)
	assert.True(t, IsRejectedError(err))
}
