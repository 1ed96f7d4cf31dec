package fsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition_HappyPath(t *testing.T) {
	o := New()

	state, err := o.Transition("s1", EventReceiveMessage, nil)
	require.NoError(t, err)
	assert.Equal(t, StateClassify, state)

	state, err = o.Transition("s1", EventIsAtomicFalse, nil)
	require.NoError(t, err)
	assert.Equal(t, StatePlanRequired, state)

	state, err = o.Transition("s1", EventRouteToArchitect, nil)
	require.NoError(t, err)
	assert.Equal(t, StateArchitectPlanning, state)

	state, err = o.Transition("s1", EventPlanCreated, nil)
	require.NoError(t, err)
	assert.Equal(t, StatePlanReview, state)

	state, err = o.Transition("s1", EventPlanApproved, nil)
	require.NoError(t, err)
	assert.Equal(t, StatePlanExecution, state)

	state, err = o.Transition("s1", EventPlanExecutionCompleted, nil)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, state)

	state, err = o.Transition("s1", EventReset, nil)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, state)
}

func TestTransition_InvalidIsRejectedAndLeavesStateUntouched(t *testing.T) {
	o := New()

	_, err := o.Transition("s1", EventReceiveMessage, nil)
	require.NoError(t, err)

	_, err = o.Transition("s1", EventPlanApproved, nil)
	require.Error(t, err)
	var invalidErr *ErrInvalidTransition
	require.ErrorAs(t, err, &invalidErr)
	assert.Equal(t, StateClassify, invalidErr.From)

	state, _ := o.CurrentState("s1")
	assert.Equal(t, StateClassify, state, "a rejected transition must not mutate state")
}

func TestTransition_MergesMetadataAcrossCalls(t *testing.T) {
	o := New()

	_, err := o.Transition("s1", EventReceiveMessage, map[string]any{"turn": 1})
	require.NoError(t, err)
	_, err = o.Transition("s1", EventIsAtomicTrue, map[string]any{"agent": "coder"})
	require.NoError(t, err)

	ctx := o.ContextFor("s1")
	assert.Equal(t, 1, ctx.Metadata["turn"])
	assert.Equal(t, "coder", ctx.Metadata["agent"])
}

func TestContextsAreIndependentPerSession(t *testing.T) {
	o := New()

	_, err := o.Transition("a", EventReceiveMessage, nil)
	require.NoError(t, err)

	state, ok := o.CurrentState("b")
	assert.False(t, ok)
	assert.Equal(t, State(""), state)

	state, _ = o.CurrentState("a")
	assert.Equal(t, StateClassify, state)
}

func TestValidTransition_OnlyTableEntriesAreValid(t *testing.T) {
	_, ok := ValidTransition(StateIdle, EventReceiveMessage)
	assert.True(t, ok)

	_, ok = ValidTransition(StateIdle, EventPlanApproved)
	assert.False(t, ok)

	_, ok = ValidTransition(StateCompleted, EventReset)
	assert.True(t, ok)
}

func TestReset_ForcesIdleFromAnyState(t *testing.T) {
	o := New()
	_, _ = o.Transition("s1", EventReceiveMessage, nil)
	_, _ = o.Transition("s1", EventIsAtomicFalse, nil)

	o.Reset("s1")

	state, _ := o.CurrentState("s1")
	assert.Equal(t, StateIdle, state)
}
