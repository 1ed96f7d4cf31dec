package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentrt/agentrt/internal/approval"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()

	assert.True(t, r.Exists(TagOrchestrator))
	assert.True(t, r.Exists(TagCoder))
	assert.True(t, r.Exists(TagArchitect))
	assert.True(t, r.Exists(TagDebug))
	assert.True(t, r.Exists(TagExplain))
	assert.Equal(t, 5, r.Count())
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry()

	a, err := r.Get(TagCoder)
	require.NoError(t, err)
	assert.Equal(t, "coder", a.Name)

	_, err = r.Get(Tag("nonexistent"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "agent not found")
}

func TestRegistry_RegisterAndUnregister(t *testing.T) {
	r := NewRegistry()

	custom := &Agent{Tag: Tag("custom"), Name: "custom", Mode: ModeSubagent}
	r.Register(custom)

	a, err := r.Get(Tag("custom"))
	require.NoError(t, err)
	assert.Equal(t, "custom", a.Name)
	assert.Equal(t, 6, r.Count())

	r.Unregister(Tag("custom"))
	assert.False(t, r.Exists(Tag("custom")))
}

func TestRegistry_ListPrimaryAndSubagents(t *testing.T) {
	r := NewRegistry()

	primary := r.ListPrimary()
	assert.GreaterOrEqual(t, len(primary), 2)
	for _, a := range primary {
		assert.True(t, a.IsPrimary())
	}

	subagents := r.ListSubagents()
	for _, a := range subagents {
		assert.True(t, a.IsSubagent())
		assert.NotEqual(t, TagArchitect, a.Tag, "architect must never be listed as assignable to a subtask")
	}
}

func TestRegistry_LoadFromConfig_OverridesBuiltIn(t *testing.T) {
	r := NewRegistry()

	config := map[Tag]AgentConfig{
		TagCoder: {
			Temperature: 0.5,
			Model:       &ModelRef{ProviderID: "openai", ModelID: "gpt-4"},
			Policy: &approval.Policy{
				Enabled:                 true,
				DefaultRequiresApproval: true,
			},
		},
	}

	r.LoadFromConfig(config)

	coder, err := r.Get(TagCoder)
	require.NoError(t, err)
	assert.Equal(t, 0.5, coder.Temperature)
	assert.Equal(t, "openai", coder.Model.ProviderID)
	assert.False(t, coder.BuiltIn)
	required, _ := coder.RequiresApproval("anything", nil)
	assert.True(t, required)
}

func TestRegistry_LoadFromConfig_UnknownTagIgnored(t *testing.T) {
	r := NewRegistry()
	before := r.Count()

	r.LoadFromConfig(map[Tag]AgentConfig{
		Tag("made-up"): {Description: "should be ignored"},
	})

	assert.Equal(t, before, r.Count())
	assert.False(t, r.Exists(Tag("made-up")))
}

func TestRegistry_Concurrency(t *testing.T) {
	r := NewRegistry()

	done := make(chan bool, 100)

	for i := 0; i < 50; i++ {
		go func() {
			_, _ = r.Get(TagCoder)
			r.List()
			r.Tags()
			r.Count()
			done <- true
		}()
	}

	for i := 0; i < 50; i++ {
		go func() {
			r.Register(&Agent{Tag: Tag("concurrent"), Name: "concurrent"})
			r.Unregister(Tag("concurrent"))
			done <- true
		}()
	}

	for i := 0; i < 100; i++ {
		<-done
	}
}
