package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentrt/agentrt/internal/approval"
)

func TestAgent_ToolEnabled(t *testing.T) {
	tests := []struct {
		name     string
		agent    *Agent
		toolID   string
		expected bool
	}{
		{"exact match enabled", &Agent{Tools: map[string]bool{"read": true}}, "read", true},
		{"exact match disabled", &Agent{Tools: map[string]bool{"write": false}}, "write", false},
		{"wildcard all enabled", &Agent{Tools: map[string]bool{"*": true}}, "anytool", true},
		{"prefix wildcard", &Agent{Tools: map[string]bool{"mcp_*": true}}, "mcp_server_tool", true},
		{"suffix wildcard", &Agent{Tools: map[string]bool{"*_read": false}}, "file_read", false},
		{"default enabled when not specified", &Agent{Tools: map[string]bool{"other": true}}, "unknown", true},
		{"nil tools map defaults to enabled", &Agent{Tools: nil}, "anything", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.agent.ToolEnabled(tt.toolID))
		})
	}
}

func TestAgent_RequiresApproval(t *testing.T) {
	a := &Agent{
		Policy: approval.Policy{
			Enabled:                 true,
			DefaultRequiresApproval: false,
			Rules: []approval.Rule{
				{Kind: approval.KindTool, SubjectPattern: "bash", RequiresApproval: true, Reason: "shell access"},
			},
		},
	}

	required, reason := a.RequiresApproval("bash", nil)
	assert.True(t, required)
	assert.Equal(t, "shell access", reason)

	required, _ = a.RequiresApproval("read", nil)
	assert.False(t, required)
}

func TestAgent_IsPrimaryAndIsSubagent(t *testing.T) {
	tests := []struct {
		mode       Mode
		isPrimary  bool
		isSubagent bool
	}{
		{ModePrimary, true, false},
		{ModeSubagent, false, true},
		{ModeAll, true, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			a := &Agent{Mode: tt.mode}
			assert.Equal(t, tt.isPrimary, a.IsPrimary())
			assert.Equal(t, tt.isSubagent, a.IsSubagent())
		})
	}
}

func TestAgent_ArchitectIsNeverAssignableToSubtask(t *testing.T) {
	architect := &Agent{Tag: TagArchitect, Mode: ModeAll}
	coder := &Agent{Tag: TagCoder, Mode: ModeAll}

	assert.False(t, architect.IsAssignableToSubtask())
	assert.True(t, coder.IsAssignableToSubtask())
}

func TestAgent_Clone(t *testing.T) {
	original := &Agent{
		Tag:         TagCoder,
		Name:        "test",
		Description: "Test agent",
		Mode:        ModePrimary,
		BuiltIn:     true,
		Temperature: 0.7,
		TopP:        0.9,
		Prompt:      "You are a test agent",
		Color:       "#FF0000",
		Policy: approval.Policy{
			Enabled:                 true,
			DefaultRequiresApproval: false,
			Rules: []approval.Rule{
				{Kind: approval.KindTool, SubjectPattern: "bash", RequiresApproval: true},
			},
		},
		Tools:   map[string]bool{"read": true, "write": false},
		Options: map[string]any{"key": "value"},
		Model:   &ModelRef{ProviderID: "anthropic", ModelID: "claude-3-sonnet"},
	}

	clone := original.Clone()

	assert.Equal(t, original.Name, clone.Name)
	assert.Equal(t, original.Description, clone.Description)
	assert.Equal(t, original.Mode, clone.Mode)
	assert.Equal(t, original.BuiltIn, clone.BuiltIn)
	assert.Equal(t, original.Temperature, clone.Temperature)
	assert.Equal(t, original.TopP, clone.TopP)
	assert.Equal(t, original.Prompt, clone.Prompt)
	assert.Equal(t, original.Color, clone.Color)
	assert.Equal(t, original.Model.ProviderID, clone.Model.ProviderID)
	assert.Equal(t, original.Model.ModelID, clone.Model.ModelID)
	assert.Len(t, clone.Policy.Rules, 1)

	clone.Tools["read"] = false
	assert.True(t, original.Tools["read"], "modifying clone should not affect original")

	clone.Policy.Rules[0].Reason = "changed"
	assert.NotEqual(t, "changed", original.Policy.Rules[0].Reason, "rule slice must be copied")

	clone.Options["new"] = "value"
	_, exists := original.Options["new"]
	assert.False(t, exists, "modifying clone should not affect original")
}

func TestMatchWildcard(t *testing.T) {
	tests := []struct {
		pattern  string
		s        string
		expected bool
	}{
		{"*", "anything", true},
		{"*", "", true},
		{"prefix*", "prefix-hello", true},
		{"prefix*", "prefixworld", true},
		{"prefix*", "other", false},
		{"*suffix", "hello-suffix", true},
		{"*suffix", "worldsuffix", true},
		{"*suffix", "other", false},
		{"exact", "exact", true},
		{"exact", "different", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"_"+tt.s, func(t *testing.T) {
			assert.Equal(t, tt.expected, matchWildcard(tt.pattern, tt.s))
		})
	}
}

func TestBuiltInAgents(t *testing.T) {
	agents := BuiltInAgents()

	expectedTags := []Tag{TagOrchestrator, TagCoder, TagArchitect, TagDebug, TagExplain}
	for _, tag := range expectedTags {
		a, ok := agents[tag]
		require.True(t, ok, "expected agent tag %s to exist", tag)
		assert.True(t, a.BuiltIn)
		assert.Equal(t, tag, a.Tag)
	}

	architect := agents[TagArchitect]
	assert.False(t, architect.IsAssignableToSubtask())
	assert.False(t, architect.Tools["write_file"])

	coder := agents[TagCoder]
	required, _ := coder.RequiresApproval("bash", nil)
	assert.True(t, required)

	explain := agents[TagExplain]
	required, _ = explain.RequiresApproval("read", nil)
	assert.False(t, required)
	required, _ = explain.RequiresApproval("bash", nil)
	assert.True(t, required, "explain defaults to requiring approval for anything not explicitly read-only")
}
