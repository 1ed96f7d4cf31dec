// Package agent provides the process-wide registry of specialist agents and
// the tagged-dispatch lookup the execution engine uses to route a subtask
// or classified turn to the agent that should handle it.
package agent

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/agentrt/agentrt/internal/approval"
)

// Tag identifies an agent's specialization. The execution engine and the
// classifier route exclusively by tag, never by name lookup against free
// text.
type Tag string

const (
	TagOrchestrator Tag = "orchestrator"
	TagCoder        Tag = "coder"
	TagArchitect    Tag = "architect"
	TagDebug        Tag = "debug"
	TagExplain      Tag = "explain"
)

// Agent represents an agent configuration: what it is, what it may do, and
// how to reach its model.
type Agent struct {
	Tag         Tag             `json:"tag"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Mode        Mode            `json:"mode"`
	BuiltIn     bool            `json:"builtIn"`
	Policy      approval.Policy `json:"policy"`
	Tools       map[string]bool `json:"tools"`
	Options     map[string]any  `json:"options,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
	TopP        float64         `json:"topP,omitempty"`
	MaxSteps    int             `json:"maxSteps,omitempty"`
	Model       *ModelRef       `json:"model,omitempty"`
	Prompt      string          `json:"prompt,omitempty"`
	Color       string          `json:"color,omitempty"`
}

// Mode represents the agent operation mode.
type Mode string

const (
	ModePrimary  Mode = "primary"
	ModeSubagent Mode = "subagent"
	ModeAll      Mode = "all"
)

// ModelRef references a specific model.
type ModelRef struct {
	ProviderID string `json:"providerID"`
	ModelID    string `json:"modelID"`
}

// ToolEnabled checks if a tool is enabled for this agent.
func (a *Agent) ToolEnabled(toolID string) bool {
	if enabled, ok := a.Tools[toolID]; ok {
		return enabled
	}

	for pattern, enabled := range a.Tools {
		if matchWildcard(pattern, toolID) {
			return enabled
		}
	}

	return true
}

// RequiresApproval evaluates the agent's approval policy for a tool call.
func (a *Agent) RequiresApproval(toolName string, arguments map[string]any) (bool, string) {
	return a.Policy.ShouldRequireApproval(approval.KindTool, toolName, arguments)
}

// IsPrimary returns true if the agent can be used as a primary agent.
func (a *Agent) IsPrimary() bool {
	return a.Mode == ModePrimary || a.Mode == ModeAll
}

// IsSubagent returns true if the agent can be used as a subagent.
func (a *Agent) IsSubagent() bool {
	return a.Mode == ModeSubagent || a.Mode == ModeAll
}

// IsAssignableToSubtask reports whether the execution engine may assign a
// plan subtask to this agent. The architect produces plans; it never
// executes one of its own subtasks.
func (a *Agent) IsAssignableToSubtask() bool {
	return a.Tag != TagArchitect
}

// Clone creates a deep copy of the agent.
func (a *Agent) Clone() *Agent {
	clone := &Agent{
		Tag:         a.Tag,
		Name:        a.Name,
		Description: a.Description,
		Mode:        a.Mode,
		BuiltIn:     a.BuiltIn,
		Temperature: a.Temperature,
		TopP:        a.TopP,
		MaxSteps:    a.MaxSteps,
		Prompt:      a.Prompt,
		Color:       a.Color,
	}

	clone.Policy = approval.Policy{
		Enabled:                 a.Policy.Enabled,
		DefaultRequiresApproval: a.Policy.DefaultRequiresApproval,
		Rules:                   append([]approval.Rule(nil), a.Policy.Rules...),
	}

	if a.Tools != nil {
		clone.Tools = make(map[string]bool, len(a.Tools))
		for k, v := range a.Tools {
			clone.Tools[k] = v
		}
	}

	if a.Options != nil {
		clone.Options = make(map[string]any, len(a.Options))
		for k, v := range a.Options {
			clone.Options[k] = v
		}
	}

	if a.Model != nil {
		clone.Model = &ModelRef{ProviderID: a.Model.ProviderID, ModelID: a.Model.ModelID}
	}

	return clone
}

// matchWildcard checks if a string matches a wildcard pattern.
// For simple patterns (* at start/end), uses string matching.
// For complex patterns (containing **), uses doublestar.
func matchWildcard(pattern, s string) bool {
	if pattern == "*" {
		return true
	}

	if strings.Contains(pattern, "**") {
		matched, _ := doublestar.Match(pattern, s)
		return matched
	}

	if strings.HasSuffix(pattern, "*") && !strings.HasPrefix(pattern, "*") {
		prefix := strings.TrimSuffix(pattern, "*")
		return strings.HasPrefix(s, prefix)
	}

	if strings.HasPrefix(pattern, "*") && !strings.HasSuffix(pattern, "*") {
		suffix := strings.TrimPrefix(pattern, "*")
		return strings.HasSuffix(s, suffix)
	}

	if strings.Contains(pattern, "*") {
		matched, _ := doublestar.Match(pattern, s)
		return matched
	}

	return pattern == s
}

// BuiltInAgents returns the default agent configurations, one per tag.
func BuiltInAgents() map[Tag]*Agent {
	return map[Tag]*Agent{
		TagOrchestrator: {
			Tag:         TagOrchestrator,
			Name:        "orchestrator",
			Description: "Classifies incoming turns and routes atomic work directly or hands complex work to the architect",
			Mode:        ModePrimary,
			BuiltIn:     true,
			MaxSteps:    10,
			Policy:      approval.DefaultPolicy(),
			Tools:       map[string]bool{"*": false},
		},
		TagCoder: {
			Tag:         TagCoder,
			Name:        "coder",
			Description: "Executes atomic turns and plan subtasks that write or modify code",
			Mode:        ModeAll,
			BuiltIn:     true,
			MaxSteps:    50,
			Policy: approval.Policy{
				Enabled:                 true,
				DefaultRequiresApproval: false,
				Rules: []approval.Rule{
					{Kind: approval.KindTool, SubjectPattern: "bash", RequiresApproval: true, Reason: "shell access"},
					{Kind: approval.KindTool, SubjectPattern: "write_file", RequiresApproval: true, Reason: "filesystem write"},
					{Kind: approval.KindTool, SubjectPattern: "edit_file", RequiresApproval: true, Reason: "filesystem write"},
				},
			},
			Tools: map[string]bool{"*": true},
		},
		TagArchitect: {
			Tag:         TagArchitect,
			Name:        "architect",
			Description: "Decomposes non-atomic goals into a dependency graph of subtasks for review",
			Mode:        ModePrimary,
			BuiltIn:     true,
			MaxSteps:    20,
			Policy:      approval.DefaultPolicy(),
			Tools: map[string]bool{
				"read": true, "glob": true, "grep": true, "ls": true,
				"bash": false, "edit_file": false, "write_file": false,
			},
		},
		TagDebug: {
			Tag:         TagDebug,
			Name:        "debug",
			Description: "Investigates failures with read-only and narrowly-scoped diagnostic tools",
			Mode:        ModeAll,
			BuiltIn:     true,
			MaxSteps:    30,
			Policy: approval.Policy{
				Enabled:                 true,
				DefaultRequiresApproval: false,
				Rules: []approval.Rule{
					{Kind: approval.KindTool, SubjectPattern: "bash", RequiresApproval: true, Reason: "shell access"},
				},
			},
			Tools: map[string]bool{
				"read": true, "glob": true, "grep": true, "ls": true, "bash": true,
				"edit_file": false, "write_file": false,
			},
		},
		TagExplain: {
			Tag:         TagExplain,
			Name:        "explain",
			Description: "Read-only agent that answers questions about the codebase without mutating it",
			Mode:        ModeAll,
			BuiltIn:     true,
			MaxSteps:    15,
			Policy: approval.Policy{
				Enabled:                 true,
				DefaultRequiresApproval: true,
				Rules: []approval.Rule{
					{Kind: approval.KindTool, SubjectPattern: "read", RequiresApproval: false},
					{Kind: approval.KindTool, SubjectPattern: "glob", RequiresApproval: false},
					{Kind: approval.KindTool, SubjectPattern: "grep", RequiresApproval: false},
					{Kind: approval.KindTool, SubjectPattern: "ls", RequiresApproval: false},
				},
			},
			Tools: map[string]bool{
				"read": true, "glob": true, "grep": true, "ls": true,
				"bash": false, "edit_file": false, "write_file": false,
			},
		},
	}
}
