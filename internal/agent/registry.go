package agent

import (
	"fmt"
	"sync"

	"github.com/agentrt/agentrt/internal/approval"
)

// Registry manages agent configurations, keyed by tag. It is a
// write-mostly-at-startup singleton: built-in agents are seeded by
// NewRegistry and LoadFromConfig applies project-level overrides once at
// boot, after which lookups dominate.
type Registry struct {
	mu     sync.RWMutex
	agents map[Tag]*Agent
}

// NewRegistry creates a registry seeded with the built-in agents.
func NewRegistry() *Registry {
	r := &Registry{
		agents: make(map[Tag]*Agent),
	}
	for tag, a := range BuiltInAgents() {
		r.agents[tag] = a
	}
	return r
}

// Get retrieves an agent by tag.
func (r *Registry) Get(tag Tag) (*Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.agents[tag]
	if !ok {
		return nil, fmt.Errorf("agent not found for tag: %s", tag)
	}
	return a, nil
}

// Register adds or updates an agent under its own tag.
func (r *Registry) Register(a *Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[a.Tag] = a
}

// Unregister removes an agent by tag.
func (r *Registry) Unregister(tag Tag) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, tag)
}

// List returns all registered agents.
func (r *Registry) List() []*Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agents := make([]*Agent, 0, len(r.agents))
	for _, a := range r.agents {
		agents = append(agents, a)
	}
	return agents
}

// ListPrimary returns agents usable as a primary agent.
func (r *Registry) ListPrimary() []*Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var agents []*Agent
	for _, a := range r.agents {
		if a.IsPrimary() {
			agents = append(agents, a)
		}
	}
	return agents
}

// ListSubagents returns agents assignable to a plan subtask.
func (r *Registry) ListSubagents() []*Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var agents []*Agent
	for _, a := range r.agents {
		if a.IsSubagent() && a.IsAssignableToSubtask() {
			agents = append(agents, a)
		}
	}
	return agents
}

// Tags returns all registered tags.
func (r *Registry) Tags() []Tag {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tags := make([]Tag, 0, len(r.agents))
	for tag := range r.agents {
		tags = append(tags, tag)
	}
	return tags
}

// Exists checks if an agent is registered under tag.
func (r *Registry) Exists(tag Tag) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.agents[tag]
	return ok
}

// Count returns the number of registered agents.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// LoadFromConfig applies project-level overrides on top of the built-ins.
// Unknown tags are rejected silently to stay within the fixed dispatch set
// the engine understands; only the five built-in tags may be customized.
func (r *Registry) LoadFromConfig(config map[Tag]AgentConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for tag, cfg := range config {
		existing, ok := r.agents[tag]
		if !ok {
			continue
		}

		a := existing.Clone()
		a.BuiltIn = false

		if cfg.Description != "" {
			a.Description = cfg.Description
		}
		if cfg.Model != nil {
			a.Model = cfg.Model
		}
		if cfg.Prompt != "" {
			a.Prompt = cfg.Prompt
		}
		if cfg.Temperature > 0 {
			a.Temperature = cfg.Temperature
		}
		if cfg.TopP > 0 {
			a.TopP = cfg.TopP
		}
		if cfg.Color != "" {
			a.Color = cfg.Color
		}
		if cfg.Tools != nil {
			if a.Tools == nil {
				a.Tools = make(map[string]bool)
			}
			for k, v := range cfg.Tools {
				a.Tools[k] = v
			}
		}
		if cfg.Policy != nil {
			a.Policy = *cfg.Policy
		}
		if cfg.Options != nil {
			if a.Options == nil {
				a.Options = make(map[string]any)
			}
			for k, v := range cfg.Options {
				a.Options[k] = v
			}
		}

		r.agents[tag] = a
	}
}

// AgentConfig represents project-level configuration overriding a built-in
// agent. Mode is intentionally not overridable: tag-to-mode mapping is
// fixed by the dispatch contract.
type AgentConfig struct {
	Description string           `json:"description,omitempty"`
	Model       *ModelRef        `json:"model,omitempty"`
	Prompt      string           `json:"prompt,omitempty"`
	Temperature float64          `json:"temperature,omitempty"`
	TopP        float64          `json:"topP,omitempty"`
	Color       string           `json:"color,omitempty"`
	Tools       map[string]bool  `json:"tools,omitempty"`
	Policy      *approval.Policy `json:"policy,omitempty"`
	Options     map[string]any   `json:"options,omitempty"`
}
