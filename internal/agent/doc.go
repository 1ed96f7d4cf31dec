// Package agent provides the process-wide registry of specialist agents
// and the tagged-dispatch contract the rest of the runtime uses to route
// work to them.
//
// # Agent Tags
//
// The engine looks up agents by Tag, never by free-text name. There are
// five built-in tags:
//
//   - orchestrator: classifies an incoming turn and routes it
//   - coder: executes atomic turns and plan subtasks that touch code
//   - architect: decomposes non-atomic goals into a plan; never itself
//     assigned to a subtask (see [Agent.IsAssignableToSubtask])
//   - debug: investigates failures with narrowly-scoped diagnostic tools
//   - explain: answers questions without mutating anything
//
// # Agent Modes
//
// Agents operate in one of three modes:
//
//   - ModePrimary: can be selected as the main agent for a session
//   - ModeSubagent: can only be invoked as a plan subtask executor
//   - ModeAll: both
//
// # Tool Access Control
//
// Each agent has a Tools map controlling which tools are available, keyed
// by exact name or glob pattern:
//
//	agent.Tools = map[string]bool{
//	    "*":    true,
//	    "bash": false,
//	}
//
// [Agent.ToolEnabled] checks tool availability, supporting doublestar (**)
// patterns for complex matching.
//
// # Approval Policy
//
// Each agent carries an approval.Policy ([Agent.RequiresApproval]) deciding
// which of its own tool calls require a human decision before the
// execution engine may act on them; see the approval package for the rule
// matching semantics.
//
// # Registry
//
//	registry := agent.NewRegistry()         // built-ins
//	registry.Register(customAgent)
//	a, err := registry.Get(agent.TagCoder)
//	primaryAgents := registry.ListPrimary()
//	subagents := registry.ListSubagents()   // excludes architect
//
// Custom overrides load on top of the built-ins via [Registry.LoadFromConfig];
// unknown tags are rejected since the dispatch set is fixed.
package agent
