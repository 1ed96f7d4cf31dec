package conversation

import "github.com/agentrt/agentrt/internal/agent"

// Agent is the dispatch-time configuration the processor drives the
// agentic loop with; it is the exact type the tag registry hands out; see
// [agent.Registry].
type Agent = agent.Agent

// DefaultAgent returns the orchestrator's configuration, used when the
// processor is asked to run a turn without an explicit agent.
func DefaultAgent() *Agent {
	return agent.BuiltInAgents()[agent.TagOrchestrator]
}

// CodeAgent returns the coder agent's configuration.
func CodeAgent() *Agent {
	return agent.BuiltInAgents()[agent.TagCoder]
}

// PlanAgent returns the architect agent's configuration.
func PlanAgent() *Agent {
	return agent.BuiltInAgents()[agent.TagArchitect]
}
