// Package conversation manages conversation state and drives the agentic
// loop: the LLM/tool-calling cycle that processes a single turn for one of
// the registered agent tags.
//
// # Core components
//
//   - Service: conversation CRUD (create, list, fork, abort) over a
//     [persistence.Store]
//   - Processor: the agentic loop — streams an LLM completion, executes
//     requested tool calls through the approval manager, and repeats until
//     the model stops or a step/context limit is hit
//
// # Message processing flow
//
//  1. Service.ProcessMessage appends the user message and starts the loop
//  2. Processor loads history, builds the system prompt for the dispatched
//     [agent.Agent], and calls the provider
//  3. Tool calls are executed through [approval.Manager]; a call requiring
//     approval blocks until the store resolves it
//  4. Tool results are appended and the loop continues until a stop/error
//     finish reason or the step limit
//
// # Persistence layout
//
// Conversations are stored in [persistence.Store] under:
//
//	session/{projectID}/{sessionID}     -> session metadata
//	message/{sessionID}/{messageID}     -> messages
//	part/{messageID}/{partID}           -> message parts
//
// # Integration points
//
//   - internal/provider: LLM provider abstraction
//   - internal/tool: tool execution framework
//   - internal/persistence: durable storage
//   - internal/approval: tool-call approval policy
//   - internal/agent: agent tag dispatch
//   - internal/event: real-time event publishing
package conversation
