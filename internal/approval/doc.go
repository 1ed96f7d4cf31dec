// Package approval provides a unified, policy-driven approval system for
// the orchestration runtime. It answers one question for two kinds of
// subject — an individual tool call, and a whole execution plan — "does
// this need a human to sign off before the engine may proceed?", and if
// so, tracks the pending decision until it is approved or rejected.
//
// # Policy
//
// A Policy is an ordered list of Rules plus a default. Each Rule matches a
// Kind and a subject pattern (glob, or regex written as "/.../") and may
// carry Conditions evaluated against the subject's arguments (size_gt,
// path_prefix, equals, contains). The first matching rule wins;
// DefaultRequiresApproval applies when nothing matches. This mirrors the
// first-match wildcard lookup the agent permission system used for bash
// commands, generalized to arbitrary tool and plan subjects.
//
// # Store
//
// Store is a repository of PendingApproval rows keyed by request id.
// Status transitions are monotonic: pending to approved or rejected, never
// back, and re-resolving an already-resolved request is an error. Store
// also exposes Await, a channel-based blocking wait for callers that want
// to sit inside a single request rather than poll across requests.
//
// # Manager
//
// Manager glues a Policy to a Store: RequireApproval evaluates the policy
// and, if approval is needed, registers a pending row and blocks until it
// resolves, returning a RejectedError on rejection.
package approval
