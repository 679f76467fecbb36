// Package reflexion implements the stateful tool handlers behind the
// reflexion-mcp server: an actor-critic round tracker and a bounded
// actor/evaluator/self-reflection trial loop.
//
// Both handlers accept a loosely-typed argument record from the transport,
// perform all runtime validation themselves, and return a JSON-serializable
// result record. Validation failures are reported inside the record, never
// as Go errors, so a malformed call leaves the handler usable for the next
// one. Handlers are not safe for concurrent use; the MCP transport invokes
// them one call at a time.
package reflexion
