// Package orchestrator implements the turn state machine at the heart of the
// simulation: LOAD -> APPEND_USER -> RETRIEVE -> GENERATE -> AUDIT ->
// (bounded revise loop or intervention) -> PERSIST -> RETURN.
//
// Advance calls for the same session are serialized by a per-session lock so
// concurrent user messages can never race on turn numbering; different
// sessions run fully in parallel. Retrieval failures degrade the turn;
// generation and persistence failures surface as structured fatal errors.
package orchestrator
