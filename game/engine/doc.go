// Package engine provides the core domain model for Captcha Rush.
//
// The engine package implements:
//   - Challenge session state and lifecycle transitions
//   - Challenge configuration and validation
//   - Guess matching with configurable case sensitivity
//   - Contracts for the collaborators around a session (puzzle
//     generation, result persistence, presentation)
//
// Core Types:
//
// Session represents one running game: the current expected answer, the
// puzzle instance token, the score, and the lifecycle state. A session
// moves Active -> Resolving -> Closed exactly once; within Active it may
// cycle through many puzzle instances as correct guesses arrive.
//
// The Instance token is the heart of the timing model. Every issued
// puzzle carries a strictly increasing instance number, and every
// deadline callback is bound to the instance it was scheduled for. A
// callback whose instance no longer matches the session's current
// instance is stale and must do nothing. Combined with the Resolving
// guard, this guarantees that a guess and a concurrently firing deadline
// resolve a session exactly once.
//
// Transitions:
//
// The mutating methods on Session (Advance, BeginResolve, Close) are not
// synchronized; callers are expected to invoke them inside the session
// store's per-key critical section. See the session package.
//
// Collaborators:
//
// Generator produces puzzles, ResultSink receives finalized outcomes,
// and Notifier receives presentation events. All three are one-shot
// call contracts with no shared state; the Notifiers and Sinks slice
// types fan a single call out to several implementations.
package engine
