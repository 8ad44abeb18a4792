// Package session provides the concurrency-safe session store for
// Captcha Rush.
//
// The session package implements:
//   - Thread-safe storage keyed by engine.Key
//   - Insert-if-absent semantics for single-active-game enforcement
//   - Atomic read-modify-write transitions via Mutate
//   - Lock striping so unrelated games never contend
//
// Concurrency:
//
// The store is the single source of truth for "is there an active
// challenge for this key". Keys are hashed onto a fixed set of shards,
// each guarded by its own mutex, so operations are linearizable per key
// while games on different keys proceed fully in parallel.
//
// Mutate is the only path by which a session's answer, instance, score,
// or state changes. The guess path and the deadline path both funnel
// through it, which is what turns the "guess races the timeout" hazard
// into a single serialized decision per key.
//
// Usage:
//
//	store := session.NewStore()
//
//	sess := engine.NewSession(key, cfg, puzzle, time.Now())
//	if !store.TryCreate(sess) {
//		// a game is already running for this key
//	}
//
//	store.Mutate(key, func(s *engine.Session) {
//		// observe and transition atomically
//	})
//
// Callbacks passed to Mutate run under the key's lock and must not call
// back into the store or perform blocking work.
package session
