// Package service provides the business logic layer for Captcha Rush.
//
// The service package implements:
//   - Session lifecycle orchestration: start, guess evaluation, deadline
//     expiry, exactly-once finalization
//   - Difficulty preset resolution and validation
//   - Score and streak bookkeeping
//   - Read surfaces for stats and leaderboards
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP)
// and the domain model. It owns the session store and the deadline
// timers, and it is the single arbiter of whether a guess or a timeout
// wins the race for a puzzle instance.
//
// Race Resolution:
//
// Every terminal path funnels through the same two checks inside the
// store's per-key critical section: the event's puzzle instance must
// equal the session's current instance (stale-timer guard), and the
// session must still be Active (double-resolution guard, via
// Session.BeginResolve). Whichever event passes both proceeds to
// finalize; everything else becomes a no-op. External calls, such as
// persisting the result and notifying presentation, happen after the
// critical section so a slow sink never blocks guesses on other keys.
//
// Correct guesses are handled optimistically: the replacement puzzle is
// generated before the critical section, then committed only if the
// session still holds the instance the guess was evaluated against.
//
// Usage:
//
//	configMgr, _ := config.NewManager("difficulties")
//	svc := service.NewGameService(configMgr, generator, sink, notifier)
//
//	view, err := svc.StartGame(ctx, "chan-42", service.StartOptions{Length: 4})
//	reply, err := svc.Guess(ctx, "chan-42", "ABCD")
package service
