// Package websocket provides WebSocket transport for Captcha Rush.
//
// The websocket package implements:
//   - Real-time challenge and game-over delivery
//   - Key-aware WebSocket connections
//   - Connection lifecycle management
//
// Architecture:
//
// The package uses a hub-and-spoke model where a central Hub manages all
// WebSocket connections. Each client connection is handled by a dedicated
// goroutine that manages reading, writing, and cleanup.
//
// Message Protocol:
//
// Messages are JSON-encoded envelopes: {key, event, data}. Two events are
// emitted: "challenge" whenever a puzzle is issued and "game_over" when a
// session ends. Clients do not send game actions over the socket; guesses
// go through the REST API.
//
// Key Integration:
//
// WebSocket connections are key-aware. Clients specify the game key via
// query parameter (?key=room-1) when establishing the connection. Events
// are broadcast only to clients watching the same key.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run()
//
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("key"))
//	})
//
// Concurrency:
//
// The hub and client handlers are designed for concurrent operation.
// Multiple clients can connect, disconnect, and receive events
// simultaneously without blocking each other.
package websocket
