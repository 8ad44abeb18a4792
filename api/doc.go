// Package api provides the REST API server for Captcha Rush.
//
// The api package implements:
//   - Game lifecycle endpoints (start, guess)
//   - Active game inspection
//   - Historical stats and leaderboard endpoints
//   - Difficulty preset listing
//   - WebSocket endpoint for real-time events
//
// Endpoints:
//
//	POST /api/games              Start a game for a key
//	POST /api/games/{key}/guess  Submit a guess
//	GET  /api/games              List active games
//	GET  /api/games/{key}        Get one active game
//	GET  /api/stats/{key}        Aggregated history for a key
//	GET  /api/top                Most active keys
//	GET  /api/leaderboard        Best scores
//	GET  /api/difficulties       Available difficulty presets
//	GET  /ws?key=<key>           WebSocket event stream
//
// Error Handling:
//
// Errors are returned as JSON: {"error": "message"}. Starting a game for
// a key that already has one returns 409; reads on absent games return
// 404; stats and leaderboard endpoints return 503 when their backing
// store is not configured.
package api
