// Package mcp provides the Model Context Protocol interface for Captcha Rush.
//
// The mcp package implements:
//   - MCP server for AI agent integration
//   - Tool definitions for game operations
//   - Stdio and HTTP transport modes
//
// MCP Tools:
//
// The package exposes the following tools for AI agents:
//   - start_game: Start a new game for a key
//   - guess: Submit an answer to the current captcha
//   - game_state: Get the current game for a key
//   - list_games: List all active games
//   - stats: Aggregated historical stats for a key
//   - top_keys: Keys with the most games played
//   - leaderboard: Best session scores
//   - list_difficulties: Available difficulty presets
//   - game_rules: Complete game rules and strategy notes
//
// Transport Modes:
//
// The server supports two transport modes:
//   - Stdio: Direct stdio communication for local MCP clients
//   - HTTP: HTTP endpoint for remote MCP integration
//
// The implementation is a thin client: every tool call proxies to the
// REST API, so the MCP surface and the HTTP surface can never disagree
// about game state.
package mcp
