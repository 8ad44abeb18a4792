package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/captcha-rush/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Captcha Rush",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Captcha Rush - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Solve captcha images before the timer runs out. Each correct answer scores
a point and immediately issues a harder-to-read fresh captcha. One wrong
answer or one missed deadline ends the game.

AVAILABLE TOOLS:
- start_game: Start a new game for a key (optionally pick a difficulty)
- guess: Submit your answer to the current captcha
- game_state: Get the current game for a key
- list_games: List all active games
- stats: Historical stats for a key
- top_keys: Most active keys
- leaderboard: Best session scores
- list_difficulties: Available difficulty presets
- game_rules: Complete game rules

NOTE: The captcha image is returned as a base64-encoded PNG data URI.
Decode it to read the characters, then submit them with the guess tool
before the deadline.`),
	)

	// Register all tools
	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "start_game",
		Description: "Start a new captcha game for a key",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"key": map[string]interface{}{
					"type":        "string",
					"description": "Key identifying the game (channel ID, player name, etc.)",
				},
				"difficulty": map[string]interface{}{
					"type":        "string",
					"description": "Difficulty preset ID (optional, see list_difficulties)",
				},
				"length": map[string]interface{}{
					"type":        "integer",
					"description": "Captcha length override, 1-10 (optional)",
				},
				"include_digits": map[string]interface{}{
					"type":        "boolean",
					"description": "Mix digits into the captcha characters (optional)",
				},
			},
			Required: []string{"key"},
		},
	}, c.handleStartGame)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "guess",
		Description: "Submit an answer to the current captcha",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"key": map[string]interface{}{
					"type":        "string",
					"description": "Key of the game to answer",
				},
				"answer": map[string]interface{}{
					"type":        "string",
					"description": "The characters read from the captcha image",
				},
			},
			Required: []string{"key", "answer"},
		},
	}, c.handleGuess)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current game for a key",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"key": map[string]interface{}{
					"type":        "string",
					"description": "Key of the game to inspect",
				},
			},
			Required: []string{"key"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_games",
		Description: "List all active games",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListGames)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "stats",
		Description: "Get aggregated historical stats for a key",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"key": map[string]interface{}{
					"type":        "string",
					"description": "Key to look up",
				},
			},
			Required: []string{"key"},
		},
	}, c.handleStats)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "top_keys",
		Description: "List the keys with the most games played",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Number of keys to return (default 5)",
				},
			},
		},
	}, c.handleTopKeys)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "leaderboard",
		Description: "List the best session scores",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Number of entries to return (default 10)",
				},
			},
		},
	}, c.handleLeaderboard)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_difficulties",
		Description: "List available difficulty presets",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListDifficulties)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_rules",
		Description: "Get the complete game rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameRules)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// Tool handlers

func (c *Client) handleStartGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	key, _ := args["key"].(string)
	difficulty, _ := args["difficulty"].(string)
	includeDigits, _ := args["include_digits"].(bool)

	body := map[string]interface{}{
		"key": key,
	}
	if difficulty != "" {
		body["difficulty"] = difficulty
	}
	if length, ok := args["length"].(float64); ok {
		body["length"] = int(length)
	}
	if includeDigits {
		body["include_digits"] = true
	}

	var game service.GameView
	err := c.apiCall("POST", "/api/games", body, &game)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameView(&game)), nil
}

func (c *Client) handleGuess(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	key, _ := args["key"].(string)
	answer, _ := args["answer"].(string)

	body := map[string]string{"guess": answer}

	var reply service.GuessReply
	err := c.apiCall("POST", fmt.Sprintf("/api/games/%s/guess", key), body, &reply)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGuessReply(&reply)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	key, _ := args["key"].(string)

	var game service.GameView
	err := c.apiCall("GET", fmt.Sprintf("/api/games/%s", key), nil, &game)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameView(&game)), nil
}

func (c *Client) handleListGames(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count int                `json:"count"`
		Games []service.GameView `json:"games"`
	}

	err := c.apiCall("GET", "/api/games", nil, &response)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Active Games (%d):\n\n", response.Count)
	for _, g := range response.Games {
		result += fmt.Sprintf("- %s (Score: %d, Difficulty: %s, Deadline: %s)\n",
			g.Key, g.Score, g.Difficulty, g.Deadline.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	key, _ := args["key"].(string)

	var stats service.StatsReport
	err := c.apiCall("GET", fmt.Sprintf("/api/stats/%s", key), nil, &stats)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf(`Stats for %s:
Total games: %d
Total score: %d
Average score: %.2f
Top score: %d`,
		stats.Key, stats.TotalGames, stats.TotalScore, stats.AverageScore, stats.TopScore)

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleTopKeys(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := "/api/top"
	if args, ok := request.Params.Arguments.(map[string]interface{}); ok {
		if limit, ok := args["limit"].(float64); ok {
			path = fmt.Sprintf("%s?limit=%d", path, int(limit))
		}
	}

	var response struct {
		Count int                `json:"count"`
		Keys  []service.KeyGames `json:"keys"`
	}

	err := c.apiCall("GET", path, nil, &response)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := "Most Active Keys:\n\n"
	for i, k := range response.Keys {
		result += fmt.Sprintf("%d. %s - %d games\n", i+1, k.Key, k.TotalGames)
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleLeaderboard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := "/api/leaderboard"
	if args, ok := request.Params.Arguments.(map[string]interface{}); ok {
		if limit, ok := args["limit"].(float64); ok {
			path = fmt.Sprintf("%s?limit=%d", path, int(limit))
		}
	}

	var response struct {
		Count   int                        `json:"count"`
		Entries []service.LeaderboardEntry `json:"entries"`
	}

	err := c.apiCall("GET", path, nil, &response)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := "Leaderboard:\n\n"
	for i, e := range response.Entries {
		result += fmt.Sprintf("%d. %s - %d points\n", i+1, e.Key, e.Score)
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListDifficulties(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var difficulties []service.DifficultyInfo
	err := c.apiCall("GET", "/api/difficulties", nil, &difficulties)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := "Available Difficulties:\n\n"
	for _, d := range difficulties {
		charset := "letters only"
		if d.IncludeDigits {
			charset = "letters and digits"
		}
		result += fmt.Sprintf("• %s\n  %s\n  Length: %d, Charset: %s, Timeout: %ds\n\n",
			d.ID, d.Description, d.Length, charset, d.TimeoutSeconds)
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGameRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rules := `🎮 Captcha Rush - Complete Rules

GAME OBJECTIVE:
Read captcha images and type back the characters before the timer runs
out. Keep answering correctly to build your score.

GAME MECHANICS:
• One active game per key at any time
• Each captcha has a deadline (10 seconds by default)
• Correct answer: +1 point, a fresh captcha is issued, timer restarts
• Wrong answer: game over, the expected answer is revealed
• Deadline passes: game over, the expected answer is revealed
• Answers are case-insensitive unless the difficulty says otherwise

SCORING:
• 1 point per solved captcha
• Streak flames (🔥) grow every 5 points
• Your best session score goes on the leaderboard

DIFFICULTY:
• Presets control captcha length, charset, and timeout
• Length ranges from 1 to 10 characters (default 4)
• Harder presets mix digits in with the letters

READING CAPTCHAS:
• The image arrives as a base64 PNG data URI
• Characters are distorted; 0/O and 1/I are the usual traps
• Submit exactly the characters you read, whitespace is trimmed

TOOLS:
• start_game → begin, returns the first captcha
• guess → answer; the reply says accepted, rejected, or ignored
• An "ignored" reply means the game already ended (usually a timeout
  beat your answer) - check stats and start a new game

Good luck! ⏱️🔤`

	return mcp.NewToolResultText(rules), nil
}

// Formatting helpers

func formatGameView(game *service.GameView) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Game: %s\n", game.Key))
	b.WriteString(fmt.Sprintf("Score: %d", game.Score))
	if game.Streak != "" {
		b.WriteString(" " + game.Streak)
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Difficulty: %s (length %d", game.Difficulty, game.Length))
	if game.IncludeDigits {
		b.WriteString(", with digits")
	}
	b.WriteString(")\n")
	b.WriteString(fmt.Sprintf("Answer before: %s\n\n", game.Deadline.Format("15:04:05")))
	b.WriteString("Captcha image (base64 PNG):\n")
	b.WriteString(game.Artifact)

	return b.String()
}

func formatGuessReply(reply *service.GuessReply) string {
	switch reply.Status {
	case service.GuessAccepted:
		result := "✓ Correct!\n\n"
		if reply.Challenge != nil {
			result += formatGameView(reply.Challenge)
		}
		return result

	case service.GuessRejected:
		if reply.Final != nil {
			return fmt.Sprintf(`✗ Wrong answer - game over
Final score: %d %s
The answer was: %s
Game lasted: %.1fs`,
				reply.Final.Score, reply.Final.Streak, reply.Final.Answer, reply.Final.ElapsedSeconds)
		}
		return "✗ Wrong answer - game over"

	default:
		return "Guess ignored: no active game for this key (it may have just timed out)"
	}
}
