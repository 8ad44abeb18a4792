package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wricardo/captcha-rush/captcha"
	"github.com/wricardo/captcha-rush/game/config"
	"github.com/wricardo/captcha-rush/game/engine"
	"github.com/wricardo/captcha-rush/game/service"
	"github.com/wricardo/captcha-rush/transport/websocket"
)

// scriptedGenerator returns predetermined answers in order.
type scriptedGenerator struct {
	answers []string
	calls   int
}

func (g *scriptedGenerator) Generate(cfg engine.ChallengeConfig) (engine.Puzzle, error) {
	if g.calls >= len(g.answers) {
		return engine.Puzzle{}, fmt.Errorf("%w: scripted generator exhausted", captcha.ErrGenerationFailed)
	}
	answer := g.answers[g.calls]
	g.calls++
	return engine.Puzzle{
		Answer:   answer,
		Artifact: "data:image/png;base64,dGVzdA==",
	}, nil
}

func newTestServer(t *testing.T, answers ...string) *Server {
	t.Helper()

	configs, err := config.NewManager("")
	if err != nil {
		t.Fatalf("Failed to create config manager: %v", err)
	}

	hub := websocket.NewHub()
	go hub.Run()

	svc := service.NewGameService(configs, &scriptedGenerator{answers: answers}, nil, nil)
	return NewServer(svc, hub)
}

func doJSON(t *testing.T, server *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	return rec
}

func TestStartGameEndpoint(t *testing.T) {
	server := newTestServer(t, "ABCD")

	rec := doJSON(t, server, "POST", "/api/games", map[string]string{"key": "room-1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var game service.GameView
	if err := json.Unmarshal(rec.Body.Bytes(), &game); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if game.Key != "room-1" {
		t.Errorf("Expected key room-1, got %s", game.Key)
	}
	if game.Artifact == "" {
		t.Error("Expected artifact in response")
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("ABCD")) {
		t.Error("Answer must not appear in the response")
	}
}

func TestStartGameEndpoint_Conflict(t *testing.T) {
	server := newTestServer(t, "ABCD", "EFGH")

	if rec := doJSON(t, server, "POST", "/api/games", map[string]string{"key": "room-1"}); rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", rec.Code)
	}

	rec := doJSON(t, server, "POST", "/api/games", map[string]string{"key": "room-1"})
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 for duplicate start, got %d", rec.Code)
	}
}

func TestStartGameEndpoint_MissingKey(t *testing.T) {
	server := newTestServer(t, "ABCD")

	rec := doJSON(t, server, "POST", "/api/games", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing key, got %d", rec.Code)
	}
}

func TestGuessEndpoint_Correct(t *testing.T) {
	server := newTestServer(t, "ABCD", "EFGH")

	doJSON(t, server, "POST", "/api/games", map[string]string{"key": "room-1"})

	rec := doJSON(t, server, "POST", "/api/games/room-1/guess", map[string]string{"guess": "abcd"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var reply service.GuessReply
	if err := json.Unmarshal(rec.Body.Bytes(), &reply); err != nil {
		t.Fatalf("Failed to decode reply: %v", err)
	}

	if reply.Status != service.GuessAccepted {
		t.Errorf("Expected accepted, got %s", reply.Status)
	}
	if reply.Challenge == nil || reply.Challenge.Score != 1 {
		t.Errorf("Expected new challenge at score 1, got %+v", reply.Challenge)
	}
}

func TestGuessEndpoint_Wrong(t *testing.T) {
	server := newTestServer(t, "ABCD")

	doJSON(t, server, "POST", "/api/games", map[string]string{"key": "room-1"})

	rec := doJSON(t, server, "POST", "/api/games/room-1/guess", map[string]string{"guess": "WXYZ"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var reply service.GuessReply
	if err := json.Unmarshal(rec.Body.Bytes(), &reply); err != nil {
		t.Fatalf("Failed to decode reply: %v", err)
	}

	if reply.Status != service.GuessRejected {
		t.Errorf("Expected rejected, got %s", reply.Status)
	}
	if reply.Final == nil || reply.Final.Answer != "ABCD" {
		t.Errorf("Expected final result with the answer, got %+v", reply.Final)
	}

	// The game is gone now.
	if rec := doJSON(t, server, "GET", "/api/games/room-1", nil); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after game over, got %d", rec.Code)
	}
}

func TestGuessEndpoint_GenerationFailure(t *testing.T) {
	// Only one answer scripted: the correct guess needs a replacement
	// puzzle and the generator has nothing left to hand out.
	server := newTestServer(t, "ABCD")

	doJSON(t, server, "POST", "/api/games", map[string]string{"key": "room-1"})

	rec := doJSON(t, server, "POST", "/api/games/room-1/guess", map[string]string{"guess": "ABCD"})
	if rec.Code != http.StatusBadGateway {
		t.Errorf("Expected 502 when the next puzzle cannot be generated, got %d", rec.Code)
	}

	// The guess was not consumed: the game is still there.
	if rec := doJSON(t, server, "GET", "/api/games/room-1", nil); rec.Code != http.StatusOK {
		t.Errorf("Expected game to survive the generation failure, got %d", rec.Code)
	}
}

func TestGuessEndpoint_NoGame(t *testing.T) {
	server := newTestServer(t)

	rec := doJSON(t, server, "POST", "/api/games/ghost/guess", map[string]string{"guess": "ABCD"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var reply service.GuessReply
	if err := json.Unmarshal(rec.Body.Bytes(), &reply); err != nil {
		t.Fatalf("Failed to decode reply: %v", err)
	}
	if reply.Status != service.GuessIgnored {
		t.Errorf("Expected ignored, got %s", reply.Status)
	}
}

func TestListGamesEndpoint(t *testing.T) {
	server := newTestServer(t, "AAAA", "BBBB")

	doJSON(t, server, "POST", "/api/games", map[string]string{"key": "room-1"})
	doJSON(t, server, "POST", "/api/games", map[string]string{"key": "room-2"})

	rec := doJSON(t, server, "GET", "/api/games", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var response struct {
		Count int                `json:"count"`
		Games []service.GameView `json:"games"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Count != 2 {
		t.Errorf("Expected 2 games, got %d", response.Count)
	}
}

func TestStatsEndpoint_Unavailable(t *testing.T) {
	server := newTestServer(t)

	rec := doJSON(t, server, "GET", "/api/stats/room-1", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 without a result store, got %d", rec.Code)
	}
}

func TestLeaderboardEndpoint_Unavailable(t *testing.T) {
	server := newTestServer(t)

	rec := doJSON(t, server, "GET", "/api/leaderboard", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 without a leaderboard, got %d", rec.Code)
	}
}

func TestListDifficultiesEndpoint(t *testing.T) {
	server := newTestServer(t)

	rec := doJSON(t, server, "GET", "/api/difficulties", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var difficulties []service.DifficultyInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &difficulties); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	ids := make(map[string]bool)
	for _, d := range difficulties {
		ids[d.ID] = true
	}
	for _, want := range []string{"default", "classic", "hard"} {
		if !ids[want] {
			t.Errorf("Expected difficulty %q in listing", want)
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t)

	rec := doJSON(t, server, "GET", "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
}

func TestWebSocketEndpoint_MissingKey(t *testing.T) {
	server := newTestServer(t)

	req := httptest.NewRequest("GET", "/ws", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing key, got %d", rec.Code)
	}
}
