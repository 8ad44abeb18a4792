package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wricardo/captcha-rush/game/engine"
)

func TestNewHub(t *testing.T) {
	hub := NewHub()

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}

	if hub.games == nil {
		t.Error("Hub games map is nil")
	}

	if hub.broadcast == nil {
		t.Error("Hub broadcast channel is nil")
	}

	if hub.register == nil {
		t.Error("Hub register channel is nil")
	}

	if hub.unregister == nil {
		t.Error("Hub unregister channel is nil")
	}
}

func TestHubRegisterClient(t *testing.T) {
	hub := NewHub()

	client := &Client{
		hub:  hub,
		key:  "room-1",
		send: make(chan []byte, 256),
	}

	hub.registerClient(client)

	if _, exists := hub.games["room-1"]; !exists {
		t.Error("Game entry was not created")
	}

	if !hub.games["room-1"][client] {
		t.Error("Client was not registered")
	}

	if len(hub.games["room-1"]) != 1 {
		t.Errorf("Expected 1 client, got %d", len(hub.games["room-1"]))
	}
}

func TestHubUnregisterClient(t *testing.T) {
	hub := NewHub()

	client := &Client{
		hub:  hub,
		key:  "room-1",
		send: make(chan []byte, 256),
	}

	hub.registerClient(client)
	hub.unregisterClient(client)

	if _, exists := hub.games["room-1"]; exists {
		t.Error("Game entry should have been cleaned up after last client unregistered")
	}
}

func TestHubMultipleClientsForKey(t *testing.T) {
	hub := NewHub()
	key := "shared-room"

	client1 := &Client{
		hub:  hub,
		key:  key,
		send: make(chan []byte, 256),
	}
	client2 := &Client{
		hub:  hub,
		key:  key,
		send: make(chan []byte, 256),
	}

	hub.registerClient(client1)
	hub.registerClient(client2)

	if len(hub.games[key]) != 2 {
		t.Errorf("Expected 2 clients, got %d", len(hub.games[key]))
	}

	hub.unregisterClient(client1)

	if len(hub.games[key]) != 1 {
		t.Errorf("Expected 1 client remaining, got %d", len(hub.games[key]))
	}

	if !hub.games[key][client2] {
		t.Error("client2 should still be registered")
	}
}

func TestHubBroadcastMessage(t *testing.T) {
	hub := NewHub()
	key := "broadcast-test"

	client := &Client{
		hub:  hub,
		key:  key,
		send: make(chan []byte, 256),
	}

	hub.registerClient(client)

	hub.broadcastMessage(&Message{
		Key:   key,
		Event: "challenge",
		Data: engine.Challenge{
			Key:      engine.Key(key),
			Instance: 2,
			Score:    1,
		},
	})

	select {
	case data := <-client.send:
		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}

		if message.Key != key {
			t.Errorf("Expected key %s, got %s", key, message.Key)
		}

		if message.Event != "challenge" {
			t.Errorf("Expected event 'challenge', got %s", message.Event)
		}

	case <-time.After(100 * time.Millisecond):
		t.Error("No message received within timeout")
	}
}

func TestHubNotifierEvents(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	key := "notify-test"
	client := &Client{
		hub:  hub,
		key:  key,
		send: make(chan []byte, 256),
	}
	hub.register <- client

	hub.ChallengePosted(engine.Challenge{Key: engine.Key(key), Instance: 1})
	hub.GameOver(engine.GameOver{Key: engine.Key(key), Outcome: engine.OutcomeTimeout, Score: 4})

	wantEvents := []string{"challenge", "game_over"}
	for _, want := range wantEvents {
		select {
		case data := <-client.send:
			var message Message
			if err := json.Unmarshal(data, &message); err != nil {
				t.Fatalf("Failed to unmarshal message: %v", err)
			}
			if message.Event != want {
				t.Errorf("Expected event %q, got %q", want, message.Event)
			}
		case <-time.After(time.Second):
			t.Fatalf("No %q event received within timeout", want)
		}
	}
}

func TestWebSocketUpgrade(t *testing.T) {
	hub := NewHub()

	go hub.Run()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("key")
		if key == "" {
			key = "default"
		}
		hub.ServeWS(w, r, key)
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?key=ws-test"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	defer conn.Close()

	// Give some time for registration
	time.Sleep(50 * time.Millisecond)

	if len(hub.games["ws-test"]) != 1 {
		t.Errorf("Expected 1 client, got %d", len(hub.games["ws-test"]))
	}

	conn.Close()

	// Give some time for unregistration
	time.Sleep(10 * time.Millisecond)

	if _, exists := hub.games["ws-test"]; exists {
		t.Error("Game entry should have been cleaned up after WebSocket close")
	}
}

func TestWebSocketMessageReceive(t *testing.T) {
	hub := NewHub()

	go hub.Run()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("key")
		if key == "" {
			key = "default"
		}
		hub.ServeWS(w, r, key)
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?key=msg-test"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	defer conn.Close()

	// Give time for connection to establish
	time.Sleep(10 * time.Millisecond)

	hub.GameOver(engine.GameOver{
		Key:     "msg-test",
		Outcome: engine.OutcomeWrongAnswer,
		Score:   9,
		Answer:  "WXYZ",
	})

	conn.SetReadDeadline(time.Now().Add(1 * time.Second))
	_, messageData, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read WebSocket message: %v", err)
	}

	var message Message
	if err := json.Unmarshal(messageData, &message); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}

	if message.Key != "msg-test" {
		t.Errorf("Expected key 'msg-test', got %s", message.Key)
	}

	if message.Event != "game_over" {
		t.Errorf("Expected event 'game_over', got %s", message.Event)
	}

	payload, err := json.Marshal(message.Data)
	if err != nil {
		t.Fatalf("Failed to re-marshal data: %v", err)
	}
	var over engine.GameOver
	if err := json.Unmarshal(payload, &over); err != nil {
		t.Fatalf("Failed to decode game over payload: %v", err)
	}
	if over.Score != 9 || over.Answer != "WXYZ" {
		t.Error("Game over payload not correctly received")
	}
}
