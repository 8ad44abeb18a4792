package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/captcha-rush/game/engine"
)

func newTestSession(key engine.Key) *engine.Session {
	cfg := engine.DefaultConfig()
	return engine.NewSession(key, cfg, engine.Puzzle{Answer: "ABCD", Artifact: "img"}, time.Now())
}

func TestStore_TryCreate(t *testing.T) {
	store := NewStore()

	t.Run("insert when absent", func(t *testing.T) {
		if !store.TryCreate(newTestSession("chan-1")) {
			t.Fatal("Expected TryCreate to succeed on empty store")
		}
	})

	t.Run("reject when present", func(t *testing.T) {
		existing, ok := store.Get("chan-1")
		if !ok {
			t.Fatal("Expected the inserted session to be readable")
		}
		if store.TryCreate(newTestSession("chan-1")) {
			t.Error("Expected TryCreate to fail for existing key")
		}
		// The original session must be untouched.
		sess, ok := store.Get("chan-1")
		if !ok {
			t.Fatal("Expected existing session to survive rejected create")
		}
		if sess.Instance != existing.Instance || sess.Score != 0 {
			t.Errorf("Expected existing session untouched, got instance=%d score=%d", sess.Instance, sess.Score)
		}
	})

	t.Run("distinct keys are independent", func(t *testing.T) {
		if !store.TryCreate(newTestSession("chan-2")) {
			t.Error("Expected TryCreate to succeed for a different key")
		}
	})
}

func TestStore_Get(t *testing.T) {
	store := NewStore()
	store.TryCreate(newTestSession("k"))

	t.Run("snapshot is a copy", func(t *testing.T) {
		snap, ok := store.Get("k")
		if !ok {
			t.Fatal("Expected session to exist")
		}
		snap.Score = 99

		again, _ := store.Get("k")
		if again.Score != 0 {
			t.Error("Expected stored session to be unaffected by snapshot mutation")
		}
	})

	t.Run("absent key", func(t *testing.T) {
		if _, ok := store.Get("missing"); ok {
			t.Error("Expected Get to miss for absent key")
		}
	})
}

func TestStore_Mutate(t *testing.T) {
	store := NewStore()
	store.TryCreate(newTestSession("k"))

	applied := store.Mutate("k", func(s *engine.Session) {
		s.Score = 5
	})
	if !applied {
		t.Fatal("Expected Mutate to find the session")
	}

	sess, _ := store.Get("k")
	if sess.Score != 5 {
		t.Errorf("Expected mutation to persist, got score %d", sess.Score)
	}

	if store.Mutate("missing", func(s *engine.Session) {}) {
		t.Error("Expected Mutate on absent key to report false")
	}
}

func TestStore_Remove(t *testing.T) {
	store := NewStore()
	store.TryCreate(newTestSession("k"))

	store.Remove("k")
	if _, ok := store.Get("k"); ok {
		t.Error("Expected session to be gone after Remove")
	}

	// Idempotent.
	store.Remove("k")
	if store.Count() != 0 {
		t.Errorf("Expected empty store, got %d sessions", store.Count())
	}
}

func TestStore_SnapshotAndCount(t *testing.T) {
	store := NewStore()
	for i := 0; i < 10; i++ {
		store.TryCreate(newTestSession(engine.Key(fmt.Sprintf("key-%d", i))))
	}

	if store.Count() != 10 {
		t.Errorf("Expected 10 sessions, got %d", store.Count())
	}

	seen := make(map[engine.Key]bool)
	for _, sess := range store.Snapshot() {
		seen[sess.Key] = true
	}
	if len(seen) != 10 {
		t.Errorf("Expected 10 distinct keys in snapshot, got %d", len(seen))
	}
}

func TestStore_ConcurrentMutations(t *testing.T) {
	store := NewStore()
	const keys = 8
	const iterations = 200

	for i := 0; i < keys; i++ {
		store.TryCreate(newTestSession(engine.Key(fmt.Sprintf("key-%d", i))))
	}

	var wg sync.WaitGroup
	for i := 0; i < keys; i++ {
		key := engine.Key(fmt.Sprintf("key-%d", i))
		for w := 0; w < 4; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < iterations; j++ {
					store.Mutate(key, func(s *engine.Session) {
						s.Score++
					})
				}
			}()
		}
	}
	wg.Wait()

	for i := 0; i < keys; i++ {
		key := engine.Key(fmt.Sprintf("key-%d", i))
		sess, _ := store.Get(key)
		if sess.Score != 4*iterations {
			t.Errorf("Lost update on %s: expected %d, got %d", key, 4*iterations, sess.Score)
		}
	}
}

func TestStore_ConcurrentCreateSingleWinner(t *testing.T) {
	store := NewStore()
	const racers = 32

	var wg sync.WaitGroup
	wins := make(chan bool, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if store.TryCreate(newTestSession("contested")) {
				wins <- true
			}
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for range wins {
		winners++
	}
	if winners != 1 {
		t.Errorf("Expected exactly one TryCreate winner, got %d", winners)
	}
}
