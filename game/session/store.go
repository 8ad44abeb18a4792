package session

import (
	"hash/fnv"
	"sync"

	"github.com/wricardo/captcha-rush/game/engine"
)

// shardCount is a power of two so the hash maps onto shards with a mask.
const shardCount = 32

type shard struct {
	mu       sync.Mutex
	sessions map[engine.Key]*engine.Session
}

// Store maps keys to live sessions. See the package documentation for
// the locking model.
type Store struct {
	shards [shardCount]shard
}

// NewStore creates an empty session store.
func NewStore() *Store {
	s := &Store{}
	for i := range s.shards {
		s.shards[i].sessions = make(map[engine.Key]*engine.Session)
	}
	return s
}

func (s *Store) shardFor(key engine.Key) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &s.shards[h.Sum32()&(shardCount-1)]
}

// TryCreate inserts the session iff no session exists for its key.
// It returns false, with no side effects, when one already does.
func (s *Store) TryCreate(sess *engine.Session) bool {
	sh := s.shardFor(sess.Key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, exists := sh.sessions[sess.Key]; exists {
		return false
	}
	sh.sessions[sess.Key] = sess
	return true
}

// Get returns a snapshot copy of the session for key. Mutating the copy
// has no effect on the stored session.
func (s *Store) Get(key engine.Key) (engine.Session, bool) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sess, ok := sh.sessions[key]
	if !ok {
		return engine.Session{}, false
	}
	return *sess, true
}

// Mutate applies fn to the session for key under the key's lock, and
// reports whether a session was present. fn observes and updates state
// in one indivisible step; it must not block or re-enter the store.
func (s *Store) Mutate(key engine.Key, fn func(*engine.Session)) bool {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sess, ok := sh.sessions[key]
	if !ok {
		return false
	}
	fn(sess)
	return true
}

// Remove deletes the session for key. Removing an absent key is a no-op.
func (s *Store) Remove(key engine.Key) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	delete(sh.sessions, key)
}

// Count returns the number of live sessions.
func (s *Store) Count() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		n += len(sh.sessions)
		sh.mu.Unlock()
	}
	return n
}

// Snapshot returns copies of all live sessions. The result is a
// point-in-time view per shard, not a global atomic snapshot.
func (s *Store) Snapshot() []engine.Session {
	var out []engine.Session
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for _, sess := range sh.sessions {
			out = append(out, *sess)
		}
		sh.mu.Unlock()
	}
	return out
}
