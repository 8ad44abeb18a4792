package engine

import (
	"sync/atomic"
	"time"
)

// instanceCounter issues process-unique puzzle instance tokens. A token
// names one issued puzzle, never a position within a session: two games
// on the same key can never share a token, so a timer armed for a dead
// game cannot match a later game.
var instanceCounter atomic.Uint64

func nextInstance() uint64 { return instanceCounter.Add(1) }

// Session is one active challenge lifecycle. It spans possibly many
// puzzle instances: each correct guess replaces the puzzle and bumps
// Instance, the first wrong guess or expired deadline ends the session.
//
// Session values are owned by the session store. All mutation happens
// through the store's Mutate so a guess and a concurrently firing
// deadline never interleave on the same key.
type Session struct {
	Key       Key
	Answer    string
	Artifact  string
	Instance  uint64
	Score     int
	Config    ChallengeConfig
	State     State
	StartedAt time.Time
	IssuedAt  time.Time
	Deadline  time.Time
}

// NewSession creates a session in Active state holding its first puzzle
// instance.
func NewSession(key Key, cfg ChallengeConfig, p Puzzle, now time.Time) *Session {
	return &Session{
		Key:       key,
		Answer:    p.Answer,
		Artifact:  p.Artifact,
		Instance:  nextInstance(),
		Config:    cfg,
		State:     StateActive,
		StartedAt: now,
		IssuedAt:  now,
		Deadline:  now.Add(cfg.Timeout()),
	}
}

// Match reports whether the guess solves the current puzzle.
func (s *Session) Match(guess string) bool {
	return s.Config.Matches(guess, s.Answer)
}

// Advance replaces the current puzzle after a correct guess: the score
// increments, a fresh instance token is drawn, and the deadline
// restarts. The session stays Active. Any timer bound to the previous
// instance becomes stale the moment this returns.
func (s *Session) Advance(p Puzzle, now time.Time) {
	s.Score++
	s.Answer = p.Answer
	s.Artifact = p.Artifact
	s.Instance = nextInstance()
	s.IssuedAt = now
	s.Deadline = now.Add(s.Config.Timeout())
}

// BeginResolve attempts the Active -> Resolving transition and reports
// whether the caller won it. Exactly one terminal event per session gets
// true; everyone else must treat their event as already handled.
func (s *Session) BeginResolve() bool {
	if s.State != StateActive {
		return false
	}
	s.State = StateResolving
	return true
}

// Close marks the session terminal. Only the finalizer that won
// BeginResolve may call it.
func (s *Session) Close() {
	s.State = StateClosed
}

// Result builds the finalized outcome record for this session.
func (s *Session) Result(outcome Outcome, now time.Time) Result {
	return Result{
		Key:           s.Key,
		Score:         s.Score,
		Outcome:       outcome,
		Answer:        s.Answer,
		Length:        s.Config.Length,
		IncludeDigits: s.Config.IncludeDigits,
		Elapsed:       now.Sub(s.StartedAt),
		FinishedAt:    now,
	}
}

// Challenge builds the presentation payload for the currently issued
// puzzle instance.
func (s *Session) Challenge() Challenge {
	return Challenge{
		Key:      s.Key,
		Instance: s.Instance,
		Artifact: s.Artifact,
		Score:    s.Score,
		Deadline: s.Deadline,
	}
}
