package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/wricardo/captcha-rush/game/engine"
	"github.com/wricardo/captcha-rush/game/session"
)

// gameService implements the GameService interface. It owns the session
// store and the deadline timers; see the package documentation for the
// race-resolution model.
type gameService struct {
	store    *session.Store
	configs  ConfigManager
	gen      engine.Generator
	sink     engine.ResultSink
	notifier engine.Notifier
	results  ResultStore
	board    Leaderboard

	// timeoutOverride, when set, replaces the per-config guess timeout.
	timeoutOverride time.Duration
}

// Option configures optional collaborators of the game service.
type Option func(*gameService)

// WithResultStore wires the aggregated-stats read side.
func WithResultStore(rs ResultStore) Option {
	return func(s *gameService) { s.results = rs }
}

// WithLeaderboard wires the best-score ranking read side.
func WithLeaderboard(lb Leaderboard) Option {
	return func(s *gameService) { s.board = lb }
}

// WithGuessTimeout overrides the per-config guess timeout for every game.
func WithGuessTimeout(d time.Duration) Option {
	return func(s *gameService) { s.timeoutOverride = d }
}

// NewGameService creates a new game service instance. A nil sink or
// notifier is replaced with a no-op implementation.
func NewGameService(configs ConfigManager, gen engine.Generator, sink engine.ResultSink, notifier engine.Notifier, opts ...Option) GameService {
	s := &gameService{
		store:    session.NewStore(),
		configs:  configs,
		gen:      gen,
		sink:     sink,
		notifier: notifier,
	}
	if s.sink == nil {
		s.sink = nopSink{}
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartGame starts a new game for key. It fails with
// ErrGameAlreadyRunning if a game exists, and propagates generation
// failures without creating a session.
func (s *gameService) StartGame(ctx context.Context, key string, opts StartOptions) (*GameView, error) {
	cfg, err := s.resolveConfig(opts)
	if err != nil {
		return nil, err
	}

	// Cheap pre-check for the common case; TryCreate below is the
	// authoritative one.
	if _, exists := s.store.Get(engine.Key(key)); exists {
		return nil, ErrGameAlreadyRunning
	}

	puzzle, err := s.gen.Generate(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to generate captcha: %w", err)
	}

	now := time.Now()
	sess := engine.NewSession(engine.Key(key), cfg, puzzle, now)
	sess.Deadline = now.Add(s.guessTimeout(cfg))

	if !s.store.TryCreate(sess) {
		return nil, ErrGameAlreadyRunning
	}

	s.scheduleDeadline(sess.Key, sess.Instance, s.guessTimeout(cfg))
	s.notifier.ChallengePosted(sess.Challenge())

	return viewOf(sess), nil
}

// Guess evaluates a guess for key. A guess with no active game, or one
// that lost the race against a terminal event, is Ignored rather than
// an error: chat platforms redeliver, timers misfire, and none of that
// should surface to the player.
func (s *gameService) Guess(ctx context.Context, key, text string) (*GuessReply, error) {
	k := engine.Key(key)

	snap, ok := s.store.Get(k)
	if !ok || snap.State != engine.StateActive {
		return &GuessReply{Status: GuessIgnored}, nil
	}

	if !snap.Config.Matches(text, snap.Answer) {
		return s.rejectGuess(ctx, k, snap.Instance)
	}
	return s.acceptGuess(ctx, k, snap)
}

// rejectGuess commits the wrong-answer outcome, unless the deadline (or
// another guess) resolved the session first.
func (s *gameService) rejectGuess(ctx context.Context, key engine.Key, instance uint64) (*GuessReply, error) {
	var won bool
	var final engine.Session
	s.store.Mutate(key, func(sess *engine.Session) {
		if sess.Instance != instance {
			// The puzzle changed under us; this guess targeted a
			// superseded instance.
			return
		}
		if sess.BeginResolve() {
			won = true
			final = *sess
		}
	})
	if !won {
		return &GuessReply{Status: GuessIgnored}, nil
	}

	res := s.finalize(ctx, final, engine.OutcomeWrongAnswer)
	return &GuessReply{
		Status: GuessRejected,
		Final:  finalResultOf(res),
	}, nil
}

// acceptGuess advances the session to a fresh puzzle. The replacement is
// generated optimistically before the critical section and committed
// only if the session still holds the instance the guess matched.
func (s *gameService) acceptGuess(ctx context.Context, key engine.Key, snap engine.Session) (*GuessReply, error) {
	next, err := s.gen.Generate(snap.Config)
	if err != nil {
		// The guess is not consumed: the session stays Active on the old
		// puzzle and the player can resubmit.
		return nil, fmt.Errorf("failed to generate next captcha: %w", err)
	}

	timeout := s.guessTimeout(snap.Config)
	var advanced bool
	var view engine.Session
	s.store.Mutate(key, func(sess *engine.Session) {
		// Same instance means the same answer; the guess already matched
		// against this instance's answer outside the lock.
		if sess.State != engine.StateActive || sess.Instance != snap.Instance {
			return
		}
		sess.Advance(next, time.Now())
		sess.Deadline = sess.IssuedAt.Add(timeout)
		advanced = true
		view = *sess
	})
	if !advanced {
		// The deadline fired first, or a duplicate delivery of the same
		// correct guess already advanced the puzzle.
		return &GuessReply{Status: GuessIgnored}, nil
	}

	s.scheduleDeadline(key, view.Instance, timeout)
	s.notifier.ChallengePosted(view.Challenge())

	return &GuessReply{
		Status:    GuessAccepted,
		Challenge: viewOf(&view),
	}, nil
}

// onDeadline handles expiry of the timer bound to (key, instance). A
// stale timer, one whose session moved to a later instance or is already
// being resolved, is a no-op.
func (s *gameService) onDeadline(key engine.Key, instance uint64) {
	var won bool
	var final engine.Session
	s.store.Mutate(key, func(sess *engine.Session) {
		if sess.Instance != instance {
			return
		}
		if sess.BeginResolve() {
			won = true
			final = *sess
		}
	})
	if !won {
		return
	}
	s.finalize(context.Background(), final, engine.OutcomeTimeout)
}

// finalize commits a terminal outcome: persist, notify, close, remove.
// It runs outside any store lock; the Resolving state keeps concurrent
// events away while it works. The session is removed exactly once.
func (s *gameService) finalize(ctx context.Context, final engine.Session, outcome engine.Outcome) engine.Result {
	res := final.Result(outcome, time.Now())

	if err := s.sink.Persist(ctx, res); err != nil {
		// Game-state cleanup is deliberately decoupled from persistence:
		// a failed save never leaves a stuck session.
		log.Printf("Failed to persist result for %s: %v", final.Key, err)
	}

	s.notifier.GameOver(engine.GameOver{
		Key:     final.Key,
		Outcome: outcome,
		Score:   final.Score,
		Answer:  final.Answer,
		Elapsed: res.Elapsed,
	})

	s.store.Mutate(final.Key, func(sess *engine.Session) {
		sess.Close()
	})
	s.store.Remove(final.Key)

	return res
}

// scheduleDeadline arms the expiry timer for one puzzle instance. Timers
// are never cancelled; a superseded timer disarms itself via the
// instance check in onDeadline.
func (s *gameService) scheduleDeadline(key engine.Key, instance uint64, d time.Duration) {
	time.AfterFunc(d, func() {
		s.onDeadline(key, instance)
	})
}

// GetGame returns a snapshot of the active game for key.
func (s *gameService) GetGame(ctx context.Context, key string) (*GameView, error) {
	snap, ok := s.store.Get(engine.Key(key))
	if !ok || snap.State != engine.StateActive {
		return nil, ErrGameNotFound
	}
	return viewOf(&snap), nil
}

// ListGames returns snapshots of all active games, most recent first.
func (s *gameService) ListGames(ctx context.Context) ([]*GameView, error) {
	sessions := s.store.Snapshot()
	views := make([]*GameView, 0, len(sessions))
	for i := range sessions {
		if sessions[i].State != engine.StateActive {
			continue
		}
		views = append(views, viewOf(&sessions[i]))
	}
	sort.Slice(views, func(i, j int) bool {
		return views[i].StartedAt.After(views[j].StartedAt)
	})
	return views, nil
}

// Stats returns aggregated historical results for key.
func (s *gameService) Stats(ctx context.Context, key string) (*StatsReport, error) {
	if s.results == nil {
		return nil, ErrStatsUnavailable
	}
	return s.results.Stats(ctx, key)
}

// TopKeys returns the n keys with the most games played.
func (s *gameService) TopKeys(ctx context.Context, n int) ([]KeyGames, error) {
	if s.results == nil {
		return nil, ErrStatsUnavailable
	}
	return s.results.TopKeysByGames(ctx, n)
}

// Leaderboard returns the n best session scores.
func (s *gameService) Leaderboard(ctx context.Context, n int) ([]LeaderboardEntry, error) {
	if s.board == nil {
		return nil, ErrLeaderboardUnavailable
	}
	return s.board.Top(ctx, n)
}

// ListDifficulties returns the available difficulty presets.
func (s *gameService) ListDifficulties(ctx context.Context) ([]*DifficultyInfo, error) {
	return s.configs.ListConfigs()
}

// resolveConfig turns start options into a validated challenge config:
// preset first, then the explicit overrides.
func (s *gameService) resolveConfig(opts StartOptions) (engine.ChallengeConfig, error) {
	var cfg engine.ChallengeConfig
	if opts.Difficulty != "" {
		loaded, err := s.configs.LoadConfig(opts.Difficulty)
		if err != nil {
			return engine.ChallengeConfig{}, fmt.Errorf("failed to load difficulty %q: %w", opts.Difficulty, err)
		}
		cfg = *loaded
	} else {
		cfg = *s.configs.GetDefault()
	}

	if opts.Length > 0 {
		cfg.Length = opts.Length
	}
	if opts.IncludeDigits {
		cfg.IncludeDigits = true
	}
	if opts.CaseSensitive {
		cfg.CaseSensitive = true
	}

	if err := engine.ValidateChallengeConfig(&cfg); err != nil {
		return engine.ChallengeConfig{}, err
	}
	return cfg, nil
}

func (s *gameService) guessTimeout(cfg engine.ChallengeConfig) time.Duration {
	if s.timeoutOverride > 0 {
		return s.timeoutOverride
	}
	return cfg.Timeout()
}

// viewOf builds the external snapshot of a session.
func viewOf(sess *engine.Session) *GameView {
	return &GameView{
		Key:            string(sess.Key),
		Score:          sess.Score,
		Streak:         Streak(sess.Score),
		Artifact:       sess.Artifact,
		Difficulty:     sess.Config.Name,
		Length:         sess.Config.Length,
		IncludeDigits:  sess.Config.IncludeDigits,
		TimeoutSeconds: sess.Config.TimeoutSeconds,
		StartedAt:      sess.StartedAt,
		IssuedAt:       sess.IssuedAt,
		Deadline:       sess.Deadline,
	}
}

// finalResultOf builds the external view of a finalized result.
func finalResultOf(res engine.Result) *FinalResult {
	return &FinalResult{
		Key:            string(res.Key),
		Outcome:        string(res.Outcome),
		Score:          res.Score,
		Streak:         Streak(res.Score),
		Answer:         res.Answer,
		ElapsedSeconds: res.Elapsed.Seconds(),
	}
}

type nopSink struct{}

func (nopSink) Persist(ctx context.Context, res engine.Result) error { return nil }

type nopNotifier struct{}

func (nopNotifier) ChallengePosted(ch engine.Challenge) {}
func (nopNotifier) GameOver(g engine.GameOver)          {}
