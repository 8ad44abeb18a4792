package engine

import (
	"context"
	"time"
)

// Key identifies the scope a challenge session is bound to. Deployments
// decide what it means: a chat channel ID, a player ID, or any other
// identity. At most one session exists per key at any time.
type Key string

// State tracks where a session is in its lifecycle.
type State int

const (
	// StateActive means a puzzle is outstanding and guesses are accepted.
	StateActive State = iota
	// StateResolving means a terminal outcome is being committed. The
	// transition into Resolving is the point where the guess/timeout race
	// is decided; whichever event moves the session here owns finalization.
	StateResolving
	// StateClosed means the session is terminal and about to be removed.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateResolving:
		return "resolving"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result of a session.
type Outcome string

const (
	// OutcomeTimeout means the deadline fired before a correct guess.
	OutcomeTimeout Outcome = "timeout"
	// OutcomeWrongAnswer means a guess arrived and did not match.
	OutcomeWrongAnswer Outcome = "wrong_answer"
)

// Puzzle is one generated challenge: the expected answer and the rendered
// artifact shown to the player (a base64-encoded PNG).
type Puzzle struct {
	Answer   string
	Artifact string
}

// Generator produces a fresh puzzle for the given challenge settings.
// Implementations must be safe for concurrent use.
type Generator interface {
	Generate(cfg ChallengeConfig) (Puzzle, error)
}

// Result is the finalized outcome of a session, handed to each ResultSink
// exactly once when the session ends.
type Result struct {
	Key           Key           `json:"key" bson:"key"`
	Score         int           `json:"score" bson:"score"`
	Outcome       Outcome       `json:"outcome" bson:"outcome"`
	Answer        string        `json:"answer" bson:"answer"`
	Length        int           `json:"captcha_length" bson:"captcha_length"`
	IncludeDigits bool          `json:"characters_and_numbers" bson:"characters_and_numbers"`
	Elapsed       time.Duration `json:"elapsed" bson:"elapsed"`
	FinishedAt    time.Time     `json:"datetime" bson:"datetime"`
}

// ResultSink receives finalized outcomes for persistence or reward
// computation. A failed persist is the sink's problem to report; the
// caller never rolls back game state over it.
type ResultSink interface {
	Persist(ctx context.Context, res Result) error
}

// Challenge describes a freshly issued puzzle for presentation. It carries
// everything a renderer needs without reading the session store.
type Challenge struct {
	Key      Key       `json:"key"`
	Instance uint64    `json:"instance"`
	Artifact string    `json:"artifact"`
	Score    int       `json:"score"`
	Deadline time.Time `json:"deadline"`
}

// GameOver describes a finalized session for presentation.
type GameOver struct {
	Key     Key           `json:"key"`
	Outcome Outcome       `json:"outcome"`
	Score   int           `json:"score"`
	Answer  string        `json:"answer"`
	Elapsed time.Duration `json:"elapsed"`
}

// Notifier receives presentation events: one ChallengePosted per issued
// puzzle and one GameOver per finalized session. Implementations must not
// block; slow delivery belongs behind a channel or queue.
type Notifier interface {
	ChallengePosted(ch Challenge)
	GameOver(g GameOver)
}

// Notifiers fans presentation events out to several notifiers in order.
type Notifiers []Notifier

// ChallengePosted forwards the event to every notifier.
func (n Notifiers) ChallengePosted(ch Challenge) {
	for _, nt := range n {
		nt.ChallengePosted(ch)
	}
}

// GameOver forwards the event to every notifier.
func (n Notifiers) GameOver(g GameOver) {
	for _, nt := range n {
		nt.GameOver(g)
	}
}

// Sinks fans a finalized result out to several sinks. Each sink is
// invoked even if an earlier one failed; the first error is returned.
type Sinks []ResultSink

// Persist hands the result to every sink.
func (s Sinks) Persist(ctx context.Context, res Result) error {
	var first error
	for _, sink := range s {
		if err := sink.Persist(ctx, res); err != nil && first == nil {
			first = err
		}
	}
	return first
}
