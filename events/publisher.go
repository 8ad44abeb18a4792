// Package events publishes game lifecycle events to a message bus.
//
// Two topics are used: captcha.challenge carries every issued puzzle
// and captcha.result carries every finished game. Payloads are JSON so
// any subscriber can consume them without sharing Go types.
package events

import (
	"encoding/json"
	"log"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/wricardo/captcha-rush/game/engine"
)

const (
	TopicChallenge = "captcha.challenge"
	TopicResult    = "captcha.result"
)

// ChallengeEvent is the wire form of an issued puzzle. The artifact is
// omitted to keep messages small; subscribers fetch it over the API.
type ChallengeEvent struct {
	Key      string    `json:"key"`
	Instance uint64    `json:"instance"`
	Score    int       `json:"score"`
	Deadline time.Time `json:"deadline"`
}

// ResultEvent is the wire form of a finished game.
type ResultEvent struct {
	Key            string  `json:"key"`
	Outcome        string  `json:"outcome"`
	Score          int     `json:"score"`
	Answer         string  `json:"answer"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// Publisher forwards game events to a Watermill publisher. It implements
// engine.Notifier; publish failures are logged and swallowed because
// event delivery must never stall the game loop.
type Publisher struct {
	pub message.Publisher
}

// NewPublisher wraps a Watermill publisher.
func NewPublisher(pub message.Publisher) *Publisher {
	return &Publisher{pub: pub}
}

// ChallengePosted publishes an issued puzzle to the challenge topic.
func (p *Publisher) ChallengePosted(ch engine.Challenge) {
	p.publish(TopicChallenge, ChallengeEvent{
		Key:      string(ch.Key),
		Instance: ch.Instance,
		Score:    ch.Score,
		Deadline: ch.Deadline,
	})
}

// GameOver publishes a finished game to the result topic.
func (p *Publisher) GameOver(g engine.GameOver) {
	p.publish(TopicResult, ResultEvent{
		Key:            string(g.Key),
		Outcome:        string(g.Outcome),
		Score:          g.Score,
		Answer:         g.Answer,
		ElapsedSeconds: g.Elapsed.Seconds(),
	})
}

func (p *Publisher) publish(topic string, event interface{}) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal %s event: %v", topic, err)
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := p.pub.Publish(topic, msg); err != nil {
		log.Printf("Failed to publish %s event: %v", topic, err)
	}
}
