package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/wricardo/captcha-rush/game/engine"
	"github.com/wricardo/captcha-rush/game/service"
)

const resultsCollection = "keys"

// resultDoc is one finished game inside a key document's game_results
// array. The field names match the original schema so existing data
// keeps aggregating.
type resultDoc struct {
	ResultID      string    `bson:"result_id"`
	Datetime      time.Time `bson:"datetime"`
	CaptchaLength int       `bson:"captcha_length"`
	CharsAndNums  bool      `bson:"characters_and_numbers"`
	Score         int       `bson:"score"`
	Outcome       string    `bson:"outcome"`
	Answer        string    `bson:"answer"`
	ElapsedMs     int64     `bson:"elapsed_ms"`
}

// ResultStore persists finalized results to MongoDB, one document per
// key with an appended game_results array.
type ResultStore struct {
	coll *mongo.Collection
}

// NewResultStore creates a result store over the given database.
func NewResultStore(db *mongo.Database) *ResultStore {
	return &ResultStore{coll: db.Collection(resultsCollection)}
}

// Persist appends the result to the key's history, creating the key
// document on first write. It implements engine.ResultSink.
func (s *ResultStore) Persist(ctx context.Context, res engine.Result) error {
	doc := resultDoc{
		ResultID:      uuid.NewString(),
		Datetime:      res.FinishedAt,
		CaptchaLength: res.Length,
		CharsAndNums:  res.IncludeDigits,
		Score:         res.Score,
		Outcome:       string(res.Outcome),
		Answer:        res.Answer,
		ElapsedMs:     res.Elapsed.Milliseconds(),
	}

	filter := bson.D{{Key: "_id", Value: string(res.Key)}}
	update := bson.D{{Key: "$push", Value: bson.D{{Key: "game_results", Value: doc}}}}

	_, err := s.coll.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save game result: %w", err)
	}
	return nil
}

// Stats aggregates a key's history: total games, total and average
// score, and the best single-session score.
func (s *ResultStore) Stats(ctx context.Context, key string) (*service.StatsReport, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{{Key: "_id", Value: key}}}},
		bson.D{{Key: "$unwind", Value: "$game_results"}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$_id"},
			{Key: "top_score", Value: bson.D{{Key: "$max", Value: "$game_results.score"}}},
			{Key: "average_score", Value: bson.D{{Key: "$avg", Value: "$game_results.score"}}},
			{Key: "total_score", Value: bson.D{{Key: "$sum", Value: "$game_results.score"}}},
			{Key: "total_games", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate stats: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		TopScore     int64   `bson:"top_score"`
		AverageScore float64 `bson:"average_score"`
		TotalScore   int64   `bson:"total_score"`
		TotalGames   int64   `bson:"total_games"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode stats: %w", err)
	}
	if len(rows) == 0 {
		// No history yet; an all-zero report, not an error.
		return &service.StatsReport{Key: key}, nil
	}

	return &service.StatsReport{
		Key:          key,
		TotalGames:   rows[0].TotalGames,
		TotalScore:   rows[0].TotalScore,
		AverageScore: rows[0].AverageScore,
		TopScore:     rows[0].TopScore,
	}, nil
}

// TopKeysByGames returns the n keys with the most games played.
func (s *ResultStore) TopKeysByGames(ctx context.Context, n int) ([]service.KeyGames, error) {
	if n <= 0 {
		n = 5
	}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$unwind", Value: "$game_results"}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$_id"},
			{Key: "total_games", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "total_games", Value: -1}}}},
		bson.D{{Key: "$limit", Value: n}},
	}

	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate top keys: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Key        string `bson:"_id"`
		TotalGames int64  `bson:"total_games"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode top keys: %w", err)
	}

	out := make([]service.KeyGames, 0, len(rows))
	for _, row := range rows {
		out = append(out, service.KeyGames{Key: row.Key, TotalGames: row.TotalGames})
	}
	return out, nil
}
