// Command statsreport prints a quick, human-readable report from the
// result database: the most active keys and the per-key aggregates for
// any keys passed as arguments. It reads the same MONGODB_* environment
// variables as the server.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/wricardo/captcha-rush/storage"
)

func main() {
	_ = godotenv.Load()

	var cfg storage.MongoConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("Failed to parse mongo config: %v", err)
	}
	if !cfg.Enabled() {
		log.Fatal("MONGODB_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := storage.NewMongoDatabase(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to mongo: %v", err)
	}
	defer db.Client().Disconnect(context.Background())

	results := storage.NewResultStore(db)

	fmt.Println("=== Most Active Keys ===")
	top, err := results.TopKeysByGames(ctx, 5)
	if err != nil {
		log.Fatalf("Failed to load top keys: %v", err)
	}
	if len(top) == 0 {
		fmt.Println("No games recorded yet")
	}
	for i, k := range top {
		fmt.Printf("%d. %s - %d games\n", i+1, k.Key, k.TotalGames)
	}

	// Explicit keys from the command line get a detailed breakdown.
	for _, key := range os.Args[1:] {
		fmt.Printf("\n=== Stats for %s ===\n", key)
		reportKey(ctx, results, key)
	}
}

func reportKey(ctx context.Context, results *storage.ResultStore, key string) {
	stats, err := results.Stats(ctx, key)
	if err != nil {
		fmt.Printf("Error loading stats: %v\n", err)
		return
	}

	if stats.TotalGames == 0 {
		fmt.Println("No games recorded for this key")
		return
	}

	fmt.Printf("Total games:   %d\n", stats.TotalGames)
	fmt.Printf("Total score:   %d\n", stats.TotalScore)
	fmt.Printf("Average score: %.2f\n", stats.AverageScore)
	fmt.Printf("Top score:     %d\n", stats.TopScore)
}
