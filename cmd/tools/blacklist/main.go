package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/david/volunteer-connect/internal/config"
	"github.com/david/volunteer-connect/internal/db"
	"github.com/david/volunteer-connect/internal/search"
	"github.com/joho/godotenv"
)

// blacklist suppresses a merged result group. Pass either the merge key
// directly (-key) or the title/snippet/location triple it derives from.
func main() {
	key := flag.String("key", "", "merge key to blacklist")
	title := flag.String("title", "", "result title (used when -key is empty)")
	snippet := flag.String("snippet", "", "result snippet")
	location := flag.String("location", "", "result location")
	reason := flag.String("reason", "", "why this group is suppressed")
	flag.Parse()

	if err := run(*key, *title, *snippet, *location, *reason); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(key, title, snippet, location, reason string) error {
	_ = godotenv.Load()

	if key == "" {
		if title == "" {
			return fmt.Errorf("either -key or -title is required")
		}
		key = search.ComputeMergeKey(title, snippet, location)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DatabaseURL, cfg.DBMinConns, cfg.DBMaxConns)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := db.NewBlacklistStore(pool).Add(ctx, key, reason); err != nil {
		return err
	}
	fmt.Println("blacklisted", key)
	return nil
}
