package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/linnemanlabs/go-core/log"

	vc "github.com/linnemanlabs/bloomwatch/internal/cfg"
	"github.com/linnemanlabs/bloomwatch/internal/llm"
	"github.com/linnemanlabs/bloomwatch/internal/llm/claude"
	"github.com/linnemanlabs/bloomwatch/internal/llm/gemini"
	"github.com/linnemanlabs/bloomwatch/internal/postgres"
	"github.com/linnemanlabs/bloomwatch/internal/signal"
	"github.com/linnemanlabs/bloomwatch/internal/signal/memstore"
	"github.com/linnemanlabs/bloomwatch/internal/signal/pgstore"
	"github.com/linnemanlabs/bloomwatch/internal/signal/redisstore"
	"github.com/linnemanlabs/bloomwatch/internal/triage"
	"github.com/linnemanlabs/bloomwatch/internal/vision"
)

// analyzer is the AI collaborator: sentiment for the gate, images for the
// vision intake.
type analyzer interface {
	triage.SentimentAnalyzer
	vision.Analyzer
}

func noopClose() error { return nil }

// openSignalStore connects to Redis when a URL is configured, otherwise it
// returns a process-local store.
func openSignalStore(ctx context.Context, c vc.Config, L log.Logger) (signal.Store, func() error, error) {
	if c.RedisURL == "" {
		L.Info(ctx, "using in-memory signal store (no redis-url configured)")
		return memstore.New(), noopClose, nil
	}

	opts, err := redis.ParseURL(c.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}

	L.Info(ctx, "using redis signal store", "addr", opts.Addr, "db", opts.DB, "prefix", c.SignalPrefix)
	return redisstore.New(client, c.SignalPrefix), client.Close, nil
}

// openVisionStore connects to PostgreSQL when a URL is configured, otherwise
// vision logs live in memory.
func openVisionStore(ctx context.Context, c vc.Config, L log.Logger) (signal.VisionStore, func() error, error) {
	if c.DatabaseURL == "" {
		L.Info(ctx, "using in-memory vision log store (no database-url configured)")
		return memstore.NewVisionLogs(), noopClose, nil
	}

	pool, err := postgres.NewPool(ctx, c.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres pool: %w", err)
	}
	store, err := pgstore.New(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("pgstore init: %w", err)
	}

	L.Info(ctx, "using postgres vision log store")
	return store, func() error { pool.Close(); return nil }, nil
}

// newAnalyzer builds the configured provider behind a shared request limiter.
func newAnalyzer(ctx context.Context, c vc.Config) (analyzer, func() error, error) {
	limiter := llm.NewLimiter(c.LLMRequestsPerMinute, 2)

	switch c.LLMProvider {
	case vc.ProviderClaude:
		return claude.New(c.ClaudeAPIKey, c.ClaudeModel, limiter), noopClose, nil
	case vc.ProviderGemini:
		g, err := gemini.New(ctx, c.GeminiAPIKey, c.GeminiModel, limiter)
		if err != nil {
			return nil, nil, fmt.Errorf("gemini client: %w", err)
		}
		return g, g.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown llm provider %q", c.LLMProvider)
	}
}
