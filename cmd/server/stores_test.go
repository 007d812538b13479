package main

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/linnemanlabs/go-core/log"

	vc "github.com/linnemanlabs/bloomwatch/internal/cfg"
	"github.com/linnemanlabs/bloomwatch/internal/llm/claude"
	"github.com/linnemanlabs/bloomwatch/internal/llm/gemini"
	"github.com/linnemanlabs/bloomwatch/internal/signal"
	"github.com/linnemanlabs/bloomwatch/internal/signal/memstore"
	"github.com/linnemanlabs/bloomwatch/internal/signal/redisstore"
)

func TestOpenSignalStore_InMemory(t *testing.T) {
	t.Parallel()

	store, closeFn, err := openSignalStore(context.Background(), vc.Config{}, log.Nop())
	if err != nil {
		t.Fatalf("openSignalStore: %v", err)
	}
	defer func() { _ = closeFn() }()

	if _, ok := store.(*memstore.Store); !ok {
		t.Errorf("store = %T, want *memstore.Store", store)
	}
}

func TestOpenSignalStore_Redis(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	c := vc.Config{RedisURL: "redis://" + mr.Addr() + "/0", SignalPrefix: "test:"}

	store, closeFn, err := openSignalStore(context.Background(), c, log.Nop())
	if err != nil {
		t.Fatalf("openSignalStore: %v", err)
	}
	defer func() { _ = closeFn() }()

	if _, ok := store.(*redisstore.Store); !ok {
		t.Fatalf("store = %T, want *redisstore.Store", store)
	}

	ctx := context.Background()
	if err := signal.NewWriter(store).SetMentalScore(ctx, 4); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := mr.Get("test:" + string(signal.KeyMentalScore))
	if err != nil || got != "4" {
		t.Errorf("redis value = %q, %v; want 4", got, err)
	}
}

func TestOpenSignalStore_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
	}{
		{"bad scheme", "http://localhost:6379"},
		{"unreachable", "redis://127.0.0.1:1/0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, _, err := openSignalStore(context.Background(), vc.Config{RedisURL: tt.url}, log.Nop()); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestOpenVisionStore_InMemory(t *testing.T) {
	t.Parallel()

	store, closeFn, err := openVisionStore(context.Background(), vc.Config{}, log.Nop())
	if err != nil {
		t.Fatalf("openVisionStore: %v", err)
	}
	defer func() { _ = closeFn() }()

	if _, ok := store.(*memstore.VisionLogs); !ok {
		t.Errorf("store = %T, want *memstore.VisionLogs", store)
	}
}

func TestNewAnalyzer(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("claude", func(t *testing.T) {
		t.Parallel()
		a, closeFn, err := newAnalyzer(ctx, vc.Config{LLMProvider: vc.ProviderClaude, ClaudeAPIKey: "k", ClaudeModel: "m"})
		if err != nil {
			t.Fatalf("newAnalyzer: %v", err)
		}
		defer func() { _ = closeFn() }()
		if _, ok := a.(*claude.Client); !ok {
			t.Errorf("analyzer = %T, want *claude.Client", a)
		}
	})

	t.Run("gemini", func(t *testing.T) {
		t.Parallel()
		a, closeFn, err := newAnalyzer(ctx, vc.Config{LLMProvider: vc.ProviderGemini, GeminiAPIKey: "k", GeminiModel: "m"})
		if err != nil {
			t.Fatalf("newAnalyzer: %v", err)
		}
		defer func() { _ = closeFn() }()
		if _, ok := a.(*gemini.Client); !ok {
			t.Errorf("analyzer = %T, want *gemini.Client", a)
		}
	})

	t.Run("gemini without key", func(t *testing.T) {
		t.Parallel()
		if _, _, err := newAnalyzer(ctx, vc.Config{LLMProvider: vc.ProviderGemini}); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		t.Parallel()
		if _, _, err := newAnalyzer(ctx, vc.Config{LLMProvider: "openai"}); err == nil {
			t.Fatal("expected error")
		}
	})
}
