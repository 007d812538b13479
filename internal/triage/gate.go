package triage

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/bloomwatch/internal/signal"
)

// SentimentAnalyzer reads the journal history and returns a sentiment pulse.
// Implementations report a provider-side error payload as an error.
type SentimentAnalyzer interface {
	AnalyzeSentiment(ctx context.Context, history []signal.JournalEntry) (*signal.SentimentPulse, error)
}

var errEmptyPulse = errors.New("sentiment analyzer returned no pulse")

// Gate makes sure at most one sentiment call is in flight and that a
// successful pulse is never replaced for the life of the process.
type Gate struct {
	analyzer SentimentAnalyzer
	timeout  time.Duration
	logger   log.Logger
	hooks    Hooks

	mu         sync.Mutex
	inFlight   bool
	done       chan struct{}
	result     *signal.SentimentPulse
	onComplete func(context.Context)
}

// NewGate creates a gate over analyzer. timeout bounds each call; zero means
// the analyzer's own limits apply.
func NewGate(analyzer SentimentAnalyzer, timeout time.Duration, logger log.Logger, hooks Hooks) *Gate {
	if logger == nil {
		logger = log.Nop()
	}
	return &Gate{
		analyzer: analyzer,
		timeout:  timeout,
		logger:   logger,
		hooks:    hooks,
	}
}

// OnComplete registers fn to run after every call finishes, success or not.
func (g *Gate) OnComplete(fn func(context.Context)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onComplete = fn
}

// Request starts a sentiment call for history unless one is in flight, a
// pulse is already cached, or history is empty. It reports whether a call
// was started. The call outlives ctx's cancellation.
func (g *Gate) Request(ctx context.Context, history []signal.JournalEntry) bool {
	if len(history) == 0 {
		return false
	}

	g.mu.Lock()
	if g.inFlight || g.result != nil {
		g.mu.Unlock()
		return false
	}
	g.inFlight = true
	done := make(chan struct{})
	g.done = done
	g.mu.Unlock()

	go g.run(context.WithoutCancel(ctx), slices.Clone(history), done)
	return true
}

func (g *Gate) run(ctx context.Context, history []signal.JournalEntry, done chan struct{}) {
	defer close(done)

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	pulse, err := g.analyzer.AnalyzeSentiment(ctx, history)
	if err == nil && pulse == nil {
		err = errEmptyPulse
	}
	dur := time.Since(start)

	g.mu.Lock()
	if err == nil {
		cp := *pulse
		g.result = &cp
	}
	g.inFlight = false
	fn := g.onComplete
	g.mu.Unlock()

	if err != nil {
		g.hooks.sentimentCall("error", dur.Seconds())
		g.logger.Warn(ctx, "sentiment analysis failed", "err", err, "duration", dur, "entries", len(history))
	} else {
		g.hooks.sentimentCall("success", dur.Seconds())
		g.logger.Info(ctx, "sentiment pulse cached", "burnout_risk", pulse.BurnoutRisk, "duration", dur)
	}

	if fn != nil {
		fn(ctx)
	}
}

// Result returns a copy of the cached pulse, or nil.
func (g *Gate) Result() *signal.SentimentPulse {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.result == nil {
		return nil
	}
	cp := *g.result
	return &cp
}

// InFlight reports whether a call is running.
func (g *Gate) InFlight() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight
}

// Wait blocks until the current call, if any, has finished and its
// completion listener has returned.
func (g *Gate) Wait() {
	g.mu.Lock()
	done := g.done
	g.mu.Unlock()
	if done != nil {
		<-done
	}
}
