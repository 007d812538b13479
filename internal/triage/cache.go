package triage

import (
	"context"
	"sync"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/bloomwatch/internal/signal"
)

// DefaultPollInterval is the refresh period when none is configured.
const DefaultPollInterval = 3 * time.Second

// visionSource labels vision-log read failures.
const visionSource = "daily_logs"

// Cache holds the latest value of every signal. Reads that fail keep the
// previous value; keys that are absent clear it.
type Cache struct {
	store    signal.Store
	vision   signal.VisionStore
	gate     *Gate
	interval time.Duration
	logger   log.Logger
	hooks    Hooks

	refreshMu sync.Mutex

	mu       sync.RWMutex
	snap     signal.Snapshot
	listener func(context.Context)
}

// NewCache creates a cache over the local store and the vision-log store.
// vision and gate may be nil.
func NewCache(store signal.Store, vision signal.VisionStore, gate *Gate, interval time.Duration, logger log.Logger, hooks Hooks) *Cache {
	if logger == nil {
		logger = log.Nop()
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Cache{
		store:    store,
		vision:   vision,
		gate:     gate,
		interval: interval,
		logger:   logger,
		hooks:    hooks,
	}
}

// OnRefresh registers fn to run after every refresh.
func (c *Cache) OnRefresh(fn func(context.Context)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listener = fn
}

// Snapshot returns the current signals, including the gate's cached pulse.
func (c *Cache) Snapshot() signal.Snapshot {
	c.mu.RLock()
	s := c.snap
	c.mu.RUnlock()
	if c.gate != nil {
		s.Sentiment = c.gate.Result()
	}
	return s
}

// Refresh re-reads every signal, then asks the gate for a sentiment pulse
// when journal history is present.
func (c *Cache) Refresh(ctx context.Context) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	c.mu.RLock()
	next := c.snap
	c.mu.RUnlock()

	for _, key := range signal.Keys {
		raw, ok, err := c.store.Get(ctx, key)
		if err == nil {
			err = applySignal(&next, key, raw, ok)
		}
		if err != nil {
			c.readFailed(ctx, string(key), err)
		}
	}

	if c.vision != nil {
		v, ok, err := c.vision.Latest(ctx)
		switch {
		case err != nil:
			c.readFailed(ctx, visionSource, err)
		case !ok:
			next.Vision = nil
		default:
			next.Vision = v
		}
	}

	c.mu.Lock()
	c.snap = next
	fn := c.listener
	c.mu.Unlock()

	if c.gate != nil && len(next.Journal) > 0 {
		c.gate.Request(ctx, next.Journal)
	}
	if fn != nil {
		fn(ctx)
	}
}

func (c *Cache) readFailed(ctx context.Context, source string, err error) {
	c.hooks.signalReadError(source)
	c.logger.Warn(ctx, "signal read failed, keeping last value", "source", source, "err", err)
}

// applySignal decodes raw into the slot for key. On error s is untouched.
func applySignal(s *signal.Snapshot, key signal.Key, raw []byte, ok bool) error {
	switch key {
	case signal.KeySelfReport:
		if !ok {
			s.SelfReport = nil
			return nil
		}
		r, err := signal.DecodeSelfReport(raw)
		if err != nil {
			return err
		}
		s.SelfReport = r
	case signal.KeyPhysical:
		if !ok {
			s.Physical = nil
			return nil
		}
		p, err := signal.DecodePhysical(raw)
		if err != nil {
			return err
		}
		s.Physical = p
	case signal.KeyMentalScore:
		if !ok {
			s.MentalScore = nil
			return nil
		}
		n, err := signal.DecodeMentalScore(raw)
		if err != nil {
			return err
		}
		s.MentalScore = &n
	case signal.KeyJournal:
		if !ok {
			s.Journal = nil
			return nil
		}
		j, err := signal.DecodeJournal(raw)
		if err != nil {
			return err
		}
		s.Journal = j
	case signal.KeyMindfulness:
		s.Mindfulness = ok && signal.DecodeMindfulness(raw)
	}
	return nil
}

// Run refreshes once, then on every store change and every poll tick until
// ctx is done. If the store cannot subscribe the cache polls only.
func (c *Cache) Run(ctx context.Context) error {
	c.Refresh(ctx)

	changes, err := c.store.Subscribe(ctx)
	if err != nil {
		c.logger.Warn(ctx, "signal subscription failed, polling only", "err", err, "interval", c.interval)
		changes = nil
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case key, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			c.logger.Info(ctx, "signal changed", "key", string(key))
			c.Refresh(ctx)
		case <-ticker.C:
			c.Refresh(ctx)
		}
	}
}
