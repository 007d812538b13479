package triage

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"
)

// Change describes a caregiver-visible alert transition.
type Change struct {
	ID       string `json:"id"`
	Previous Alert  `json:"previous"`
	Report   Report `json:"report"`
}

// Notifier delivers alert changes to caregivers outside the API.
type Notifier interface {
	Notify(ctx context.Context, change Change) error
}

// Service is the business boundary for triage: it re-resolves the report on
// every cache refresh and gate completion, and fans out changes.
type Service struct {
	cache    *Cache
	notifier Notifier
	logger   log.Logger
	hooks    Hooks
	now      func() time.Time

	mu      sync.Mutex
	current *Report
	subs    map[int]chan Report
	nextSub int
	pending sync.WaitGroup
}

// NewService creates a triage service and registers it as the listener of
// cache and gate. gate and notifier may be nil.
func NewService(cache *Cache, gate *Gate, notifier Notifier, logger log.Logger, hooks Hooks) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	s := &Service{
		cache:    cache,
		notifier: notifier,
		logger:   logger,
		hooks:    hooks,
		now:      time.Now,
		subs:     make(map[int]chan Report),
	}
	cache.OnRefresh(s.onSignals)
	if gate != nil {
		gate.OnComplete(s.onSignals)
	}
	return s
}

// Run drives the cache until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	return s.cache.Run(ctx)
}

// Current returns the latest report, resolving from the cache if nothing has
// been resolved yet.
func (s *Service) Current(ctx context.Context) Report {
	s.mu.Lock()
	cur := s.current
	s.mu.Unlock()
	if cur != nil {
		return *cur
	}
	return s.resolve(ctx)
}

// Refresh re-reads every signal and returns the resulting report.
func (s *Service) Refresh(ctx context.Context) Report {
	s.cache.Refresh(ctx)
	return s.Current(ctx)
}

// Subscribe returns a channel of reports, primed with the current one, and a
// func that ends the subscription. A slow reader only sees the latest report.
func (s *Service) Subscribe() (<-chan Report, func()) {
	ch := make(chan Report, 1)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	if s.current != nil {
		ch <- *s.current
	}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			close(ch)
			s.mu.Unlock()
		})
	}
}

// Wait blocks until in-flight notifications have returned.
func (s *Service) Wait() {
	s.pending.Wait()
}

// onSignals is the cache and gate listener.
func (s *Service) onSignals(ctx context.Context) {
	s.resolve(ctx)
}

func (s *Service) resolve(ctx context.Context) Report {
	s.mu.Lock()
	rep := BuildReport(s.cache.Snapshot(), s.now())
	prev := s.current
	s.current = &rep

	if prev == nil || !sameView(*prev, rep) {
		for _, ch := range s.subs {
			publish(ch, rep)
		}
	}
	changed := prev != nil && prev.Alert.changed(rep.Alert)
	if changed {
		s.pending.Add(1)
	}
	s.mu.Unlock()

	s.hooks.resolve(rep.Rule)
	if prev == nil {
		s.logger.Info(ctx, "initial alert resolved", "rule", rep.Rule, "level", rep.Alert.Level, "type", rep.Alert.Type)
		return rep
	}
	if !changed {
		return rep
	}

	change := Change{ID: ulid.Make().String(), Previous: prev.Alert, Report: rep}
	s.hooks.alertChange(rep.Alert.Level)
	s.logger.Info(ctx, "alert changed",
		"change_id", change.ID,
		"rule", rep.Rule,
		"from_type", prev.Alert.Type,
		"from_level", prev.Alert.Level,
		"type", rep.Alert.Type,
		"level", rep.Alert.Level,
	)

	go s.notify(context.WithoutCancel(ctx), change)
	return rep
}

func (s *Service) notify(ctx context.Context, change Change) {
	defer s.pending.Done()
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, change); err != nil {
		s.logger.Error(ctx, err, "alert notification failed", "change_id", change.ID)
	}
}

// publish replaces any unread report in ch with rep.
func publish(ch chan Report, rep Report) {
	select {
	case ch <- rep:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- rep:
	default:
	}
}

// sameView reports whether a and b would render identically.
func sameView(a, b Report) bool {
	a.ResolvedAt, b.ResolvedAt = time.Time{}, time.Time{}
	return reflect.DeepEqual(a, b)
}
