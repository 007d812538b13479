// Package memstore provides in-memory implementations of signal.Store and
// signal.VisionStore. Suitable for dev/testing.
package memstore

import (
	"context"
	"sync"

	"github.com/linnemanlabs/bloomwatch/internal/signal"
)

// subscriberBuffer is the per-subscriber change queue; writes never block on slow readers.
const subscriberBuffer = 16

// Store holds signal values in memory and fans out change notifications.
type Store struct {
	mu     sync.RWMutex
	values map[signal.Key][]byte
	subs   map[chan signal.Key]struct{}
}

// New initializes an empty Store.
func New() *Store {
	return &Store{
		values: make(map[signal.Key][]byte),
		subs:   make(map[chan signal.Key]struct{}),
	}
}

// Get returns a copy of the value stored under key.
func (s *Store) Get(_ context.Context, key signal.Key) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set stores a copy of value and notifies every subscriber. A subscriber
// whose queue is full misses this notification but still sees the value on
// its next read.
func (s *Store) Set(_ context.Context, key signal.Key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = append([]byte(nil), value...)
	for ch := range s.subs {
		select {
		case ch <- key:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel of changed keys, closed when ctx is done.
func (s *Store) Subscribe(ctx context.Context) (<-chan signal.Key, error) {
	ch := make(chan signal.Key, subscriberBuffer)

	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, ch)
		close(ch)
		s.mu.Unlock()
	}()

	return ch, nil
}

// VisionLogs holds nurse vision logs in memory.
type VisionLogs struct {
	mu   sync.RWMutex
	logs []signal.VisionLog
}

// NewVisionLogs initializes an empty VisionLogs.
func NewVisionLogs() *VisionLogs {
	return &VisionLogs{}
}

// Latest returns a copy of the record with the newest CreatedAt. On ties the
// later insert wins.
func (v *VisionLogs) Latest(_ context.Context) (*signal.VisionLog, bool, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if len(v.logs) == 0 {
		return nil, false, nil
	}
	best := 0
	for i := range v.logs {
		if !v.logs[i].CreatedAt.Before(v.logs[best].CreatedAt) {
			best = i
		}
	}
	cp := v.logs[best]
	return &cp, true, nil
}

// Insert stores a copy of the log.
func (v *VisionLogs) Insert(_ context.Context, l *signal.VisionLog) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.logs = append(v.logs, *l)
	return nil
}
