package signal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// ErrInvalidSignal is returned by Writer for values that would not decode.
var ErrInvalidSignal = errors.New("invalid signal")

// Writer is the single typed mutation API over a Store. Every write lands
// as one Set, so the store's change notification reaches all readers.
type Writer struct {
	store Store
	now   func() time.Time

	// serializes the journal read-modify-write
	mu sync.Mutex
}

// NewWriter returns a Writer over store.
func NewWriter(store Store) *Writer {
	return &Writer{store: store, now: time.Now}
}

// SaveSelfReport overwrites the daily check-in and prepends its note to the
// rolling journal history, keeping the newest MaxJournalHistory entries.
func (w *Writer) SaveSelfReport(ctx context.Context, r SelfReport) error {
	if !r.Mood.Valid() {
		return fmt.Errorf("%w: mood %d out of range", ErrInvalidSignal, r.Mood)
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = w.now().UTC()
	}

	if err := w.setJSON(ctx, KeySelfReport, r); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	var history []JournalEntry
	raw, ok, err := w.store.Get(ctx, KeyJournal)
	if err != nil {
		return fmt.Errorf("read journal history: %w", err)
	}
	if ok {
		// a corrupt history is replaced rather than blocking the check-in
		if h, err := DecodeJournal(raw); err == nil {
			history = h
		}
	}

	history = append([]JournalEntry{{Note: r.Note, Timestamp: r.Timestamp}}, history...)
	if len(history) > MaxJournalHistory {
		history = history[:MaxJournalHistory]
	}
	return w.setJSON(ctx, KeyJournal, history)
}

// SetPhysicalStatus stores the physical log with its derived flags applied.
func (w *Writer) SetPhysicalStatus(ctx context.Context, p PhysicalStatus) error {
	p.DeriveFlags()
	return w.setJSON(ctx, KeyPhysical, p)
}

// SetMentalScore stores the screening score.
func (w *Writer) SetMentalScore(ctx context.Context, score int) error {
	if score < 0 {
		return fmt.Errorf("%w: mental score %d is negative", ErrInvalidSignal, score)
	}
	if err := w.store.Set(ctx, KeyMentalScore, []byte(strconv.Itoa(score))); err != nil {
		return fmt.Errorf("write %s: %w", KeyMentalScore, err)
	}
	return nil
}

// SetMindfulness marks a mindfulness session as started or stopped.
func (w *Writer) SetMindfulness(ctx context.Context, active bool) error {
	if err := w.store.Set(ctx, KeyMindfulness, []byte(strconv.FormatBool(active))); err != nil {
		return fmt.Errorf("write %s: %w", KeyMindfulness, err)
	}
	return nil
}

func (w *Writer) setJSON(ctx context.Context, key Key, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := w.store.Set(ctx, key, b); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
