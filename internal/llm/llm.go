// Package llm holds what the sentiment and vision collaborators share: the
// prompts, tolerant JSON extraction of model output, error classification
// and request metering. Provider clients live in the claude and gemini
// subpackages.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/linnemanlabs/bloomwatch/internal/signal"
)

// Analyzer is a provider able to read the journal history and nurse photos.
type Analyzer interface {
	AnalyzeSentiment(ctx context.Context, history []signal.JournalEntry) (*signal.SentimentPulse, error)
	AnalyzeImage(ctx context.Context, image []byte, mimeType string) (*signal.VisionLog, error)
}

var (
	// ErrUnparseable means the model answered but not with the expected JSON.
	ErrUnparseable = errors.New("llm: unparseable model output")
	// ErrQuotaExceeded means the provider rejected the call for rate or quota.
	ErrQuotaExceeded = errors.New("llm: quota exceeded")
	// ErrEmptyHistory means there was nothing to analyze.
	ErrEmptyHistory = errors.New("llm: empty journal history")
	// ErrEmptyImage means no image bytes were supplied.
	ErrEmptyImage = errors.New("llm: empty image")
)

// PayloadError is an object returned by the model carrying an "error" field.
type PayloadError struct {
	Message string
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("llm: model returned error payload: %s", e.Message)
}

// DefaultMaxTokens caps the output of both analyses.
const DefaultMaxTokens = 1024

// VisionTemperature keeps the nurse analysis conservative.
const VisionTemperature = 0.4
