// Package vision runs nurse photo check-ins: it sends the photo to the
// vision collaborator, applies the fallbacks for unreadable or empty
// answers, and logs the result to the vision-log store.
package vision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/bloomwatch/internal/llm"
	"github.com/linnemanlabs/bloomwatch/internal/signal"
)

const (
	unreadableInsight = "I've reviewed your photo. It's hard for me to see details clearly here. Try another photo with better lighting!"
	emptyInsight      = "I've reviewed your photo. You're doing a great job caring for yourself and the baby!"
)

// ErrNoImage is returned when Submit is called without image bytes.
var ErrNoImage = errors.New("vision: no image provided")

// Analyzer reads a photo and returns an unsaved vision log.
type Analyzer interface {
	AnalyzeImage(ctx context.Context, image []byte, mimeType string) (*signal.VisionLog, error)
}

// Service handles photo check-ins.
type Service struct {
	analyzer Analyzer
	store    signal.VisionStore
	timeout  time.Duration
	logger   log.Logger
	now      func() time.Time
}

// NewService creates a vision intake service. timeout bounds the analyzer
// call; zero leaves it to the analyzer.
func NewService(analyzer Analyzer, store signal.VisionStore, timeout time.Duration, logger log.Logger) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{
		analyzer: analyzer,
		store:    store,
		timeout:  timeout,
		logger:   logger,
		now:      time.Now,
	}
}

// Submit analyzes image and stores the resulting log. Transport failures
// from the analyzer are returned and nothing is stored.
func (s *Service) Submit(ctx context.Context, image []byte, mimeType string) (*signal.VisionLog, error) {
	if len(image) == 0 {
		return nil, ErrNoImage
	}

	actx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	v, err := s.analyzer.AnalyzeImage(actx, image, mimeType)
	var pe *llm.PayloadError
	switch {
	case errors.Is(err, llm.ErrUnparseable), errors.As(err, &pe):
		s.logger.Warn(ctx, "vision analysis unreadable, using fallback", "err", err)
		v = &signal.VisionLog{
			AnalysisType: signal.AnalysisObservation,
			InsightText:  unreadableInsight,
			AlertLevel:   signal.VisionStable,
		}
	case err != nil:
		return nil, fmt.Errorf("analyze image: %w", err)
	case v == nil:
		v = &signal.VisionLog{}
	}

	normalize(v)
	v.ID = ulid.Make().String()
	v.CreatedAt = s.now().UTC()

	// the analysis is still returned when it cannot be stored; the cache
	// then keeps its previous vision log
	if err := s.store.Insert(ctx, v); err != nil {
		s.logger.Error(ctx, err, "failed to store vision log", "vision_id", v.ID)
		return v, nil
	}

	s.logger.Info(ctx, "vision log stored",
		"vision_id", v.ID,
		"analysis_type", v.AnalysisType,
		"alert_level", v.AlertLevel,
		"has_fatigue", v.FatigueIndex != nil,
	)
	return v, nil
}

func normalize(v *signal.VisionLog) {
	if strings.TrimSpace(v.InsightText) == "" {
		v.InsightText = emptyInsight
	}
	if v.AnalysisType == "" {
		v.AnalysisType = signal.AnalysisObservation
	}
	if v.AlertLevel == "" {
		v.AlertLevel = signal.VisionStable
	}
}
