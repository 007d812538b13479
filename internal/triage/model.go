package triage

import (
	"slices"
	"time"

	"github.com/linnemanlabs/bloomwatch/internal/signal"
)

// Level is the severity color of an alert.
type Level string

const (
	LevelRed    Level = "red"
	LevelAmber  Level = "amber"
	LevelYellow Level = "yellow"
	LevelGreen  Level = "green"
)

// Rank orders levels from green (0) to red (3). Unknown levels rank below green.
func (l Level) Rank() int {
	switch l {
	case LevelRed:
		return 3
	case LevelAmber:
		return 2
	case LevelYellow:
		return 1
	case LevelGreen:
		return 0
	default:
		return -1
	}
}

// Alert is the one caregiver-facing recommendation produced per resolution.
type Alert struct {
	Type        string   `json:"type"`
	Level       Level    `json:"level"`
	Title       string   `json:"title"`
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions"`
}

// Equal reports whether a and b are structurally identical.
func (a Alert) Equal(b Alert) bool {
	return a.Type == b.Type &&
		a.Level == b.Level &&
		a.Title == b.Title &&
		a.Message == b.Message &&
		slices.Equal(a.Suggestions, b.Suggestions)
}

// changed reports whether the caregiver would see a different alert.
func (a Alert) changed(b Alert) bool {
	return a.Type != b.Type || a.Level != b.Level || a.Title != b.Title
}

// Banner is the mindfulness notice shown above the alert.
type Banner struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// SentimentPanel overlays the cached sentiment pulse with its badge color.
type SentimentPanel struct {
	signal.SentimentPulse
	Badge Level `json:"badge"`
}

// VisionPanel overlays the latest nurse vision log. FatigueBar is the fatigue
// index clamped to [0,10]; nil when the log has no fatigue index.
type VisionPanel struct {
	Log        signal.VisionLog `json:"log"`
	FatigueBar *float64         `json:"fatigue_bar,omitempty"`
}

// Report is the full caregiver view of one resolution.
type Report struct {
	Alert       Alert           `json:"alert"`
	Rule        string          `json:"rule"`
	Mindfulness *Banner         `json:"mindfulness,omitempty"`
	Sentiment   *SentimentPanel `json:"sentiment,omitempty"`
	Vision      *VisionPanel    `json:"vision,omitempty"`
	ResolvedAt  time.Time       `json:"resolved_at"`
}
