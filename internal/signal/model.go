// Package signal defines the wellbeing signals the triage engine consumes,
// the ports used to read and write them, and the typed mutation API that
// publishes them to the local signal store.
package signal

import (
	"slices"
	"time"
)

// Mood is the 5-point self-reported mood scale.
type Mood int

const (
	MoodVeryLow Mood = iota
	MoodLow
	MoodOkay
	MoodGood
	MoodGreat
)

// Valid reports whether m is on the 5-point scale.
func (m Mood) Valid() bool {
	return m >= MoodVeryLow && m <= MoodGreat
}

// IsLow reports whether m is one of the two lowest positions of the scale.
func (m Mood) IsLow() bool {
	return m == MoodVeryLow || m == MoodLow
}

// SelfReport is the mother's daily check-in. Each save overwrites the previous one.
type SelfReport struct {
	Mood      Mood      `json:"mood"`
	Stress    int       `json:"stress"`
	Note      string    `json:"note"`
	Timestamp time.Time `json:"timestamp"`
}

// Symptom is a physical symptom flag logged by the recovery tracker.
type Symptom string

const (
	SymptomFever    Symptom = "fever"
	SymptomBleeding Symptom = "bleeding"
	SymptomPainC    Symptom = "pain_c"
	SymptomPainB    Symptom = "pain_b"
)

// Appetite is the self-reported appetite level.
type Appetite string

const (
	AppetiteNone   Appetite = "None"
	AppetiteLow    Appetite = "Low"
	AppetiteNormal Appetite = "Normal"
	AppetiteHigh   Appetite = "High"
)

// IsLow reports whether the appetite is None or Low.
func (a Appetite) IsLow() bool {
	return a == AppetiteNone || a == AppetiteLow
}

// PhysicalStatus is the latest physical recovery log. IsUrgent and HasSilentSOS
// are derived flags; the resolver trusts them as stored.
type PhysicalStatus struct {
	Symptoms     []Symptom `json:"symptoms"`
	Appetite     Appetite  `json:"appetite,omitempty"`
	SleepHours   float64   `json:"sleepHours"`
	IsUrgent     bool      `json:"isUrgent"`
	HasSilentSOS bool      `json:"hasSilentSOS"`
}

// Has reports whether s was logged.
func (p *PhysicalStatus) Has(s Symptom) bool {
	if p == nil {
		return false
	}
	return slices.Contains(p.Symptoms, s)
}

// HasPain reports whether either pain symptom was logged.
func (p *PhysicalStatus) HasPain() bool {
	return p.Has(SymptomPainC) || p.Has(SymptomPainB)
}

// silentSOSSleepHours is the sleep ceiling at or under which active pain raises a silent SOS.
const silentSOSSleepHours = 3

// DeriveFlags sets IsUrgent and HasSilentSOS from the symptom combination.
// Flags already set are kept.
func (p *PhysicalStatus) DeriveFlags() {
	if p.Has(SymptomFever) && p.Has(SymptomBleeding) && p.HasPain() {
		p.IsUrgent = true
	}
	if p.SleepHours <= silentSOSSleepHours && p.HasPain() {
		p.HasSilentSOS = true
	}
}

// JournalEntry is one note in the rolling journal history.
type JournalEntry struct {
	Note      string    `json:"note"`
	Timestamp time.Time `json:"timestamp"`
}

// MaxJournalHistory bounds the rolling journal history used as sentiment input.
const MaxJournalHistory = 5

// BurnoutRisk is the sentiment collaborator's burnout classification.
type BurnoutRisk string

const (
	BurnoutLow    BurnoutRisk = "low"
	BurnoutMedium BurnoutRisk = "medium"
	BurnoutHigh   BurnoutRisk = "high"
)

// SentimentPulse is the AI reading of the journal history. Immutable once cached.
type SentimentPulse struct {
	SentimentScore        float64     `json:"sentiment_score"`
	BurnoutRisk           BurnoutRisk `json:"burnout_risk"`
	SuggestedIntervention string      `json:"suggested_intervention"`
	AnalysisSummary       string      `json:"analysis_summary"`
}

// AnalysisType is what the nurse vision model recognized in a photo.
type AnalysisType string

const (
	AnalysisNutrition   AnalysisType = "nutrition"
	AnalysisExhaustion  AnalysisType = "exhaustion"
	AnalysisObservation AnalysisType = "observation"
)

// VisionAlertLevel is the nurse vision model's severity call.
type VisionAlertLevel string

const (
	VisionStable  VisionAlertLevel = "stable"
	VisionCaution VisionAlertLevel = "caution"
	VisionUrgent  VisionAlertLevel = "urgent"
)

// VisionLog is one persisted nurse vision analysis. FatigueIndex is nil when
// no face was visible.
type VisionLog struct {
	ID           string           `json:"id"`
	AnalysisType AnalysisType     `json:"ai_analysis_type"`
	InsightText  string           `json:"ai_insight_text"`
	FatigueIndex *float64         `json:"fatigue_index"`
	AlertLevel   VisionAlertLevel `json:"alert_level"`
	CreatedAt    time.Time        `json:"created_at"`
}

// Snapshot is the cache's view of every signal at one instant. Nil fields are absent.
type Snapshot struct {
	SelfReport  *SelfReport
	Physical    *PhysicalStatus
	MentalScore *int
	Journal     []JournalEntry
	Mindfulness bool
	Sentiment   *SentimentPulse
	Vision      *VisionLog
}
