package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/linnemanlabs/bloomwatch/internal/signal"
)

var fencedJSON = regexp.MustCompile("(?s)```json\\s?(.*?)\\s?```")

// ExtractJSON strips markdown code fences from model output.
func ExtractJSON(text string) string {
	s := strings.TrimSpace(text)
	if !strings.Contains(s, "```") {
		return s
	}
	if m := fencedJSON.FindStringSubmatch(s); m != nil && strings.TrimSpace(m[1]) != "" {
		return strings.TrimSpace(m[1])
	}
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// decodeObject unmarshals the JSON object in text into v, reporting an
// object with a non-empty "error" field as a PayloadError.
func decodeObject(text string, v any) error {
	raw := ExtractJSON(text)
	if raw == "" {
		return fmt.Errorf("%w: empty response", ErrUnparseable)
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	if e, ok := probe["error"]; ok && string(e) != "null" {
		var msg string
		if json.Unmarshal(e, &msg) != nil {
			msg = string(e)
		}
		return &PayloadError{Message: msg}
	}

	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	return nil
}

// ParseSentiment decodes a sentiment pulse from model output. The score is
// clamped to [0,1]; an unknown burnout risk is an error.
func ParseSentiment(text string) (*signal.SentimentPulse, error) {
	var p signal.SentimentPulse
	if err := decodeObject(text, &p); err != nil {
		return nil, err
	}
	switch p.BurnoutRisk {
	case signal.BurnoutLow, signal.BurnoutMedium, signal.BurnoutHigh:
	default:
		return nil, fmt.Errorf("%w: burnout_risk %q", ErrUnparseable, p.BurnoutRisk)
	}
	p.SentimentScore = min(max(p.SentimentScore, 0), 1)
	return &p, nil
}

// ParseVision decodes a nurse vision analysis from model output. Unknown
// or missing enum values fall back to observation and stable.
func ParseVision(text string) (*signal.VisionLog, error) {
	var v signal.VisionLog
	if err := decodeObject(text, &v); err != nil {
		return nil, err
	}
	switch v.AnalysisType {
	case signal.AnalysisNutrition, signal.AnalysisExhaustion, signal.AnalysisObservation:
	default:
		v.AnalysisType = signal.AnalysisObservation
	}
	switch v.AlertLevel {
	case signal.VisionStable, signal.VisionCaution, signal.VisionUrgent:
	default:
		v.AlertLevel = signal.VisionStable
	}
	v.InsightText = strings.TrimSpace(v.InsightText)
	// provider output never carries identity
	v.ID = ""
	return &v, nil
}
