package triage

import (
	"fmt"
	"strings"

	"github.com/linnemanlabs/bloomwatch/internal/signal"
)

// Rule is one entry of the precedence list. Match must be total over any
// snapshot, including one with every signal absent.
type Rule struct {
	Name  string
	Match func(signal.Snapshot) bool
	Build func(signal.Snapshot) Alert
}

// mentalDistressThreshold is the screening score at or above which the
// mental distress rule fires.
const mentalDistressThreshold = 11

// Rules is the precedence order; the first match wins. The stable rule is
// applied after the list when nothing matches.
var Rules = []Rule{
	{Name: "vision", Match: matchVision, Build: buildVision},
	{Name: "physical_urgent", Match: matchPhysicalUrgent, Build: buildPhysicalUrgent},
	{Name: "silent_sos", Match: matchSilentSOS, Build: buildSilentSOS},
	{Name: "fever_or_bleeding", Match: matchFeverOrBleeding, Build: buildFeverOrBleeding},
	{Name: "pain", Match: matchPain, Build: buildPain},
	{Name: "mental_distress", Match: matchMentalDistress, Build: buildMentalDistress},
	{Name: "low_appetite", Match: matchLowAppetite, Build: buildLowAppetite},
	{Name: "low_mood", Match: matchLowMood, Build: buildLowMood},
}

// StableRule is the default when no rule in Rules matches.
var StableRule = Rule{
	Name:  "stable",
	Match: func(signal.Snapshot) bool { return true },
	Build: func(signal.Snapshot) Alert {
		return Alert{
			Type:        "STABLE",
			Level:       LevelGreen,
			Title:       "Doing Well",
			Message:     "Things seem stable today! Keep up the great support.",
			Suggestions: []string{"Tell her she's a great mom", "Prepare a healthy snack"},
		}
	},
}

func matchVision(s signal.Snapshot) bool {
	if s.Vision == nil {
		return false
	}
	return s.Vision.AlertLevel == signal.VisionUrgent || s.Vision.AlertLevel == signal.VisionCaution
}

func buildVision(s signal.Snapshot) Alert {
	v := s.Vision
	a := Alert{Type: "NURSE AI", Level: LevelAmber, Message: strings.TrimSpace(v.InsightText)}
	if v.AlertLevel == signal.VisionUrgent {
		a.Level = LevelRed
	}
	if v.AnalysisType == signal.AnalysisExhaustion {
		a.Title = "Nurse AI: Signs of Exhaustion"
		a.Suggestions = []string{"Take the next night feed", "Give her a 90 minute nap window", "Keep visitors away today"}
		if a.Message == "" {
			a.Message = "Her latest photo check-in shows signs of deep fatigue."
		}
		return a
	}
	a.Title = "Nurse AI: Nutrition Check"
	a.Suggestions = []string{"Prepare a protein-rich meal", "Refill her water bottle", "Keep easy snacks within reach"}
	if a.Message == "" {
		a.Message = "Her latest photo check-in suggests her meals need attention."
	}
	return a
}

func matchPhysicalUrgent(s signal.Snapshot) bool {
	return s.Physical != nil && s.Physical.IsUrgent
}

func buildPhysicalUrgent(signal.Snapshot) Alert {
	return Alert{
		Type:        "URGENT",
		Level:       LevelRed,
		Title:       "Immediate Action Required",
		Message:     "Severe physical symptoms logged (fever + bleeding + pain). Please seek medical help now.",
		Suggestions: []string{"Call her doctor", "Ensure she is resting", "Take over all baby duties"},
	}
}

func matchSilentSOS(s signal.Snapshot) bool {
	return s.Physical != nil && s.Physical.HasSilentSOS
}

func buildSilentSOS(signal.Snapshot) Alert {
	return Alert{
		Type:    "ACTION REQUIRED",
		Level:   LevelAmber,
		Title:   "Silent SOS: Physical Limit Reached",
		Message: "Mom is hitting a severe physical limit (extreme exhaustion + pain).",
		Suggestions: []string{
			"Take the baby for 2+ hours immediately",
			"Ensure she reaches REM sleep",
			"Do not wake her for anything non-emergency",
		},
	}
}

func matchFeverOrBleeding(s signal.Snapshot) bool {
	return s.Physical.Has(signal.SymptomFever) || s.Physical.Has(signal.SymptomBleeding)
}

func buildFeverOrBleeding(s signal.Snapshot) Alert {
	a := Alert{
		Type:        "MEDICAL CHECK",
		Level:       LevelAmber,
		Suggestions: []string{"Call her doctor or midwife today", "Keep track of when symptoms started", "Make sure she is resting"},
	}
	// fever takes the title when both are logged
	if s.Physical.Has(signal.SymptomFever) {
		a.Title = "Fever Logged"
		a.Message = "She has logged a fever. A temperature after birth should be checked by a professional."
		return a
	}
	a.Title = "Bleeding Logged"
	a.Message = "She has logged bleeding. Heavy or increasing bleeding should be checked by a professional."
	return a
}

func matchPain(s signal.Snapshot) bool {
	return s.Physical.HasPain()
}

func buildPain(s signal.Snapshot) Alert {
	where := "her recovery"
	switch {
	case s.Physical.Has(signal.SymptomPainC):
		where = "her C-section site"
	case s.Physical.Has(signal.SymptomPainB):
		where = "her back"
	}
	return Alert{
		Type:        "PAIN MANAGEMENT",
		Level:       LevelAmber,
		Title:       "Pain Reported",
		Message:     fmt.Sprintf("She's logged pain around %s. Help her rest and avoid lifting.", where),
		Suggestions: []string{"Handle all lifting today", "Bring her a heat pad", "Remind her about prescribed pain relief"},
	}
}

func matchMentalDistress(s signal.Snapshot) bool {
	return s.MentalScore != nil && *s.MentalScore >= mentalDistressThreshold
}

func buildMentalDistress(signal.Snapshot) Alert {
	return Alert{
		Type:        "HIGH SUPPORT",
		Level:       LevelRed,
		Title:       "Emotional Support Needed",
		Message:     "Her wellness screening indicates she is struggling emotionally right now.",
		Suggestions: []string{"Ask how she's really feeling", "Listen without judgment", "Book a professional consult"},
	}
}

func matchLowAppetite(s signal.Snapshot) bool {
	return s.Physical != nil && s.Physical.Appetite.IsLow()
}

func buildLowAppetite(signal.Snapshot) Alert {
	return Alert{
		Type:        "NUTRITION",
		Level:       LevelYellow,
		Title:       "Appetite Is Low",
		Message:     "She hasn't been eating much. Recovery and feeding both need fuel.",
		Suggestions: []string{"Cook her favorite meal", "Leave snacks by the nursing chair", "Keep water within reach"},
	}
}

func matchLowMood(s signal.Snapshot) bool {
	return s.SelfReport != nil && s.SelfReport.Mood.IsLow()
}

func buildLowMood(s signal.Snapshot) Alert {
	msg := "She's logged a low or very low mood today. Keep a close eye on her."
	if note := strings.TrimSpace(s.SelfReport.Note); note != "" {
		msg = fmt.Sprintf("She's logged a low mood today and wrote: %q", note)
	}
	return Alert{
		Type:        "CAUTION",
		Level:       LevelYellow,
		Title:       "Mood Dip Noted",
		Message:     msg,
		Suggestions: []string{"Make her favorite tea", "Take the baby for a 30m walk", "Offer a warm bath"},
	}
}
