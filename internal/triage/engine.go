package triage

import (
	"time"

	"github.com/linnemanlabs/bloomwatch/internal/signal"
)

// maxFatigue is the top of the fatigue bar scale.
const maxFatigue = 10

// Resolve returns the alert of the first rule in Rules matching s, or the
// stable alert, along with the name of the rule that produced it.
func Resolve(s signal.Snapshot) (Alert, string) {
	for _, r := range Rules {
		if r.Match(s) {
			return r.Build(s), r.Name
		}
	}
	return StableRule.Build(s), StableRule.Name
}

// BuildReport resolves s and attaches the overlays that are shown regardless
// of which rule matched.
func BuildReport(s signal.Snapshot, now time.Time) Report {
	alert, rule := Resolve(s)
	rep := Report{Alert: alert, Rule: rule, ResolvedAt: now}

	if s.Mindfulness {
		rep.Mindfulness = &Banner{
			Title:   "Mom is practicing mindfulness right now.",
			Message: "Please keep the house quiet and supportive.",
		}
	}
	if s.Sentiment != nil {
		rep.Sentiment = &SentimentPanel{SentimentPulse: *s.Sentiment, Badge: burnoutBadge(s.Sentiment.BurnoutRisk)}
	}
	if s.Vision != nil {
		rep.Vision = &VisionPanel{Log: *s.Vision}
		if s.Vision.FatigueIndex != nil {
			bar := min(max(*s.Vision.FatigueIndex, 0), maxFatigue)
			rep.Vision.FatigueBar = &bar
		}
	}
	return rep
}

func burnoutBadge(r signal.BurnoutRisk) Level {
	switch r {
	case signal.BurnoutHigh:
		return LevelRed
	case signal.BurnoutMedium:
		return LevelAmber
	default:
		return LevelGreen
	}
}
