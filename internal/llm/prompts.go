package llm

import (
	"strings"
	"time"

	"github.com/linnemanlabs/bloomwatch/internal/signal"
)

// SentimentPrompt is the system instruction for the journal sentiment pulse.
const SentimentPrompt = `You are a clinical postpartum sentiment analyst. Analyze the provided journal history (last few days) of a postpartum mother.
Return ONLY a JSON object with the following structure:
{
  "sentiment_score": number (0 to 1, where 0 is very low/distressed and 1 is very positive),
  "burnout_risk": "low" | "medium" | "high",
  "suggested_intervention": string (a short, actionable advice for her family members),
  "analysis_summary": string (a very short summary of her emotional state)
}

Focus on "reading between the lines" for signs of isolation, exhaustion, or loss of self.
Be highly sensitive but medically cautious.`

// NursePrompt is the system instruction for photo check-ins.
const NursePrompt = `As an expert postpartum nurse, analyze this image with high clinical empathy.
FOCUS AREA:
1. If you see a FACE: Look for specific markers of exhaustion (dark circles, eye strain, pale skin tone, drooping eyelids).
2. If you see FOOD: Analyze nutritional value for a recovering mother (protein, iron, hydration).

OUTPUT RULES:
- If a human face is present, calculate the "fatigue_index" (1-10) based ONLY on visible facial markers.
- If no face is clearly visible, set "fatigue_index" to null.
- "ai_analysis_type" must be "exhaustion" if a face is detected, "nutrition" if food is detected, or "observation" otherwise.
- In "ai_insight_text", explicitly describe WHAT you saw in the face (e.g., "I notice some fatigue around your eyes...").
- JSON FORMAT ONLY. No markdown blocks.

{
  "ai_analysis_type": "nutrition" | "exhaustion" | "observation",
  "ai_insight_text": string,
  "fatigue_index": number | null,
  "alert_level": "stable" | "caution" | "urgent"
}`

// VisionUserText accompanies the image in the user turn.
const VisionUserText = "Here is my check-in photo."

// FormatHistory renders the journal history as the user turn of the
// sentiment request, one "- [timestamp] note" line per entry.
func FormatHistory(history []signal.JournalEntry) string {
	var b strings.Builder
	b.WriteString("Journal History:")
	for _, h := range history {
		b.WriteString("\n- [")
		b.WriteString(h.Timestamp.UTC().Format(time.RFC3339))
		b.WriteString("] ")
		b.WriteString(h.Note)
	}
	return b.String()
}
