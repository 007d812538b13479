package signal

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DecodeSelfReport parses a stored mother_log value. A missing or null mood
// is an error, not VeryLow.
func DecodeSelfReport(raw []byte) (*SelfReport, error) {
	var r SelfReport
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode self report: %w", err)
	}
	var present struct {
		Mood *Mood `json:"mood"`
	}
	if err := json.Unmarshal(raw, &present); err != nil {
		return nil, fmt.Errorf("decode self report: %w", err)
	}
	if present.Mood == nil {
		return nil, errors.New("decode self report: mood is missing")
	}
	if !r.Mood.Valid() {
		return nil, fmt.Errorf("decode self report: mood %d out of range", r.Mood)
	}
	return &r, nil
}

// DecodePhysical parses a stored physical_status value.
func DecodePhysical(raw []byte) (*PhysicalStatus, error) {
	var p PhysicalStatus
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode physical status: %w", err)
	}
	return &p, nil
}

// DecodeMentalScore parses a stored mental_health_score value. Both a bare
// decimal string and a JSON number are accepted.
func DecodeMentalScore(raw []byte) (int, error) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("decode mental score: %w", err)
	}
	return n, nil
}

// DecodeJournal parses a stored journal_history value.
func DecodeJournal(raw []byte) ([]JournalEntry, error) {
	var h []JournalEntry
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, fmt.Errorf("decode journal history: %w", err)
	}
	return h, nil
}

// DecodeMindfulness parses a stored is_breathing value. Only "true" is active.
func DecodeMindfulness(raw []byte) bool {
	return strings.Trim(strings.TrimSpace(string(raw)), `"`) == "true"
}
