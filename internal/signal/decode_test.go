package signal

import "testing"

func TestDecodeSelfReport(t *testing.T) {
	t.Parallel()

	r, err := DecodeSelfReport([]byte(`{"mood":1,"stress":4,"note":"so tired","timestamp":"2026-02-01T03:00:00Z"}`))
	if err != nil {
		t.Fatalf("DecodeSelfReport: %v", err)
	}
	if r.Mood != MoodLow || r.Stress != 4 || r.Note != "so tired" {
		t.Errorf("unexpected report: %+v", r)
	}

	if _, err := DecodeSelfReport([]byte(`{"mood":7}`)); err == nil {
		t.Error("expected error for out of range mood")
	}
	if _, err := DecodeSelfReport([]byte(`{mood`)); err == nil {
		t.Error("expected error for malformed json")
	}
}

func TestDecodeSelfReport_MissingMood(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{"absent", `{"note":"fine","stress":2}`},
		{"null", `{"mood":null,"note":""}`},
		{"empty object", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if r, err := DecodeSelfReport([]byte(tt.raw)); err == nil {
				t.Errorf("DecodeSelfReport(%s) = %+v, want error", tt.raw, r)
			}
		})
	}

	// mood 0 written explicitly is still VeryLow
	r, err := DecodeSelfReport([]byte(`{"mood":0}`))
	if err != nil || r.Mood != MoodVeryLow {
		t.Errorf("explicit mood 0 = %+v, %v", r, err)
	}
}

func TestDecodePhysical(t *testing.T) {
	t.Parallel()

	p, err := DecodePhysical([]byte(`{"symptoms":["fever","pain_b"],"appetite":"Low","sleepHours":2.5,"isUrgent":false,"hasSilentSOS":true}`))
	if err != nil {
		t.Fatalf("DecodePhysical: %v", err)
	}
	if !p.Has(SymptomFever) || !p.HasPain() {
		t.Errorf("symptoms not decoded: %v", p.Symptoms)
	}
	if p.Appetite != AppetiteLow || !p.HasSilentSOS || p.SleepHours != 2.5 {
		t.Errorf("unexpected status: %+v", p)
	}
}

func TestDecodeMentalScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"15", 15, false},
		{" 9 ", 9, false},
		{`"12"`, 12, false},
		{"0", 0, false},
		{"high", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := DecodeMentalScore([]byte(tt.raw))
		if (err != nil) != tt.wantErr {
			t.Errorf("DecodeMentalScore(%q) err = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("DecodeMentalScore(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestDecodeJournal(t *testing.T) {
	t.Parallel()

	h, err := DecodeJournal([]byte(`[{"note":"a","timestamp":"2026-02-01T03:00:00Z"},{"note":"b","timestamp":"2026-01-31T03:00:00Z"}]`))
	if err != nil {
		t.Fatalf("DecodeJournal: %v", err)
	}
	if len(h) != 2 || h[0].Note != "a" {
		t.Errorf("unexpected history: %+v", h)
	}
	if _, err := DecodeJournal([]byte(`{"note":"a"}`)); err == nil {
		t.Error("expected error for non-array history")
	}
}

func TestDecodeMindfulness(t *testing.T) {
	t.Parallel()

	for raw, want := range map[string]bool{
		"true":     true,
		`"true"`:   true,
		"false":    false,
		"":         false,
		"TRUE":     false,
		"whatever": false,
	} {
		if got := DecodeMindfulness([]byte(raw)); got != want {
			t.Errorf("DecodeMindfulness(%q) = %v, want %v", raw, got, want)
		}
	}
}
