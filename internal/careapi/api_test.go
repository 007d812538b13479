package careapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/bloomwatch/internal/authmw"
	"github.com/linnemanlabs/bloomwatch/internal/llm"
	"github.com/linnemanlabs/bloomwatch/internal/signal"
	"github.com/linnemanlabs/bloomwatch/internal/signal/memstore"
	"github.com/linnemanlabs/bloomwatch/internal/triage"
)

const (
	motherToken = "mother-token"
	familyToken = "family-token"
)

var testTokens = authmw.Tokens{authmw.RoleMother: motherToken, authmw.RoleFamily: familyToken}

// fakeIntake stores whatever log it is told to return.
type fakeIntake struct {
	store *memstore.VisionLogs
	log   signal.VisionLog
	err   error
}

func (f *fakeIntake) Submit(ctx context.Context, image []byte, _ string) (*signal.VisionLog, error) {
	if f.err != nil {
		return nil, f.err
	}
	v := f.log
	v.ID = fmt.Sprintf("v-%d", len(image))
	v.CreatedAt = time.Now()
	if err := f.store.Insert(ctx, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

type fixture struct {
	router chi.Router
	writer *signal.Writer
	svc    *triage.Service
	intake *fakeIntake
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	vision := memstore.NewVisionLogs()
	cache := triage.NewCache(store, vision, nil, time.Hour, log.Nop(), triage.Hooks{})
	svc := triage.NewService(cache, nil, nil, log.Nop(), triage.Hooks{})
	writer := signal.NewWriter(store)
	intake := &fakeIntake{store: vision}

	r := chi.NewRouter()
	New(nil, svc, writer, intake, testTokens).RegisterRoutes(r)
	return &fixture{router: r, writer: writer, svc: svc, intake: intake}
}

func (f *fixture) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeReport(t *testing.T, rec *httptest.ResponseRecorder) triage.Report {
	t.Helper()
	var rep triage.Report
	if err := json.NewDecoder(rec.Body).Decode(&rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	return rep
}

// Constructor

func TestNew_NilLogger(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	api := New(nil, f.svc, f.writer, nil, testTokens)
	if api.logger == nil {
		t.Fatal("New left logger nil; expected Nop logger")
	}
}

func TestNew_NilDependencies_Panic(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	tests := []struct {
		name string
		fn   func()
	}{
		{"nil service", func() { New(nil, nil, f.writer, nil, testTokens) }},
		{"nil writer", func() { New(nil, f.svc, nil, nil, testTokens) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			defer func() {
				if r := recover(); r == nil {
					t.Fatal("expected panic")
				}
			}()
			tt.fn()
		})
	}
}

// Routing and roles

func TestRoutes_RoleEnforcement(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		body       string
		wantStatus int
	}{
		{"alert no token", http.MethodGet, "/api/v1/alert", "", "", http.StatusUnauthorized},
		{"alert bad token", http.MethodGet, "/api/v1/alert", "nope", "", http.StatusUnauthorized},
		{"alert family", http.MethodGet, "/api/v1/alert", familyToken, "", http.StatusOK},
		{"alert mother", http.MethodGet, "/api/v1/alert", motherToken, "", http.StatusOK},
		{"self report family", http.MethodPut, "/api/v1/signals/self-report", familyToken, `{"mood":2}`, http.StatusForbidden},
		{"physical family", http.MethodPut, "/api/v1/signals/physical", familyToken, `{}`, http.StatusForbidden},
		{"mental family", http.MethodPut, "/api/v1/signals/mental-score", familyToken, `{"score":1}`, http.StatusForbidden},
		{"mindfulness family", http.MethodPut, "/api/v1/signals/mindfulness", familyToken, `{"active":true}`, http.StatusForbidden},
		{"vision family", http.MethodPost, "/api/v1/vision", familyToken, `{"image":"aGk="}`, http.StatusForbidden},
		{"self report mother", http.MethodPut, "/api/v1/signals/self-report", motherToken, `{"mood":2}`, http.StatusOK},
		{"GET physical not allowed", http.MethodGet, "/api/v1/signals/physical", motherToken, "", http.StatusMethodNotAllowed},
		{"POST alert not allowed", http.MethodPost, "/api/v1/alert", familyToken, "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := f.do(t, tt.method, tt.path, tt.token, tt.body); rec.Code != tt.wantStatus {
				t.Errorf("%s %s = %d, want %d", tt.method, tt.path, rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestGetAlert_Stable(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/v1/alert", familyToken, "")
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %q", ct)
	}
	rep := decodeReport(t, rec)
	if rep.Alert.Type != "STABLE" || rep.Alert.Level != triage.LevelGreen {
		t.Errorf("alert = %+v", rep.Alert)
	}
}

// Signal writes

func TestSignals_UpdateAlert(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		path     string
		body     string
		wantType string
		check    func(t *testing.T, rep triage.Report)
	}{
		{
			name:     "low mood quotes note",
			path:     "/api/v1/signals/self-report",
			body:     `{"mood":0,"stress":8,"note":"cried all morning"}`,
			wantType: "CAUTION",
			check: func(t *testing.T, rep triage.Report) {
				if !strings.Contains(rep.Alert.Message, "cried all morning") {
					t.Errorf("message = %q", rep.Alert.Message)
				}
			},
		},
		{
			name:     "physical derives urgent",
			path:     "/api/v1/signals/physical",
			body:     `{"symptoms":["fever","bleeding","pain_b"],"appetite":"Normal","sleepHours":5}`,
			wantType: "URGENT",
		},
		{
			name:     "physical derives silent sos",
			path:     "/api/v1/signals/physical",
			body:     `{"symptoms":["pain_c"],"appetite":"Normal","sleepHours":2}`,
			wantType: "ACTION REQUIRED",
		},
		{
			name:     "mental score",
			path:     "/api/v1/signals/mental-score",
			body:     `{"score":14}`,
			wantType: "HIGH SUPPORT",
		},
		{
			name:     "mindfulness banner",
			path:     "/api/v1/signals/mindfulness",
			body:     `{"active":true}`,
			wantType: "STABLE",
			check: func(t *testing.T, rep triage.Report) {
				if rep.Mindfulness == nil {
					t.Error("expected mindfulness banner")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			rec := f.do(t, http.MethodPut, tt.path, motherToken, tt.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
			}
			rep := decodeReport(t, rec)
			if rep.Alert.Type != tt.wantType {
				t.Errorf("type = %q, want %q", rep.Alert.Type, tt.wantType)
			}
			if tt.check != nil {
				tt.check(t, rep)
			}

			// the family view sees the same alert
			fam := decodeReport(t, f.do(t, http.MethodGet, "/api/v1/alert", familyToken, ""))
			if fam.Alert.Type != tt.wantType {
				t.Errorf("family type = %q, want %q", fam.Alert.Type, tt.wantType)
			}
		})
	}
}

func TestSignals_BadRequests(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	tests := []struct {
		name string
		path string
		body string
	}{
		{"invalid json", "/api/v1/signals/self-report", `{bad`},
		{"mood missing", "/api/v1/signals/self-report", `{"note":"hi"}`},
		{"mood out of range", "/api/v1/signals/self-report", `{"mood":7}`},
		{"unknown field", "/api/v1/signals/self-report", `{"mood":1,"extra":true}`},
		{"negative sleep", "/api/v1/signals/physical", `{"sleepHours":-1}`},
		{"score missing", "/api/v1/signals/mental-score", `{}`},
		{"negative score", "/api/v1/signals/mental-score", `{"score":-2}`},
		{"score not a number", "/api/v1/signals/mental-score", `{"score":"high"}`},
		{"active missing", "/api/v1/signals/mindfulness", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPut, tt.path, motherToken, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body["error"] == "" {
				t.Errorf("expected JSON error body, got err=%v body=%v", err, body)
			}
		})
	}
}

// Vision

func TestVision_UpdatesAlert(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	fatigue := 9.0
	f.intake.log = signal.VisionLog{
		AnalysisType: signal.AnalysisExhaustion,
		InsightText:  "Heavy eyelids.",
		FatigueIndex: &fatigue,
		AlertLevel:   signal.VisionUrgent,
	}

	body := fmt.Sprintf(`{"image":%q,"mime_type":"image/jpeg"}`, base64.StdEncoding.EncodeToString([]byte("photo")))
	rec := f.do(t, http.MethodPost, "/api/v1/vision", motherToken, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}

	var resp visionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Log == nil || resp.Log.ID != "v-5" {
		t.Errorf("log = %+v", resp.Log)
	}
	if resp.Report.Rule != "vision" || resp.Report.Alert.Level != triage.LevelRed {
		t.Errorf("report rule = %q level = %q", resp.Report.Rule, resp.Report.Alert.Level)
	}
	if resp.Report.Vision == nil || resp.Report.Vision.FatigueBar == nil || *resp.Report.Vision.FatigueBar != 9 {
		t.Errorf("vision panel = %+v", resp.Report.Vision)
	}
}

func TestVision_Errors(t *testing.T) {
	t.Parallel()

	good := fmt.Sprintf(`{"image":%q}`, base64.StdEncoding.EncodeToString([]byte("photo")))
	tests := []struct {
		name       string
		err        error
		body       string
		wantStatus int
	}{
		{"bad base64", nil, `{"image":"***"}`, http.StatusBadRequest},
		{"empty image", nil, `{"image":""}`, http.StatusBadRequest},
		{"not an image type", nil, `{"image":"aGk=","mime_type":"text/plain"}`, http.StatusBadRequest},
		{"quota", fmt.Errorf("gemini: %w", llm.ErrQuotaExceeded), good, http.StatusTooManyRequests},
		{"upstream failure", errors.New("connection reset"), good, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			f.intake.err = tt.err
			if rec := f.do(t, http.MethodPost, "/api/v1/vision", motherToken, tt.body); rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestVision_NotConfigured(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	r := chi.NewRouter()
	New(nil, f.svc, f.writer, nil, testTokens).RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/vision", strings.NewReader(`{"image":"aGk="}`))
	req.Header.Set("Authorization", "Bearer "+motherToken)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestDecodeImage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		req      visionRequest
		wantMIME string
		wantData string
		wantErr  bool
	}{
		{"raw defaults to jpeg", visionRequest{Image: "aGk="}, "image/jpeg", "hi", false},
		{"explicit mime", visionRequest{Image: "aGk=", MIMEType: "image/png"}, "image/png", "hi", false},
		{"data url", visionRequest{Image: "data:image/webp;base64,aGk="}, "image/webp", "hi", false},
		{"data url mime overridden", visionRequest{Image: "data:image/webp;base64,aGk=", MIMEType: "image/png"}, "image/png", "hi", false},
		{"data url not base64", visionRequest{Image: "data:image/png,hi"}, "", "", true},
		{"empty", visionRequest{Image: "  "}, "", "", true},
		{"bad base64", visionRequest{Image: "%%%"}, "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			data, mime, err := decodeImage(tt.req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if mime != tt.wantMIME || string(data) != tt.wantData {
				t.Errorf("got %q/%q, want %q/%q", mime, data, tt.wantMIME, tt.wantData)
			}
		})
	}
}

// Stream

func TestAlertStream(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/alert/stream?access_token=" + familyToken
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close() }()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var first triage.Report
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read first report: %v", err)
	}
	if first.Alert.Type != "STABLE" {
		t.Errorf("first type = %q", first.Alert.Type)
	}

	if rec := f.do(t, http.MethodPut, "/api/v1/signals/mental-score", motherToken, `{"score":20}`); rec.Code != http.StatusOK {
		t.Fatalf("write status = %d", rec.Code)
	}

	var next triage.Report
	if err := conn.ReadJSON(&next); err != nil {
		t.Fatalf("read next report: %v", err)
	}
	if next.Alert.Type != "HIGH SUPPORT" {
		t.Errorf("next type = %q, want HIGH SUPPORT", next.Alert.Type)
	}
}

func TestAlertStream_RequiresToken(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/alert/stream"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected dial to fail without token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("resp = %v, want 401", resp)
	}
}

// Fuzz

func FuzzSignalIngestion(f *testing.F) {
	store := memstore.New()
	cache := triage.NewCache(store, nil, nil, time.Hour, log.Nop(), triage.Hooks{})
	svc := triage.NewService(cache, nil, nil, log.Nop(), triage.Hooks{})
	r := chi.NewRouter()
	New(nil, svc, signal.NewWriter(store), nil, testTokens).RegisterRoutes(r)

	paths := []string{
		"/api/v1/signals/self-report",
		"/api/v1/signals/physical",
		"/api/v1/signals/mental-score",
		"/api/v1/signals/mindfulness",
	}
	seeds := []string{``, `{}`, `{"mood":1,"note":"x"}`, `{"symptoms":["fever"],"sleepHours":2}`, `{"score":99}`, `{"active":false}`, `null`, `[]`}
	for i, s := range seeds {
		f.Add(uint8(i), []byte(s))
	}

	f.Fuzz(func(t *testing.T, which uint8, body []byte) {
		path := paths[int(which)%len(paths)]
		req := httptest.NewRequest(http.MethodPut, path, strings.NewReader(string(body)))
		req.Header.Set("Authorization", "Bearer "+motherToken)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code >= 500 {
			t.Errorf("%s with %q = %d", path, body, rec.Code)
		}
	})
}
