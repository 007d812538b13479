package pgstore

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/linnemanlabs/bloomwatch/internal/signal"
)

var visionCols = []string{"id", "ai_analysis_type", "ai_insight_text", "fatigue_index", "alert_level", "created_at"}

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS daily_logs").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	s, err := New(context.Background(), mock)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, mock
}

func TestNew_SchemaError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS daily_logs").WillReturnError(errors.New("permission denied"))
	if _, err := New(context.Background(), mock); err == nil {
		t.Fatal("expected schema error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestLatest_ReturnsNewestRow(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	now := time.Date(2026, 2, 1, 3, 0, 0, 0, time.UTC)
	fatigue := 7.5

	mock.ExpectQuery("SELECT (.+) FROM daily_logs ORDER BY created_at DESC LIMIT 1").
		WillReturnRows(pgxmock.NewRows(visionCols).
			AddRow("01JV0", "exhaustion", "dark circles under the eyes", &fatigue, "urgent", now))

	got, ok, err := s.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if !ok {
		t.Fatal("Latest returned ok=false")
	}
	if got.ID != "01JV0" || got.AnalysisType != signal.AnalysisExhaustion || got.AlertLevel != signal.VisionUrgent {
		t.Errorf("unexpected log: %+v", got)
	}
	if got.FatigueIndex == nil || *got.FatigueIndex != 7.5 {
		t.Errorf("FatigueIndex = %v, want 7.5", got.FatigueIndex)
	}
	if !got.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, now)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestLatest_NullFatigue(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM daily_logs").
		WillReturnRows(pgxmock.NewRows(visionCols).
			AddRow("01JV1", "nutrition", "lots of greens", (*float64)(nil), "stable", time.Now()))

	got, ok, err := s.Latest(context.Background())
	if err != nil || !ok {
		t.Fatalf("Latest: ok=%v err=%v", ok, err)
	}
	if got.FatigueIndex != nil {
		t.Errorf("FatigueIndex = %v, want nil", *got.FatigueIndex)
	}
}

func TestLatest_Empty(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT (.+) FROM daily_logs").WillReturnRows(pgxmock.NewRows(visionCols))

	_, ok, err := s.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if ok {
		t.Error("expected ok=false for empty table")
	}
}

func TestLatest_QueryError(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT (.+) FROM daily_logs").WillReturnError(errors.New("connection reset"))

	if _, _, err := s.Latest(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestInsert(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	now := time.Now().UTC()
	fatigue := 0.0
	l := &signal.VisionLog{
		ID:           "01JV2",
		AnalysisType: signal.AnalysisExhaustion,
		InsightText:  "well rested",
		FatigueIndex: &fatigue,
		AlertLevel:   signal.VisionStable,
		CreatedAt:    now,
	}

	mock.ExpectExec("INSERT INTO daily_logs").
		WithArgs("01JV2", "exhaustion", "well rested", &fatigue, "stable", now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := s.Insert(context.Background(), l); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestInsert_Error(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO daily_logs").WillReturnError(errors.New("duplicate key"))

	err := s.Insert(context.Background(), &signal.VisionLog{ID: "dup"})
	if err == nil {
		t.Fatal("expected error")
	}
}

// Not parallel: installs a global tracer provider.
func TestLatest_RecordsSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT (.+) FROM daily_logs").WillReturnError(errors.New("boom"))
	_, _, _ = s.Latest(context.Background())

	var found bool
	for _, span := range sr.Ended() {
		if span.Name() == "pgstore.Latest" {
			found = true
			if len(span.Events()) == 0 {
				t.Error("expected error event on span")
			}
		}
	}
	if !found {
		t.Error("pgstore.Latest span not recorded")
	}
}
