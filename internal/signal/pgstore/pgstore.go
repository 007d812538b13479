// Package pgstore provides a PostgreSQL implementation of signal.VisionStore
// over the daily_logs table.
package pgstore

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/linnemanlabs/bloomwatch/internal/signal"
)

var tracer = otel.Tracer("github.com/linnemanlabs/bloomwatch/internal/signal/pgstore")

//go:embed schema.sql
var schema string

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists nurse vision logs in PostgreSQL.
type Store struct {
	db DB
}

// New applies the schema and returns a ready Store. The caller owns db.
func New(ctx context.Context, db DB) (*Store, error) {
	if _, err := db.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

const visionColumns = `id, ai_analysis_type, ai_insight_text, fatigue_index, alert_level, created_at`

// Latest returns the most recent vision log by creation time.
func (s *Store) Latest(ctx context.Context) (*signal.VisionLog, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Latest", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + visionColumns + ` FROM daily_logs ORDER BY created_at DESC LIMIT 1`

	var (
		l            signal.VisionLog
		analysisType string
		alertLevel   string
		fatigue      *float64
		createdAt    time.Time
	)
	err := s.db.QueryRow(ctx, query).Scan(&l.ID, &analysisType, &l.InsightText, &fatigue, &alertLevel, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, fmt.Errorf("scan latest vision log: %w", err)
	}

	l.AnalysisType = signal.AnalysisType(analysisType)
	l.AlertLevel = signal.VisionAlertLevel(alertLevel)
	l.FatigueIndex = fatigue
	l.CreatedAt = createdAt

	span.SetAttributes(attribute.String("bloomwatch.vision.alert_level", alertLevel))
	return &l, true, nil
}

// Insert writes a vision log row.
func (s *Store) Insert(ctx context.Context, l *signal.VisionLog) error {
	ctx, span := tracer.Start(ctx, "pgstore.Insert", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "INSERT"),
	))
	defer span.End()

	_, err := s.db.Exec(ctx,
		`INSERT INTO daily_logs (`+visionColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		l.ID, string(l.AnalysisType), l.InsightText, l.FatigueIndex, string(l.AlertLevel), l.CreatedAt,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("insert vision log %s: %w", l.ID, err)
	}
	return nil
}
