// Package careapi exposes the caregiver alert and the mother's signal
// inputs over HTTP, plus a websocket stream of alert reports.
package careapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/bloomwatch/internal/authmw"
	"github.com/linnemanlabs/bloomwatch/internal/signal"
	"github.com/linnemanlabs/bloomwatch/internal/triage"
)

// TriageService defines the triage operations careapi needs.
type TriageService interface {
	Current(ctx context.Context) triage.Report
	Refresh(ctx context.Context) triage.Report
	Subscribe() (<-chan triage.Report, func())
}

// SignalWriter is the typed mutation API for the mother's signals.
type SignalWriter interface {
	SaveSelfReport(ctx context.Context, r signal.SelfReport) error
	SetPhysicalStatus(ctx context.Context, p signal.PhysicalStatus) error
	SetMentalScore(ctx context.Context, score int) error
	SetMindfulness(ctx context.Context, active bool) error
}

// VisionIntake analyzes and stores photo check-ins.
type VisionIntake interface {
	Submit(ctx context.Context, image []byte, mimeType string) (*signal.VisionLog, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger   log.Logger
	svc      TriageService
	writer   SignalWriter
	vision   VisionIntake
	tokens   authmw.Tokens
	upgrader websocket.Upgrader
}

// New creates a new API handler. vision may be nil, in which case photo
// check-ins answer 503.
func New(logger log.Logger, svc TriageService, writer SignalWriter, vision VisionIntake, tokens authmw.Tokens) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("triage service is required"))
	}
	if writer == nil {
		panic(xerrors.New("signal writer is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
		writer: writer,
		vision: vision,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authmw.Authenticate(a.tokens))

		r.Group(func(r chi.Router) {
			r.Use(authmw.Require(authmw.RoleFamily, authmw.RoleMother))
			r.Get("/alert", a.handleGetAlert)
			r.Get("/alert/stream", a.handleAlertStream)
		})

		r.Group(func(r chi.Router) {
			r.Use(authmw.Require(authmw.RoleMother))
			r.Put("/signals/self-report", a.handleSelfReport)
			r.Put("/signals/physical", a.handlePhysical)
			r.Put("/signals/mental-score", a.handleMentalScore)
			r.Put("/signals/mindfulness", a.handleMindfulness)
			r.Post("/vision", a.handleVision)
		})
	})
}

func (a *API) handleGetAlert(w http.ResponseWriter, r *http.Request) {
	rep := a.svc.Current(r.Context())
	annotate(r.Context(), rep)
	writeJSON(w, http.StatusOK, rep)
}

func annotate(ctx context.Context, rep triage.Report) {
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("bloomwatch.alert.type", rep.Alert.Type),
		attribute.String("bloomwatch.alert.level", string(rep.Alert.Level)),
		attribute.String("bloomwatch.alert.rule", rep.Rule),
	)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
