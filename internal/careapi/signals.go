package careapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/linnemanlabs/bloomwatch/internal/signal"
)

const maxSignalBody = 64 << 10

type selfReportRequest struct {
	Mood   *signal.Mood `json:"mood"`
	Stress int          `json:"stress"`
	Note   string       `json:"note"`
}

type mentalScoreRequest struct {
	Score *int `json:"score"`
}

type mindfulnessRequest struct {
	Active *bool `json:"active"`
}

func (a *API) handleSelfReport(w http.ResponseWriter, r *http.Request) {
	var req selfReportRequest
	if !decodeBody(w, r, maxSignalBody, &req) {
		return
	}
	if req.Mood == nil {
		writeError(w, http.StatusBadRequest, "mood is required")
		return
	}
	err := a.writer.SaveSelfReport(r.Context(), signal.SelfReport{Mood: *req.Mood, Stress: req.Stress, Note: req.Note})
	a.afterWrite(w, r, "self_report", err)
}

func (a *API) handlePhysical(w http.ResponseWriter, r *http.Request) {
	var req signal.PhysicalStatus
	if !decodeBody(w, r, maxSignalBody, &req) {
		return
	}
	if req.SleepHours < 0 {
		writeError(w, http.StatusBadRequest, "sleepHours must not be negative")
		return
	}
	err := a.writer.SetPhysicalStatus(r.Context(), req)
	a.afterWrite(w, r, "physical", err)
}

func (a *API) handleMentalScore(w http.ResponseWriter, r *http.Request) {
	var req mentalScoreRequest
	if !decodeBody(w, r, maxSignalBody, &req) {
		return
	}
	if req.Score == nil {
		writeError(w, http.StatusBadRequest, "score is required")
		return
	}
	err := a.writer.SetMentalScore(r.Context(), *req.Score)
	a.afterWrite(w, r, "mental_score", err)
}

func (a *API) handleMindfulness(w http.ResponseWriter, r *http.Request) {
	var req mindfulnessRequest
	if !decodeBody(w, r, maxSignalBody, &req) {
		return
	}
	if req.Active == nil {
		writeError(w, http.StatusBadRequest, "active is required")
		return
	}
	err := a.writer.SetMindfulness(r.Context(), *req.Active)
	a.afterWrite(w, r, "mindfulness", err)
}

// afterWrite maps a signal write error to a response, or refreshes the
// triage view and returns the new report.
func (a *API) afterWrite(w http.ResponseWriter, r *http.Request, source string, err error) {
	if err != nil {
		if errors.Is(err, signal.ErrInvalidSignal) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		a.logger.Error(r.Context(), err, "failed to write signal", "source", source)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	rep := a.svc.Refresh(r.Context())
	annotate(r.Context(), rep)
	writeJSON(w, http.StatusOK, rep)
}

// decodeBody decodes a JSON body of at most limit bytes into v, writing a
// 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid payload")
		return false
	}
	return true
}
