package careapi

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/linnemanlabs/bloomwatch/internal/llm"
	"github.com/linnemanlabs/bloomwatch/internal/signal"
	"github.com/linnemanlabs/bloomwatch/internal/triage"
	"github.com/linnemanlabs/bloomwatch/internal/vision"
)

// base64 photos from phone cameras run to several megabytes
const maxVisionBody = 16 << 20

type visionRequest struct {
	Image    string `json:"image"`
	MIMEType string `json:"mime_type"`
}

type visionResponse struct {
	Log    *signal.VisionLog `json:"log"`
	Report triage.Report     `json:"report"`
}

func (a *API) handleVision(w http.ResponseWriter, r *http.Request) {
	if a.vision == nil {
		writeError(w, http.StatusServiceUnavailable, "vision analysis is not configured")
		return
	}

	var req visionRequest
	if !decodeBody(w, r, maxVisionBody, &req) {
		return
	}
	image, mimeType, err := decodeImage(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	v, err := a.vision.Submit(r.Context(), image, mimeType)
	switch {
	case errors.Is(err, vision.ErrNoImage):
		writeError(w, http.StatusBadRequest, "no image provided")
		return
	case errors.Is(err, llm.ErrQuotaExceeded):
		a.logger.Warn(r.Context(), "vision analysis quota exceeded", "err", err)
		writeError(w, http.StatusTooManyRequests, "Quota Exceeded (429)")
		return
	case err != nil:
		a.logger.Error(r.Context(), err, "vision analysis failed")
		writeError(w, http.StatusBadGateway, "vision analysis failed")
		return
	}

	rep := a.svc.Refresh(r.Context())
	annotate(r.Context(), rep)
	writeJSON(w, http.StatusOK, visionResponse{Log: v, Report: rep})
}

// decodeImage accepts raw base64 or a data URL and returns the bytes and
// MIME type, defaulting to image/jpeg.
func decodeImage(req visionRequest) ([]byte, string, error) {
	data := strings.TrimSpace(req.Image)
	mimeType := req.MIMEType

	if rest, ok := strings.CutPrefix(data, "data:"); ok {
		meta, payload, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(meta, ";base64") {
			return nil, "", errors.New("image must be base64 encoded")
		}
		if mimeType == "" {
			mimeType = strings.TrimSuffix(meta, ";base64")
		}
		data = payload
	}
	if data == "" {
		return nil, "", errors.New("no image provided")
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, "", errors.New("mime_type must be an image type")
	}

	image, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, "", errors.New("image must be base64 encoded")
	}
	return image, mimeType, nil
}
