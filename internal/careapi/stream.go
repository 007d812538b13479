package careapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/linnemanlabs/bloomwatch/internal/triage"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// handleAlertStream upgrades to a websocket and pushes the current report,
// then every change. Client messages are ignored.
func (a *API) handleAlertStream(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		a.logger.Warn(r.Context(), "websocket upgrade failed", "err", err)
		return
	}
	defer func() { _ = conn.Close() }()

	ctx := r.Context()
	// resolve first so the subscription is primed with the current report
	a.svc.Current(ctx)
	reports, cancel := a.svc.Subscribe()
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	a.logger.Info(ctx, "alert stream opened")
	defer a.logger.Info(ctx, "alert stream closed")

	for {
		select {
		case <-ctx.Done():
			return
		case <-closed:
			return
		case rep, ok := <-reports:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
				return
			}
			if err := a.writeReport(conn, rep); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (a *API) writeReport(conn *websocket.Conn, rep triage.Report) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(rep)
}
