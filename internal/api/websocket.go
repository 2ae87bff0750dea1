package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const (
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsWriteWait  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// progressEvent is one stage-completion message pushed to subscribers.
type progressEvent struct {
	AnalysisID string `json:"analysis_id"`
	Stage      string `json:"stage"`
}

// StreamProgress upgrades GET /analyses/{id}/ws and streams stage
// events as the orchestrator runs. A single writer goroutine owns all
// writes (broadcast messages and heartbeat pings); a reader goroutine
// only drains pongs and detects client disconnects.
//
// Grounded on network/websocket_test.go
// (iheCoder-code_for_article)'s single-writer/heartbeat shape.
func (h *Handler) StreamProgress(w http.ResponseWriter, r *http.Request) {
	analysisID := chi.URLParam(r, "id")
	if analysisID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "analysis id is required"})
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	events, unsubscribe := h.progress.Subscribe(analysisID)
	defer unsubscribe()

	done := make(chan struct{})
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	defer conn.Close()

	for {
		select {
		case stage, ok := <-events:
			if !ok {
				return
			}
			payload, _ := json.Marshal(progressEvent{AnalysisID: analysisID, Stage: stage})
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
			if stage == "complete" || stage == "error" {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
