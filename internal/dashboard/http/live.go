package dashboardhttp

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// handleLive upgrades to a websocket and pushes the view model after every
// store change. Notifications coalesce, so a slow browser only ever receives
// the latest state.
func (h *Handler) handleLive(w http.ResponseWriter, r *http.Request) {
	if !h.track() {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	defer h.streams.Done()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("live upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	updates, unsubscribe := h.store.Subscribe()
	defer unsubscribe()

	gone := make(chan struct{})
	go h.drain(conn, gone)

	var sent uint64
	push := func() bool {
		state := h.store.State()
		if sent != 0 && state.Version == sent {
			return true
		}
		vm, err := h.builder.Build(state)
		if err != nil {
			h.logError("build live view", err)
			return false
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(vm); err != nil {
			h.logger.Debug("live write failed", slog.Any("error", err))
			return false
		}
		sent = state.Version
		return true
	}
	if !push() {
		return
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-h.closing:
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			return
		case <-gone:
			return
		case <-updates:
			if !push() {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// drain reads control frames until the peer goes away. Browsers never send
// data on this socket.
func (h *Handler) drain(conn *websocket.Conn, gone chan<- struct{}) {
	defer close(gone)
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
}
