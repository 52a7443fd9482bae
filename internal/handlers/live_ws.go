package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	livePongWait   = 90 * time.Second
	livePingPeriod = 30 * time.Second
)

// liveUpgrader accepts allow-listed browser origins. Requests without an
// Origin header are only accepted when allowEmptyOrigin is set.
func liveUpgrader(allowedOrigins []string, allowEmptyOrigin bool) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" {
				return allowEmptyOrigin
			}
			for _, o := range allowedOrigins {
				if strings.EqualFold(strings.TrimSpace(o), origin) {
					return true
				}
			}
			return false
		},
	}
}

// LiveFeed streams visitor events to admin screens over WebSocket. It is
// mounted behind the admin session check. The feed is read-only; client
// messages are discarded.
func (h *Handlers) LiveFeed(allowedOrigins []string, allowEmptyOrigin bool) http.HandlerFunc {
	upgrader := liveUpgrader(allowedOrigins, allowEmptyOrigin)
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		unregister := h.Live.Register(conn)
		defer unregister()

		done := make(chan struct{})
		defer close(done)
		go func() {
			ticker := time.NewTicker(livePingPeriod)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		conn.SetReadLimit(4 * 1024)
		_ = conn.SetReadDeadline(time.Now().Add(livePongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(livePongWait))
		})

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}
