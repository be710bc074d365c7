package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// eventFrame is the wire form of one bus event. Dropped carries the
// subscription's running drop counter so clients can detect gaps.
type eventFrame struct {
	Event   any    `json:"event"`
	Dropped uint64 `json:"dropped"`
}

// handleEvents upgrades to WebSocket and relays bus events until the client
// goes away. The bus subscription is lossy, so a slow client costs itself
// events, never the supervisors.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Debug("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	sub := s.svc.SubscribeEvents()
	defer sub.Close()

	ctx := r.Context()

	// Reads are only needed to notice close frames; discard everything.
	go func() {
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		case evt, ok := <-sub.Events():
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "event bus closed")
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, eventFrame{Event: evt, Dropped: sub.Dropped()})
			cancel()
			if err != nil {
				return
			}
		}
	}
}
