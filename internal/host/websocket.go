package host

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
)

const writeTimeout = 5 * time.Second

// WebSocketHandler upgrades /ws requests into the host connection.
type WebSocketHandler struct {
	link    *Link
	origins []string
	log     zerolog.Logger
}

// NewWebSocketHandler returns a handler feeding link. origins lists
// extra allowed Origin patterns besides the serving host.
func NewWebSocketHandler(link *Link, origins []string, log zerolog.Logger) *WebSocketHandler {
	return &WebSocketHandler{link: link, origins: origins, log: log}
}

func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket accept failed")
		return
	}
	conn.SetReadLimit(1 << 20)

	peer := h.link.Connect("websocket")
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go h.writeLoop(ctx, conn, peer)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			h.link.Disconnect(peer)
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				h.log.Debug().Str("peer", peer.ID).Msg("websocket closed")
			} else {
				h.log.Debug().Err(err).Str("peer", peer.ID).Msg("websocket read ended")
			}
			conn.Close(websocket.StatusNormalClosure, "")
			return
		}
		h.link.Receive(peer, data)
	}
}

func (h *WebSocketHandler) writeLoop(ctx context.Context, conn *websocket.Conn, peer *Peer) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-peer.Done():
			conn.Close(websocket.StatusGoingAway, "replaced by a newer connection")
			return
		case data := <-peer.Outbox():
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				h.log.Warn().Err(err).Str("peer", peer.ID).Msg("websocket write failed")
				h.link.Disconnect(peer)
				return
			}
		}
	}
}
