package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/kencorless/UpNDown/engine"
)

// wsMessage is the JSON envelope pushed to subscribed sockets.
type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

const presenceInterval = 30 * time.Second

// handleWebSocket streams every committed state of one game to the socket.
// The socket is read-only for the client except for pings; commands go over
// the HTTP API. While the socket is open the player is marked online, and
// offline again when it closes.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	claims, ok := s.authorize(w, r, gameID)
	if !ok {
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // origin checks are the proxy's job
	})
	if err != nil {
		s.log.WithError(err).Warn("websocket accept")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	send := make(chan engine.GameState, 16)
	unsubscribe, err := s.games.Subscribe(ctx, gameID, func(g engine.GameState) {
		select {
		case send <- g:
		default:
			// Slow consumer; it will catch up on the next commit.
		}
	})
	if err != nil {
		s.log.WithError(err).Warn("subscribe")
		conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer unsubscribe()

	// Snapshot first so the client never renders from nothing. Commits from
	// here on, including our own presence write below, arrive as frames.
	if g, err := s.games.GetGame(ctx, gameID); err == nil {
		if err := writeState(ctx, conn, g); err != nil {
			return
		}
	}

	if _, err := s.games.SetPresence(ctx, gameID, claims.PlayerID, true); err != nil {
		s.log.WithError(err).WithField("game_id", gameID).Warn("presence on connect")
	}
	defer func() {
		// The request context is gone once the client is; use a fresh one.
		offCtx, offCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer offCancel()
		if _, err := s.games.SetPresence(offCtx, gameID, claims.PlayerID, false); err != nil {
			s.log.WithError(err).WithField("game_id", gameID).Warn("presence on disconnect")
		}
	}()

	// Reader goroutine: the client sends nothing meaningful, but reading is
	// what surfaces the close.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	heartbeat := time.NewTicker(presenceInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case g := <-send:
			if err := writeState(ctx, conn, g); err != nil {
				return
			}
		case <-heartbeat.C:
			if _, err := s.games.SetPresence(ctx, gameID, claims.PlayerID, true); err != nil {
				s.log.WithError(err).WithField("game_id", gameID).Debug("presence heartbeat")
			}
		}
	}
}

func writeState(ctx context.Context, conn *websocket.Conn, g engine.GameState) error {
	payload, err := json.Marshal(g)
	if err != nil {
		return err
	}
	msg, err := json.Marshal(wsMessage{Type: "state", Payload: payload})
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, msg)
}
