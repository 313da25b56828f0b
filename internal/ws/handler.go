package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/DoyleJ11/math-challenge-backend/internal/hub"
	"github.com/DoyleJ11/math-challenge-backend/internal/session"
	"github.com/DoyleJ11/math-challenge-backend/internal/types"
	wire "github.com/DoyleJ11/math-challenge-backend/pkg/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	writeTimeout = 3 * time.Second
	// A player may sit on the result screen for a while before restarting.
	idleTimeout = 10 * time.Minute
)

// Options tunes the upgrade. OriginPatterns is passed through to Accept.
type Options struct {
	OriginPatterns []string
	Logger         *zap.Logger
}

func Handler(h *hub.Hub, opts Options) http.HandlerFunc {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		s := h.Lookup(r.Context(), code)
		if s == nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			log.Warn("websocket accept failed", zap.String("session", code), zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		log := log.With(zap.String("session", code), zap.String("client_id", clientID))

		out := make(chan session.Snapshot, 8)
		if !s.Send(r.Context(), session.Join{ClientID: clientID, Outbox: out}) {
			conn.Close(websocket.StatusGoingAway, "session closed")
			return
		}
		defer s.Send(context.Background(), session.Leave{ClientID: clientID})
		log.Debug("client joined")

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				select {
				case <-writeCtx.Done():
					return
				case snap, ok := <-out:
					if !ok {
						// The session stopped or dropped us as too slow.
						conn.Close(websocket.StatusGoingAway, "session closed")
						return
					}
					ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
					err := wsjson.Write(ctx, conn, types.StateMessage(snap.Version, snap.State))
					cancel()
					if err != nil {
						log.Debug("snapshot write failed", zap.Error(err))
						return
					}
				}
			}
		}()

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(r.Context(), idleTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				// Treat clean close/going-away as normal:
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					log.Debug("client left")
					return
				}
				// Otherwise, just exit (session.Leave in defer):
				log.Debug("read failed", zap.Error(err))
				return
			}

			var cm wire.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				writeError(r.Context(), conn, "bad json")
				continue
			}

			cmd, err := types.ToCommand(cm)
			if err != nil {
				writeError(r.Context(), conn, err.Error())
				continue
			}

			if !s.Send(r.Context(), session.FromClient{Cmd: cmd}) {
				return
			}
		}
	}
}

func writeError(ctx context.Context, conn *websocket.Conn, msg string) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_ = wsjson.Write(ctx, conn, types.ErrorMessage(msg))
}
