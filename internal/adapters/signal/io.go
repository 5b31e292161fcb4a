package signal

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dkeye/voicehub/internal/core"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, ws WSConn, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := ws.SetWriteDeadline(time.Now().Add(ctl.opts.WriteTimeout)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				c.Close()
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump write error")
				c.Close()
				return
			}
		case <-ticker.C:
			if err := ws.SetWriteDeadline(time.Now().Add(ctl.opts.WriteTimeout)); err != nil {
				c.Close()
				return
			}
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("ping failed")
				c.Close()
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, cl *client, ws WSConn) {
	defer ctl.release(cl)

	ws.SetReadLimit(ctl.opts.ReadLimit)
	_ = ws.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	})

	for {
		if ctx.Err() != nil {
			return
		}
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "signal").Str("conn", string(cl.id)).Msg("readPump read error")
			}
			return
		}
		ctl.dispatch(ctx, cl, data)
	}
}

func (ctl *SignalWSController) dispatch(ctx context.Context, cl *client, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(cl.id)).Msg("bad json")
		ctl.sendError(cl, "", codeBadPayload, "malformed frame")
		return
	}

	switch env.Type {
	case "join":
		ctl.handleJoin(ctx, cl, data)
	case "leave":
		ctl.handleLeave(ctx, cl, data)
	case "mute":
		ctl.handleMute(cl, data)
	case "deafen":
		ctl.handleDeafen(cl, data)
	case "toggle_deafen":
		ctl.handleToggleDeafen(cl, data)
	case "speaking":
		ctl.handleSpeaking(cl, data)
	case "stream":
		ctl.handleStream(cl, data)
	case "offer":
		ctl.handleOffer(cl, data)
	case "answer":
		ctl.handleAnswer(cl, data)
	case "candidate":
		ctl.handleCandidate(cl, data)
	case "ring":
		ctl.handleRing(ctx, cl, data)
	case "accept":
		ctl.handleAccept(ctx, cl, data)
	case "reject":
		ctl.handleReject(ctx, cl, data)
	case "cancel":
		ctl.handleCancel(ctx, cl, data)
	case "get_session":
		ctl.handleGetSession(cl, data)
	case "session_counts":
		ctl.handleSessionCounts(cl, data)
	case "rename":
		ctl.handleRename(cl, data)
	case "whoami":
		ctl.handleWhoAmI(cl)
	case "ping":
		ctl.handlePing(cl)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
		ctl.sendError(cl, env.Type, codeBadPayload, "unknown type")
	}
}

// decode unmarshals a client frame, answering bad_payload on failure.
func (ctl *SignalWSController) decode(cl *client, op string, data []byte, v any) bool {
	if err := json.Unmarshal(data, v); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("op", op).Msg("bad payload")
		ctl.sendError(cl, op, codeBadPayload, "malformed payload")
		return false
	}
	return true
}

func (ctl *SignalWSController) sendJSON(cl *client, event string, v any) {
	b, err := encode(event, v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	if err := cl.conn.TrySend(b); err != nil && !errors.Is(err, core.ErrConnectionClosed) {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(cl.id)).Str("type", event).Msg("reply dropped")
	}
}
