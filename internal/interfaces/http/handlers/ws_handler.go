package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/turtacn/dtiscope/internal/application/session"
	"github.com/turtacn/dtiscope/internal/infrastructure/monitoring/logging"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
	wsMaxFrame  = 64 << 10
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// wsOutbound is a server frame: either {type:"state", session} or
// {type:"error", code, message}.
type wsOutbound struct {
	Type    string        `json:"type"`
	Session *session.View `json:"session,omitempty"`
	Code    string        `json:"code,omitempty"`
	Message string        `json:"message,omitempty"`
}

// Stream handles GET /sessions/{sessionID}/ws.  It pushes the session view
// after every change and applies inbound commands.
func (h *SessionHandler) Stream(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	gauge := h.metrics.WebsocketClients.WithLabelValues()
	gauge.Inc()
	defer gauge.Dec()

	log := h.logger.With(logging.String(logging.FieldSessionID, s.ID))
	log.Debug("websocket connected")
	defer log.Debug("websocket disconnected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadLimit(wsMaxFrame)
	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	updates, unsubscribe := s.Subscribe()
	defer unsubscribe()

	errCh := make(chan wsOutbound, 8)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer cancel()
		defer conn.Close()
		ticker := time.NewTicker(wsPingEvery)
		defer ticker.Stop()

		write := func(out wsOutbound) bool {
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
				return false
			}
			return conn.WriteJSON(out) == nil
		}
		pushState := func() bool {
			v := s.View()
			return write(wsOutbound{Type: "state", Session: &v})
		}

		if !pushState() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.Context().Done():
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"),
					time.Now().Add(wsWriteWait))
				return
			case <-updates:
				if !pushState() {
					return
				}
			case out := <-errCh:
				if !write(out) {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		var cmd Command
		if err := conn.ReadJSON(&cmd); err != nil {
			cancel()
			<-writerDone
			return
		}
		s.Touch()
		if cmd.Type == CmdSelect {
			// Select blocks on the detail fetch; reading continues so a later
			// toggle or selection can supersede it.
			go func(c Command) { reportErr(errCh, Apply(ctx, s, c)) }(cmd)
			continue
		}
		reportErr(errCh, Apply(ctx, s, cmd))
	}
}

func reportErr(errCh chan<- wsOutbound, err error) {
	if err == nil {
		return
	}
	_, body := errorBody(err)
	select {
	case errCh <- wsOutbound{Type: "error", Code: body.Code, Message: body.Message}:
	default:
	}
}

//Personal.AI order the ending
