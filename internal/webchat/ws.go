package webchat

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/net/websocket"

	"github.com/wolfman30/sitegen-supportchat/internal/conversation"
	"github.com/wolfman30/sitegen-supportchat/internal/leads"
)

// InboundFrame is what the widget sends over the socket.
type InboundFrame struct {
	Type    string                `json:"type"` // "message", "action", "topic", "contact", "cancel_contact", "close", "ping"
	Text    string                `json:"text,omitempty"`
	Action  string                `json:"action,omitempty"`
	Topic   string                `json:"topic,omitempty"`
	Contact *leads.ContactRequest `json:"contact,omitempty"`
}

// OutboundFrame is what we send to the widget.
type OutboundFrame struct {
	Type      string                 `json:"type"` // "session", "history", "turn", "typing", "error", "pong"
	SessionID string                 `json:"session_id,omitempty"`
	Turn      *TurnResponse          `json:"turn,omitempty"`
	Messages  []conversation.Message `json:"messages,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// HandleWebSocket upgrades to WebSocket and runs turns as frames arrive. The
// session survives a dropped connection so the widget can reconnect with
// ?session=.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	ctx := r.Context()
	requested := strings.TrimSpace(r.URL.Query().Get("session"))
	s, created := h.registry.Create(requested, r.URL.Query().Get("lang"))

	_ = websocket.JSON.Send(conn, OutboundFrame{Type: "session", SessionID: s.ID()})

	if !created {
		if msgs := s.Snapshot().Messages; len(msgs) > 0 {
			_ = websocket.JSON.Send(conn, OutboundFrame{Type: "history", Messages: msgs})
		}
	} else if requested != "" && h.transcript != nil {
		// Evicted or restarted: replay what the mirror still has.
		if msgs, err := h.transcript.List(ctx, requested, defaultHistoryLimit); err == nil && len(msgs) > 0 {
			_ = websocket.JSON.Send(conn, OutboundFrame{Type: "history", Messages: msgs})
		}
	}

	res, err := h.controller.Open(s)
	h.sendTurn(ctx, conn, s, res, err)

	h.logger.Info("webchat: connection opened", "session_id", s.ID(), "language", s.Language())

	for {
		var frame InboundFrame
		if err := websocket.JSON.Receive(conn, &frame); err != nil {
			h.logger.Debug("webchat: connection closed", "session_id", s.ID(), "error", err)
			return
		}

		switch frame.Type {
		case "ping":
			_ = websocket.JSON.Send(conn, OutboundFrame{Type: "pong"})
		case "message":
			if strings.TrimSpace(frame.Text) == "" {
				continue
			}
			_ = websocket.JSON.Send(conn, OutboundFrame{Type: "typing"})
			res, err := h.controller.SubmitText(ctx, s, frame.Text)
			h.sendTurn(ctx, conn, s, res, err)
		case "action":
			res, err := h.controller.SelectAction(ctx, s, frame.Action)
			h.sendTurn(ctx, conn, s, res, err)
		case "topic":
			res, err := h.controller.SelectTopic(ctx, s, frame.Topic)
			h.sendTurn(ctx, conn, s, res, err)
		case "contact":
			var req leads.ContactRequest
			if frame.Contact != nil {
				req = *frame.Contact
			}
			res, err := h.controller.SubmitContact(ctx, s, req)
			h.sendTurn(ctx, conn, s, res, err)
		case "cancel_contact":
			res, err := h.controller.CancelContact(s)
			h.sendTurn(ctx, conn, s, res, err)
		case "close":
			h.registry.Remove(s.ID())
			return
		default:
			_ = websocket.JSON.Send(conn, OutboundFrame{Type: "error", Error: "unknown frame type"})
		}
	}
}

func (h *Handler) sendTurn(ctx context.Context, conn *websocket.Conn, s *conversation.Session, res conversation.TurnResult, err error) {
	if err != nil {
		_, msg := statusFor(err)
		_ = websocket.JSON.Send(conn, OutboundFrame{Type: "error", SessionID: s.ID(), Error: msg})
		return
	}
	h.mirror(ctx, s.ID(), res.Messages)
	turn := h.turnResponse(s, res)
	_ = websocket.JSON.Send(conn, OutboundFrame{Type: "turn", SessionID: s.ID(), Turn: &turn})
}
