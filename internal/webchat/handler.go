package webchat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/sitegen-supportchat/internal/conversation"
	"github.com/wolfman30/sitegen-supportchat/internal/knowledge"
	"github.com/wolfman30/sitegen-supportchat/internal/leads"
	"github.com/wolfman30/sitegen-supportchat/pkg/logging"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 250
)

// Handler exposes chat sessions to the widget over REST and WebSocket.
type Handler struct {
	registry   *Registry
	controller *conversation.Controller
	transcript TranscriptStore
	logger     *logging.Logger
}

// NewHandler creates a web chat handler. transcript may be nil.
func NewHandler(controller *conversation.Controller, registry *Registry, transcript TranscriptStore, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		registry:   registry,
		controller: controller,
		transcript: transcript,
		logger:     logger,
	}
}

// Routes returns the widget routes, to be mounted under /chat.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/ws", h.HandleWebSocket)
	r.Post("/sessions", h.CreateSession)
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Delete("/", h.CloseSession)
		r.Get("/history", h.History)
		r.Post("/messages", h.SubmitMessage)
		r.Post("/actions", h.SelectAction)
		r.Post("/contact", h.SubmitContact)
		r.Delete("/contact", h.CancelContact)
	})
	return r
}

// ActionView is a quick-action button as the widget renders it.
type ActionView struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Label string `json:"label"`
}

// TurnResponse is the outcome of one turn plus the buttons to show next.
type TurnResponse struct {
	SessionID string             `json:"session_id"`
	Language  knowledge.Language `json:"language"`
	conversation.TurnResult
	Actions []ActionView `json:"actions"`
}

type createSessionRequest struct {
	Language string `json:"language"`
}

type messageRequest struct {
	Text string `json:"text"`
}

type actionRequest struct {
	Action string `json:"action"`
}

// CreateSession handles POST /chat/sessions.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	s, _ := h.registry.Create("", req.Language)
	res, err := h.controller.Open(s)
	if err != nil {
		h.writeTurnError(w, s, err)
		return
	}
	h.mirror(r.Context(), s.ID(), res.Messages)
	writeJSON(w, http.StatusCreated, h.turnResponse(s, res))
}

// GetSession handles GET /chat/sessions/{sessionID}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// CloseSession handles DELETE /chat/sessions/{sessionID}.
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if !h.registry.Remove(chi.URLParam(r, "sessionID")) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubmitMessage handles POST /chat/sessions/{sessionID}/messages.
func (h *Handler) SubmitMessage(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.controller.SubmitText(r.Context(), s, req.Text)
	h.respond(w, r, s, res, err)
}

// SelectAction handles POST /chat/sessions/{sessionID}/actions.
func (h *Handler) SelectAction(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Action) == "" {
		writeError(w, http.StatusBadRequest, "action is required")
		return
	}
	res, err := h.controller.SelectAction(r.Context(), s, req.Action)
	h.respond(w, r, s, res, err)
}

// SubmitContact handles POST /chat/sessions/{sessionID}/contact.
func (h *Handler) SubmitContact(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req leads.ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.controller.SubmitContact(r.Context(), s, req)
	h.respond(w, r, s, res, err)
}

// CancelContact handles DELETE /chat/sessions/{sessionID}/contact.
func (h *Handler) CancelContact(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	res, err := h.controller.CancelContact(s)
	h.respond(w, r, s, res, err)
}

// History handles GET /chat/sessions/{sessionID}/history. The Redis mirror is
// preferred so history survives eviction and restarts.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	limit := int64(defaultHistoryLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 && n <= maxHistoryLimit {
			limit = n
		}
	}

	if h.transcript != nil {
		msgs, err := h.transcript.List(r.Context(), id, limit)
		if err != nil {
			h.logger.Error("webchat: failed to load history", "session_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to load history")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
		return
	}

	s, ok := h.registry.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	msgs := s.Snapshot().Messages
	if int64(len(msgs)) > limit {
		msgs = msgs[int64(len(msgs))-limit:]
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*conversation.Session, bool) {
	s, ok := h.registry.Get(chi.URLParam(r, "sessionID"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return s, true
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, s *conversation.Session, res conversation.TurnResult, err error) {
	if err != nil {
		h.writeTurnError(w, s, err)
		return
	}
	h.mirror(r.Context(), s.ID(), res.Messages)
	writeJSON(w, http.StatusOK, h.turnResponse(s, res))
}

func (h *Handler) writeTurnError(w http.ResponseWriter, s *conversation.Session, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("webchat: turn failed", "session_id", s.ID(), "error", err)
	}
	writeError(w, status, msg)
}

// mirror copies appended messages to the transcript store. Failures are
// logged and never reach the widget.
func (h *Handler) mirror(ctx context.Context, sessionID string, msgs []conversation.Message) {
	if h.transcript == nil || len(msgs) == 0 {
		return
	}
	if err := h.transcript.Append(context.WithoutCancel(ctx), sessionID, msgs...); err != nil {
		h.logger.Warn("webchat: transcript mirror failed", "session_id", sessionID, "error", err)
	}
}

func (h *Handler) turnResponse(s *conversation.Session, res conversation.TurnResult) TurnResponse {
	return TurnResponse{
		SessionID:  s.ID(),
		Language:   s.Language(),
		TurnResult: res,
		Actions:    h.actions(res.Menu, s.Language()),
	}
}

func (h *Handler) actions(menuID string, lang knowledge.Language) []ActionView {
	menu, ok := h.controller.KnowledgeBase().Menu(menuID)
	if !ok {
		return []ActionView{}
	}
	out := make([]ActionView, 0, len(menu.Actions))
	for _, a := range menu.Actions {
		out = append(out, ActionView{ID: a.ID, Kind: string(a.Kind), Label: a.Label(lang)})
	}
	return out
}

// statusFor maps controller errors onto HTTP statuses and a message safe to
// show the widget.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, conversation.ErrSessionClosed):
		return http.StatusNotFound, "session closed"
	case errors.Is(err, conversation.ErrTurnInProgress):
		return http.StatusConflict, "a reply is still pending"
	case errors.Is(err, conversation.ErrFormNotOpen):
		return http.StatusConflict, "contact form is not open"
	case errors.Is(err, leads.ErrMissingContact):
		return http.StatusUnprocessableEntity, "contact is required"
	case errors.Is(err, knowledge.ErrUnknownAction):
		return http.StatusBadRequest, "unknown action"
	case errors.Is(err, knowledge.ErrUnknownTopic):
		return http.StatusBadRequest, "unknown topic"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
