package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/samber/lo"

	"github.com/wolfman30/sitegen-supportchat/internal/knowledge"
	"github.com/wolfman30/sitegen-supportchat/internal/matcher"
	"github.com/wolfman30/sitegen-supportchat/pkg/logging"
)

// AdminKnowledgeHandler lets operators inspect the loaded knowledge base and
// see how the matcher scores an input.
type AdminKnowledgeHandler struct {
	kb      *knowledge.KnowledgeBase
	matcher *matcher.Matcher
	logger  *logging.Logger
}

// NewAdminKnowledgeHandler creates a new handler.
func NewAdminKnowledgeHandler(kb *knowledge.KnowledgeBase, logger *logging.Logger) *AdminKnowledgeHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminKnowledgeHandler{kb: kb, matcher: matcher.New(kb), logger: logger}
}

// TopicSummary is one topic in the knowledge listing.
type TopicSummary struct {
	ID        string                        `json:"id"`
	Kind      string                        `json:"kind"`
	Titles    map[knowledge.Language]string `json:"titles"`
	FollowUps []string                      `json:"follow_ups"`
	Groups    int                           `json:"keyword_groups"`
}

// KnowledgeSummary is the response of GET /admin/knowledge.
type KnowledgeSummary struct {
	Version         string               `json:"version"`
	DefaultLanguage knowledge.Language   `json:"default_language"`
	Languages       []knowledge.Language `json:"languages"`
	Categories      []string             `json:"categories"`
	Topics          []TopicSummary       `json:"topics"`
}

// GetKnowledge handles GET /admin/knowledge.
func (h *AdminKnowledgeHandler) GetKnowledge(w http.ResponseWriter, r *http.Request) {
	topics := lo.Map(h.kb.Topics(), func(t *knowledge.Topic, _ int) TopicSummary {
		groups := 0
		for _, lang := range h.kb.Languages() {
			groups += len(t.KeywordGroups(lang))
		}
		titles := make(map[knowledge.Language]string, len(h.kb.Languages()))
		for _, lang := range h.kb.Languages() {
			titles[lang] = t.Title(lang)
		}
		followUps := t.FollowUps
		if followUps == nil {
			followUps = []string{}
		}
		return TopicSummary{
			ID:        t.ID,
			Kind:      t.Kind.String(),
			Titles:    titles,
			FollowUps: followUps,
			Groups:    groups,
		}
	})
	writeJSON(w, http.StatusOK, KnowledgeSummary{
		Version:         h.kb.Version(),
		DefaultLanguage: h.kb.DefaultLanguage(),
		Languages:       h.kb.Languages(),
		Categories:      h.kb.Categories(),
		Topics:          topics,
	})
}

type explainRequest struct {
	Text        string `json:"text"`
	LastTopicID string `json:"last_topic_id"`
	Language    string `json:"language"`
}

// Explain handles POST /admin/knowledge/explain.
func (h *AdminKnowledgeHandler) Explain(w http.ResponseWriter, r *http.Request) {
	var req explainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		jsonError(w, "text is required", http.StatusBadRequest)
		return
	}
	if req.LastTopicID != "" {
		if _, ok := h.kb.Topic(req.LastTopicID); !ok {
			jsonError(w, "unknown last_topic_id", http.StatusBadRequest)
			return
		}
	}
	lang := h.kb.ResolveLanguage(req.Language)
	exp := h.matcher.Explain(req.Text, req.LastTopicID, lang)
	h.logger.Debug("knowledge explain", "language", lang, "topic_id", exp.Selected)
	writeJSON(w, http.StatusOK, exp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
