package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/sitegen-supportchat/internal/knowledge"
	"github.com/wolfman30/sitegen-supportchat/internal/leads"
	"github.com/wolfman30/sitegen-supportchat/internal/matcher"
	"github.com/wolfman30/sitegen-supportchat/internal/observability/metrics"
	"github.com/wolfman30/sitegen-supportchat/internal/responder"
	"github.com/wolfman30/sitegen-supportchat/pkg/logging"
)

// DefaultHistoryTurns is how many prior messages accompany a remote request.
const DefaultHistoryTurns = 10

// LeadDispatcher receives submitted contact forms. Dispatch must not block on
// delivery.
type LeadDispatcher interface {
	Dispatch(ctx context.Context, req leads.ContactRequest, lang knowledge.Language)
}

// Config wires a Controller. KnowledgeBase is required; a nil Responder
// answers every turn locally and a nil Leads logs submissions only.
type Config struct {
	KnowledgeBase *knowledge.KnowledgeBase
	Responder     responder.Responder
	Leads         LeadDispatcher
	HistoryTurns  int
	Logger        *logging.Logger
	Metrics       *metrics.ChatMetrics
	Clock         func() time.Time
}

// Controller applies turns to sessions. It is stateless apart from its
// collaborators and is shared by all sessions.
type Controller struct {
	kb           *knowledge.KnowledgeBase
	matcher      *matcher.Matcher
	responder    responder.Responder
	leads        LeadDispatcher
	historyTurns int
	logger       *logging.Logger
	metrics      *metrics.ChatMetrics
	now          func() time.Time
}

func NewController(cfg Config) *Controller {
	if cfg.KnowledgeBase == nil {
		panic("conversation: knowledge base required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.HistoryTurns <= 0 {
		cfg.HistoryTurns = DefaultHistoryTurns
	}
	if cfg.Leads == nil {
		cfg.Leads = leads.NewDispatcher(cfg.KnowledgeBase, leads.NewLogChannel(cfg.Logger), leads.WithLogger(cfg.Logger))
	}
	return &Controller{
		kb:           cfg.KnowledgeBase,
		matcher:      matcher.New(cfg.KnowledgeBase),
		responder:    cfg.Responder,
		leads:        cfg.Leads,
		historyTurns: cfg.HistoryTurns,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		now:          cfg.Clock,
	}
}

// KnowledgeBase returns the catalogue the controller answers from.
func (c *Controller) KnowledgeBase() *knowledge.KnowledgeBase { return c.kb }

// NewSession creates an idle session. Unsupported or empty languages fall back
// to the knowledge base default; the language is fixed for the session.
func (c *Controller) NewSession(id, language string) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	return newSession(id, c.kb.ResolveLanguage(language), c.now().UTC())
}

// Open shows the welcome message and main menu. Only the first call on a
// session emits the welcome.
func (c *Controller) Open(s *Session) (TurnResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return TurnResult{}, ErrSessionClosed
	}
	if s.welcomed {
		return s.resultLocked(nil), nil
	}
	s.welcomed = true
	s.state = StateWelcomed
	s.menu = knowledge.MainMenu
	msg := c.appendLocked(s, SenderBot, KindWelcome, c.kb.Messages(s.language).Welcome, "")
	return s.resultLocked([]Message{msg}), nil
}

// SubmitText runs a free-text turn. A contact intent opens the form without a
// remote call; anything else asks the remote responder first and falls back
// to the matched topic, then to the default reply. Exactly one bot message is
// appended per non-empty turn.
func (c *Controller) SubmitText(ctx context.Context, s *Session, text string) (TurnResult, error) {
	text = strings.TrimSpace(text)

	s.mu.Lock()
	if err := s.beginTurnLocked(); err != nil {
		s.mu.Unlock()
		return TurnResult{}, err
	}
	if text == "" {
		res := s.resultLocked(nil)
		s.mu.Unlock()
		return res, nil
	}

	lang := s.language
	history := c.historyLocked(s)
	userMsg := c.appendLocked(s, SenderUser, KindUserText, text, "")
	topic, matched := c.matcher.FindBestMatch(text, s.lastTopicID, lang)

	if matched && topic.Answer(lang).IsContactForm() {
		prompt := c.openContactFormLocked(s, topic)
		c.metrics.ObserveMatch(string(lang), "contact_form")
		res := s.resultLocked([]Message{userMsg, prompt})
		s.mu.Unlock()
		return res, nil
	}

	if c.responder == nil {
		reply := c.answerLocallyLocked(s, topic, matched)
		res := s.resultLocked([]Message{userMsg, reply})
		s.mu.Unlock()
		return res, nil
	}

	callCtx, cancel := context.WithCancel(ctx)
	s.pending = cancel
	s.mu.Unlock()

	reply, err := c.responder.Complete(callCtx, responder.Request{
		Message:  text,
		History:  history,
		Language: string(lang),
	})
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
	if s.closed {
		c.logger.Debug("discarding turn result for closed session", "session_id", s.id)
		return TurnResult{}, ErrSessionClosed
	}

	if err == nil && strings.TrimSpace(reply) != "" {
		s.settleLocked()
		msg := c.appendLocked(s, SenderBot, KindRemote, reply, "")
		c.metrics.ObserveMatch(string(lang), "remote")
		return s.resultLocked([]Message{userMsg, msg}), nil
	}
	if err != nil {
		c.logger.Warn("remote responder unavailable, answering locally", "session_id", s.id, "error", err)
	}
	msg := c.answerLocallyLocked(s, topic, matched)
	return s.resultLocked([]Message{userMsg, msg}), nil
}

// SelectAction applies a quick-action button. Menu actions only switch the
// visible menu; topic actions resolve their topic without matching.
func (c *Controller) SelectAction(ctx context.Context, s *Session, actionID string) (TurnResult, error) {
	action, ok := c.kb.QuickAction(actionID)
	if !ok {
		return TurnResult{}, fmt.Errorf("%w: %s", knowledge.ErrUnknownAction, actionID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.beginTurnLocked(); err != nil {
		return TurnResult{}, err
	}

	if action.Kind == knowledge.ActionMenu {
		s.menu = action.Target
		return s.resultLocked(nil), nil
	}

	topic, ok := c.kb.Topic(action.Target)
	if !ok {
		return TurnResult{}, fmt.Errorf("%w: %s", knowledge.ErrUnknownTopic, action.Target)
	}
	userMsg := c.appendLocked(s, SenderUser, KindUserAction, action.Label(s.language), "")
	reply := c.resolveTopicLocked(s, topic)
	return s.resultLocked([]Message{userMsg, reply}), nil
}

// SelectTopic resolves a topic directly by ID, as when a follow-up suggestion
// is clicked.
func (c *Controller) SelectTopic(ctx context.Context, s *Session, topicID string) (TurnResult, error) {
	topic, ok := c.kb.Topic(topicID)
	if !ok {
		return TurnResult{}, fmt.Errorf("%w: %s", knowledge.ErrUnknownTopic, topicID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.beginTurnLocked(); err != nil {
		return TurnResult{}, err
	}
	userMsg := c.appendLocked(s, SenderUser, KindUserAction, topic.Title(s.language), "")
	reply := c.resolveTopicLocked(s, topic)
	return s.resultLocked([]Message{userMsg, reply}), nil
}

// SubmitContact validates the form, hands it to the lead dispatcher, closes
// the form, and confirms. A blank contact leaves the form open.
func (c *Controller) SubmitContact(ctx context.Context, s *Session, req leads.ContactRequest) (TurnResult, error) {
	req = req.Trimmed()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.beginTurnLocked(); err != nil {
		return TurnResult{}, err
	}
	if !s.formOpen {
		return TurnResult{}, ErrFormNotOpen
	}
	if err := req.Validate(); err != nil {
		return TurnResult{}, err
	}

	c.leads.Dispatch(leads.WithSessionID(ctx, s.id), req, s.language)

	s.formOpen = false
	s.state = StateAwaitingInput
	msg := c.appendLocked(s, SenderBot, KindContactConfirmation, c.confirmation(s.language, req), "")
	c.logger.Info("contact request submitted", "session_id", s.id, "language", s.language)
	return s.resultLocked([]Message{msg}), nil
}

// CancelContact dismisses the form without dispatching anything.
func (c *Controller) CancelContact(s *Session) (TurnResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return TurnResult{}, ErrSessionClosed
	}
	if s.formOpen {
		s.formOpen = false
		s.state = StateAwaitingInput
	}
	return s.resultLocked(nil), nil
}

// Close ends the session. An outstanding remote call is canceled and its
// result, if any, is discarded.
func (c *Controller) Close(s *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.formOpen = false
	s.state = StateClosed
	if s.pending != nil {
		s.pending()
	}
}

// beginTurnLocked refuses turns on closed or busy sessions.
func (s *Session) beginTurnLocked() error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.pending != nil {
		return ErrTurnInProgress
	}
	if s.state == StateIdle || s.state == StateWelcomed {
		s.state = StateAwaitingInput
	}
	return nil
}

// settleLocked returns the session to its resting state after a turn. An open
// contact form stays open until it is submitted or canceled.
func (s *Session) settleLocked() {
	if s.formOpen {
		s.state = StateShowingContactForm
		return
	}
	s.state = StateAwaitingInput
}

func (c *Controller) appendLocked(s *Session, sender Sender, kind MessageKind, text, topicID string) Message {
	now := c.now().UTC()
	msg := Message{
		ID:        uuid.NewString(),
		Text:      text,
		Sender:    sender,
		Kind:      kind,
		TopicID:   topicID,
		Timestamp: now,
	}
	s.messages = append(s.messages, msg)
	s.lastActivity = now
	return msg
}

// resolveTopicLocked emits a topic's answer, or opens the contact form for
// the contact topic.
func (c *Controller) resolveTopicLocked(s *Session, topic *knowledge.Topic) Message {
	answer := topic.Answer(s.language)
	if answer.IsContactForm() {
		return c.openContactFormLocked(s, topic)
	}
	s.lastTopicID = topic.ID
	return c.appendLocked(s, SenderBot, KindAnswer, answer.Text, topic.ID)
}

func (c *Controller) answerLocallyLocked(s *Session, topic *knowledge.Topic, matched bool) Message {
	s.settleLocked()
	if matched {
		c.metrics.ObserveMatch(string(s.language), "local")
		return c.resolveTopicLocked(s, topic)
	}
	c.metrics.ObserveMatch(string(s.language), "fallback")
	return c.appendLocked(s, SenderBot, KindFallback, c.kb.FallbackMessage(s.language), "")
}

func (c *Controller) openContactFormLocked(s *Session, topic *knowledge.Topic) Message {
	s.formOpen = true
	s.state = StateShowingContactForm
	s.lastTopicID = topic.ID
	return c.appendLocked(s, SenderBot, KindContactPrompt, c.kb.Messages(s.language).ContactPrompt, topic.ID)
}

// historyLocked returns the last historyTurns messages as responder turns.
func (c *Controller) historyLocked(s *Session) []responder.Turn {
	msgs := s.messages
	if len(msgs) > c.historyTurns {
		msgs = msgs[len(msgs)-c.historyTurns:]
	}
	turns := make([]responder.Turn, 0, len(msgs))
	for _, m := range msgs {
		role := responder.RoleAssistant
		if m.Sender == SenderUser {
			role = responder.RoleUser
		}
		turns = append(turns, responder.Turn{Role: role, Content: m.Text})
	}
	return turns
}

func (c *Controller) confirmation(lang knowledge.Language, req leads.ContactRequest) string {
	msgs := c.kb.Messages(lang)
	orPlaceholder := func(v string) string {
		if v == "" {
			return msgs.Placeholder
		}
		return v
	}
	return strings.NewReplacer(
		"{name}", orPlaceholder(req.Name),
		"{contact}", req.Contact,
		"{message}", orPlaceholder(req.Message),
	).Replace(msgs.ContactConfirmation)
}
