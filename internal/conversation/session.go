// Package conversation runs one support-chat session per widget: welcome,
// free-text turns, quick actions, and the contact-form sub-flow.
package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/wolfman30/sitegen-supportchat/internal/knowledge"
)

// Sender identifies who wrote a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// MessageKind says how a message was produced.
type MessageKind string

const (
	KindWelcome             MessageKind = "welcome"
	KindUserText            MessageKind = "text"
	KindUserAction          MessageKind = "action"
	KindAnswer              MessageKind = "answer"
	KindRemote              MessageKind = "remote"
	KindFallback            MessageKind = "fallback"
	KindContactPrompt       MessageKind = "contact_prompt"
	KindContactConfirmation MessageKind = "contact_confirmation"
)

// Message is one entry of the transcript.
type Message struct {
	ID        string      `json:"id"`
	Text      string      `json:"text"`
	Sender    Sender      `json:"sender"`
	Kind      MessageKind `json:"kind"`
	TopicID   string      `json:"topic_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// State is the widget-level state of a session.
type State string

const (
	StateIdle               State = "idle"
	StateWelcomed           State = "welcomed"
	StateAwaitingInput      State = "awaiting_input"
	StateShowingContactForm State = "showing_contact_form"
	StateClosed             State = "closed"
)

// Session is the state of one chat. Each turn holds the session lock except
// while waiting on the remote responder; pending marks that window so a
// second turn is refused rather than interleaved.
type Session struct {
	id        string
	language  knowledge.Language
	createdAt time.Time

	mu           sync.Mutex
	messages     []Message
	lastTopicID  string
	state        State
	menu         string
	welcomed     bool
	formOpen     bool
	closed       bool
	pending      context.CancelFunc
	lastActivity time.Time
}

func newSession(id string, lang knowledge.Language, now time.Time) *Session {
	return &Session{
		id:           id,
		language:     lang,
		createdAt:    now,
		state:        StateIdle,
		lastActivity: now,
	}
}

func (s *Session) ID() string                   { return s.id }
func (s *Session) Language() knowledge.Language { return s.language }

// LastActivity is the time of the last turn.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Closed reports whether the session was closed.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Snapshot is a read-only copy of a session.
type Snapshot struct {
	ID              string             `json:"id"`
	Language        knowledge.Language `json:"language"`
	State           State              `json:"state"`
	LastTopicID     string             `json:"last_topic_id,omitempty"`
	Menu            string             `json:"menu,omitempty"`
	ContactFormOpen bool               `json:"contact_form_open"`
	Busy            bool               `json:"busy"`
	Messages        []Message          `json:"messages"`
	CreatedAt       time.Time          `json:"created_at"`
	LastActivity    time.Time          `json:"last_activity"`
}

// Snapshot copies the session's current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:              s.id,
		Language:        s.language,
		State:           s.state,
		LastTopicID:     s.lastTopicID,
		Menu:            s.menu,
		ContactFormOpen: s.formOpen,
		Busy:            s.pending != nil,
		Messages:        append([]Message(nil), s.messages...),
		CreatedAt:       s.createdAt,
		LastActivity:    s.lastActivity,
	}
}

// TurnResult is what one turn produced: the messages it appended and the
// resulting widget state.
type TurnResult struct {
	Messages        []Message `json:"messages"`
	State           State     `json:"state"`
	ContactFormOpen bool      `json:"contact_form_open"`
	Menu            string    `json:"menu,omitempty"`
	LastTopicID     string    `json:"last_topic_id,omitempty"`
}

// resultLocked builds a TurnResult; s.mu must be held.
func (s *Session) resultLocked(msgs []Message) TurnResult {
	if msgs == nil {
		msgs = []Message{}
	}
	return TurnResult{
		Messages:        msgs,
		State:           s.state,
		ContactFormOpen: s.formOpen,
		Menu:            s.menu,
		LastTopicID:     s.lastTopicID,
	}
}
