package knowledge

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownTopic is returned when a topic ID is not in the knowledge base.
	ErrUnknownTopic = errors.New("knowledge: unknown topic")
	// ErrUnknownAction is returned when a quick action ID is not declared.
	ErrUnknownAction = errors.New("knowledge: unknown quick action")
	// ErrUnsupportedLanguage is returned for languages the knowledge base lacks.
	ErrUnsupportedLanguage = errors.New("knowledge: unsupported language")
)

// MainMenu is the quick-action menu shown when the widget opens.
const MainMenu = "main"

// ActionKind distinguishes quick actions that resolve a topic from pure
// navigation between menus.
type ActionKind string

const (
	ActionTopic ActionKind = "topic"
	ActionMenu  ActionKind = "menu"
)

// QuickAction is a button rendered by the widget.
type QuickAction struct {
	ID     string
	Kind   ActionKind
	Target string
	Labels map[Language]string
}

// Label returns the localized button label.
func (a QuickAction) Label(lang Language) string {
	if l := a.Labels[lang]; l != "" {
		return l
	}
	return a.ID
}

// Menu is an ordered set of quick actions.
type Menu struct {
	ID      string
	Actions []QuickAction
}

// Messages is the localized string table the engine consumes.
type Messages struct {
	Welcome             string
	Fallback            string
	ContactPrompt       string
	ContactConfirmation string
	Placeholder         string
	LeadSubject         string
	LeadLabels          LeadLabels
}

// LeadLabels are the field captions used in lead notifications.
type LeadLabels struct {
	Name     string
	Contact  string
	Message  string
	Language string
}

// KnowledgeBase is an immutable, validated topic catalogue. It is safe for
// concurrent use.
type KnowledgeBase struct {
	version         string
	defaultLanguage Language
	languages       []Language
	topics          []*Topic
	index           map[string]*Topic
	categories      []string
	menus           map[string]Menu
	actions         map[string]QuickAction
	messages        map[Language]Messages
}

// Version returns the knowledge base version label.
func (kb *KnowledgeBase) Version() string { return kb.version }

// DefaultLanguage returns the language used when a session asks for none.
func (kb *KnowledgeBase) DefaultLanguage() Language { return kb.defaultLanguage }

// Languages returns the supported languages in declaration order.
func (kb *KnowledgeBase) Languages() []Language {
	return append([]Language(nil), kb.languages...)
}

// WithDefaultLanguage returns a copy of kb whose default language is lang.
func (kb *KnowledgeBase) WithDefaultLanguage(lang Language) (*KnowledgeBase, error) {
	if !kb.Supports(lang) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
	}
	clone := *kb
	clone.defaultLanguage = lang
	return &clone, nil
}

// Supports reports whether lang is a supported language.
func (kb *KnowledgeBase) Supports(lang Language) bool {
	for _, l := range kb.languages {
		if l == lang {
			return true
		}
	}
	return false
}

// ResolveLanguage maps a raw language code to a supported language, falling
// back to the default language.
func (kb *KnowledgeBase) ResolveLanguage(raw string) Language {
	lang := ParseLanguage(raw)
	if kb.Supports(lang) {
		return lang
	}
	return kb.defaultLanguage
}

// Topics returns the topics in iteration order. Matching relies on this order
// for tie-breaking, so it is stable across calls.
func (kb *KnowledgeBase) Topics() []*Topic {
	return kb.topics
}

// Topic looks up a topic by ID.
func (kb *KnowledgeBase) Topic(id string) (*Topic, bool) {
	t, ok := kb.index[id]
	return t, ok
}

// Menu returns a quick-action menu by ID.
func (kb *KnowledgeBase) Menu(id string) (Menu, bool) {
	m, ok := kb.menus[id]
	return m, ok
}

// QuickAction looks up a quick action declared in any menu.
func (kb *KnowledgeBase) QuickAction(id string) (QuickAction, bool) {
	a, ok := kb.actions[id]
	return a, ok
}

// Messages returns the string table for lang, or the default language's table.
func (kb *KnowledgeBase) Messages(lang Language) Messages {
	if m, ok := kb.messages[lang]; ok {
		return m
	}
	return kb.messages[kb.defaultLanguage]
}

// Categories returns the topic IDs advertised by the fallback message.
func (kb *KnowledgeBase) Categories() []string {
	return append([]string(nil), kb.categories...)
}

// FallbackMessage is the "I didn't understand" reply, listing the categories
// the engine can help with.
func (kb *KnowledgeBase) FallbackMessage(lang Language) string {
	var b strings.Builder
	b.WriteString(kb.Messages(lang).Fallback)
	for _, id := range kb.categories {
		t, ok := kb.index[id]
		if !ok {
			continue
		}
		b.WriteString("\n• ")
		b.WriteString(t.Title(lang))
	}
	return b.String()
}
