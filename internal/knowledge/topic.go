// Package knowledge holds the curated, versioned topic catalogue the support
// chat resolves user input against.
package knowledge

import "strings"

// Language is a supported display language (ISO 639-1 code).
type Language string

const (
	Italian Language = "it"
	English Language = "en"
)

// ParseLanguage lower-cases and trims a raw language code. It does not check
// support; see KnowledgeBase.ResolveLanguage.
func ParseLanguage(raw string) Language {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if i := strings.IndexAny(raw, "-_"); i > 0 {
		raw = raw[:i]
	}
	return Language(raw)
}

// AnswerKind tags what resolving a topic does.
type AnswerKind int

const (
	// AnswerText shows localized text.
	AnswerText AnswerKind = iota
	// AnswerContactForm hands off to the contact-capture sub-flow.
	AnswerContactForm
)

func (k AnswerKind) String() string {
	switch k {
	case AnswerText:
		return "text"
	case AnswerContactForm:
		return "contact_form"
	default:
		return "unknown"
	}
}

// Answer is the resolved answer of a topic in one language.
type Answer struct {
	Kind AnswerKind
	Text string
}

// IsContactForm reports whether the answer opens the contact form.
func (a Answer) IsContactForm() bool { return a.Kind == AnswerContactForm }

// KeywordGroup is one phrasing of an intent: every keyword must be covered by
// the input for a full match. Keywords are stored normalized.
type KeywordGroup []string

// Topic is a unit of knowledge. The answer kind lives on the topic rather than
// per language, so a contact-form topic is a contact-form topic in every
// language.
type Topic struct {
	ID        string
	Kind      AnswerKind
	Titles    map[Language]string
	Keywords  map[Language][]KeywordGroup
	Answers   map[Language]string
	FollowUps []string
}

// KeywordGroups returns the keyword groups for lang (nil when none).
func (t *Topic) KeywordGroups(lang Language) []KeywordGroup {
	return t.Keywords[lang]
}

// Answer returns the topic's answer in lang.
func (t *Topic) Answer(lang Language) Answer {
	if t.Kind == AnswerContactForm {
		return Answer{Kind: AnswerContactForm}
	}
	return Answer{Kind: AnswerText, Text: t.Answers[lang]}
}

// Title returns the localized title, falling back to the ID.
func (t *Topic) Title(lang Language) string {
	if title := t.Titles[lang]; title != "" {
		return title
	}
	return t.ID
}

// HasFollowUp reports whether id is listed as a follow-up of t.
func (t *Topic) HasFollowUp(id string) bool {
	for _, f := range t.FollowUps {
		if f == id {
			return true
		}
	}
	return false
}
