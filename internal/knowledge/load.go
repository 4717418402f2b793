package knowledge

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wolfman30/sitegen-supportchat/internal/textnorm"
)

//go:embed default.yaml
var defaultDocument []byte

type document struct {
	Version         string                 `yaml:"version"`
	DefaultLanguage string                 `yaml:"default_language"`
	Languages       []string               `yaml:"languages"`
	Categories      []string               `yaml:"categories"`
	Messages        map[string]messagesDoc `yaml:"messages"`
	Topics          []topicDoc             `yaml:"topics"`
	Menus           []menuDoc              `yaml:"menus"`
}

type messagesDoc struct {
	Welcome             string            `yaml:"welcome"`
	Fallback            string            `yaml:"fallback"`
	ContactPrompt       string            `yaml:"contact_prompt"`
	ContactConfirmation string            `yaml:"contact_confirmation"`
	Placeholder         string            `yaml:"placeholder"`
	LeadSubject         string            `yaml:"lead_subject"`
	LeadLabels          map[string]string `yaml:"lead_labels"`
}

type topicDoc struct {
	ID         string                  `yaml:"id"`
	AnswerKind string                  `yaml:"answer_kind"`
	FollowUps  []string                `yaml:"follow_ups"`
	Localized  map[string]topicTextDoc `yaml:",inline"`
}

type topicTextDoc struct {
	Title    string     `yaml:"title"`
	Keywords [][]string `yaml:"keywords"`
	Answer   string     `yaml:"answer"`
}

type menuDoc struct {
	ID      string      `yaml:"id"`
	Actions []actionDoc `yaml:"actions"`
}

type actionDoc struct {
	ID     string            `yaml:"id"`
	Kind   string            `yaml:"kind"`
	Target string            `yaml:"target"`
	Label  map[string]string `yaml:"label"`
}

// Default returns the knowledge base embedded in the binary.
func Default() (*KnowledgeBase, error) {
	return Load(bytes.NewReader(defaultDocument))
}

// LoadFile reads and validates a YAML knowledge base from disk.
func LoadFile(path string) (*KnowledgeBase, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("knowledge: open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes a YAML knowledge base, normalizes its keywords, and validates
// it. An invalid document yields a *ValidationError.
func Load(r io.Reader) (*KnowledgeBase, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("knowledge: decode: %w", err)
	}
	kb := build(doc)
	if err := kb.Validate(); err != nil {
		return nil, err
	}
	return kb, nil
}

func build(doc document) *KnowledgeBase {
	kb := &KnowledgeBase{
		version:         strings.TrimSpace(doc.Version),
		defaultLanguage: ParseLanguage(doc.DefaultLanguage),
		categories:      doc.Categories,
		index:           make(map[string]*Topic, len(doc.Topics)),
		menus:           make(map[string]Menu, len(doc.Menus)),
		actions:         make(map[string]QuickAction),
		messages:        make(map[Language]Messages, len(doc.Messages)),
	}
	for _, raw := range doc.Languages {
		kb.languages = append(kb.languages, ParseLanguage(raw))
	}

	for code, m := range doc.Messages {
		kb.messages[ParseLanguage(code)] = Messages{
			Welcome:             strings.TrimSpace(m.Welcome),
			Fallback:            strings.TrimSpace(m.Fallback),
			ContactPrompt:       strings.TrimSpace(m.ContactPrompt),
			ContactConfirmation: strings.TrimSpace(m.ContactConfirmation),
			Placeholder:         strings.TrimSpace(m.Placeholder),
			LeadSubject:         strings.TrimSpace(m.LeadSubject),
			LeadLabels: LeadLabels{
				Name:     m.LeadLabels["name"],
				Contact:  m.LeadLabels["contact"],
				Message:  m.LeadLabels["message"],
				Language: m.LeadLabels["language"],
			},
		}
	}

	for _, td := range doc.Topics {
		t := &Topic{
			ID:        strings.TrimSpace(td.ID),
			Kind:      parseAnswerKind(td.AnswerKind),
			Titles:    make(map[Language]string, len(td.Localized)),
			Keywords:  make(map[Language][]KeywordGroup, len(td.Localized)),
			Answers:   make(map[Language]string, len(td.Localized)),
			FollowUps: td.FollowUps,
		}
		for code, text := range td.Localized {
			lang := ParseLanguage(code)
			t.Titles[lang] = strings.TrimSpace(text.Title)
			t.Answers[lang] = strings.TrimSpace(text.Answer)
			for _, group := range text.Keywords {
				t.Keywords[lang] = append(t.Keywords[lang], normalizeGroup(group))
			}
		}
		kb.topics = append(kb.topics, t)
		if _, dup := kb.index[t.ID]; !dup {
			kb.index[t.ID] = t
		}
	}

	for _, md := range doc.Menus {
		menu := Menu{ID: md.ID}
		for _, ad := range md.Actions {
			a := QuickAction{
				ID:     ad.ID,
				Kind:   ActionKind(strings.ToLower(strings.TrimSpace(ad.Kind))),
				Target: ad.Target,
				Labels: make(map[Language]string, len(ad.Label)),
			}
			for code, label := range ad.Label {
				a.Labels[ParseLanguage(code)] = label
			}
			menu.Actions = append(menu.Actions, a)
			if _, dup := kb.actions[a.ID]; !dup {
				kb.actions[a.ID] = a
			}
		}
		kb.menus[md.ID] = menu
	}
	return kb
}

// normalizeGroup applies the input normalizer to keywords so they compare
// against normalized tokens. A multi-word keyword becomes several keywords.
// Keywords that normalize to nothing are kept as "" so validation can flag
// them.
func normalizeGroup(group []string) KeywordGroup {
	out := make(KeywordGroup, 0, len(group))
	for _, kw := range group {
		tokens := textnorm.Tokens(kw)
		if len(tokens) == 0 {
			out = append(out, "")
			continue
		}
		out = append(out, tokens...)
	}
	return out
}

func parseAnswerKind(raw string) AnswerKind {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "text":
		return AnswerText
	case "contact_form":
		return AnswerContactForm
	default:
		return AnswerKind(-1)
	}
}
