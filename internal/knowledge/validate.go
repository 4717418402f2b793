package knowledge

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// ValidationError lists every problem found in a knowledge base.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("knowledge: invalid knowledge base: %s", strings.Join(e.Issues, "; "))
}

// Validate checks the structural invariants of the knowledge base: unique
// topic IDs, resolvable follow-ups and categories, complete localization of
// every topic, and well-formed menus.
func (kb *KnowledgeBase) Validate() error {
	var issues []string
	addf := func(format string, args ...any) {
		issues = append(issues, fmt.Sprintf(format, args...))
	}

	if len(kb.languages) == 0 {
		addf("no languages declared")
	}
	if !kb.Supports(kb.defaultLanguage) {
		addf("default language %q is not a declared language", kb.defaultLanguage)
	}
	for _, lang := range lo.FindDuplicates(kb.languages) {
		addf("language %q declared twice", lang)
	}

	for _, lang := range kb.languages {
		m, ok := kb.messages[lang]
		if !ok {
			addf("messages missing for language %q", lang)
			continue
		}
		fields := []struct{ name, value string }{
			{"welcome", m.Welcome},
			{"fallback", m.Fallback},
			{"contact_prompt", m.ContactPrompt},
			{"contact_confirmation", m.ContactConfirmation},
			{"placeholder", m.Placeholder},
		}
		for _, f := range fields {
			if f.value == "" {
				addf("messages.%s.%s is empty", lang, f.name)
			}
		}
	}

	ids := lo.Map(kb.topics, func(t *Topic, _ int) string { return t.ID })
	for _, id := range lo.FindDuplicates(ids) {
		addf("topic %q declared more than once", id)
	}
	for i, t := range kb.topics {
		if t.ID == "" {
			addf("topic #%d has no id", i)
			continue
		}
		if t.Kind != AnswerText && t.Kind != AnswerContactForm {
			addf("topic %q has an unknown answer_kind", t.ID)
		}
		for _, lang := range kb.languages {
			groups := t.Keywords[lang]
			if len(groups) == 0 {
				addf("topic %q has no keywords for %q", t.ID, lang)
			}
			for gi, g := range groups {
				if len(g) == 0 {
					addf("topic %q keyword group %s#%d is empty", t.ID, lang, gi)
				}
				if lo.Contains(g, "") {
					addf("topic %q keyword group %s#%d has a keyword that normalizes to nothing", t.ID, lang, gi)
				}
			}
			if t.Titles[lang] == "" {
				addf("topic %q has no title for %q", t.ID, lang)
			}
			if t.Kind == AnswerText && t.Answers[lang] == "" {
				addf("topic %q has no answer for %q", t.ID, lang)
			}
			if t.Kind == AnswerContactForm && t.Answers[lang] != "" {
				addf("topic %q opens the contact form and must not carry answer text", t.ID)
			}
		}
		for lang := range t.Keywords {
			if !kb.Supports(lang) {
				addf("topic %q has content for undeclared language %q", t.ID, lang)
			}
		}
		for _, f := range t.FollowUps {
			if _, ok := kb.index[f]; !ok {
				addf("topic %q follow-up %q does not exist", t.ID, f)
			}
			if f == t.ID {
				addf("topic %q lists itself as a follow-up", t.ID)
			}
		}
	}

	for _, c := range kb.categories {
		if _, ok := kb.index[c]; !ok {
			addf("category %q does not name a topic", c)
		}
	}

	if _, ok := kb.menus[MainMenu]; !ok && len(kb.menus) > 0 {
		addf("menus declared without a %q menu", MainMenu)
	}
	var actionIDs []string
	for _, m := range kb.menus {
		for _, a := range m.Actions {
			actionIDs = append(actionIDs, a.ID)
			switch a.Kind {
			case ActionTopic:
				if _, ok := kb.index[a.Target]; !ok {
					addf("quick action %q targets unknown topic %q", a.ID, a.Target)
				}
			case ActionMenu:
				if _, ok := kb.menus[a.Target]; !ok {
					addf("quick action %q targets unknown menu %q", a.ID, a.Target)
				}
			default:
				addf("quick action %q has unknown kind %q", a.ID, a.Kind)
			}
			for _, lang := range kb.languages {
				if a.Labels[lang] == "" {
					addf("quick action %q has no label for %q", a.ID, lang)
				}
			}
		}
	}
	for _, id := range lo.FindDuplicates(actionIDs) {
		addf("quick action %q declared more than once", id)
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}
