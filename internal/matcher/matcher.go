// Package matcher scores normalized user input against the knowledge base and
// picks the best topic, if any clears the confidence floor.
package matcher

import (
	"strings"

	"github.com/wolfman30/sitegen-supportchat/internal/knowledge"
	"github.com/wolfman30/sitegen-supportchat/internal/textnorm"
)

const (
	// MinScore is the confidence floor: a topic must reach it to match.
	MinScore = 1
	// ContextBonus is added to a topic listed as a follow-up of the previous
	// topic. It is a tie-breaker, never enough to beat a full group match.
	ContextBonus = 1
	// fullMatchWeight multiplies the group size for a fully covered group so
	// that any full match beats any partial one.
	fullMatchWeight = 3
)

// Matcher resolves free text to topics. It holds no mutable state and is safe
// for concurrent use.
type Matcher struct {
	kb *knowledge.KnowledgeBase
}

// New returns a Matcher over kb.
func New(kb *knowledge.KnowledgeBase) *Matcher {
	return &Matcher{kb: kb}
}

// TopicScore is the scoring breakdown for one topic.
type TopicScore struct {
	TopicID   string                 `json:"topic_id"`
	Base      int                    `json:"base"`
	Bonus     int                    `json:"bonus"`
	Total     int                    `json:"total"`
	BestGroup knowledge.KeywordGroup `json:"best_group,omitempty"`
	FullMatch bool                   `json:"full_match"`
}

// Explanation describes how an input was scored.
type Explanation struct {
	Input    string       `json:"input"`
	Tokens   []string     `json:"tokens"`
	Language string       `json:"language"`
	Selected string       `json:"selected,omitempty"`
	Scores   []TopicScore `json:"scores"`
}

// FindBestMatch returns the highest-scoring topic for raw in lang, giving a
// small bonus to follow-ups of lastTopicID. Ties keep the topic that appears
// first in the knowledge base. ok is false when no topic reaches MinScore.
func (m *Matcher) FindBestMatch(raw, lastTopicID string, lang knowledge.Language) (*knowledge.Topic, bool) {
	tokens := textnorm.Tokens(raw)
	last, _ := m.kb.Topic(lastTopicID)

	var best *knowledge.Topic
	bestScore := 0
	for _, topic := range m.kb.Topics() {
		score, _, _ := scoreTopic(topic.KeywordGroups(lang), tokens)
		if last != nil && last.HasFollowUp(topic.ID) {
			score += ContextBonus
		}
		if score > bestScore {
			best, bestScore = topic, score
		}
	}
	if best == nil || bestScore < MinScore {
		return nil, false
	}
	return best, true
}

// Explain scores every topic and reports the breakdown along with the topic
// FindBestMatch would select.
func (m *Matcher) Explain(raw, lastTopicID string, lang knowledge.Language) Explanation {
	tokens := textnorm.Tokens(raw)
	last, _ := m.kb.Topic(lastTopicID)

	exp := Explanation{Input: raw, Tokens: tokens, Language: string(lang)}
	bestScore := 0
	for _, topic := range m.kb.Topics() {
		base, group, full := scoreTopic(topic.KeywordGroups(lang), tokens)
		ts := TopicScore{TopicID: topic.ID, Base: base, BestGroup: group, FullMatch: full}
		if last != nil && last.HasFollowUp(topic.ID) {
			ts.Bonus = ContextBonus
		}
		ts.Total = ts.Base + ts.Bonus
		if ts.Total > bestScore && ts.Total >= MinScore {
			exp.Selected, bestScore = topic.ID, ts.Total
		}
		exp.Scores = append(exp.Scores, ts)
	}
	return exp
}

// scoreTopic returns the best group score of a topic, the group that earned
// it, and whether that group was fully covered.
func scoreTopic(groups []knowledge.KeywordGroup, tokens []string) (int, knowledge.KeywordGroup, bool) {
	best, bestFull := 0, false
	var bestGroup knowledge.KeywordGroup
	for _, g := range groups {
		score, full := scoreGroup(g, tokens)
		if score > best {
			best, bestGroup, bestFull = score, g, full
		}
	}
	return best, bestGroup, bestFull
}

// scoreGroup scores one keyword group: a fully covered group earns
// 3*len(group)+covered, a partial one earns covered.
func scoreGroup(group knowledge.KeywordGroup, tokens []string) (int, bool) {
	if len(group) == 0 {
		return 0, false
	}
	covered := 0
	for _, kw := range group {
		if coveredBy(kw, tokens) {
			covered++
		}
	}
	if covered == len(group) {
		return fullMatchWeight*len(group) + covered, true
	}
	return covered, false
}

// coveredBy reports whether some token covers kw: equal, or either is a
// prefix of the other.
func coveredBy(kw string, tokens []string) bool {
	if kw == "" {
		return false
	}
	for _, tok := range tokens {
		if strings.HasPrefix(kw, tok) || strings.HasPrefix(tok, kw) {
			return true
		}
	}
	return false
}
