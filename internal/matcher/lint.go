package matcher

import "github.com/wolfman30/sitegen-supportchat/internal/knowledge"

// FunctionWords are words that carry no intent on their own. Because a
// keyword covers any token it prefixes (and vice versa), a keyword group
// that these words fully cover would hijack ordinary sentences.
var FunctionWords = map[knowledge.Language]string{
	knowledge.Italian: "a ai al alla che chi ci ce come con cosa da dal del della di dove e gli ha ho i il in " +
		"la le lo ma me mi mio mia miei ne nel nella non o per piu quando quanto se si sono su sul sulla " +
		"ti tu tuo te un una uno vorrei voglio posso puoi fare ciao questo",
	knowledge.English: "a an and are am as at be can do does for get has have hello help hi how i if im in is it " +
		"me my need of on or please so that the this to us want we what when where with you your",
}

// Collisions returns the topics whose best keyword group in lang is fully
// covered by words.
func (m *Matcher) Collisions(words string, lang knowledge.Language) []TopicScore {
	var out []TopicScore
	for _, s := range m.Explain(words, "", lang).Scores {
		if s.FullMatch {
			out = append(out, s)
		}
	}
	return out
}
