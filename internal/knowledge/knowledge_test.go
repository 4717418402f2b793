package knowledge

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultKnowledgeBaseIsValid(t *testing.T) {
	kb, err := Default()
	require.NoError(t, err)

	assert.Equal(t, Italian, kb.DefaultLanguage())
	assert.Equal(t, []Language{Italian, English}, kb.Languages())
	assert.NotEmpty(t, kb.Version())
	assert.NotEmpty(t, kb.Topics())
}

func TestDefaultKnowledgeBaseFollowUpsResolve(t *testing.T) {
	kb, err := Default()
	require.NoError(t, err)

	for _, topic := range kb.Topics() {
		for _, f := range topic.FollowUps {
			_, ok := kb.Topic(f)
			assert.Truef(t, ok, "topic %s follow-up %s must exist", topic.ID, f)
		}
	}
}

func TestContactTopicIsContactFormInEveryLanguage(t *testing.T) {
	kb, err := Default()
	require.NoError(t, err)

	contact, ok := kb.Topic("contact")
	require.True(t, ok)
	for _, lang := range kb.Languages() {
		answer := contact.Answer(lang)
		assert.True(t, answer.IsContactForm(), lang)
		assert.Empty(t, answer.Text)
	}

	publish, ok := kb.Topic("publish_site")
	require.True(t, ok)
	for _, lang := range kb.Languages() {
		answer := publish.Answer(lang)
		assert.False(t, answer.IsContactForm())
		assert.NotEmpty(t, answer.Text)
	}
}

func TestKeywordsAreNormalizedAtLoad(t *testing.T) {
	kb, err := Load(strings.NewReader(`
version: "1"
default_language: it
languages: [it]
messages:
  it: {welcome: w, fallback: f, contact_prompt: p, contact_confirmation: c, placeholder: "-"}
topics:
  - id: perche
    it:
      title: Perché
      keywords:
        - ["Perché", "Così Caro"]
      answer: a
`))
	require.NoError(t, err)

	topic, ok := kb.Topic("perche")
	require.True(t, ok)
	assert.Equal(t, []KeywordGroup{{"perche", "cosi", "caro"}}, topic.KeywordGroups(Italian))
}

func TestValidateCollectsAllIssues(t *testing.T) {
	_, err := Load(strings.NewReader(`
version: "1"
default_language: fr
languages: [it]
categories: [missing]
messages:
  it: {welcome: w, fallback: f, contact_prompt: p, contact_confirmation: c, placeholder: "-"}
topics:
  - id: a
    follow_ups: [ghost]
    it:
      title: A
      keywords: [["!!!"]]
      answer: x
  - id: a
    it:
      title: A2
      keywords: [[a]]
      answer: y
  - id: form
    answer_kind: contact_form
    it:
      title: Form
      keywords: [[form]]
      answer: should not be here
menus:
  - id: main
    actions:
      - {id: go, kind: topic, target: nowhere, label: {it: Vai}}
      - {id: sub, kind: menu, target: nomenu, label: {it: Sub}}
`))
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	joined := strings.Join(verr.Issues, "\n")
	for _, want := range []string{
		`default language "fr"`,
		`category "missing"`,
		`topic "a" declared more than once`,
		`follow-up "ghost" does not exist`,
		`normalizes to nothing`,
		`"form" opens the contact form`,
		`targets unknown topic "nowhere"`,
		`targets unknown menu "nomenu"`,
	} {
		assert.Contains(t, joined, want)
	}
}

func TestValidateRejectsMissingLocalization(t *testing.T) {
	_, err := Load(strings.NewReader(`
version: "1"
default_language: it
languages: [it, en]
messages:
  it: {welcome: w, fallback: f, contact_prompt: p, contact_confirmation: c, placeholder: "-"}
  en: {welcome: w, fallback: f, contact_prompt: p, contact_confirmation: c, placeholder: "-"}
topics:
  - id: only_it
    it:
      title: Solo
      keywords: [[solo]]
      answer: si
`))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, strings.Join(verr.Issues, "\n"), `topic "only_it" has no keywords for "en"`)
}

func TestValidateReportsEveryEmptyMessage(t *testing.T) {
	_, err := Load(strings.NewReader(`
version: "1"
default_language: it
languages: [it]
messages:
  it: {welcome: w, contact_confirmation: c}
topics:
  - id: solo
    it:
      title: Solo
      keywords: [[solo]]
      answer: si
`))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{
		"messages.it.fallback is empty",
		"messages.it.contact_prompt is empty",
		"messages.it.placeholder is empty",
	}, verr.Issues)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := Load(strings.NewReader("version: \"1\"\nbogus: true\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "knowledge: decode")
}

func TestResolveLanguage(t *testing.T) {
	kb, err := Default()
	require.NoError(t, err)

	assert.Equal(t, English, kb.ResolveLanguage("en"))
	assert.Equal(t, English, kb.ResolveLanguage("EN-us"))
	assert.Equal(t, Italian, kb.ResolveLanguage("it_IT"))
	assert.Equal(t, Italian, kb.ResolveLanguage("de"))
	assert.Equal(t, Italian, kb.ResolveLanguage(""))
}

func TestWithDefaultLanguage(t *testing.T) {
	kb, err := Default()
	require.NoError(t, err)

	en, err := kb.WithDefaultLanguage(English)
	require.NoError(t, err)
	assert.Equal(t, English, en.ResolveLanguage("de"))
	assert.Equal(t, Italian, kb.ResolveLanguage("de"), "original is unchanged")

	_, err = kb.WithDefaultLanguage(Language("fr"))
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
}

func TestFallbackMessageListsCategories(t *testing.T) {
	kb, err := Default()
	require.NoError(t, err)

	msg := kb.FallbackMessage(English)
	assert.True(t, strings.HasPrefix(msg, kb.Messages(English).Fallback))
	for _, id := range kb.Categories() {
		topic, _ := kb.Topic(id)
		assert.Contains(t, msg, "• "+topic.Title(English))
	}
}

func TestMenusAndQuickActions(t *testing.T) {
	kb, err := Default()
	require.NoError(t, err)

	main, ok := kb.Menu(MainMenu)
	require.True(t, ok)
	require.NotEmpty(t, main.Actions)

	problems, ok := kb.QuickAction("problems")
	require.True(t, ok)
	assert.Equal(t, ActionMenu, problems.Kind)
	assert.Equal(t, "problems", problems.Target)

	back, ok := kb.QuickAction("back")
	require.True(t, ok)
	assert.Equal(t, MainMenu, back.Target)
	assert.Equal(t, "Indietro", back.Label(Italian))

	_, ok = kb.QuickAction("nope")
	assert.False(t, ok)
}

func TestLoadSourceFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.yaml")
	require.NoError(t, os.WriteFile(path, defaultDocument, 0o600))

	kb, err := LoadSource(context.Background(), "file:"+path, nil)
	require.NoError(t, err)
	_, ok := kb.Topic("create_site")
	assert.True(t, ok)

	_, err = LoadSource(context.Background(), "file:"+filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

type fakeObjects struct {
	bucket, key string
	body        []byte
	err         error
}

func (f *fakeObjects) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.bucket, f.key = *in.Bucket, *in.Key
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(f.body))}, nil
}

func TestLoadSourceS3(t *testing.T) {
	objects := &fakeObjects{body: defaultDocument}

	kb, err := LoadSource(context.Background(), "s3://kb-bucket/chat/kb.yaml", objects)
	require.NoError(t, err)
	assert.Equal(t, "kb-bucket", objects.bucket)
	assert.Equal(t, "chat/kb.yaml", objects.key)
	assert.NotEmpty(t, kb.Topics())

	_, err = LoadSource(context.Background(), "s3://no-key", objects)
	assert.Error(t, err)

	_, err = LoadSource(context.Background(), "s3://b/k", nil)
	assert.Error(t, err)

	objects.err = errors.New("access denied")
	_, err = LoadSource(context.Background(), "s3://b/k", objects)
	assert.ErrorContains(t, err, "access denied")
}
