package webchat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/sitegen-supportchat/internal/conversation"
	"github.com/wolfman30/sitegen-supportchat/internal/knowledge"
	"github.com/wolfman30/sitegen-supportchat/internal/leads"
	"github.com/wolfman30/sitegen-supportchat/pkg/logging"
)

type recordingDispatcher struct {
	mu   sync.Mutex
	reqs []leads.ContactRequest
}

func (d *recordingDispatcher) Dispatch(_ context.Context, req leads.ContactRequest, _ knowledge.Language) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reqs = append(d.reqs, req)
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.reqs)
}

type testEnv struct {
	handler    *Handler
	registry   *Registry
	dispatcher *recordingDispatcher
	server     http.Handler
}

func newTestEnv(t *testing.T, transcript TranscriptStore) *testEnv {
	t.Helper()
	kb, err := knowledge.Default()
	require.NoError(t, err)
	dispatcher := &recordingDispatcher{}
	controller := conversation.NewController(conversation.Config{
		KnowledgeBase: kb,
		Leads:         dispatcher,
		Logger:        logging.New("error"),
	})
	registry := NewRegistry(controller)
	h := NewHandler(controller, registry, transcript, logging.New("error"))
	return &testEnv{handler: h, registry: registry, dispatcher: dispatcher, server: h.Routes()}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.server.ServeHTTP(w, req)
	return w
}

func decodeTurn(t *testing.T, w *httptest.ResponseRecorder) TurnResponse {
	t.Helper()
	var resp TurnResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func (e *testEnv) createSession(t *testing.T, lang string) TurnResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/sessions", `{"language":"`+lang+`"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeTurn(t, w)
}

func TestCreateSessionReturnsWelcomeAndMainMenu(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.createSession(t, "en")
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, knowledge.English, resp.Language)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, conversation.KindWelcome, resp.Messages[0].Kind)
	assert.Equal(t, knowledge.MainMenu, resp.Menu)
	require.NotEmpty(t, resp.Actions)
	assert.Equal(t, "Create a website", resp.Actions[0].Label)
	assert.Equal(t, 1, env.registry.Len())
}

func TestCreateSessionWithoutBodyUsesDefaultLanguage(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodPost, "/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, knowledge.Italian, decodeTurn(t, w).Language)
}

func TestSubmitMessageAnswersLocally(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.createSession(t, "it").SessionID

	w := env.do(t, http.MethodPost, "/sessions/"+id+"/messages", `{"text":"Come creo un sito?"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeTurn(t, w)
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "create_site", resp.Messages[1].TopicID)
	assert.Equal(t, "create_site", resp.LastTopicID)

	w = env.do(t, http.MethodGet, "/sessions/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	var snap conversation.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Len(t, snap.Messages, 3)
	assert.Equal(t, conversation.StateAwaitingInput, snap.State)
}

func TestActionsNavigateMenus(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.createSession(t, "it").SessionID

	w := env.do(t, http.MethodPost, "/sessions/"+id+"/actions", `{"action":"problems"}`)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeTurn(t, w)
	assert.Empty(t, resp.Messages)
	assert.Equal(t, "problems", resp.Menu)
	ids := make([]string, 0, len(resp.Actions))
	for _, a := range resp.Actions {
		ids = append(ids, a.ID)
	}
	assert.Contains(t, ids, "back")

	w = env.do(t, http.MethodPost, "/sessions/"+id+"/actions", `{"action":"does_not_exist"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/sessions/"+id+"/actions", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestContactFlowStatusCodes(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.createSession(t, "en").SessionID

	w := env.do(t, http.MethodPost, "/sessions/"+id+"/contact", `{"contact":"a@example.com"}`)
	assert.Equal(t, http.StatusConflict, w.Code, "form is not open yet")

	w = env.do(t, http.MethodPost, "/sessions/"+id+"/actions", `{"action":"contact"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeTurn(t, w).ContactFormOpen)

	w = env.do(t, http.MethodPost, "/sessions/"+id+"/contact", `{"name":"Ann","contact":"  "}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.JSONEq(t, `{"error":"contact is required"}`, w.Body.String())

	w = env.do(t, http.MethodPost, "/sessions/"+id+"/contact", `{"name":"Ann","contact":"ann@example.com"}`)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeTurn(t, w)
	assert.False(t, resp.ContactFormOpen)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, conversation.KindContactConfirmation, resp.Messages[0].Kind)
	assert.Equal(t, 1, env.dispatcher.count())
}

func TestCancelContact(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.createSession(t, "en").SessionID
	env.do(t, http.MethodPost, "/sessions/"+id+"/actions", `{"action":"contact"}`)

	w := env.do(t, http.MethodDelete, "/sessions/"+id+"/contact", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decodeTurn(t, w).ContactFormOpen)
	assert.Equal(t, 0, env.dispatcher.count())
}

func TestUnknownAndClosedSessions(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/sessions/nope/messages", `{"text":"hi"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	id := env.createSession(t, "it").SessionID
	w = env.do(t, http.MethodDelete, "/sessions/"+id, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, env.registry.Len())

	w = env.do(t, http.MethodDelete, "/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.do(t, http.MethodGet, "/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBadJSONIsRejected(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.createSession(t, "it").SessionID
	w := env.do(t, http.MethodPost, "/sessions/"+id+"/messages", `{"text":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistoryFromRegistry(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.createSession(t, "it").SessionID
	env.do(t, http.MethodPost, "/sessions/"+id+"/messages", `{"text":"Come creo un sito?"}`)

	w := env.do(t, http.MethodGet, "/sessions/"+id+"/history?limit=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Messages []conversation.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Messages, 2)
	assert.Equal(t, conversation.SenderUser, body.Messages[0].Sender)
}

func TestHistoryFromTranscriptSurvivesClose(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	env := newTestEnv(t, NewRedisTranscriptStore(client, time.Hour))
	id := env.createSession(t, "en").SessionID
	env.do(t, http.MethodPost, "/sessions/"+id+"/messages", `{"text":"how much does it cost"}`)
	env.do(t, http.MethodDelete, "/sessions/"+id, "")

	w := env.do(t, http.MethodGet, "/sessions/"+id+"/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Messages []conversation.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Messages, 3)
	assert.Equal(t, conversation.KindWelcome, body.Messages[0].Kind)
	assert.Equal(t, "pricing", body.Messages[2].TopicID)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{conversation.ErrSessionClosed, http.StatusNotFound},
		{conversation.ErrTurnInProgress, http.StatusConflict},
		{conversation.ErrFormNotOpen, http.StatusConflict},
		{leads.ErrMissingContact, http.StatusUnprocessableEntity},
		{knowledge.ErrUnknownAction, http.StatusBadRequest},
		{context.Canceled, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		got, msg := statusFor(tc.err)
		assert.Equal(t, tc.want, got, tc.err.Error())
		assert.NotContains(t, msg, tc.err.Error())
	}
}
