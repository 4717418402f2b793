package webchat

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/sitegen-supportchat/internal/conversation"
)

func newTranscript(t *testing.T) (*RedisTranscriptStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisTranscriptStore(client, time.Hour), mr
}

func TestRedisTranscriptStore_AppendAndList(t *testing.T) {
	store, mr := newTranscript(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "s1",
		conversation.Message{ID: "m1", Text: "Ciao!", Sender: conversation.SenderBot, Kind: conversation.KindWelcome},
		conversation.Message{ID: "m2", Text: "prezzi?", Sender: conversation.SenderUser, Kind: conversation.KindUserText},
	))
	require.NoError(t, store.Append(ctx, "s1",
		conversation.Message{ID: "m3", Text: "Tre piani", Sender: conversation.SenderBot, Kind: conversation.KindAnswer, TopicID: "pricing"},
	))

	all, err := store.List(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "m1", all[0].ID)
	assert.Equal(t, "pricing", all[2].TopicID)

	last, err := store.List(ctx, "s1", 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "m2", last[0].ID)

	assert.Equal(t, time.Hour, mr.TTL("webchat:transcript:s1"))
}

func TestRedisTranscriptStore_CapsLength(t *testing.T) {
	store, _ := newTranscript(t)
	store.maxMessages = 3
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, "s1", conversation.Message{ID: fmt.Sprintf("m%d", i)}))
	}
	msgs, err := store.List(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "m2", msgs[0].ID)
	assert.Equal(t, "m4", msgs[2].ID)
}

func TestRedisTranscriptStore_SkipsCorruptEntries(t *testing.T) {
	store, mr := newTranscript(t)
	_, err := mr.RPush("webchat:transcript:s1", "{not json", `{"id":"ok","text":"hi"}`)
	require.NoError(t, err)

	msgs, err := store.List(context.Background(), "s1", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "ok", msgs[0].ID)
}

func TestRedisTranscriptStore_NilAndValidation(t *testing.T) {
	assert.Nil(t, NewRedisTranscriptStore(nil, 0))

	var store *RedisTranscriptStore
	require.NoError(t, store.Append(context.Background(), "s1", conversation.Message{}))
	msgs, err := store.List(context.Background(), "s1", 0)
	require.NoError(t, err)
	assert.Nil(t, msgs)

	live, _ := newTranscript(t)
	assert.Error(t, live.Append(context.Background(), "", conversation.Message{}))
	_, err = live.List(context.Background(), "", 0)
	assert.Error(t, err)

	empty, err := live.List(context.Background(), "missing", 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
