package webchat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/sitegen-supportchat/internal/conversation"
)

const (
	transcriptKeyPrefix = "webchat:transcript:"

	// DefaultTranscriptTTL is how long a transcript survives after its last write.
	DefaultTranscriptTTL = 24 * time.Hour
)

// TranscriptStore mirrors session messages so history can be replayed when a
// widget reconnects.
type TranscriptStore interface {
	Append(ctx context.Context, sessionID string, msgs ...conversation.Message) error
	List(ctx context.Context, sessionID string, limit int64) ([]conversation.Message, error)
}

// RedisTranscriptStore keeps each session's transcript in a capped Redis list.
type RedisTranscriptStore struct {
	redis       *redis.Client
	tracer      trace.Tracer
	ttl         time.Duration
	maxMessages int64
}

// NewRedisTranscriptStore returns nil when no client is configured.
func NewRedisTranscriptStore(redisClient *redis.Client, ttl time.Duration) *RedisTranscriptStore {
	if redisClient == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultTranscriptTTL
	}
	return &RedisTranscriptStore{
		redis:       redisClient,
		tracer:      otel.Tracer("sitegen.internal.webchat.transcript"),
		ttl:         ttl,
		maxMessages: 250,
	}
}

func (s *RedisTranscriptStore) Append(ctx context.Context, sessionID string, msgs ...conversation.Message) error {
	if s == nil || s.redis == nil || len(msgs) == 0 {
		return nil
	}
	if sessionID == "" {
		return errors.New("webchat: transcript session id required")
	}

	values := make([]any, 0, len(msgs))
	for _, msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("webchat: marshal transcript message: %w", err)
		}
		values = append(values, data)
	}

	ctx, span := s.tracer.Start(ctx, "webchat.transcript.append")
	defer span.End()

	key := transcriptKey(sessionID)
	pipe := s.redis.TxPipeline()
	pipe.RPush(ctx, key, values...)
	pipe.Expire(ctx, key, s.ttl)
	if s.maxMessages > 0 {
		pipe.LTrim(ctx, key, -s.maxMessages, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("webchat: append transcript: %w", err)
	}
	return nil
}

// List returns the last limit messages, oldest first. A limit of zero returns
// the whole transcript.
func (s *RedisTranscriptStore) List(ctx context.Context, sessionID string, limit int64) ([]conversation.Message, error) {
	if s == nil || s.redis == nil {
		return nil, nil
	}
	if sessionID == "" {
		return nil, errors.New("webchat: transcript session id required")
	}

	ctx, span := s.tracer.Start(ctx, "webchat.transcript.list")
	defer span.End()

	start := int64(0)
	if limit > 0 {
		start = -limit
	}
	raw, err := s.redis.LRange(ctx, transcriptKey(sessionID), start, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []conversation.Message{}, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("webchat: list transcript: %w", err)
	}

	out := make([]conversation.Message, 0, len(raw))
	for _, item := range raw {
		var msg conversation.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			span.RecordError(err)
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

func transcriptKey(sessionID string) string {
	return transcriptKeyPrefix + sessionID
}
