// Package responder talks to the remote AI completion service that answers
// free-text questions before the chat falls back to local matching.
package responder

import (
	"context"
	"errors"
	"fmt"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	// ErrNoUsableReply means the call completed but produced nothing to show.
	ErrNoUsableReply = errors.New("responder: no usable reply")
	// ErrDisabled is returned by the no-op responder.
	ErrDisabled = errors.New("responder: disabled")
)

// StatusError reports a non-2xx response from the remote endpoint.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("responder: remote returned status %d", e.StatusCode)
}

// Turn is one prior message of the conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a completion request for one user message.
type Request struct {
	Message  string
	History  []Turn
	Language string
}

// Responder produces a reply to a user message. Any error means the caller
// should answer locally.
type Responder interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Disabled always fails, so every turn resolves locally.
type Disabled struct{}

func (Disabled) Complete(context.Context, Request) (string, error) {
	return "", ErrDisabled
}
