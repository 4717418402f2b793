package responder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTimeout bounds a remote call when none is configured.
const DefaultTimeout = 8 * time.Second

// maxReplyBytes caps how much of a response body is read.
const maxReplyBytes = 1 << 20

type httpRequest struct {
	Message  string `json:"message"`
	History  []Turn `json:"history"`
	Language string `json:"language"`
}

type httpResponse struct {
	Reply string `json:"reply"`
	Error string `json:"error,omitempty"`
}

// HTTPClient calls a JSON completion endpoint.
type HTTPClient struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
	tracer   trace.Tracer
}

// NewHTTPClient creates a client for endpoint. A zero timeout uses
// DefaultTimeout; a nil client uses http.DefaultClient.
func NewHTTPClient(endpoint string, timeout time.Duration, client *http.Client) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPClient{
		endpoint: strings.TrimSpace(endpoint),
		timeout:  timeout,
		client:   client,
		tracer:   otel.Tracer("sitegen-supportchat.responder"),
	}
}

// Complete posts the message and history and returns the reply text.
func (c *HTTPClient) Complete(ctx context.Context, req Request) (string, error) {
	ctx, span := c.tracer.Start(ctx, "responder.http.complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("language", req.Language),
		attribute.Int("history.turns", len(req.History)),
	)

	reply, err := c.complete(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "remote completion failed")
		return "", err
	}
	return reply, nil
}

func (c *HTTPClient) complete(ctx context.Context, req Request) (string, error) {
	if c.endpoint == "" {
		return "", errors.New("responder: endpoint is not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	history := req.History
	if history == nil {
		history = []Turn{}
	}
	payload, err := json.Marshal(httpRequest{Message: req.Message, History: history, Language: req.Language})
	if err != nil {
		return "", fmt.Errorf("responder: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("responder: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("responder: call remote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxReplyBytes))
		return "", &StatusError{StatusCode: resp.StatusCode}
	}

	var decoded httpResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxReplyBytes)).Decode(&decoded); err != nil {
		return "", fmt.Errorf("responder: decode response: %w", err)
	}
	if strings.TrimSpace(decoded.Error) != "" {
		return "", fmt.Errorf("%w: remote error: %s", ErrNoUsableReply, decoded.Error)
	}
	if strings.TrimSpace(decoded.Reply) == "" {
		return "", ErrNoUsableReply
	}
	return decoded.Reply, nil
}
