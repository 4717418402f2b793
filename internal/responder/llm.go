package responder

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ChatMessage is a provider-neutral chat message.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

type LLMRequest struct {
	Model       string
	System      []string
	Messages    []ChatMessage
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

type LLMResponse struct {
	Text       string
	Usage      TokenUsage
	StopReason string
}

// LLMClient is a chat completion backend (Bedrock, Gemini, OpenAI).
type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}

var systemPrompts = map[string]string{
	"it": "Sei l'assistente di supporto di Sitegen, un servizio che genera siti web con l'intelligenza artificiale. " +
		"Rispondi in italiano, in modo breve e cordiale, solo a domande su Sitegen. " +
		"Se non conosci la risposta, invita l'utente a lasciare i propri recapiti.",
	"en": "You are the support assistant for Sitegen, a service that generates websites with AI. " +
		"Answer in English, briefly and kindly, and only about Sitegen. " +
		"If you don't know the answer, invite the user to leave their contact details.",
}

// LLMOptions tunes completions sent through an LLMResponder.
type LLMOptions struct {
	Model       string
	MaxTokens   int32
	Temperature float32
}

// LLMResponder adapts an LLMClient to the Responder contract, adding a
// language-specific system prompt.
type LLMResponder struct {
	client LLMClient
	opts   LLMOptions
}

func NewLLMResponder(client LLMClient, opts LLMOptions) *LLMResponder {
	if client == nil {
		panic("responder: llm client cannot be nil")
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 400
	}
	return &LLMResponder{client: client, opts: opts}
}

func (r *LLMResponder) Complete(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Message) == "" {
		return "", errors.New("responder: message is required")
	}
	system, ok := systemPrompts[req.Language]
	if !ok {
		system = systemPrompts["en"]
	}

	turns := make([]Turn, 0, len(req.History)+1)
	turns = append(turns, req.History...)
	messages := alternateRoles(append(turns, Turn{Role: RoleUser, Content: req.Message}))

	resp, err := r.client.Complete(ctx, LLMRequest{
		Model:       r.opts.Model,
		System:      []string{system},
		Messages:    messages,
		MaxTokens:   r.opts.MaxTokens,
		Temperature: r.opts.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("responder: llm completion: %w", err)
	}
	if strings.TrimSpace(resp.Text) == "" {
		return "", ErrNoUsableReply
	}
	return resp.Text, nil
}

// alternateRoles shapes history for chat APIs that require the conversation
// to open with a user message and alternate roles from there. Leading
// assistant turns are dropped and consecutive same-role turns are merged.
func alternateRoles(turns []Turn) []ChatMessage {
	messages := make([]ChatMessage, 0, len(turns))
	for _, turn := range turns {
		if (turn.Role != RoleUser && turn.Role != RoleAssistant) || strings.TrimSpace(turn.Content) == "" {
			continue
		}
		if len(messages) == 0 && turn.Role != RoleUser {
			continue
		}
		if last := len(messages) - 1; last >= 0 && messages[last].Role == turn.Role {
			messages[last].Content += "\n\n" + turn.Content
			continue
		}
		messages = append(messages, ChatMessage{Role: turn.Role, Content: turn.Content})
	}
	return messages
}
