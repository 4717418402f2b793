package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/wolfman30/sitegen-supportchat/internal/config"
	"github.com/wolfman30/sitegen-supportchat/internal/observability/metrics"
	"github.com/wolfman30/sitegen-supportchat/internal/responder"
	"github.com/wolfman30/sitegen-supportchat/pkg/logging"
)

const providerNone = "none"

// BuildResponder wires the remote responder chain from config. It returns nil
// when no provider is configured, in which case every turn answers locally.
// Each provider is instrumented, and a whole turn, fallback included, is
// bounded by RESPONDER_TIMEOUT.
func BuildResponder(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, m *metrics.ChatMetrics, logger *logging.Logger) (responder.Responder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	primary, err := buildProvider(ctx, cfg.ResponderProvider, cfg, awsCfg, m)
	if err != nil {
		return nil, err
	}
	if primary == nil {
		logger.Info("remote responder disabled; answering from the knowledge base only")
		return nil, nil
	}

	secondaryName := cfg.ResponderFallbackProvider
	if secondaryName == cfg.ResponderProvider {
		secondaryName = providerNone
	}
	secondary, err := buildProvider(ctx, secondaryName, cfg, awsCfg, m)
	if err != nil {
		return nil, err
	}

	logger.Info("remote responder enabled",
		"provider", cfg.ResponderProvider,
		"fallback_provider", secondaryName,
		"timeout", cfg.ResponderTimeout.String(),
	)
	if secondary == nil {
		return primary, nil
	}
	return responder.NewFallback(primary, secondary, logger.Logger, responder.WithOverallTimeout(cfg.ResponderTimeout)), nil
}

func buildProvider(ctx context.Context, name string, cfg *appconfig.Config, awsCfg aws.Config, m *metrics.ChatMetrics) (responder.Responder, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	llmOpts := responder.LLMOptions{MaxTokens: int32(cfg.ResponderMaxTokens)}

	var r responder.Responder
	switch name {
	case "", providerNone:
		return nil, nil
	case "http":
		if strings.TrimSpace(cfg.ResponderURL) == "" {
			return nil, fmt.Errorf("bootstrap: RESPONDER_URL is required for the http responder")
		}
		r = responder.NewHTTPClient(cfg.ResponderURL, cfg.ResponderTimeout, nil)
	case "bedrock":
		if strings.TrimSpace(cfg.BedrockModelID) == "" {
			return nil, fmt.Errorf("bootstrap: BEDROCK_MODEL_ID is required for the bedrock responder")
		}
		llmOpts.Model = cfg.BedrockModelID
		r = responder.NewLLMResponder(responder.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg)), llmOpts)
	case "gemini":
		client, err := responder.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: gemini responder: %w", err)
		}
		llmOpts.Model = cfg.GeminiModelID
		r = responder.NewLLMResponder(client, llmOpts)
	case "openai":
		client, err := responder.NewOpenAILLMClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: openai responder: %w", err)
		}
		llmOpts.Model = cfg.OpenAIModel
		r = responder.NewLLMResponder(client, llmOpts)
	default:
		return nil, fmt.Errorf("bootstrap: unknown responder provider %q", name)
	}
	return responder.Instrument(r, name, cfg.ResponderTimeout, m), nil
}
