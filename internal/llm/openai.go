package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"

	"github.com/chaininsights/validator/internal/config"
)

const completionsPath = "/chat/completions"

type OpenAI struct {
	httpClient *retryablehttp.Client
	baseURL    string
	apiKey     string
	model      string
}

func NewOpenAI(cfg *config.LLMEnvConfig) (*OpenAI, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	if cfg.LLMBaseURL == "" {
		return nil, fmt.Errorf("llm base url is required")
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.HTTPClient.Timeout = cfg.LLMHTTPTimeout
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 10 * time.Second
	client.Logger = nil

	log.Info().
		Str("base_url", cfg.LLMBaseURL).
		Str("model", cfg.LLMModel).
		Int("retry_max", client.RetryMax).
		Str("timeout", client.HTTPClient.Timeout.String()).
		Msg("llm client initialized")

	return &OpenAI{
		httpClient: client,
		baseURL:    strings.TrimRight(cfg.LLMBaseURL, "/"),
		apiKey:     cfg.LLMAPIKey,
		model:      cfg.LLMModel,
	}, nil
}

func (o *OpenAI) complete(ctx context.Context, messages []ChatMessage, maxTokens int) (string, error) {
	body, err := sonic.Marshal(ChatRequest{
		Model:       o.model,
		Messages:    messages,
		Temperature: 0,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+completionsPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read completion body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if sonic.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("completion status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return "", fmt.Errorf("completion status %d: %s", resp.StatusCode, string(raw))
	}

	var out ChatResponse
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("failed to decode completion: %w", err)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message == nil {
		return "", ErrEmptyCompletion
	}

	log.Debug().
		Str("model", out.Model).
		Uint64("total_tokens", out.Usage.TotalTokens).
		Str("finish_reason", out.Choices[0].FinishReason).
		Msg("completion received")

	return out.Choices[0].Message.Content, nil
}

func (o *OpenAI) ValidateQueryByPrompt(ctx context.Context, prompt, query, network string) (bool, error) {
	content, err := o.complete(ctx, validateMessages(prompt, query, network), 4)
	if err != nil {
		return false, err
	}
	return parseVerdict(content), nil
}

func (o *OpenAI) BuildPromptFromTxidAndBlock(ctx context.Context, txid string, block int64, network, template string) (string, error) {
	question := FillTemplate(template, txid, block)
	content, err := o.complete(ctx, buildMessages(question, network), 256)
	if err != nil {
		return "", err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrEmptyCompletion
	}
	return content, nil
}
