// Package llm wraps the language model used to judge miner queries and to
// phrase validation prompts.
package llm

import (
	"context"
	"errors"
)

var (
	ErrUnknownBackend  = errors.New("unknown llm backend")
	ErrEmptyCompletion = errors.New("llm returned no completion")
)

type LLMInterface interface {
	// ValidateQueryByPrompt asks the model whether query answers prompt for
	// the given network.
	ValidateQueryByPrompt(ctx context.Context, prompt, query, network string) (bool, error)
	BuildPromptFromTxidAndBlock(ctx context.Context, txid string, block int64, network, template string) (string, error)
}

// OpenAI-compatible chat completion payloads.
type (
	ChatMessage struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	ChatRequest struct {
		Model       string        `json:"model"`
		Messages    []ChatMessage `json:"messages"`
		Temperature float64       `json:"temperature"`
		MaxTokens   int           `json:"max_tokens,omitempty"`
	}

	ChatResponse struct {
		ID      string       `json:"id"`
		Object  string       `json:"object"`
		Created int64        `json:"created"`
		Model   string       `json:"model"`
		Choices []ChatChoice `json:"choices"`
		Usage   Usage        `json:"usage"`
	}

	ChatChoice struct {
		Index        int          `json:"index"`
		Message      *ChatMessage `json:"message"`
		FinishReason string       `json:"finish_reason"`
	}

	Usage struct {
		PromptTokens     uint64 `json:"prompt_tokens"`
		CompletionTokens uint64 `json:"completion_tokens"`
		TotalTokens      uint64 `json:"total_tokens"`
	}

	apiError struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
)
