package validator

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/chaininsights/validator/internal/protocol"
	"github.com/chaininsights/validator/internal/storage"
)

// validateQueryResponse judges a miner's query for prompt. The miner's
// earliest cached verdict is reused when it is affirmative for the identical
// query; otherwise the LLM decides and the verdict is cached.
func (v *Validator) validateQueryResponse(
	ctx context.Context,
	prompt *storage.ValidationPrompt,
	minerKey, query string,
	result any,
	network string,
) (bool, error) {
	if cached := firstResponseOf(prompt.Responses, minerKey); cached != nil && cached.Query == query && cached.IsValid {
		log.Debug().Str("miner_key", minerKey).Uint("prompt_id", prompt.ID).Msg("query validation cache hit")
		return true, nil
	}

	valid, err := v.LLM.ValidateQueryByPrompt(ctx, prompt.Prompt, query, network)
	if err != nil {
		return false, err
	}

	resultText, err := protocol.ResultString(result)
	if err != nil {
		log.Warn().Err(err).Str("miner_key", minerKey).Msg("failed to stringify query result")
	}
	if err := v.Responses.StoreResponse(prompt.ID, minerKey, query, resultText, valid); err != nil {
		log.Error().Err(err).Str("miner_key", minerKey).Uint("prompt_id", prompt.ID).Msg("failed to cache query verdict")
	}
	return valid, nil
}

// firstResponseOf returns the earliest cached response recorded for minerKey.
// Responses are loaded in insertion order.
func firstResponseOf(responses []storage.ValidationPromptResponse, minerKey string) *storage.ValidationPromptResponse {
	for i := range responses {
		if responses[i].MinerKey == minerKey {
			return &responses[i]
		}
	}
	return nil
}
