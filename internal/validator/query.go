package validator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/chaininsights/validator/internal/protocol"
	"github.com/chaininsights/validator/internal/storage"
	"github.com/chaininsights/validator/pkg/modulerpc"
)

// QueryMiner forwards an organic prompt either to the requested miner or to a
// sample of the best known miners of the network, and records a receipt for
// every miner that answered.
func (v *Validator) QueryMiner(ctx context.Context, req protocol.LlmQueryRequest) (*protocol.QueryResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	promptHash, err := PromptHash(req.Prompt)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	resp := &protocol.QueryResponse{
		RequestID:  uuid.NewString(),
		Timestamp:  now.Format(time.RFC3339Nano),
		PromptHash: promptHash,
		MinerKeys:  []string{},
		Response:   []any{},
	}
	logger := log.With().Str("request_id", resp.RequestID).Str("network", req.Network).Logger()

	miners, err := v.queryTargets(req)
	if err != nil {
		return nil, err
	}
	if len(miners) == 0 {
		logger.Info().Str("miner_key", req.MinerKey).Msg("no miners available for query")
		return resp, nil
	}

	results := make([]any, len(miners))
	var wg sync.WaitGroup
	for i, m := range miners {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = v.queryOne(ctx, m, req.Prompt)
		}()
	}
	wg.Wait()

	for i, m := range miners {
		resp.MinerKeys = append(resp.MinerKeys, m.MinerKey)
		resp.Response = append(resp.Response, results[i])
		if results[i] == nil {
			continue
		}
		if err := v.Receipts.StoreMinerReceipt(resp.RequestID, m.MinerKey, promptHash, req.Network, now); err != nil {
			logger.Error().Err(err).Str("miner_key", m.MinerKey).Msg("failed to store miner receipt")
		}
	}

	logger.Info().Strs("miner_keys", resp.MinerKeys).Msg("query served")
	return resp, nil
}

func (v *Validator) queryTargets(req protocol.LlmQueryRequest) ([]storage.MinerDiscovery, error) {
	if req.MinerKey != "" {
		m, err := v.Miners.GetMinerByKey(req.MinerKey, req.Network)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []storage.MinerDiscovery{*m}, nil
	}

	top, err := v.Miners.GetMinersByNetwork(req.Network, TopMinersPool)
	if err != nil {
		return nil, err
	}
	return sampleMiners(top, QuerySampleSize), nil
}

// queryOne returns the miner's outputs, or nil when it failed or answered
// nothing.
func (v *Validator) queryOne(ctx context.Context, m storage.MinerDiscovery, prompt []protocol.LlmMessage) any {
	callCtx, cancel := context.WithTimeout(ctx, v.Config.LLMQueryTimeout)
	defer cancel()

	var out protocol.LlmMessageOutputList
	addr := modulerpc.Address{Host: m.MinerAddress, Port: m.MinerIPPort}
	payload := protocol.LlmQueryPayload{LlmMessagesList: protocol.LlmMessageList{Messages: prompt}}
	if err := v.Peers.Call(callCtx, addr, m.MinerKey, protocol.MethodLlmQuery, payload, &out); err != nil {
		log.Info().Err(err).Str("miner_key", m.MinerKey).Msg("organic query failed")
		return nil
	}
	if len(out.Outputs) == 0 {
		return nil
	}
	return out.Outputs
}
