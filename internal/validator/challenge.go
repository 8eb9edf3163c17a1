package validator

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"github.com/chaininsights/validator/internal/protocol"
)

// dispatch challenges every peer concurrently. The result at index i belongs
// to peers[i]; nil means the peer failed.
func (v *Validator) dispatch(ctx context.Context, peers []Peer) []*protocol.ChallengeMinerResponse {
	out := make([]*protocol.ChallengeMinerResponse, len(peers))
	var wg sync.WaitGroup
	for i, p := range peers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out[i] = v.challengeMiner(ctx, p)
		}()
	}
	wg.Wait()
	return out
}

// challengeMiner runs the full exchange against one peer. Any failure,
// including a panic, yields nil without affecting other peers.
func (v *Validator) challengeMiner(ctx context.Context, peer Peer) (resp *protocol.ChallengeMinerResponse) {
	start := time.Now()
	logger := log.With().Int("uid", peer.UID).Str("miner_key", peer.Key).Str("address", peer.Address.String()).Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("challenge panicked")
			resp = nil
		}
	}()

	resp, err := v.runChallenge(ctx, peer)
	if err != nil {
		logger.Info().Err(err).Str("execution_time", since(start)).Msg("miner failed challenge round")
		return nil
	}
	logger.Debug().
		Str("network", resp.Network).
		Int("failed_challenges", resp.FailedChallenges()).
		Interface("query_validation_result", resp.QueryValidationResult).
		Str("execution_time", since(start)).
		Msg("miner challenged")
	return resp
}

func (v *Validator) runChallenge(ctx context.Context, peer Peer) (*protocol.ChallengeMinerResponse, error) {
	var discovery protocol.Discovery
	if err := v.callPeer(ctx, peer, protocol.MethodDiscovery, struct{}{}, &discovery, v.Config.ChallengeTimeout); err != nil {
		return nil, fmt.Errorf("discovery: %w", err)
	}
	if err := discovery.Validate(); err != nil {
		return nil, fmt.Errorf("discovery: %w", err)
	}
	network := discovery.Network

	if _, err := v.Nodes.Node(network); err != nil {
		return nil, err
	}

	resp := &protocol.ChallengeMinerResponse{Network: network}

	var err error
	resp.FundsFlowActual, resp.FundsFlowExpected, err = v.executeChallenge(ctx, peer, v.FundsFlow, network)
	if err != nil {
		return nil, fmt.Errorf("funds flow challenge: %w", err)
	}
	resp.BalanceTrackingActual, resp.BalanceTrackingExpected, err = v.executeChallenge(ctx, peer, v.BalanceTracking, network)
	if err != nil {
		return nil, fmt.Errorf("balance tracking challenge: %w", err)
	}

	prompt, err := v.Prompts.GetRandomPrompt(network)
	if err != nil {
		return nil, fmt.Errorf("validation prompt: %w", err)
	}

	payload := protocol.LlmQueryPayload{LlmMessagesList: protocol.LlmMessageList{
		Messages: []protocol.LlmMessage{{Type: protocol.LlmMessageTypeUser, Content: prompt.Prompt}},
	}}
	var outputs protocol.LlmMessageOutputList
	if err := v.callPeer(ctx, peer, protocol.MethodLlmQuery, payload, &outputs, v.Config.LLMQueryTimeout); err != nil {
		return nil, fmt.Errorf("llm query: %w", err)
	}
	if err := outputs.Validate(); err != nil {
		return nil, fmt.Errorf("llm query: %w", err)
	}
	answer := outputs.Outputs[0]

	judgeCtx, cancel := context.WithTimeout(ctx, v.Config.LLMQueryTimeout)
	defer cancel()
	valid, err := v.validateQueryResponse(judgeCtx, prompt, peer.Key, answer.Query, answer.Result, network)
	if err != nil {
		return nil, fmt.Errorf("query validation: %w", err)
	}
	resp.QueryValidationResult = &valid

	return resp, nil
}

// executeChallenge sends one stored challenge of src and returns the peer's
// answer together with the expected value.
func (v *Validator) executeChallenge(ctx context.Context, peer Peer, src ChallengeSource, network string) (string, string, error) {
	raw, expected, err := src.GetRandomChallenge(network)
	if err != nil {
		return "", "", err
	}
	var challenge protocol.Challenge
	if err := sonic.UnmarshalString(raw, &challenge); err != nil {
		return "", "", fmt.Errorf("decode stored challenge: %w", err)
	}
	if err := challenge.Validate(); err != nil {
		return "", "", err
	}

	var answered protocol.Challenge
	if err := v.callPeer(ctx, peer, protocol.MethodChallenge, protocol.ChallengeRequest{Challenge: challenge}, &answered, v.Config.ChallengeTimeout); err != nil {
		return "", "", err
	}

	challenge.Output = answered.Output
	actual, err := challenge.Actual()
	if err != nil {
		return "", "", err
	}
	return actual, expected, nil
}

func (v *Validator) callPeer(ctx context.Context, peer Peer, method string, params, out any, timeout time.Duration) error {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return v.Peers.Call(callCtx, peer.Address, peer.Key, method, params, out)
}
