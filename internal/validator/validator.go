// Package validator implements the validator runtime: the per-round discovery
// filter, challenge dispatch, scoring, weight allocation and the validation
// loop, plus the organic query operation served by the public API.
package validator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/chaininsights/validator/internal/config"
	"github.com/chaininsights/validator/internal/ledger"
	"github.com/chaininsights/validator/internal/llm"
	"github.com/chaininsights/validator/internal/utils/redis"
	"github.com/chaininsights/validator/internal/weights"
)

// Dependencies groups the collaborators a Validator needs. Redis is optional.
type Dependencies struct {
	Ledger          ledger.LedgerInterface
	Peers           PeerCaller
	Nodes           NodeResolver
	LLM             llm.LLMInterface
	FundsFlow       ChallengeSource
	BalanceTracking ChallengeSource
	Prompts         PromptSource
	Responses       ResponseCache
	Receipts        ReceiptStore
	Miners          MinerStore
	Weights         weights.Store
	Redis           redis.RedisInterface
}

// Validator challenges miners, scores them and votes their weights.
type Validator struct {
	Dependencies

	Key    string // SS58 address of this validator
	Config *config.ValidatorEnvConfig

	Ctx    context.Context
	Cancel context.CancelFunc
	Wg     sync.WaitGroup

	round   atomic.Int64 // local fallback when Redis is absent
	running atomic.Bool
}

func NewValidator(cfg *config.ValidatorEnvConfig, key string, deps Dependencies) (*Validator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	if key == "" {
		return nil, fmt.Errorf("validator key cannot be empty")
	}
	required := map[string]any{
		"ledger":           deps.Ledger,
		"peers":            deps.Peers,
		"nodes":            deps.Nodes,
		"llm":              deps.LLM,
		"funds flow":       deps.FundsFlow,
		"balance tracking": deps.BalanceTracking,
		"prompts":          deps.Prompts,
		"responses":        deps.Responses,
		"receipts":         deps.Receipts,
		"miners":           deps.Miners,
		"weights":          deps.Weights,
	}
	for name, dep := range required {
		if isNil(dep) {
			return nil, fmt.Errorf("%s dependency cannot be nil", name)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	log.Info().
		Str("validator_key", key).
		Int("netuid", cfg.Netuid).
		Str("iteration_interval", cfg.IterationInterval.String()).
		Int("max_allowed_weights", cfg.MaxAllowedWeights).
		Msg("validator initialized")

	return &Validator{
		Dependencies: deps,
		Key:          key,
		Config:       cfg,
		Ctx:          ctx,
		Cancel:       cancel,
	}, nil
}

// Start runs the validation loop in the background.
func (v *Validator) Start() {
	v.Wg.Add(1)
	go v.runLoop()
}

// Stop signals termination and waits for the loop to exit.
func (v *Validator) Stop() {
	if v.Cancel != nil {
		v.Cancel()
	}
	v.Wg.Wait()
}
