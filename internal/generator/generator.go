package generator

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/chaininsights/validator/internal/config"
	"github.com/chaininsights/validator/internal/llm"
	"github.com/chaininsights/validator/internal/nodes"
	"github.com/chaininsights/validator/internal/protocol"
)

var retryInitialInterval = 1 * time.Second

type Generator struct {
	cfg             *config.GeneratorEnvConfig
	nodes           NodeResolver
	llm             llm.LLMInterface
	fundsFlow       ChallengeStore
	balanceTracking ChallengeStore
	prompts         PromptStore

	wg sync.WaitGroup
}

func NewGenerator(
	cfg *config.GeneratorEnvConfig,
	n NodeResolver,
	l llm.LLMInterface,
	fundsFlow ChallengeStore,
	balanceTracking ChallengeStore,
	prompts PromptStore,
) *Generator {
	return &Generator{
		cfg:             cfg,
		nodes:           n,
		llm:             l,
		fundsFlow:       fundsFlow,
		balanceTracking: balanceTracking,
		prompts:         prompts,
	}
}

func (g *Generator) jobs() []job {
	var jobs []job
	for _, network := range g.nodes.Networks() {
		jobs = append(jobs,
			job{
				kind:      KindPrompt,
				network:   network,
				frequency: g.cfg.PromptFrequency,
				produce:   g.producePrompt,
			},
			job{
				kind:      KindFundsFlow,
				network:   network,
				frequency: g.cfg.FundsFlowChallengeFrequency,
				produce:   g.produceFundsFlow,
			},
			job{
				kind:      KindBalanceTracking,
				network:   network,
				frequency: g.cfg.BalanceTrackingChallengeFrequency,
				produce:   g.produceBalanceTracking,
			},
		)
	}
	return jobs
}

// Start launches one producer per (kind, network) pair. Producers stop when
// ctx is cancelled; Wait joins them.
func (g *Generator) Start(ctx context.Context) {
	for _, j := range g.jobs() {
		if j.frequency <= 0 {
			log.Warn().Str("kind", j.kind).Str("network", j.network).Msg("generator disabled, non-positive frequency")
			continue
		}
		g.wg.Add(1)
		go g.run(ctx, j)
	}
}

func (g *Generator) Wait() {
	g.wg.Wait()
}

func (g *Generator) run(ctx context.Context, j job) {
	defer g.wg.Done()
	log.Info().Str("kind", j.kind).Str("network", j.network).Str("frequency", j.frequency.String()).Msg("generator started")

	t := time.NewTicker(j.frequency)
	defer t.Stop()

	for {
		g.tick(ctx, j)
		select {
		case <-ctx.Done():
			log.Info().Str("kind", j.kind).Str("network", j.network).Msg("generator stopped")
			return
		case <-t.C:
		}
	}
}

// tick produces and stores one item. Once an item has been produced it is
// stored even if ctx was cancelled in the meantime.
func (g *Generator) tick(ctx context.Context, j job) {
	if ctx.Err() != nil {
		return
	}
	node, err := g.nodes.Node(j.network)
	if err != nil {
		log.Error().Err(err).Str("kind", j.kind).Msg("no node for generator")
		return
	}

	var store func() error
	operation := func() error {
		s, err := j.produce(ctx, node)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(errors.Join(err, ctx.Err()))
			}
			log.Debug().Err(err).Str("kind", j.kind).Str("network", j.network).Msg("produce attempt failed")
			return err
		}
		store = s
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = retryInitialInterval
	bo.Multiplier = 2
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = j.frequency

	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		log.Error().Err(err).Str("kind", j.kind).Str("network", j.network).Msg("failed to produce item")
		return
	}

	if err := store(); err != nil {
		log.Error().Err(err).Str("kind", j.kind).Str("network", j.network).Msg("failed to store item")
		return
	}
	log.Info().Str("kind", j.kind).Str("network", j.network).Msg("item stored")
}

// randomTx samples a transaction from a random confirmed block.
func randomTx(ctx context.Context, node nodes.Node) (*nodes.Transaction, error) {
	head, err := node.CurrentBlockHeight(ctx)
	if err != nil {
		return nil, err
	}
	last := head - nodes.ConfirmationDepth
	if last < 0 {
		return nil, fmt.Errorf("chain too short: head %d", head)
	}
	return node.RandomTxFromBlock(ctx, rand.Int64N(last+1))
}

func (g *Generator) producePrompt(ctx context.Context, node nodes.Node) (func() error, error) {
	tx, err := randomTx(ctx, node)
	if err != nil {
		return nil, err
	}
	templates := promptTemplates[node.Network()]
	if len(templates) == 0 {
		return nil, backoff.Permanent(fmt.Errorf("no prompt templates for %s", node.Network()))
	}
	template := templates[rand.IntN(len(templates))]

	prompt, err := g.llm.BuildPromptFromTxidAndBlock(ctx, tx.TxID, tx.BlockHeight, node.Network(), template)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}
	log.Debug().Str("network", node.Network()).Str("prompt", prompt).Msg("generated prompt")

	return func() error {
		return g.prompts.StorePrompt(prompt, protocol.ModelKindFundsFlow, tx.BlockData, node.Network(), g.cfg.PromptThreshold)
	}, nil
}

func (g *Generator) produceFundsFlow(ctx context.Context, node nodes.Node) (func() error, error) {
	tx, err := randomTx(ctx, node)
	if err != nil {
		return nil, err
	}
	challenge, err := FundsFlowChallenge(tx)
	if err != nil {
		return nil, err
	}
	return func() error {
		return g.fundsFlow.StoreChallenge(challenge, tx.TxID, node.Network(), g.cfg.FundsFlowChallengeThreshold)
	}, nil
}

func (g *Generator) produceBalanceTracking(ctx context.Context, node nodes.Node) (func() error, error) {
	tx, err := randomTx(ctx, node)
	if err != nil {
		return nil, err
	}
	if len(tx.Addresses) == 0 {
		return nil, fmt.Errorf("%w: tx %s has no addresses", nodes.ErrEmptyBlock, tx.TxID)
	}
	address := tx.Addresses[rand.IntN(len(tx.Addresses))]

	balance, err := node.BalanceAt(ctx, address, tx.BlockHeight)
	if err != nil {
		return nil, fmt.Errorf("balance of %s: %w", address, err)
	}
	challenge, err := BalanceTrackingChallenge(tx.BlockHeight, address)
	if err != nil {
		return nil, err
	}
	return func() error {
		return g.balanceTracking.StoreChallenge(challenge, balance, node.Network(), g.cfg.BalanceTrackingChallengeThreshold)
	}, nil
}

// FundsFlowChallenge describes tx without revealing its id; the expected
// answer is the full tx id.
func FundsFlowChallenge(tx *nodes.Transaction) (string, error) {
	in, out := tx.InTotal, tx.OutTotal
	id := strings.TrimPrefix(tx.TxID, "0x")
	if len(id) > 6 {
		id = id[len(id)-6:]
	}
	return sonic.MarshalString(protocol.Challenge{
		ModelKind:      protocol.ModelKindFundsFlow,
		BlockHeight:    tx.BlockHeight,
		InTotalAmount:  &in,
		OutTotalAmount: &out,
		TxIDLast6Chars: id,
	})
}

// BalanceTrackingChallenge asks for the balance of address at height.
func BalanceTrackingChallenge(height int64, address string) (string, error) {
	return sonic.MarshalString(protocol.Challenge{
		ModelKind:   protocol.ModelKindBalanceTracking,
		BlockHeight: height,
		Address:     address,
	})
}
