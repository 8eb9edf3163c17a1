package validator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/chaininsights/validator/internal/protocol"
	chainutils "github.com/chaininsights/validator/internal/utils/chain_utils"
)

// runLoop executes rounds until the validator context is cancelled. The
// signal is checked after every round and interrupts the sleep between them.
func (v *Validator) runLoop() {
	defer v.Wg.Done()

	for {
		if v.Ctx.Err() != nil {
			log.Info().Msg("validation loop stopped")
			return
		}

		start := time.Now()
		if err := v.runRound(v.Ctx); err != nil {
			log.Error().Err(err).Str("execution_time", since(start)).Msg("validation round failed")
		}

		if v.Ctx.Err() != nil {
			log.Info().Msg("validation loop stopped after round")
			return
		}

		remaining := v.Config.IterationInterval - time.Since(start)
		if remaining > 0 {
			log.Info().Str("sleep", remaining.Round(time.Second).String()).Msg("waiting for next round")
		}
		if !sleepContext(v.Ctx, remaining) {
			log.Info().Msg("validation loop stopped during sleep")
			return
		}
	}
}

// sleepContext waits for d or until ctx is done, reporting whether the full
// duration elapsed.
func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// runRound is one discovery, dispatch, score and allocate pass. Work already
// started is not interrupted by cancellation of ctx.
func (v *Validator) runRound(ctx context.Context) error {
	start := time.Now()
	round := v.nextRound(ctx)
	ctx = context.WithoutCancel(ctx)
	logger := log.With().Int64("round", round).Logger()

	modules, err := v.Ledger.GetModules(ctx, v.Config.Netuid)
	if err != nil {
		return fmt.Errorf("get modules: %w", err)
	}
	addresses, err := v.Ledger.GetAddresses(ctx, v.Config.Netuid)
	if err != nil {
		return fmt.Errorf("get addresses: %w", err)
	}

	if !chainutils.IsRegistered(modules.Data, v.Key) {
		return fmt.Errorf("%w: key %s netuid %d", ErrNotRegistered, v.Key, v.Config.Netuid)
	}

	peers := sortedPeers(FilterPeers(modules.Data, chainutils.ResolveAddresses(addresses.Data), v.Key))
	if len(peers) == 0 {
		logger.Info().Msg("no eligible miners this round")
		return nil
	}
	logger.Info().Int("count", len(peers)).Str("uids", uidList(peers)).Msg("challenging miners")

	for _, p := range peers {
		if err := v.Miners.UpdateMinerRank(p.Key, p.Module.Emission); err != nil {
			logger.Warn().Err(err).Str("miner_key", p.Key).Msg("failed to update miner rank")
		}
	}

	outcomes := v.dispatch(ctx, peers)
	scores := v.scoreOutcomes(peers, outcomes)

	summary := RoundSummary{Round: round, Peers: len(peers), Answered: len(scores), Scores: scores}
	if len(scores) == 0 {
		logger.Info().Str("execution_time", since(start)).Msg("no miner answered, skipping weight allocation")
		summary.FinishedAt = time.Now().UTC()
		v.publishRound(ctx, summary)
		return nil
	}

	weightMap, err := v.allocateWeights(ctx, scores)
	if err != nil {
		return fmt.Errorf("allocate weights: %w", err)
	}

	summary.Weights = weightMap
	summary.FinishedAt = time.Now().UTC()
	v.publishRound(ctx, summary)

	logger.Info().
		Int("answered", len(scores)).
		Int("peers", len(peers)).
		Str("execution_time", since(start)).
		Msg("validation round finished")
	return nil
}

// scoreOutcomes scores every peer that answered and records its bookkeeping.
// Peers without an outcome are left out of the map.
func (v *Validator) scoreOutcomes(peers []Peer, outcomes []*protocol.ChallengeMinerResponse) map[int]float64 {
	scores := make(map[int]float64, len(peers))
	for i, p := range peers {
		outcome := outcomes[i]
		if outcome == nil {
			continue
		}

		multiplier, err := v.Receipts.GetReceiptMinerMultiplier(p.Key)
		if err != nil {
			log.Warn().Err(err).Str("miner_key", p.Key).Msg("failed to read receipt multiplier, using 0")
			multiplier = 0
		}
		scores[p.UID] = Score(outcome, multiplier)

		if err := v.Miners.StoreMinerMetadata(p.UID, p.Key, p.Address.Host, p.Address.Port, outcome.Network); err != nil {
			log.Warn().Err(err).Str("miner_key", p.Key).Msg("failed to store miner metadata")
		}
		if err := v.Miners.UpdateMinerChallenges(p.Key, outcome.FailedChallenges(), protocol.ChallengeCount); err != nil {
			log.Warn().Err(err).Str("miner_key", p.Key).Msg("failed to update miner challenges")
		}

		log.Debug().
			Int("uid", p.UID).
			Str("miner_key", p.Key).
			Float64("receipt_multiplier", multiplier).
			Float64("score", scores[p.UID]).
			Msg("miner scored")
	}
	return scores
}
