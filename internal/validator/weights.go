package validator

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/chaininsights/validator/internal/ledger"
	chainutils "github.com/chaininsights/validator/internal/utils/chain_utils"
)

// allocateWeights converts the round's scores into the persisted weight map
// and votes it. A store failure aborts the allocation; a vote failure is only
// logged since the next round votes again.
func (v *Validator) allocateWeights(ctx context.Context, scores map[int]float64) (map[int]int, error) {
	capped := chainutils.CutToMaxAllowedWeights(scores, v.Config.MaxAllowedWeights)

	previous, err := v.Weights.Load()
	if err != nil {
		return nil, fmt.Errorf("load weights: %w", err)
	}

	next := chainutils.ConvertScoresToWeights(capped)
	if err := v.Weights.Save(next); err != nil {
		return nil, fmt.Errorf("save weights: %w", err)
	}
	log.Info().
		Int("previous", len(previous)).
		Int("current", len(next)).
		Interface("weights", next).
		Msg("weights persisted")

	if len(next) == 0 {
		return next, nil
	}

	uids, vals := chainutils.SortedUidsAndWeights(next)
	resp, err := v.Ledger.Vote(ctx, ledger.VoteParams{
		Netuid:  v.Config.Netuid,
		Key:     v.Key,
		Uids:    uids,
		Weights: vals,
	})
	if err != nil {
		log.Error().Err(err).Ints("uids", uids).Msg("failed to submit weights")
		return next, nil
	}
	log.Info().Str("extrinsic_hash", resp.Data).Ints("uids", uids).Ints("weights", vals).Msg("weights submitted")
	return next, nil
}
