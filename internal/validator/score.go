package validator

import "github.com/chaininsights/validator/internal/protocol"

const (
	scoreOneChallengeFailed = 0.15
	scoreChallengesPassed   = 0.3
	scoreQueryValid         = 0.15
	scoreReceiptWeight      = 0.55
)

// Score maps a miner's round outcome and receipt multiplier to [0, 1]. The
// query verdict only counts when both challenges passed, and the multiplier
// only when the verdict is affirmative.
func Score(outcome *protocol.ChallengeMinerResponse, receiptMultiplier float64) float64 {
	if outcome == nil {
		return 0
	}
	switch outcome.FailedChallenges() {
	case 0:
	case 1:
		return scoreOneChallengeFailed
	default:
		return 0
	}

	score := scoreChallengesPassed
	if outcome.QueryValidationResult == nil || !*outcome.QueryValidationResult {
		return score
	}
	score += scoreQueryValid
	score += scoreReceiptWeight * min(1, max(0, receiptMultiplier))
	return min(1, score)
}
