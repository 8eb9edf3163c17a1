// Package chainutils holds helpers over subnet data published by the ledger.
package chainutils

// MaxMinerStake is the stake at or above which a module is treated as a
// validator and never challenged.
const MaxMinerStake = 5000

func CheckIfMiner(stake float64) bool {
	return stake < MaxMinerStake
}
