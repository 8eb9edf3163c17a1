package validator

import (
	"sort"

	"github.com/chaininsights/validator/internal/ledger"
	chainutils "github.com/chaininsights/validator/internal/utils/chain_utils"
	"github.com/chaininsights/validator/pkg/modulerpc"
)

// FilterPeers returns the modules worth challenging this round: stake under
// the miner cap and a known address. self is never included.
func FilterPeers(modules map[string]ledger.ModuleInfo, addresses map[int]modulerpc.Address, self string) map[int]Peer {
	out := make(map[int]Peer)
	for key, m := range modules {
		if key == self || !chainutils.CheckIfMiner(m.Stake) {
			continue
		}
		addr, ok := addresses[m.UID]
		if !ok {
			continue
		}
		out[m.UID] = Peer{UID: m.UID, Key: key, Address: addr, Module: m}
	}
	return out
}

// sortedPeers orders peers by uid so dispatch results can be paired back
// positionally.
func sortedPeers(peers map[int]Peer) []Peer {
	out := make([]Peer, 0, len(peers))
	for _, p := range peers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out
}
