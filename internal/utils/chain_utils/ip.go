package chainutils

import (
	"github.com/rs/zerolog/log"

	"github.com/chaininsights/validator/pkg/modulerpc"
)

// ResolveAddresses parses the uid to "host:port" map published on the ledger.
// Placeholder hosts are rewritten to the wildcard host and unparsable entries
// are dropped.
func ResolveAddresses(raw map[int]string) map[int]modulerpc.Address {
	out := make(map[int]modulerpc.Address, len(raw))
	for uid, addr := range raw {
		parsed, err := modulerpc.ParseAddress(modulerpc.NormalizeAddress(addr))
		if err != nil {
			log.Debug().Err(err).Int("uid", uid).Msg("skipping module with unusable address")
			continue
		}
		out[uid] = parsed
	}
	return out
}
