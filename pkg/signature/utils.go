package signature

import (
	"github.com/ChainSafe/gossamer/lib/crypto/sr25519"
	"github.com/vedhavyas/go-subkey"
)

func ToSs58Address(keypair *sr25519.Keypair) string {
	return subkey.SS58Encode(keypair.Public().Encode(), SubstrateNetworkId)
}

// IsValidSs58Address reports whether address decodes as an SS58 account.
func IsValidSs58Address(address string) bool {
	_, pub, err := subkey.SS58Decode(address)
	return err == nil && len(pub) == 32
}
