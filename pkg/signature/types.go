package signature

import (
	"time"

	"github.com/ChainSafe/gossamer/lib/crypto/sr25519"
)

const (
	SubstrateNetworkId = 42

	DefaultKeyDir = "~/.commune/key"

	// MaxRequestAge bounds how old a signed request timestamp may be.
	MaxRequestAge = 2 * time.Minute
)

type SignatureVerifier interface {
	// Verify checks if the provided signature is valid for the given message and SS58 address.
	Verify(message, signature, ss58Address string) (bool, error)
}

// Verifier is a concrete implementation of SignatureVerifier
type Verifier struct{}

type SignatureProvider interface {
	// Sign generates a signature for the given message using the validator key
	Sign(message string) (string, error)
	// Address returns the SS58 address of the signing key.
	Address() string
}

// Provider is a concrete implementation of SignatureProvider
type Provider struct {
	keypair *sr25519.Keypair
	address string
}

// keyFile mirrors the on-disk commune key layout. The actual key material
// lives in Data, itself a JSON document.
type keyFile struct {
	Data string `json:"data"`
}

// KeyData holds the key material fields this package understands.
type KeyData struct {
	Mnemonic    string `json:"mnemonic"`
	SeedHex     string `json:"seed_hex"`
	SS58Address string `json:"ss58_address"`
}

type keyEnvConfig struct {
	KeyDir string `env:"KEY_DIR, default=~/.commune/key"`
}
