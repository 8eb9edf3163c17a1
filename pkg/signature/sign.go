package signature

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/ChainSafe/gossamer/lib/crypto/sr25519"
	"github.com/rs/zerolog/log"
)

// NewProvider creates a new signature provider for the given keypair
func NewProvider(keypair *sr25519.Keypair) (*Provider, error) {
	if keypair == nil {
		return nil, fmt.Errorf("keypair cannot be nil")
	}
	return &Provider{
		keypair: keypair,
		address: ToSs58Address(keypair),
	}, nil
}

// Address returns the SS58 address of the provider's key.
func (p *Provider) Address() string {
	return p.address
}

// Sign implements the SignatureProvider interface
func (p *Provider) Sign(message string) (string, error) {
	if p.keypair == nil {
		return "", fmt.Errorf("private key not initialized")
	}

	signature, err := p.keypair.Sign([]byte(message))
	if err != nil {
		log.Error().Err(err).Msg("Failed to sign message")
		return "", fmt.Errorf("failed to sign message: %w", err)
	}

	return "0x" + hex.EncodeToString(signature), nil
}

// RequestMessage is the payload covered by a request signature.
func RequestMessage(timestamp int64, body []byte) string {
	return strconv.FormatInt(timestamp, 10) + "." + string(body)
}

// SignRequest signs body together with the unix timestamp it is sent at.
func SignRequest(s SignatureProvider, timestamp int64, body []byte) (string, error) {
	return s.Sign(RequestMessage(timestamp, body))
}
