package signature

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/ChainSafe/gossamer/lib/crypto/sr25519"
	"github.com/vedhavyas/go-subkey"
)

// NewVerifier creates a new signature verifier
func NewVerifier() *Verifier {
	return &Verifier{}
}

// Verify implements the SignatureVerifier interface
func (v *Verifier) Verify(message, signature, ss58Address string) (bool, error) {
	return Verify(message, signature, ss58Address)
}

func Verify(message, signature, ss58Address string) (bool, error) {
	if !strings.HasPrefix(signature, "0x") {
		return false, fmt.Errorf("signature does not start with '0x'")
	}

	sigBytes, err := hex.DecodeString(signature[2:])
	if err != nil {
		return false, fmt.Errorf("failed to decode signature hex: %w", err)
	}
	if len(sigBytes) != 64 {
		return false, fmt.Errorf("invalid signature length: expected 64 bytes, got %d", len(sigBytes))
	}

	_, pubKeyBytes, err := subkey.SS58Decode(ss58Address)
	if err != nil {
		return false, fmt.Errorf("failed to decode SS58 address to derive public key: %w", err)
	}

	publicKey, err := sr25519.NewPublicKey(pubKeyBytes)
	if err != nil {
		return false, fmt.Errorf("failed to create public key: %w", err)
	}

	return publicKey.Verify([]byte(message), sigBytes)
}

// VerifyRequest checks a request signature and rejects timestamps further
// than MaxRequestAge from now.
func VerifyRequest(v SignatureVerifier, timestamp int64, body []byte, signature, ss58Address string, now time.Time) (bool, error) {
	age := now.Sub(time.Unix(timestamp, 0))
	if age > MaxRequestAge || age < -MaxRequestAge {
		return false, fmt.Errorf("request timestamp outside allowed window: %s", age)
	}
	return v.Verify(RequestMessage(timestamp, body), signature, ss58Address)
}
