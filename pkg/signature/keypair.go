package signature

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/ChainSafe/gossamer/lib/crypto/sr25519"
	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-envconfig"
)

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	usr, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("failed to get current user: %w", err)
	}
	return filepath.Join(usr.HomeDir, path[2:]), nil
}

// ParseKeyData decodes a key file. Both the wrapped layout ({"data": "<json>"})
// and a bare key document are accepted.
func ParseKeyData(raw []byte) (*KeyData, error) {
	var wrapped keyFile
	if err := sonic.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to parse key JSON: %w", err)
	}

	inner := raw
	if wrapped.Data != "" {
		inner = []byte(wrapped.Data)
	}

	var kd KeyData
	if err := sonic.Unmarshal(inner, &kd); err != nil {
		return nil, fmt.Errorf("failed to parse key data: %w", err)
	}
	if kd.Mnemonic == "" && kd.SeedHex == "" {
		return nil, fmt.Errorf("key data has neither mnemonic nor seed_hex")
	}
	return &kd, nil
}

// KeypairFromKeyData builds the sr25519 keypair, preferring the mnemonic.
func KeypairFromKeyData(kd *KeyData) (*sr25519.Keypair, error) {
	if kd.Mnemonic != "" {
		kp, err := sr25519.NewKeypairFromMnenomic(kd.Mnemonic, "")
		if err != nil {
			return nil, fmt.Errorf("failed to create keypair from mnemonic: %w", err)
		}
		return kp, nil
	}

	seed, err := hex.DecodeString(strings.TrimPrefix(kd.SeedHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to decode seed_hex: %w", err)
	}
	kp, err := sr25519.NewKeypairFromSeed(seed)
	if err != nil {
		return nil, fmt.Errorf("failed to create keypair from seed: %w", err)
	}
	return kp, nil
}

// LoadKeypair reads <KEY_DIR>/<name>.json and returns its keypair.
func LoadKeypair(keyDir, name string) (*sr25519.Keypair, error) {
	if keyDir == "" {
		var envCfg keyEnvConfig
		if err := envconfig.Process(context.Background(), &envCfg); err != nil {
			return nil, fmt.Errorf("failed to process key environment: %w", err)
		}
		keyDir = envCfg.KeyDir
		log.Debug().Str("key_dir", keyDir).Msg("KEY_DIR resolved from environment")
	}

	dir, err := expandHome(keyDir)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, name+".json")

	raw, err := os.ReadFile(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to read key file")
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	kd, err := ParseKeyData(raw)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to parse key file")
		return nil, err
	}

	kp, err := KeypairFromKeyData(kd)
	if err != nil {
		return nil, err
	}

	if kd.SS58Address != "" && kd.SS58Address != ToSs58Address(kp) {
		return nil, fmt.Errorf("key %s: derived address does not match ss58_address in file", name)
	}

	log.Debug().Str("key", name).Str("address", ToSs58Address(kp)).Msg("Loaded keypair")
	return kp, nil
}
