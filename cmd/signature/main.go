// Command signature loads a validator key, prints its SS58 address and
// signs a message with it so operators can check a key before deploying.
package main

import (
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/chaininsights/validator/pkg/signature"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	keyDir := flag.String("key-dir", "", "directory holding <name>.json key files (defaults to KEY_DIR)")
	name := flag.String("key", "", "key name to load")
	message := flag.String("message", "Hello, world!", "message to sign")
	expect := flag.String("expect", "", "SS58 address the key is expected to have")
	flag.Parse()

	if *name == "" {
		log.Fatal().Msg("-key is required")
	}

	keypair, err := signature.LoadKeypair(*keyDir, *name)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load key")
	}
	provider, err := signature.NewProvider(keypair)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create signature provider")
	}
	address := provider.Address()
	log.Info().Str("address", address).Msg("key loaded")

	if *expect != "" {
		if !signature.IsValidSs58Address(*expect) {
			log.Fatal().Str("expect", *expect).Msg("expected address is not a valid SS58 address")
		}
		if *expect != address {
			log.Fatal().Str("expect", *expect).Str("address", address).Msg("key address mismatch")
		}
	}

	sig, err := provider.Sign(*message)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to sign message")
	}
	ok, err := signature.Verify(*message, sig, address)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to verify signature")
	}
	log.Info().Str("signature", sig).Bool("valid", ok).Msg("signed message")

	// Same envelope the peer RPC client sends in its headers.
	ts := time.Now().Unix()
	reqSig, err := signature.SignRequest(provider, ts, []byte(*message))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to sign request")
	}
	ok, err = signature.VerifyRequest(signature.NewVerifier(), ts, []byte(*message), reqSig, address, time.Now())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to verify request signature")
	}
	log.Info().Int64("timestamp", ts).Bool("valid", ok).Msg("signed request")
}
