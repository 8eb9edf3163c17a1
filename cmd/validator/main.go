package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/chaininsights/validator/internal/api"
	"github.com/chaininsights/validator/internal/config"
	"github.com/chaininsights/validator/internal/generator"
	"github.com/chaininsights/validator/internal/ledger"
	"github.com/chaininsights/validator/internal/llm"
	"github.com/chaininsights/validator/internal/nodes"
	"github.com/chaininsights/validator/internal/storage"
	"github.com/chaininsights/validator/internal/utils/logger"
	"github.com/chaininsights/validator/internal/utils/redis"
	"github.com/chaininsights/validator/internal/validator"
	"github.com/chaininsights/validator/internal/weights"
	"github.com/chaininsights/validator/pkg/modulerpc"
	"github.com/chaininsights/validator/pkg/signature"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger.Init()
	defer logger.Close()

	environment := config.Mainnet
	if args := flag.Args(); len(args) > 0 {
		environment = args[0]
	}
	envFile, err := config.LoadEnvironment(environment)
	if err != nil {
		if envFile == "" {
			log.Fatal().Err(err).Msg("invalid environment")
		}
		log.Warn().Err(err).Str("env_file", envFile).Msg("env file not loaded; continuing with existing environment")
	}
	log.Info().Str("environment", environment).Msg("Starting validator...")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load environment configuration")
	}

	keypair, err := signature.LoadKeypair(cfg.KeyDir, cfg.ValidatorKey)
	if err != nil {
		log.Fatal().Err(err).Str("key", cfg.ValidatorKey).Msg("failed to load validator key")
	}
	signer, err := signature.NewProvider(keypair)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init signer")
	}
	if err := logger.Configure(signer.Address(), cfg.LogFile); err != nil {
		log.Fatal().Err(err).Msg("failed to configure logger")
	}
	log.Info().Msgf("Validator key %s loaded!", signer.Address())

	if err := storage.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		log.Fatal().Err(err).Msg("failed to apply migrations")
	}
	db, err := storage.Open(&cfg.DatabaseEnvConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	fundsFlow := storage.NewFundsFlowChallengeManager(db)
	balanceTracking := storage.NewBalanceTrackingChallengeManager(db)
	prompts := storage.NewPromptManager(db)

	ledgerClient, err := ledger.NewLedger(&cfg.LedgerEnvConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init ledger client")
	}

	peers, err := modulerpc.NewClient(&modulerpc.ClientConfig{Timeout: cfg.PeerCallTimeout()}, signer)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init module client")
	}
	defer peers.Close()

	judge, err := llm.New(&cfg.LLMEnvConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init llm backend")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	nodeRegistry, err := nodes.NewRegistryFromConfig(ctx, &cfg.NodeEnvConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect blockchain nodes")
	}

	var r redis.RedisInterface
	if client, err := redis.NewRedis(&cfg.RedisEnvConfig); err != nil {
		log.Error().Err(err).Msg("failed to init redis client, continuing without redis")
	} else {
		r = client
		defer client.Close()
	}

	weightsPath, err := filepath.Abs(cfg.WeightsFileName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to resolve weights file path")
	}

	v, err := validator.NewValidator(&cfg.ValidatorEnvConfig, signer.Address(), validator.Dependencies{
		Ledger:          ledgerClient,
		Peers:           peers,
		Nodes:           nodeRegistry,
		LLM:             judge,
		FundsFlow:       fundsFlow,
		BalanceTracking: balanceTracking,
		Prompts:         prompts,
		Responses:       storage.NewPromptResponseManager(db),
		Receipts:        storage.NewReceiptManager(db),
		Miners:          storage.NewMinerDiscoveryManager(db),
		Weights:         weights.NewFileStore(weightsPath),
		Redis:           r,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init validator")
	}

	gen := generator.NewGenerator(&cfg.GeneratorEnvConfig, nodeRegistry, judge, fundsFlow, balanceTracking, prompts)
	gen.Start(v.Ctx)

	var limiter *api.RateLimiter
	if r != nil {
		limiter = api.NewRateLimiter(r, cfg.APIRateLimit)
	} else {
		log.Warn().Msg("api rate limiting disabled, redis unavailable")
	}
	server := api.NewServer(&cfg.ServerEnvConfig, v, limiter, cfg.QueryTimeout)
	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("api server stopped")
		}
	}()

	v.Start()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received, stopping validator")

	done := make(chan struct{})
	go func() {
		if err := server.Shutdown(); err != nil {
			log.Error().Err(err).Msg("failed to shut down api server")
		}
		v.Stop()
		gen.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("validator stopped")
	case <-time.After(shutdownTimeout):
		log.Error().Msg("timed out waiting for workers, exiting")
		os.Exit(1)
	}
}
