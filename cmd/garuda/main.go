package main

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/layer-3/garuda/adapters/chain"
	"github.com/layer-3/garuda/adapters/events"
	"github.com/layer-3/garuda/adapters/keyset"
	"github.com/layer-3/garuda/adapters/signing"
	"github.com/layer-3/garuda/adapters/store"
	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/service"
	"github.com/layer-3/garuda/transport/http"
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	ctx := context.Background()

	// Redis backs both the replay guard and the event stream.
	redisURL := getenv("REDIS_URL", "redis://localhost:6379/0")
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse Redis URL")
	}
	redisClient := redis.NewClient(opts)

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: redisClient,
		},
		watermill.NewStdLogger(false, false),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create Redis publisher")
	}

	chainClient, err := chain.Dial(ctx, getenv("RPC_URL", "http://localhost:8545"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to RPC endpoint")
	}

	networkClient := signing.NewNetworkClient(getenv("SIGNING_NETWORK_URL", "http://localhost:7470"), 30*time.Second)
	capacity := service.NewCapacityCache(networkClient)
	networkClient.UseCapacityCache(capacity)

	identity := core.Account{
		Address: common.HexToAddress(mustGetenv(logger, "ACCOUNT_ADDRESS")),
	}
	if pub := os.Getenv("ACCOUNT_PUBLIC_KEY"); pub != "" {
		identity.PublicKey = hexutil.MustDecode(pub)
	}

	relayerKey, err := crypto.HexToECDSA(mustGetenv(logger, "RELAYER_PRIVATE_KEY"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse relayer key")
	}

	issuerKeys, err := loadIdentityKeySet()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load identity issuer key")
	}

	account := service.NewAccount(identity, networkClient, logger)
	issuer := service.NewSessionIssuer(
		networkClient,
		issuerKeys,
		mustGetenv(logger, "IDENTITY_ISSUER"),
		os.Getenv("IDENTITY_AUDIENCE"),
		logger,
	)
	builder := service.NewAuthorizationBuilder(account, chainClient)
	relayer := service.NewRelayer(chainClient, relayerKey, logger)
	verifier := service.NewVerifier(
		chainClient,
		store.NewRedisStore(redisClient),
		events.NewWatermillPublisher(publisher),
		logger,
	)

	wallet := service.NewWalletService(account, issuer, builder, relayer, verifier)

	router := http.SetupRouter(wallet)

	addr := ":" + getenv("PORT", "9000")
	logger.Info().Str("addr", addr).Str("account", identity.Address.Hex()).Msg("starting server")
	if err := router.Run(addr); err != nil {
		logger.Fatal().Err(err).Msg("failed to start server")
	}
}

// loadIdentityKeySet reads the identity issuer's verification key from a
// PEM file and registers it under IDENTITY_KEY_ID.
func loadIdentityKeySet() (*keyset.StaticKeySet, error) {
	path := os.Getenv("IDENTITY_KEY_FILE")
	if path == "" {
		return nil, fmt.Errorf("IDENTITY_KEY_FILE is required")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("no PEM block in %s", path)
	}

	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	kid := getenv("IDENTITY_KEY_ID", "default")
	return keyset.NewStaticKeySet(map[string]interface{}{kid: key}), nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func mustGetenv(logger zerolog.Logger, key string) string {
	v := os.Getenv(key)
	if v == "" {
		logger.Fatal().Str("var", key).Msg("required environment variable is not set")
	}
	return v
}
