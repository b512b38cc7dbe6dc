package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/layer-3/signal/adapters/events"
	"github.com/layer-3/signal/adapters/store"
	"github.com/layer-3/signal/adapters/tokenizer"
	"github.com/layer-3/signal/core"
	"github.com/layer-3/signal/internal/config"
	"github.com/layer-3/signal/internal/logging"
	"github.com/layer-3/signal/ports"
	"github.com/layer-3/signal/service"
	"github.com/layer-3/signal/transport/http"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load(os.Getenv("SIGNAL_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("devapi stopped")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx := context.Background()

	signKey, err := loadSigningKey(cfg.Server.SigningKey)
	if err != nil {
		return err
	}
	if cfg.Server.SigningKey == "" {
		logger.Warn().Msg("no signing key configured, session tokens will not survive a restart")
	}

	var keys ports.KeyStore = store.NewMemoryKeyStore()
	var challenges ports.ChallengeStore = store.NewMemoryChallengeStore()
	var eventPub ports.EventPublisher = events.NopPublisher{}

	if cfg.Store.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.Store.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()

		if err := store.Ping(ctx, redisClient); err != nil {
			return err
		}

		// Initialize Watermill Redis publisher
		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{
				Client: redisClient,
			},
			watermill.NewStdLogger(false, false),
		)
		if err != nil {
			return fmt.Errorf("create redis publisher: %w", err)
		}
		defer publisher.Close()

		keys = store.NewRedisKeyStore(redisClient)
		challenges = store.NewRedisChallengeStore(redisClient)
		eventPub = events.NewWatermillPublisher(publisher)
	}

	tk := tokenizer.NewJWTTokenizer(signKey)
	allowlist := store.NewMemoryAllowlist(cfg.Server.Allowlist...)
	sessions := service.NewSessionIssuer(tk, allowlist, challenges, logger)
	issuer := service.NewKeyIssuer(keys, eventPub, logger)

	deployments, err := seedDeployments(cfg.Server.Deployments)
	if err != nil {
		return err
	}

	if cfg.Server.PrintTokens {
		logger.Warn().Int("count", len(cfg.Server.Allowlist)).Msg("printing session tokens to stdout")
		if err := printTokens(os.Stdout, sessions, cfg.Server.Allowlist); err != nil {
			return err
		}
	}

	router := http.SetupRouter(
		http.NewAPIHandlers(sessions, issuer, allowlist, deployments, logger),
		tk,
		logger,
	)

	logger.Info().Str("addr", cfg.Server.HTTPAddr).Msg("devapi listening")
	return router.Run(cfg.Server.HTTPAddr)
}

// seedDeployments builds the in-memory deployment catalog from config.
func seedDeployments(seeds map[string][]config.DeploymentConfig) (*store.MemoryDeployments, error) {
	catalog := store.NewMemoryDeployments()
	for appID, deployments := range seeds {
		for _, d := range deployments {
			ts, err := time.Parse(time.RFC3339, d.Timestamp)
			if err != nil {
				return nil, fmt.Errorf("deployment %s of %s: %w", d.DeployID, appID, err)
			}
			catalog.Add(appID, core.Deployment{DeployID: d.DeployID, SID: d.SID, Timestamp: ts})
		}
	}
	return catalog, nil
}

// printTokens writes a session token per address, for clients that cannot
// run the wallet login.
func printTokens(w io.Writer, sessions *service.SessionIssuer, addresses []string) error {
	for _, address := range addresses {
		token, err := sessions.SessionFor(address)
		if err != nil {
			return fmt.Errorf("session for %s: %w", address, err)
		}
		fmt.Fprintf(w, "session token for %s:\n  %s\n", address, token)
	}
	return nil
}

// loadSigningKey reads a PEM encoded EC private key, or generates a fresh
// P-256 key when path is empty.
func loadSigningKey(path string) (*ecdsa.PrivateKey, error) {
	if path == "" {
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read signing key: %w", err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("signing key %s is not PEM encoded", path)
	}
	key, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse signing key: %w", err)
	}
	return key, nil
}
