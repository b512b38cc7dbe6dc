package main

import (
	"context"
	"fmt"
	"io"

	"github.com/layer-3/signal/adapters/api"
	"github.com/layer-3/signal/adapters/store"
	"github.com/layer-3/signal/adapters/wallet"
	"github.com/layer-3/signal/internal/config"
	"github.com/layer-3/signal/internal/logging"
	"github.com/layer-3/signal/ports"
	"github.com/layer-3/signal/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

// runtime wires the client services for one command invocation.
type runtime struct {
	cfg    *config.Config
	logger zerolog.Logger

	wallet      *wallet.KeyWallet
	sessions    *service.SessionStore
	auth        *service.Authenticator
	login       *service.LoginService
	keys        *service.KeyService
	deployments *service.DeploymentService

	closers []io.Closer
}

func newRuntime(c *cli.Context) (*runtime, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("api-url") {
		cfg.API.URL = c.String("api-url")
	}
	if c.IsSet("log-level") {
		cfg.Logging.Level = c.String("log-level")
	}

	rt := &runtime{
		cfg:    cfg,
		logger: logging.New(cfg.Logging.Level, cfg.Logging.Format),
	}

	kv, err := rt.openStore(c.Context)
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.sessions, err = service.NewSessionStore(c.Context, kv, rt.logger)
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.wallet, err = wallet.LoadKeyWallet(cfg.Wallet.PrivateKey, cfg.Wallet.KeyFile, terminalConfirm(c.App.Reader, c.App.Writer))
	if err != nil {
		rt.Close()
		return nil, err
	}

	client := api.NewClient(cfg.API.URL, cfg.API.RequestTimeout, rt.logger)
	checker := service.NewAllowlistChecker(client, cfg.API.RequestTimeout, rt.logger)
	rt.auth = service.NewAuthenticator(rt.wallet, checker, rt.sessions, rt.logger)
	rt.login = service.NewLoginService(rt.auth, rt.wallet, client, cfg.API.RequestTimeout, rt.logger)
	rt.keys = service.NewKeyService(rt.auth, rt.wallet, client, cfg.API.RequestTimeout, rt.logger)
	rt.deployments = service.NewDeploymentService(rt.sessions, client, cfg.API.RequestTimeout)
	return rt, nil
}

func (rt *runtime) openStore(ctx context.Context) (ports.KeyValueStore, error) {
	switch rt.cfg.Store.Driver {
	case config.StoreMemory:
		return store.NewMemoryKV(), nil
	case config.StoreRedis:
		opts, err := redis.ParseURL(rt.cfg.Store.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		rt.closers = append(rt.closers, client)
		if err := store.Ping(ctx, client); err != nil {
			return nil, err
		}
		return store.NewRedisKV(client), nil
	default:
		kv, err := store.OpenLevelDBKV(rt.cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, kv)
		return kv, nil
	}
}

func (rt *runtime) Close() {
	for _, c := range rt.closers {
		if err := c.Close(); err != nil {
			rt.logger.Warn().Err(err).Msg("close failed")
		}
	}
}
