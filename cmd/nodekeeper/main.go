package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/yourneighborhoodchef/nodekeeper/internal/client"
	"github.com/yourneighborhoodchef/nodekeeper/internal/config"
	"github.com/yourneighborhoodchef/nodekeeper/internal/input"
	"github.com/yourneighborhoodchef/nodekeeper/internal/logging"
	"github.com/yourneighborhoodchef/nodekeeper/internal/supervisor"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to a config file (yaml, toml or json)")
	tokenFile := flag.String("tokens", "", "token list, one per line (default token.txt)")
	proxyFile := flag.String("proxies", "", "proxy list, host:port:user:pass per line (default proxy.txt)")
	proxyMode := flag.String("proxy-mode", "", "none, use or ask (default ask)")
	clientKind := flag.String("client", "", "tls or standard (default tls)")
	flag.Parse()

	if err := config.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load env file: %v\n", err)
	}

	overrides := map[string]any{}
	for key, val := range map[string]string{
		"token_file": *tokenFile,
		"proxy_file": *proxyFile,
		"proxy_mode": *proxyMode,
		"client":     *clientKind,
	} {
		if val != "" {
			overrides[key] = val
		}
	}

	cfg, err := config.Load(*configPath, overrides)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}

	log, err := logging.New(logging.Options{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		NoColor: cfg.Log.NoColor,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return 1
	}
	defer log.Sync()

	tokens, err := input.LoadTokens(cfg.TokenFile)
	if err != nil {
		log.Error("startup error", zap.Error(err))
		return 1
	}

	useProxy := cfg.ProxyMode == config.ProxyModeUse
	if cfg.ProxyMode == config.ProxyModeAsk {
		useProxy, err = input.AskUseProxy(os.Stdin, os.Stdout)
		if err != nil {
			log.Error("startup error", zap.Error(err))
			return 1
		}
	}

	var proxies []string
	if useProxy {
		proxies, err = input.LoadProxies(cfg.ProxyFile)
		if err != nil {
			log.Warn("running without proxies", zap.Error(err))
		} else if len(proxies) == 0 {
			log.Warn("proxy file is empty, running without proxies", zap.String("file", cfg.ProxyFile))
		}
	}

	factory, err := client.NewFactory(cfg)
	if err != nil {
		log.Error("startup error", zap.Error(err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting workers",
		zap.Int("accounts", len(tokens)),
		zap.Int("proxies", len(proxies)),
		zap.String("client", cfg.Client),
		zap.Duration("interval", cfg.RetryInterval),
	)

	sum := supervisor.New(supervisor.Options{
		Config:       cfg,
		Log:          log,
		NewTransport: factory,
	}).Run(ctx, tokens, proxies)

	fields := []zap.Field{
		zap.Int("started", sum.Started),
		zap.Int("terminated", sum.Terminated),
		zap.Int("stopped", sum.Stopped),
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		log.Info("shutdown complete", fields...)
	} else {
		log.Info("all workers finished", fields...)
	}
	return 0
}
