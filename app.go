package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"govassist/app/client/llm"
	"govassist/app/config"
	"govassist/app/service/api"
	"govassist/app/service/catalog"
	"govassist/app/service/classifier"
	"govassist/app/service/conversation"
	"govassist/app/service/lexicon"
	"govassist/app/service/linker"
	"govassist/app/service/mcptools"
	"govassist/app/service/memory"
	"govassist/app/service/session"
	"govassist/app/service/strategy"
	"govassist/app/service/suggest"
	"govassist/app/util/mylog"

	"github.com/samber/do"
	"github.com/samber/oops"
)

// setup loads the config and wires every service. The returned context is cancelled
// on SIGINT or SIGTERM; the caller must call shutdown when done.
func setup() (*do.Injector, context.Context, func(), error) {
	appCtx, cancel := context.WithCancel(context.Background())

	cfg, err := config.Load(configPath)
	if err != nil {
		cancel()
		return nil, nil, nil, oops.Wrapf(err, "config load failed")
	}

	if err = mylog.Init(cfg); err != nil {
		cancel()
		return nil, nil, nil, oops.Wrapf(err, "logging init failed")
	}

	di := do.New()
	do.ProvideValue(di, appCtx)
	do.ProvideValue(di, cfg)

	do.Provide(di, func(*do.Injector) (*lexicon.Library, error) {
		return lexicon.Default()
	})
	do.Provide(di, func(*do.Injector) (*catalog.Catalog, error) {
		return catalog.Default()
	})
	do.Provide(di, llm.New)
	do.Provide(di, classifier.New)
	do.Provide(di, memory.New)
	do.Provide(di, linker.New)
	do.Provide(di, strategy.New)
	do.Provide(di, suggest.New)
	do.Provide(di, conversation.New)
	do.Provide(di, session.New)
	do.Provide(di, api.New)
	do.Provide(di, mcptools.New)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sig)

		select {
		case <-sig:
			slog.Info("Shutting down...")
			cancel()
		case <-appCtx.Done():
		}
	}()

	shutdown := func() {
		cancel()
		slog.Info("Waiting for services to finish...")
		if err := di.Shutdown(); err != nil {
			slog.Error("Shutdown failed", "error", err)
		}
	}

	return di, appCtx, shutdown, nil
}
